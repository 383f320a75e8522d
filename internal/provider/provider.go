package provider

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/terraform-plugin-framework-validators/int64validator"
	"github.com/hashicorp/terraform-plugin-framework-validators/providervalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/function"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/provider/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/identity"
	ldapclient "github.com/eguibarit/terraform-provider-housekeeping/internal/ldap"
)

// Ensure HousekeepingProvider satisfies various provider interfaces.
var _ provider.Provider = &HousekeepingProvider{}
var _ provider.ProviderWithFunctions = &HousekeepingProvider{}
var _ provider.ProviderWithConfigValidators = &HousekeepingProvider{}

// HousekeepingProvider defines the provider implementation.
type HousekeepingProvider struct {
	// Version is set to the provider version on release, "dev" when the
	// provider is built and ran locally, and "test" when running acceptance
	// testing.
	Version string

	// wellKnown backs the functions and well-known lookups, which work
	// before and without a directory connection.
	wellKnown *identity.WellKnownTable
}

// HousekeepingProviderModel describes the provider data model.
type HousekeepingProviderModel struct {
	// Connection settings - mutually exclusive
	Domain  types.String `tfsdk:"domain"`
	LdapURL types.String `tfsdk:"ldap_url"`
	BaseDN  types.String `tfsdk:"base_dn"`

	// Authentication settings
	Username types.String `tfsdk:"username"`
	Password types.String `tfsdk:"password"`

	// Kerberos settings (optional)
	KerberosRealm  types.String `tfsdk:"kerberos_realm"`
	KerberosKeytab types.String `tfsdk:"kerberos_keytab"`
	KerberosConfig types.String `tfsdk:"kerberos_config"`
	KerberosCCache types.String `tfsdk:"kerberos_ccache"`
	KerberosSPN    types.String `tfsdk:"kerberos_spn"`

	// TLS settings
	UseTLS            types.Bool   `tfsdk:"use_tls"`
	SkipTLSVerify     types.Bool   `tfsdk:"skip_tls_verify"`
	TLSCACertFile     types.String `tfsdk:"tls_ca_cert_file"`
	TLSClientCertFile types.String `tfsdk:"tls_client_cert_file"`
	TLSClientKeyFile  types.String `tfsdk:"tls_client_key_file"`

	// Connection pool settings
	MaxConnections types.Int64 `tfsdk:"max_connections"`
	MaxIdleTime    types.Int64 `tfsdk:"max_idle_time"`
	ConnectTimeout types.Int64 `tfsdk:"connect_timeout"`

	// Retry settings
	MaxRetries     types.Int64 `tfsdk:"max_retries"`
	InitialBackoff types.Int64 `tfsdk:"initial_backoff"`
	MaxBackoff     types.Int64 `tfsdk:"max_backoff"`

	// Resolution settings
	QueryTimeout   types.Int64 `tfsdk:"query_timeout"`
	LoadSchemaMaps types.Bool  `tfsdk:"load_schema_maps"`
}

func (p *HousekeepingProvider) Metadata(ctx context.Context, req provider.MetadataRequest, resp *provider.MetadataResponse) {
	resp.TypeName = "housekeeping"
	resp.Version = p.Version
}

func (p *HousekeepingProvider) Schema(ctx context.Context, req provider.SchemaRequest, resp *provider.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "The Housekeeping provider resolves Active Directory identities (distinguished names, SIDs, GUIDs, " +
			"account names and well-known principals) into typed directory objects over LDAP/LDAPS. " +
			"It supports SRV-based domain controller discovery, connection pooling, and multiple authentication methods.",
		Attributes: map[string]schema.Attribute{
			// Connection settings - mutually exclusive
			"domain": schema.StringAttribute{
				MarkdownDescription: "Active Directory domain name for SRV-based discovery (e.g., `contoso.com`). " +
					"Mutually exclusive with `ldap_url`. Can be set via the `HOUSEKEEPING_DOMAIN` environment variable.",
				Optional: true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"ldap_url": schema.StringAttribute{
				MarkdownDescription: "Direct LDAP/LDAPS URL (e.g., `ldaps://dc1.contoso.com:636`). " +
					"Mutually exclusive with `domain`. Can be set via the `HOUSEKEEPING_LDAP_URL` environment variable.",
				Optional: true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"base_dn": schema.StringAttribute{
				MarkdownDescription: "Base DN for identity searches (e.g., `DC=contoso,DC=com`). " +
					"If not specified, it is discovered from the root DSE. " +
					"Can be set via the `HOUSEKEEPING_BASE_DN` environment variable.",
				Optional: true,
			},

			// Authentication settings
			"username": schema.StringAttribute{
				MarkdownDescription: "Username for LDAP authentication. Supports DN, UPN, or down-level logon name formats. " +
					"Can be set via the `HOUSEKEEPING_USERNAME` environment variable.",
				Optional: true,
			},
			"password": schema.StringAttribute{
				MarkdownDescription: "Password for LDAP authentication. " +
					"Can be set via the `HOUSEKEEPING_PASSWORD` environment variable.",
				Optional:  true,
				Sensitive: true,
			},

			// Kerberos settings
			"kerberos_realm": schema.StringAttribute{
				MarkdownDescription: "Kerberos realm for GSSAPI authentication (e.g., `CONTOSO.COM`). " +
					"Can be set via the `HOUSEKEEPING_KERBEROS_REALM` environment variable.",
				Optional: true,
			},
			"kerberos_keytab": schema.StringAttribute{
				MarkdownDescription: "Path to Kerberos keytab file for authentication. " +
					"Can be set via the `HOUSEKEEPING_KERBEROS_KEYTAB` environment variable.",
				Optional: true,
			},
			"kerberos_config": schema.StringAttribute{
				MarkdownDescription: "Path to Kerberos configuration file. Defaults to `/etc/krb5.conf`; " +
					"a minimal configuration is generated when the file does not exist. " +
					"Can be set via the `HOUSEKEEPING_KERBEROS_CONFIG` environment variable.",
				Optional: true,
			},
			"kerberos_ccache": schema.StringAttribute{
				MarkdownDescription: "Path to Kerberos credential cache file. " +
					"When specified, existing Kerberos tickets are used for authentication. " +
					"Can be set via the `HOUSEKEEPING_KERBEROS_CCACHE` environment variable.",
				Optional: true,
			},
			"kerberos_spn": schema.StringAttribute{
				MarkdownDescription: "Override Service Principal Name (SPN) for Kerberos authentication. " +
					"Format: `ldap/<hostname>` (e.g., `ldap/dc1.contoso.com`). " +
					"Can be set via the `HOUSEKEEPING_KERBEROS_SPN` environment variable.",
				Optional: true,
			},

			// TLS settings
			"use_tls": schema.BoolAttribute{
				MarkdownDescription: "Force TLS/LDAPS connection. Defaults to `true`. " +
					"Can be set via the `HOUSEKEEPING_USE_TLS` environment variable.",
				Optional: true,
			},
			"skip_tls_verify": schema.BoolAttribute{
				MarkdownDescription: "Skip TLS certificate verification. Not recommended for production. Defaults to `false`. " +
					"Can be set via the `HOUSEKEEPING_SKIP_TLS_VERIFY` environment variable.",
				Optional: true,
			},
			"tls_ca_cert_file": schema.StringAttribute{
				MarkdownDescription: "Path to custom CA certificate file for TLS verification. " +
					"Can be set via the `HOUSEKEEPING_TLS_CA_CERT_FILE` environment variable.",
				Optional: true,
			},
			"tls_client_cert_file": schema.StringAttribute{
				MarkdownDescription: "Path to client certificate file for mutual TLS authentication. " +
					"Can be set via the `HOUSEKEEPING_TLS_CLIENT_CERT_FILE` environment variable.",
				Optional: true,
			},
			"tls_client_key_file": schema.StringAttribute{
				MarkdownDescription: "Path to client private key file for mutual TLS authentication. " +
					"Can be set via the `HOUSEKEEPING_TLS_CLIENT_KEY_FILE` environment variable.",
				Optional:  true,
				Sensitive: true,
			},

			// Connection pool settings
			"max_connections": schema.Int64Attribute{
				MarkdownDescription: "Maximum number of connections in the connection pool. Defaults to `10`. " +
					"Can be set via the `HOUSEKEEPING_MAX_CONNECTIONS` environment variable.",
				Optional: true,
			},
			"max_idle_time": schema.Int64Attribute{
				MarkdownDescription: "Maximum idle time for connections in seconds. Defaults to `300` (5 minutes). " +
					"Can be set via the `HOUSEKEEPING_MAX_IDLE_TIME` environment variable.",
				Optional: true,
			},
			"connect_timeout": schema.Int64Attribute{
				MarkdownDescription: "Connection timeout in seconds. Defaults to `30`. " +
					"Can be set via the `HOUSEKEEPING_CONNECT_TIMEOUT` environment variable.",
				Optional: true,
			},

			// Retry settings
			"max_retries": schema.Int64Attribute{
				MarkdownDescription: "Maximum number of retry attempts for failed directory operations. Defaults to `3`. " +
					"Can be set via the `HOUSEKEEPING_MAX_RETRIES` environment variable.",
				Optional: true,
			},
			"initial_backoff": schema.Int64Attribute{
				MarkdownDescription: "Initial backoff delay in milliseconds for retry attempts. Defaults to `500`. " +
					"Can be set via the `HOUSEKEEPING_INITIAL_BACKOFF` environment variable.",
				Optional: true,
			},
			"max_backoff": schema.Int64Attribute{
				MarkdownDescription: "Maximum backoff delay in seconds for retry attempts. Defaults to `30`. " +
					"Can be set via the `HOUSEKEEPING_MAX_BACKOFF` environment variable.",
				Optional: true,
			},

			// Resolution settings
			"query_timeout": schema.Int64Attribute{
				MarkdownDescription: "Timeout in seconds for each directory query issued while resolving an identity. " +
					"Defaults to `30`; `0` disables the limit. Can be set via the `HOUSEKEEPING_QUERY_TIMEOUT` environment variable.",
				Optional: true,
				Validators: []validator.Int64{
					int64validator.AtLeast(0),
				},
			},
			"load_schema_maps": schema.BoolAttribute{
				MarkdownDescription: "Read the schema GUID and extended rights maps from the directory during configuration. " +
					"Required by `housekeeping_schema_guid` for anything other than `All`. Defaults to `true`. " +
					"Can be set via the `HOUSEKEEPING_LOAD_SCHEMA_MAPS` environment variable.",
				Optional: true,
			},
		},
	}
}

// ConfigValidators implements provider.ProviderWithConfigValidators.
func (p *HousekeepingProvider) ConfigValidators(ctx context.Context) []provider.ConfigValidator {
	return []provider.ConfigValidator{
		// Domain and ldap_url are mutually exclusive
		providervalidator.Conflicting(
			path.MatchRoot("domain"),
			path.MatchRoot("ldap_url"),
		),
		// Client certificate and key come together
		providervalidator.RequiredTogether(
			path.MatchRoot("tls_client_cert_file"),
			path.MatchRoot("tls_client_key_file"),
		),
	}
}

func (p *HousekeepingProvider) Configure(ctx context.Context, req provider.ConfigureRequest, resp *provider.ConfigureResponse) {
	var data HousekeepingProviderModel

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	ctx = p.configureLogging(ctx)

	tflog.Info(ctx, "Configuring Housekeeping provider", map[string]any{
		"version": p.Version,
	})

	config := p.buildLDAPConfig(&data, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	start := time.Now()
	client, err := ldapclient.NewClient(ctx, config)
	if err != nil {
		tflog.Error(ctx, "Failed to create LDAP client", map[string]any{
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		resp.Diagnostics.AddError(
			"Unable to Create LDAP Client",
			"An unexpected error occurred when creating the LDAP client. "+
				"If the error is not clear, please contact the provider developers.\n\n"+
				"LDAP Client Error: "+err.Error(),
		)
		return
	}

	start = time.Now()
	if err := client.Connect(ctx); err != nil {
		tflog.Error(ctx, "Connection test failed", map[string]any{
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		resp.Diagnostics.AddError(
			"Unable to Connect to Active Directory",
			"The provider could not establish a connection to Active Directory. "+
				"Please verify your configuration settings.\n\n"+
				"Connection Error: "+err.Error(),
		)
		return
	}

	tflog.Info(ctx, "Connection established successfully", map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
	})

	start = time.Now()
	if err := client.BindWithConfig(ctx); err != nil {
		tflog.Error(ctx, "Authentication test failed", map[string]any{
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		resp.Diagnostics.AddError(
			"Authentication Failed",
			"The provider could not authenticate with Active Directory. "+
				"Please verify your authentication credentials and settings.\n\n"+
				"Authentication Error: "+err.Error(),
		)
		return
	}

	tflog.Info(ctx, "Authentication successful", map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
	})

	var maps *ldapclient.SchemaMaps
	if p.getBoolValue(data.LoadSchemaMaps, "HOUSEKEEPING_LOAD_SCHEMA_MAPS", true) {
		start = time.Now()
		maps, err = ldapclient.LoadSchemaMaps(ctx, client)
		if err != nil {
			// Identity resolution does not need the maps.
			tflog.Warn(ctx, "Schema map load failed, continuing without schema maps", map[string]any{
				"error":       err.Error(),
				"duration_ms": time.Since(start).Milliseconds(),
			})
			resp.Diagnostics.AddWarning(
				"Schema Maps Not Loaded",
				"The schema GUID and extended rights maps could not be read. "+
					"Identity resolution is unaffected, but housekeeping_schema_guid can only answer \"All\".\n\n"+
					"Error: "+err.Error(),
			)
		}
	} else {
		tflog.Debug(ctx, "Schema map loading disabled")
	}

	catalog, err := identity.NewCatalog(p.wellKnownTable(), maps)
	if err != nil {
		resp.Diagnostics.AddError("Unable to Initialize Identity Catalog", err.Error())
		return
	}

	directory := ldapclient.NewDirectory(client, &ldapclient.DirectoryOptions{
		BaseDN:  config.BaseDN,
		Timeout: config.Timeout,
	})

	queryTimeout := time.Duration(p.getInt64Value(data.QueryTimeout, "HOUSEKEEPING_QUERY_TIMEOUT", 30)) * time.Second
	if queryTimeout <= 0 {
		queryTimeout = -1
	}
	resolver, err := identity.NewResolver(directory, catalog, &identity.ResolverOptions{
		QueryTimeout: queryTimeout,
	})
	if err != nil {
		resp.Diagnostics.AddError("Unable to Initialize Identity Resolver", err.Error())
		return
	}

	tables := catalog.Tables()
	tflog.Info(ctx, "Housekeeping provider configured successfully", map[string]any{
		"catalog_generation": catalog.Generation(),
		"well_known_sids":    tables.WellKnown.Len(),
		"schema_guids":       tables.Schema.Len(),
		"extended_rights":    tables.ExtendedRights.Len(),
	})

	providerData := &ProviderData{
		Client:   client,
		Resolver: resolver,
		Catalog:  catalog,
	}

	resp.DataSourceData = providerData
	resp.ResourceData = providerData
}

// configureLogging sets up persistent log fields and the provider subsystems.
func (p *HousekeepingProvider) configureLogging(ctx context.Context) context.Context {
	ctx = tflog.SetField(ctx, "provider", "housekeeping")
	ctx = tflog.SetField(ctx, "provider_version", p.Version)
	ctx = initializeSubsystems(ctx)

	tflog.Debug(ctx, "Housekeeping provider logging configured")

	return ctx
}

func (p *HousekeepingProvider) wellKnownTable() *identity.WellKnownTable {
	if p.wellKnown == nil {
		p.wellKnown = identity.MustNewWellKnownTable(identity.DefaultWellKnownEntries())
	}
	return p.wellKnown
}

// buildLDAPConfig constructs the LDAP client configuration from provider config and environment variables.
func (p *HousekeepingProvider) buildLDAPConfig(data *HousekeepingProviderModel, diags *diag.Diagnostics) *ldapclient.ConnectionConfig {
	config := ldapclient.NewConnectionConfig()

	if domain := p.getStringValue(data.Domain, "HOUSEKEEPING_DOMAIN"); domain != "" {
		config.Domain = domain
	}

	if ldapURL := p.getStringValue(data.LdapURL, "HOUSEKEEPING_LDAP_URL"); ldapURL != "" {
		config.LDAPURLs = []string{ldapURL}
	}

	if config.Domain == "" && len(config.LDAPURLs) == 0 {
		diags.AddError(
			"Missing Connection Configuration",
			"Either 'domain' or 'ldap_url' must be configured, directly or through the "+
				"HOUSEKEEPING_DOMAIN or HOUSEKEEPING_LDAP_URL environment variables.",
		)
		return config
	}

	if baseDN := p.getStringValue(data.BaseDN, "HOUSEKEEPING_BASE_DN"); baseDN != "" {
		config.BaseDN = baseDN
	}

	config.Username = p.getStringValue(data.Username, "HOUSEKEEPING_USERNAME")
	config.Password = p.getStringValue(data.Password, "HOUSEKEEPING_PASSWORD")
	config.KerberosRealm = p.getStringValue(data.KerberosRealm, "HOUSEKEEPING_KERBEROS_REALM")
	config.KerberosKeytab = p.getStringValue(data.KerberosKeytab, "HOUSEKEEPING_KERBEROS_KEYTAB")
	config.KerberosCCache = p.getStringValue(data.KerberosCCache, "HOUSEKEEPING_KERBEROS_CCACHE")
	config.KerberosSPN = p.getStringValue(data.KerberosSPN, "HOUSEKEEPING_KERBEROS_SPN")
	if krb5conf := p.getStringValue(data.KerberosConfig, "HOUSEKEEPING_KERBEROS_CONFIG"); krb5conf != "" {
		config.KerberosConfig = krb5conf
	}

	config.TLSCACertFile = p.getStringValue(data.TLSCACertFile, "HOUSEKEEPING_TLS_CA_CERT_FILE")
	config.TLSClientCertFile = p.getStringValue(data.TLSClientCertFile, "HOUSEKEEPING_TLS_CLIENT_CERT_FILE")
	config.TLSClientKeyFile = p.getStringValue(data.TLSClientKeyFile, "HOUSEKEEPING_TLS_CLIENT_KEY_FILE")

	if !config.HasAuthentication() {
		diags.AddError(
			"Missing Authentication Configuration",
			"Username/password, Kerberos, or client certificate authentication must be configured. "+
				"For username/password: provide 'username' and 'password' or set HOUSEKEEPING_USERNAME and HOUSEKEEPING_PASSWORD. "+
				"For Kerberos: provide 'kerberos_realm' with 'kerberos_keytab', 'kerberos_ccache', or a password. "+
				"For client certificates: provide 'tls_client_cert_file' and 'tls_client_key_file'.",
		)
		return config
	}

	if useTLS := p.getBoolValue(data.UseTLS, "HOUSEKEEPING_USE_TLS", true); !useTLS {
		config.UseTLS = false
	}

	if skipTLSVerify := p.getBoolValue(data.SkipTLSVerify, "HOUSEKEEPING_SKIP_TLS_VERIFY", false); skipTLSVerify {
		if config.TLSConfig == nil {
			config.TLSConfig = &tls.Config{}
		}
		config.TLSConfig.InsecureSkipVerify = true
	}

	if maxConnections := p.getInt64Value(data.MaxConnections, "HOUSEKEEPING_MAX_CONNECTIONS", 10); maxConnections > 0 {
		config.MaxConnections = int(maxConnections)
	}

	if maxIdleTime := p.getInt64Value(data.MaxIdleTime, "HOUSEKEEPING_MAX_IDLE_TIME", 300); maxIdleTime > 0 {
		config.MaxIdleTime = time.Duration(maxIdleTime) * time.Second
	}

	if connectTimeout := p.getInt64Value(data.ConnectTimeout, "HOUSEKEEPING_CONNECT_TIMEOUT", 30); connectTimeout > 0 {
		config.Timeout = time.Duration(connectTimeout) * time.Second
	}

	if maxRetries := p.getInt64Value(data.MaxRetries, "HOUSEKEEPING_MAX_RETRIES", 3); maxRetries >= 0 {
		config.MaxRetries = int(maxRetries)
	}

	if initialBackoff := p.getInt64Value(data.InitialBackoff, "HOUSEKEEPING_INITIAL_BACKOFF", 500); initialBackoff > 0 {
		config.InitialBackoff = time.Duration(initialBackoff) * time.Millisecond
	}

	if maxBackoff := p.getInt64Value(data.MaxBackoff, "HOUSEKEEPING_MAX_BACKOFF", 30); maxBackoff > 0 {
		config.MaxBackoff = time.Duration(maxBackoff) * time.Second
	}

	return config
}

// Helper functions for configuration value resolution

func (p *HousekeepingProvider) getStringValue(configValue types.String, envVar string) string {
	if !configValue.IsNull() && configValue.ValueString() != "" {
		return configValue.ValueString()
	}
	return os.Getenv(envVar)
}

func (p *HousekeepingProvider) getBoolValue(configValue types.Bool, envVar string, defaultValue bool) bool {
	if !configValue.IsNull() {
		return configValue.ValueBool()
	}
	if envValue := os.Getenv(envVar); envValue != "" {
		if parsed, err := strconv.ParseBool(envValue); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (p *HousekeepingProvider) getInt64Value(configValue types.Int64, envVar string, defaultValue int64) int64 {
	if !configValue.IsNull() {
		return configValue.ValueInt64()
	}
	if envValue := os.Getenv(envVar); envValue != "" {
		if parsed, err := strconv.ParseInt(envValue, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (p *HousekeepingProvider) Resources(ctx context.Context) []func() resource.Resource {
	return nil
}

func (p *HousekeepingProvider) DataSources(ctx context.Context) []func() datasource.DataSource {
	return []func() datasource.DataSource{
		NewIdentityDataSource,
		NewIdentitiesDataSource,
		func() datasource.DataSource { return NewWellKnownPrincipalDataSource(p.wellKnownTable()) },
		NewSchemaGUIDDataSource,
	}
}

func (p *HousekeepingProvider) Functions(ctx context.Context) []func() function.Function {
	table := p.wellKnownTable()
	return []func() function.Function{
		NewIsValidDNFunction,
		func() function.Function { return NewIsValidSIDFunction(table) },
		NewIsValidGUIDFunction,
		func() function.Function { return NewWellKnownSIDFunction(table) },
		func() function.Function { return NewClassifyIdentityFunction(table) },
	}
}

func New(version string) func() provider.Provider {
	return func() provider.Provider {
		return &HousekeepingProvider{
			Version:   version,
			wellKnown: identity.MustNewWellKnownTable(identity.DefaultWellKnownEntries()),
		}
	}
}
