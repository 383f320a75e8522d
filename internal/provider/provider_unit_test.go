package provider_test

import (
	"strings"
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/function"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/providerserver"
	"github.com/hashicorp/terraform-plugin-go/tfprotov6"
	"github.com/hashicorp/terraform-plugin-testing/helper/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	this "github.com/eguibarit/terraform-provider-housekeeping/internal/provider"
)

// TestProviderMetadata tests the provider metadata.
func TestProviderMetadata(t *testing.T) {
	p := &this.HousekeepingProvider{Version: "test"}

	req := provider.MetadataRequest{}
	resp := &provider.MetadataResponse{}

	p.Metadata(t.Context(), req, resp)

	if resp.TypeName != "housekeeping" {
		t.Errorf("Expected TypeName 'housekeeping', got %s", resp.TypeName)
	}

	if resp.Version != "test" {
		t.Errorf("Expected Version 'test', got %s", resp.Version)
	}
}

// TestProviderSchema tests the provider schema.
func TestProviderSchema(t *testing.T) {
	p := &this.HousekeepingProvider{}

	req := provider.SchemaRequest{}
	resp := &provider.SchemaResponse{}

	p.Schema(t.Context(), req, resp)

	if resp.Diagnostics.HasError() {
		t.Fatalf("Schema creation failed: %v", resp.Diagnostics)
	}

	requiredAttributes := []string{
		"domain", "ldap_url", "base_dn",
		"username", "password",
		"kerberos_realm", "kerberos_keytab", "kerberos_config", "kerberos_ccache", "kerberos_spn",
		"use_tls", "skip_tls_verify", "tls_ca_cert_file",
		"tls_client_cert_file", "tls_client_key_file",
		"max_connections", "max_idle_time", "connect_timeout",
		"max_retries", "initial_backoff", "max_backoff",
		"query_timeout", "load_schema_maps",
	}

	for _, attr := range requiredAttributes {
		if _, exists := resp.Schema.Attributes[attr]; !exists {
			t.Errorf("Expected attribute %s not found in schema", attr)
		}
	}

	if !resp.Schema.Attributes["password"].IsSensitive() {
		t.Error("Expected password to be sensitive")
	}
}

// TestProviderResources tests the provider resources.
func TestProviderResources(t *testing.T) {
	p := &this.HousekeepingProvider{}

	assert.Empty(t, p.Resources(t.Context()))
}

// TestProviderDataSources tests the provider data sources.
func TestProviderDataSources(t *testing.T) {
	p := &this.HousekeepingProvider{}

	dataSources := p.DataSources(t.Context())

	expectedDataSources := []string{
		"housekeeping_identity",
		"housekeeping_identities",
		"housekeeping_well_known_principal",
		"housekeeping_schema_guid",
	}

	got := make([]string, 0, len(dataSources))
	for i, dataSourceFunc := range dataSources {
		ds := dataSourceFunc()
		if ds == nil {
			t.Fatalf("Data source function %d returned nil", i)
		}

		resp := &datasource.MetadataResponse{}
		ds.Metadata(t.Context(), datasource.MetadataRequest{ProviderTypeName: "housekeeping"}, resp)
		got = append(got, resp.TypeName)

		schemaResp := &datasource.SchemaResponse{}
		ds.Schema(t.Context(), datasource.SchemaRequest{}, schemaResp)
		assert.False(t, schemaResp.Diagnostics.HasError(), resp.TypeName)
	}

	assert.Equal(t, expectedDataSources, got)
}

// TestDataSourcesConfigure checks the handling of provider data.
func TestDataSourcesConfigure(t *testing.T) {
	p := &this.HousekeepingProvider{}

	for _, dataSourceFunc := range p.DataSources(t.Context()) {
		ds, ok := dataSourceFunc().(datasource.DataSourceWithConfigure)
		require.True(t, ok)

		unconfigured := &datasource.ConfigureResponse{}
		ds.Configure(t.Context(), datasource.ConfigureRequest{}, unconfigured)
		assert.False(t, unconfigured.Diagnostics.HasError())

		configured := &datasource.ConfigureResponse{}
		ds.Configure(t.Context(), datasource.ConfigureRequest{ProviderData: &this.ProviderData{}}, configured)
		assert.False(t, configured.Diagnostics.HasError())

		wrongType := &datasource.ConfigureResponse{}
		ds.Configure(t.Context(), datasource.ConfigureRequest{ProviderData: "not provider data"}, wrongType)
		assert.True(t, wrongType.Diagnostics.HasError())
	}
}

// TestProviderConfigValidators tests the provider config validators.
func TestProviderConfigValidators(t *testing.T) {
	p := &this.HousekeepingProvider{}

	validators := p.ConfigValidators(t.Context())

	if len(validators) != 2 {
		t.Errorf("Expected 2 config validators, got %d", len(validators))
	}

	for i, validator := range validators {
		if validator == nil {
			t.Errorf("Config validator %d is nil", i)
		}
	}
}

// TestProviderFunctions tests the provider functions.
func TestProviderFunctions(t *testing.T) {
	p := &this.HousekeepingProvider{}

	functions := p.Functions(t.Context())

	want := []string{"is_valid_dn", "is_valid_sid", "is_valid_guid", "well_known_sid", "classify_identity"}
	got := make([]string, 0, len(functions))
	for _, fn := range functions {
		f := fn()
		require.NotNil(t, f)

		resp := &function.MetadataResponse{}
		f.Metadata(t.Context(), function.MetadataRequest{}, resp)
		got = append(got, resp.Name)
	}

	assert.Equal(t, want, got)
}

// TestNewProvider tests the New provider function.
func TestNewProvider(t *testing.T) {
	testCases := []struct {
		name    string
		version string
	}{
		{
			name:    "test version",
			version: "test",
		},
		{
			name:    "dev version",
			version: "dev",
		},
		{
			name:    "release version",
			version: "1.0.0",
		},
		{
			name:    "empty version",
			version: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			providerFunc := this.New(tc.version)
			if providerFunc == nil {
				t.Fatal("New() returned nil")
			}

			provider := providerFunc()
			if provider == nil {
				t.Fatal("Provider function returned nil")
			}

			hkProvider, ok := provider.(*this.HousekeepingProvider)
			if !ok {
				t.Fatal("Provider is not of type *HousekeepingProvider")
			}

			if hkProvider.Version != tc.version {
				t.Errorf("Expected version %s, got %s", tc.version, hkProvider.Version)
			}
		})
	}
}

// TestProviderServer tests provider server creation.
func TestProviderServer(t *testing.T) {
	providerFunc := this.New("test")

	serverFactory := providerserver.NewProtocol6WithError(providerFunc())
	if serverFactory == nil {
		t.Fatal("Provider server factory is nil")
	}

	server, err := serverFactory()
	if err != nil {
		t.Fatalf("Failed to create provider server: %v", err)
	}

	if server == nil {
		t.Fatal("Provider server is nil")
	}
}

// TestProviderConfigValidation tests provider configuration validation.
func TestProviderConfigValidation(t *testing.T) {
	testCases := []struct {
		name   string
		config string
	}{
		{
			name: "valid domain config",
			config: `
provider "housekeeping" {
  domain   = "example.com"
  username = "admin"
  password = "password"
}`,
		},
		{
			name: "valid ldap_url config",
			config: `
provider "housekeeping" {
  ldap_url = "ldaps://dc1.example.com:636"
  username = "admin"
  password = "password"
}`,
		},
		{
			name: "kerberos config",
			config: `
provider "housekeeping" {
  domain          = "example.com"
  username        = "admin"
  kerberos_realm  = "EXAMPLE.COM"
  kerberos_keytab = "/path/to/keytab"
}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resource.Test(t, resource.TestCase{
				ProtoV6ProviderFactories: map[string]func() (tfprotov6.ProviderServer, error){
					"housekeeping": providerserver.NewProtocol6WithError(this.New("test")()),
				},
				Steps: []resource.TestStep{
					{
						Config:   tc.config,
						PlanOnly: true,
					},
				},
			})
		})
	}
}

// TestProviderEnvironmentVariables checks that every environment variable is documented.
func TestProviderEnvironmentVariables(t *testing.T) {
	envVars := []string{
		"HOUSEKEEPING_DOMAIN",
		"HOUSEKEEPING_LDAP_URL",
		"HOUSEKEEPING_BASE_DN",
		"HOUSEKEEPING_USERNAME",
		"HOUSEKEEPING_PASSWORD",
		"HOUSEKEEPING_KERBEROS_REALM",
		"HOUSEKEEPING_KERBEROS_KEYTAB",
		"HOUSEKEEPING_KERBEROS_CONFIG",
		"HOUSEKEEPING_USE_TLS",
		"HOUSEKEEPING_SKIP_TLS_VERIFY",
		"HOUSEKEEPING_TLS_CA_CERT_FILE",
		"HOUSEKEEPING_TLS_CLIENT_CERT_FILE",
		"HOUSEKEEPING_TLS_CLIENT_KEY_FILE",
		"HOUSEKEEPING_QUERY_TIMEOUT",
		"HOUSEKEEPING_LOAD_SCHEMA_MAPS",
	}

	p := &this.HousekeepingProvider{}
	req := provider.SchemaRequest{}
	resp := &provider.SchemaResponse{}

	p.Schema(t.Context(), req, resp)

	for _, envVar := range envVars {
		found := false
		for _, attr := range resp.Schema.Attributes {
			if strings.Contains(attr.GetMarkdownDescription(), envVar) {
				found = true
				break
			}
		}

		if !found {
			t.Errorf("Environment variable %s not found in schema documentation", envVar)
		}
	}
}
