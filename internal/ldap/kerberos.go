package ldap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	"github.com/hashicorp/terraform-plugin-log/tflog"
	krb5client "github.com/jcmturner/gokrb5/v8/client"
	krb5config "github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/credentials"
	"github.com/jcmturner/gokrb5/v8/keytab"
)

// performKerberosAuth binds conn with GSSAPI using, in order of preference,
// a credential cache, a keytab, or a password.
func performKerberosAuth(ctx context.Context, conn *ldap.Conn, cfg *ConnectionConfig, serverInfo *ServerInfo) error {
	principal, realm, err := kerberosPrincipal(cfg)
	if err != nil {
		return fmt.Errorf("kerberos configuration error: %w", err)
	}

	krb5conf, err := loadKrb5Config(ctx, cfg, realm)
	if err != nil {
		return fmt.Errorf("kerberos configuration error: %w", err)
	}

	krbClient, source, err := newKerberosClient(cfg, principal, realm, krb5conf)
	if err != nil {
		return fmt.Errorf("failed to create Kerberos client: %w", err)
	}

	gssapiClient := &gssapi.Client{Client: krbClient}
	defer func() {
		_ = gssapiClient.DeleteSecContext()
	}()

	spn, err := buildServicePrincipal(cfg, serverInfo)
	if err != nil {
		return fmt.Errorf("failed to build service principal: %w", err)
	}

	tflog.SubsystemDebug(ctx, SubsystemLDAP, "Performing GSSAPI bind", map[string]any{
		"principal":          principal,
		"realm":              realm,
		"spn":                spn,
		"credentials_source": source,
	})

	if err := conn.GSSAPIBind(gssapiClient, spn, ""); err != nil {
		return fmt.Errorf("GSSAPI bind failed: %w", err)
	}

	return nil
}

// kerberosPrincipal splits user@REALM usernames and applies the configured realm.
func kerberosPrincipal(cfg *ConnectionConfig) (string, string, error) {
	principal := cfg.Username
	realm := cfg.KerberosRealm

	if user, userRealm, ok := strings.Cut(principal, "@"); ok {
		principal = user
		if realm == "" {
			realm = userRealm
		}
	}

	if realm == "" {
		return "", "", errors.New("kerberos realm is required (set kerberos_realm or include realm in username)")
	}

	if principal == "" && cfg.KerberosCCache == "" {
		return "", "", errors.New("username (principal) is required unless a credential cache is provided")
	}

	return principal, strings.ToUpper(realm), nil
}

// loadKrb5Config reads the configured krb5.conf, or generates a DNS-discovery
// configuration for the realm when the file does not exist.
func loadKrb5Config(ctx context.Context, cfg *ConnectionConfig, realm string) (*krb5config.Config, error) {
	if cfg.KerberosConfig != "" && fileExists(cfg.KerberosConfig) {
		return krb5config.Load(cfg.KerberosConfig)
	}

	domain := strings.ToLower(realm)
	if cfg.Domain != "" {
		domain = strings.ToLower(cfg.Domain)
	}

	tflog.SubsystemDebug(ctx, SubsystemLDAP, "krb5.conf not found, generating runtime configuration", map[string]any{
		"path":   cfg.KerberosConfig,
		"realm":  realm,
		"domain": domain,
	})

	return krb5config.NewFromString(runtimeKrb5Conf(realm, domain))
}

func runtimeKrb5Conf(realm, domain string) string {
	return fmt.Sprintf(`[libdefaults]
    default_realm = %[1]s
    dns_lookup_kdc = true
    dns_lookup_realm = false
    rdns = false

[realms]
    %[1]s = {
    }

[domain_realm]
    .%[2]s = %[1]s
    %[2]s = %[1]s
`, realm, domain)
}

func newKerberosClient(cfg *ConnectionConfig, principal, realm string, krb5conf *krb5config.Config) (*krb5client.Client, string, error) {
	settings := krb5client.DisablePAFXFAST(true)

	if ccachePath := firstExisting(cfg.KerberosCCache, defaultCCachePath()); ccachePath != "" {
		ccache, err := credentials.LoadCCache(ccachePath)
		if err == nil {
			c, err := krb5client.NewFromCCache(ccache, krb5conf, settings)
			if err == nil {
				return c, "ccache", nil
			}
		}
		// An unusable cache falls through to keytab and password credentials.
	}

	if keytabPath := firstExisting(cfg.KerberosKeytab); keytabPath != "" {
		kt, err := keytab.Load(keytabPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load keytab %s: %w", keytabPath, err)
		}
		return krb5client.NewWithKeytab(principal, realm, kt, krb5conf, settings), "keytab", nil
	}

	if principal != "" && cfg.Password != "" {
		return krb5client.NewWithPassword(principal, realm, cfg.Password, krb5conf, settings), "password", nil
	}

	return nil, "", errors.New("no suitable Kerberos credentials found: provide kerberos_ccache, kerberos_keytab or password")
}

// buildServicePrincipal returns the configured SPN or ldap/<host>.
func buildServicePrincipal(cfg *ConnectionConfig, serverInfo *ServerInfo) (string, error) {
	if cfg == nil {
		return "", errors.New("configuration is required for service principal")
	}

	if cfg.KerberosSPN != "" {
		return cfg.KerberosSPN, nil
	}

	if serverInfo == nil || serverInfo.Host == "" {
		return "", errors.New("hostname is required for service principal")
	}

	hostname, _, _ := strings.Cut(serverInfo.Host, ":")

	return "ldap/" + hostname, nil
}

func defaultCCachePath() string {
	if ccache := os.Getenv("KRB5CCNAME"); ccache != "" {
		return strings.TrimPrefix(ccache, "FILE:")
	}
	return fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
}

func firstExisting(paths ...string) string {
	for _, path := range paths {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
