package provider

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/hashicorp/terraform-plugin-testing/helper/resource"
	"github.com/hashicorp/terraform-plugin-testing/terraform"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/identity"
	"github.com/eguibarit/terraform-provider-housekeeping/internal/ldap"
)

// Test environment configuration constants.
const (
	// Environment variables for test configuration.
	EnvTestDomain   = "HOUSEKEEPING_TEST_DOMAIN"
	EnvTestLDAPURL  = "HOUSEKEEPING_TEST_LDAP_URL"
	EnvTestUsername = "HOUSEKEEPING_TEST_USERNAME"
	EnvTestPassword = "HOUSEKEEPING_TEST_PASSWORD"
	EnvTestBaseDN   = "HOUSEKEEPING_TEST_BASE_DN"
	EnvTestKeytab   = "HOUSEKEEPING_TEST_KEYTAB"
	EnvTestRealm    = "HOUSEKEEPING_TEST_REALM"

	// EnvTestUserDN names an existing user the read-only tests resolve.
	EnvTestUserDN = "HOUSEKEEPING_TEST_USER_DN"

	// Default values for testing.
	DefaultTestDomain = "example.com"
	DefaultTestBaseDN = "DC=example,DC=com"
)

// TestConfig holds common test configuration.
type TestConfig struct {
	Domain      string
	LDAPURL     string
	Username    string
	Password    string
	BaseDN      string
	UserDN      string
	Keytab      string
	Realm       string
	UseKerberos bool
}

// GetTestConfig returns the test configuration from environment variables.
func GetTestConfig() *TestConfig {
	config := &TestConfig{
		Domain:   getEnvWithDefault(EnvTestDomain, DefaultTestDomain),
		LDAPURL:  os.Getenv(EnvTestLDAPURL),
		Username: os.Getenv(EnvTestUsername),
		Password: os.Getenv(EnvTestPassword),
		BaseDN:   getEnvWithDefault(EnvTestBaseDN, DefaultTestBaseDN),
		UserDN:   os.Getenv(EnvTestUserDN),
		Keytab:   os.Getenv(EnvTestKeytab),
		Realm:    os.Getenv(EnvTestRealm),
	}

	config.UseKerberos = config.Keytab != "" && config.Realm != ""

	return config
}

// IsAccTest returns true if acceptance tests should run.
func IsAccTest() bool {
	return os.Getenv("TF_ACC") != ""
}

// SkipIfNotAccTest skips the test if TF_ACC is not set.
func SkipIfNotAccTest(t *testing.T) {
	if !IsAccTest() {
		t.Skip("Skipping acceptance test - set TF_ACC=1 to run")
	}
}

// testAccPreCheckWithConfig validates the acceptance test environment.
func testAccPreCheckWithConfig(t *testing.T) *TestConfig {
	SkipIfNotAccTest(t)

	config := GetTestConfig()

	if config.Username == "" {
		t.Skipf("Skipping test: %s must be set", EnvTestUsername)
	}

	if config.Password == "" && !config.UseKerberos {
		t.Skipf("Skipping test: %s must be set (or configure Kerberos)", EnvTestPassword)
	}

	if config.LDAPURL == "" && config.Domain == DefaultTestDomain {
		t.Skipf("Skipping test: Either %s or %s must be set to a real AD environment", EnvTestLDAPURL, EnvTestDomain)
	}

	return config
}

// testAccPreCheckUser additionally requires a known user DN.
func testAccPreCheckUser(t *testing.T) *TestConfig {
	config := testAccPreCheckWithConfig(t)
	if config.UserDN == "" {
		t.Skipf("Skipping test: %s must be set", EnvTestUserDN)
	}
	return config
}

// TestProviderConfig generates provider configuration for tests.
func TestProviderConfig() string {
	config := GetTestConfig()

	var providerConfig strings.Builder
	providerConfig.WriteString("provider \"housekeeping\" {\n")

	if config.LDAPURL != "" {
		providerConfig.WriteString(fmt.Sprintf("  ldap_url = %q\n", config.LDAPURL))
	} else {
		providerConfig.WriteString(fmt.Sprintf("  domain = %q\n", config.Domain))
	}

	if config.BaseDN != DefaultTestBaseDN {
		providerConfig.WriteString(fmt.Sprintf("  base_dn = %q\n", config.BaseDN))
	}

	providerConfig.WriteString(fmt.Sprintf("  username = %q\n", config.Username))

	if config.UseKerberos {
		providerConfig.WriteString(fmt.Sprintf("  kerberos_realm = %q\n", config.Realm))
		providerConfig.WriteString(fmt.Sprintf("  kerberos_keytab = %q\n", config.Keytab))
	} else {
		providerConfig.WriteString(fmt.Sprintf("  password = %q\n", config.Password))
	}

	providerConfig.WriteString("}\n")
	return providerConfig.String()
}

// newTestDirectory connects to the test directory outside Terraform.
func newTestDirectory(ctx context.Context) (ldap.Client, *ldap.Directory, error) {
	config := GetTestConfig()

	ldapConfig := ldap.NewConnectionConfig()
	ldapConfig.Domain = config.Domain
	if config.LDAPURL != "" {
		ldapConfig.LDAPURLs = []string{config.LDAPURL}
	}
	if config.BaseDN != DefaultTestBaseDN {
		ldapConfig.BaseDN = config.BaseDN
	}
	ldapConfig.Username = config.Username
	ldapConfig.Password = config.Password
	ldapConfig.KerberosKeytab = config.Keytab
	ldapConfig.KerberosRealm = config.Realm

	client, err := ldap.NewClient(ctx, ldapConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LDAP client: %w", err)
	}
	if err := client.BindWithConfig(ctx); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to bind: %w", err)
	}

	return client, ldap.NewDirectory(client, &ldap.DirectoryOptions{BaseDN: ldapConfig.BaseDN}), nil
}

// TestCheckIdentityMatchesDirectory verifies that the resolved SID of a data
// source names the same object as its distinguished_name.
func TestCheckIdentityMatchesDirectory(resourceName string) resource.TestCheckFunc {
	return func(s *terraform.State) error {
		rs, ok := s.RootModule().Resources[resourceName]
		if !ok {
			return fmt.Errorf("resource not found: %s", resourceName)
		}

		dn := rs.Primary.Attributes["distinguished_name"]
		sid := rs.Primary.Attributes["sid"]
		if dn == "" || sid == "" {
			return fmt.Errorf("%s has no distinguished_name or sid", resourceName)
		}

		ctx := context.Background()
		client, dir, err := newTestDirectory(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		entry, err := dir.QueryBySID(ctx, sid)
		if err != nil {
			return fmt.Errorf("failed to query %s: %w", sid, err)
		}
		if entry == nil {
			return fmt.Errorf("SID %s does not exist", sid)
		}
		if !ldap.EqualDN(entry.DistinguishedName, dn) {
			return fmt.Errorf("SID %s belongs to %s, not %s", sid, entry.DistinguishedName, dn)
		}

		return nil
	}
}

// TestCheckWellKnownSID verifies the sid attribute against the default table.
func TestCheckWellKnownSID(resourceName, name string) resource.TestCheckFunc {
	return func(s *terraform.State) error {
		rs, ok := s.RootModule().Resources[resourceName]
		if !ok {
			return fmt.Errorf("resource not found: %s", resourceName)
		}

		table := identity.MustNewWellKnownTable(identity.DefaultWellKnownEntries())
		want, ok := table.LookupWellKnownSIDByName(name)
		if !ok {
			return fmt.Errorf("%q is not a well-known name", name)
		}
		if got := rs.Primary.Attributes["sid"]; got != want {
			return fmt.Errorf("sid = %q, want %q", got, want)
		}
		return nil
	}
}

// Utility functions

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
