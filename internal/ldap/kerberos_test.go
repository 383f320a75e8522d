package ldap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKerberosPrincipal(t *testing.T) {
	tests := []struct {
		name          string
		cfg           *ConnectionConfig
		wantPrincipal string
		wantRealm     string
		wantErr       bool
	}{
		{
			name:          "realm from configuration",
			cfg:           &ConnectionConfig{Username: "svc-terraform", KerberosRealm: "contoso.com"},
			wantPrincipal: "svc-terraform",
			wantRealm:     "CONTOSO.COM",
		},
		{
			name:          "realm from username",
			cfg:           &ConnectionConfig{Username: "svc-terraform@contoso.com"},
			wantPrincipal: "svc-terraform",
			wantRealm:     "CONTOSO.COM",
		},
		{
			name:          "configured realm wins",
			cfg:           &ConnectionConfig{Username: "svc@child.contoso.com", KerberosRealm: "CONTOSO.COM"},
			wantPrincipal: "svc",
			wantRealm:     "CONTOSO.COM",
		},
		{
			name:          "ccache without username",
			cfg:           &ConnectionConfig{KerberosRealm: "CONTOSO.COM", KerberosCCache: "/tmp/krb5cc_test"},
			wantPrincipal: "",
			wantRealm:     "CONTOSO.COM",
		},
		{
			name:    "no realm",
			cfg:     &ConnectionConfig{Username: "svc-terraform"},
			wantErr: true,
		},
		{
			name:    "no principal or ccache",
			cfg:     &ConnectionConfig{KerberosRealm: "CONTOSO.COM"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			principal, realm, err := kerberosPrincipal(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrincipal, principal)
			assert.Equal(t, tt.wantRealm, realm)
		})
	}
}

func TestBuildServicePrincipal(t *testing.T) {
	spn, err := buildServicePrincipal(&ConnectionConfig{}, &ServerInfo{Host: "dc1.contoso.com", Port: 636})
	require.NoError(t, err)
	assert.Equal(t, "ldap/dc1.contoso.com", spn)

	spn, err = buildServicePrincipal(&ConnectionConfig{KerberosSPN: "ldap/dc.contoso.com@CONTOSO.COM"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ldap/dc.contoso.com@CONTOSO.COM", spn)

	_, err = buildServicePrincipal(&ConnectionConfig{}, &ServerInfo{})
	require.Error(t, err)

	_, err = buildServicePrincipal(nil, nil)
	require.Error(t, err)
}

func TestLoadKrb5Config_Runtime(t *testing.T) {
	cfg := &ConnectionConfig{
		Domain:         "contoso.com",
		KerberosConfig: filepath.Join(t.TempDir(), "missing-krb5.conf"),
	}

	krb5conf, err := loadKrb5Config(t.Context(), cfg, "CONTOSO.COM")

	require.NoError(t, err)
	assert.Equal(t, "CONTOSO.COM", krb5conf.LibDefaults.DefaultRealm)
	assert.True(t, krb5conf.LibDefaults.DNSLookupKDC)
	assert.Equal(t, "CONTOSO.COM", krb5conf.DomainRealm["contoso.com"])
}

func TestLoadKrb5Config_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "krb5.conf")
	require.NoError(t, os.WriteFile(path, []byte(`[libdefaults]
    default_realm = FABRIKAM.COM

[realms]
    FABRIKAM.COM = {
        kdc = kdc1.fabrikam.com
    }
`), 0o600))

	krb5conf, err := loadKrb5Config(t.Context(), &ConnectionConfig{KerberosConfig: path}, "FABRIKAM.COM")

	require.NoError(t, err)
	assert.Equal(t, "FABRIKAM.COM", krb5conf.LibDefaults.DefaultRealm)
}

func TestNewKerberosClient_NoCredentials(t *testing.T) {
	t.Setenv("KRB5CCNAME", filepath.Join(t.TempDir(), "absent"))

	krb5conf, err := loadKrb5Config(t.Context(), &ConnectionConfig{}, "CONTOSO.COM")
	require.NoError(t, err)

	_, _, err = newKerberosClient(&ConnectionConfig{}, "svc", "CONTOSO.COM", krb5conf)
	require.Error(t, err)
}

func TestNewKerberosClient_Password(t *testing.T) {
	t.Setenv("KRB5CCNAME", filepath.Join(t.TempDir(), "absent"))

	krb5conf, err := loadKrb5Config(t.Context(), &ConnectionConfig{}, "CONTOSO.COM")
	require.NoError(t, err)

	client, source, err := newKerberosClient(&ConnectionConfig{Password: "secret"}, "svc", "CONTOSO.COM", krb5conf)

	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.Equal(t, "password", source)
}

func TestDefaultCCachePath(t *testing.T) {
	t.Setenv("KRB5CCNAME", "FILE:/tmp/krb5cc_custom")
	assert.Equal(t, "/tmp/krb5cc_custom", defaultCCachePath())
}
