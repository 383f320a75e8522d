package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidDistinguishedName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"user", "CN=TestUser,OU=Users,DC=contoso,DC=com", true},
		{"nested OUs", "CN=svc,OU=Service,OU=Tier0,OU=Admin,DC=eguibarit,DC=local", true},
		{"OU only", "OU=Users,DC=contoso,DC=com", true},
		{"domain only", "DC=com", true},
		{"lowercase types", "cn=TestUser,ou=Users,dc=contoso,dc=com", true},
		{"escaped comma", `CN=Smith\, John,OU=Users,DC=contoso,DC=com`, true},
		{"escaped backslash before separator", `CN=a\\,DC=com`, true},
		{"escaped separator swallows domain", `CN=foo\,DC=com`, false},
		{"trailing backslash", `CN=foo,DC=com\`, false},
		{"space in value", "CN=Test User,OU=Sales Team,DC=contoso,DC=com", true},
		{"account name", "testuser", false},
		{"no domain component", "CN=TestUser,OU=Users", false},
		{"two CNs", "CN=a,CN=Users,DC=contoso,DC=com", false},
		{"OU before CN", "OU=Users,CN=a,DC=contoso,DC=com", false},
		{"empty value", "CN=,DC=contoso,DC=com", false},
		{"trailing comma", "DC=contoso,DC=com,", false},
		{"SID", "S-1-5-18", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsValidDistinguishedName(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsValidGUID(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"12345678-1234-1234-1234-567890123456", true},
		{"{12345678-1234-1234-1234-567890123456}", true},
		{"ABCDEF01-abcd-ABCD-abcd-0123456789AB", true},
		{"{12345678-1234-1234-1234-567890123456", false},
		{"12345678-1234-1234-1234-567890123456}", false},
		{"12345678123412341234567890123456", false},
		{"12345678-1234-1234-1234-56789012345g", false},
		{"1234", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := IsValidGUID(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidators_EmptyInput(t *testing.T) {
	table := MustNewWellKnownTable(DefaultWellKnownEntries())

	for name, validate := range map[string]func(string) (bool, error){
		"dn":   IsValidDistinguishedName,
		"guid": IsValidGUID,
		"sid":  table.IsValidSecurityIdentifier,
	} {
		t.Run(name, func(t *testing.T) {
			ok, err := validate("")
			require.ErrorIs(t, err, ErrInvalidArgument)
			assert.False(t, ok)
		})
	}
}

func TestSplitDistinguishedName(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"CN=TestUser,OU=Users,DC=contoso,DC=com", []string{"CN=TestUser", "OU=Users", "DC=contoso", "DC=com"}},
		{`CN=Smith\, John,DC=com`, []string{`CN=Smith\, John`, "DC=com"}},
		{`CN=back\\,DC=com`, []string{`CN=back\\`, "DC=com"}},
		{"DC=com", []string{"DC=com"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := SplitDistinguishedName(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, strings.Join(got, ","))
		})
	}
}

func TestSplitDistinguishedName_RoundTripsValidNames(t *testing.T) {
	for _, dn := range []string{
		"CN=TestUser,OU=Users,DC=contoso,DC=com",
		`CN=Smith\, John,OU=Users,DC=contoso,DC=com`,
		`CN=a\,b\,c,OU=x\,y,DC=contoso,DC=com`,
		"OU=Tier0,OU=Admin,DC=eguibarit,DC=local",
	} {
		ok, err := IsValidDistinguishedName(dn)
		require.NoError(t, err)
		require.True(t, ok, dn)
		assert.Equal(t, dn, strings.Join(SplitDistinguishedName(dn), ","))
	}
}
