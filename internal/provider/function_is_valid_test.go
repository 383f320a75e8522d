package provider_test

import (
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/function"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/identity"
	"github.com/eguibarit/terraform-provider-housekeeping/internal/provider"
)

// runStringFunction calls f with a single string argument.
func runStringFunction(t *testing.T, f function.Function, input string, result attr.Value) (attr.Value, *function.FuncError) {
	t.Helper()

	resp := function.RunResponse{
		Result: function.NewResultData(result),
	}
	req := function.RunRequest{
		Arguments: function.NewArgumentsData([]attr.Value{types.StringValue(input)}),
	}

	f.Run(t.Context(), req, &resp)

	return resp.Result.Value(), resp.Error
}

func TestFunctions_Metadata(t *testing.T) {
	table := identity.MustNewWellKnownTable(identity.DefaultWellKnownEntries())

	tests := []struct {
		f    function.Function
		want string
	}{
		{provider.NewIsValidDNFunction(), "is_valid_dn"},
		{provider.NewIsValidSIDFunction(table), "is_valid_sid"},
		{provider.NewIsValidGUIDFunction(), "is_valid_guid"},
		{provider.NewWellKnownSIDFunction(table), "well_known_sid"},
		{provider.NewClassifyIdentityFunction(table), "classify_identity"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			var resp function.MetadataResponse
			tt.f.Metadata(t.Context(), function.MetadataRequest{}, &resp)
			assert.Equal(t, tt.want, resp.Name)

			var def function.DefinitionResponse
			tt.f.Definition(t.Context(), function.DefinitionRequest{}, &def)
			assert.NotEmpty(t, def.Definition.Summary)
			require.Len(t, def.Definition.Parameters, 1)
			_, ok := def.Definition.Parameters[0].(function.StringParameter)
			assert.True(t, ok)
		})
	}
}

func TestIsValidFunctions(t *testing.T) {
	tests := []struct {
		name  string
		f     function.Function
		input string
		want  bool
	}{
		{"dn user", provider.NewIsValidDNFunction(), "CN=TestUser,OU=Users,DC=contoso,DC=com", true},
		{"dn escaped comma", provider.NewIsValidDNFunction(), `CN=Smith\, John,OU=Users,DC=contoso,DC=com`, true},
		{"dn domain only", provider.NewIsValidDNFunction(), "DC=contoso,DC=com", true},
		{"dn without dc", provider.NewIsValidDNFunction(), "CN=TestUser,OU=Users", false},
		{"dn account name", provider.NewIsValidDNFunction(), "testuser", false},
		{"sid well-known", provider.NewIsValidSIDFunction(nil), "S-1-5-18", true},
		{"sid domain", provider.NewIsValidSIDFunction(nil), "S-1-5-21-1004336348-1177238915-682003330-1105", true},
		{"sid with domain prefix", provider.NewIsValidSIDFunction(nil), `CONTOSO\S-1-5-21-1004336348-1177238915-682003330-512`, true},
		{"sid malformed", provider.NewIsValidSIDFunction(nil), "S-1-5", false},
		{"sid name", provider.NewIsValidSIDFunction(nil), "Everyone", false},
		{"guid plain", provider.NewIsValidGUIDFunction(), "12345678-1234-1234-1234-567890123456", true},
		{"guid braced", provider.NewIsValidGUIDFunction(), "{12345678-1234-1234-1234-567890123456}", true},
		{"guid one brace", provider.NewIsValidGUIDFunction(), "{12345678-1234-1234-1234-567890123456", false},
		{"guid short", provider.NewIsValidGUIDFunction(), "12345678-1234-1234-1234", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, funcErr := runStringFunction(t, tt.f, tt.input, types.BoolUnknown())

			require.Nil(t, funcErr)
			assert.Equal(t, types.BoolValue(tt.want), got)
		})
	}
}

func TestIsValidFunctions_EmptyInput(t *testing.T) {
	for _, f := range []function.Function{
		provider.NewIsValidDNFunction(),
		provider.NewIsValidSIDFunction(nil),
		provider.NewIsValidGUIDFunction(),
	} {
		_, funcErr := runStringFunction(t, f, "", types.BoolUnknown())

		require.NotNil(t, funcErr)
		require.NotNil(t, funcErr.FunctionArgument)
		assert.Equal(t, int64(0), *funcErr.FunctionArgument)
	}
}

func TestWellKnownSIDFunction(t *testing.T) {
	f := provider.NewWellKnownSIDFunction(nil)

	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "Everyone", want: "S-1-1-0"},
		{input: "SYSTEM", want: "S-1-5-18"},
		{input: `NT AUTHORITY\SYSTEM`, want: "S-1-5-18"},
		{input: `nt authority\authenticated users`, want: "S-1-5-11"},
		{input: `BUILTIN\Administrators`, want: "S-1-5-32-544"},
		{input: "  administrators  ", want: "S-1-5-32-544"},
		{input: "Domain Admins", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, funcErr := runStringFunction(t, f, tt.input, types.StringUnknown())

			if tt.wantErr {
				require.NotNil(t, funcErr)
				return
			}
			require.Nil(t, funcErr)
			assert.Equal(t, types.StringValue(tt.want), got)
		})
	}
}

func TestWellKnownSIDFunction_CustomTable(t *testing.T) {
	table := identity.MustNewWellKnownTable([]identity.WellKnownEntry{
		{SID: "S-1-5-21-1-2-3-1000", Name: "Tier0 Admins"},
	})
	f := provider.NewWellKnownSIDFunction(table)

	got, funcErr := runStringFunction(t, f, "tier0 admins", types.StringUnknown())
	require.Nil(t, funcErr)
	assert.Equal(t, types.StringValue("S-1-5-21-1-2-3-1000"), got)

	_, funcErr = runStringFunction(t, f, "Everyone", types.StringUnknown())
	assert.NotNil(t, funcErr)
}

func TestClassifyIdentityFunction(t *testing.T) {
	f := provider.NewClassifyIdentityFunction(nil)

	tests := []struct {
		input string
		want  string
	}{
		{"CN=TestUser,OU=Users,DC=contoso,DC=com", "DistinguishedName"},
		{"S-1-5-18", "SecurityIdentifier"},
		{"{12345678-1234-1234-1234-567890123456}", "GUID"},
		{`CONTOSO\testuser`, "AccountName"},
		{"Authenticated Users", "AccountName"},
		{"bad|name", "Unrecognized"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, funcErr := runStringFunction(t, f, tt.input, types.StringUnknown())

			require.Nil(t, funcErr)
			assert.Equal(t, types.StringValue(tt.want), got)
		})
	}
}
