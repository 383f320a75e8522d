package validators_test

import (
	"strings"
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/identity"
	"github.com/eguibarit/terraform-provider-housekeeping/internal/provider/validators"
)

type formatTestCase struct {
	val         types.String
	expectError bool
	summary     string
	detail      string
}

func runFormatValidator(t *testing.T, v validator.String, testCases map[string]formatTestCase) {
	t.Helper()

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			request := validator.StringRequest{
				Path:        path.Root("test"),
				ConfigValue: test.val,
			}
			response := validator.StringResponse{}

			v.ValidateString(t.Context(), request, &response)

			if !response.Diagnostics.HasError() && test.expectError {
				t.Fatal("expected error, got no error")
			}

			if response.Diagnostics.HasError() && !test.expectError {
				t.Fatalf("got unexpected error: %s", response.Diagnostics)
			}

			if test.expectError {
				if len(response.Diagnostics) != 1 {
					t.Fatalf("expected exactly 1 error, got %d", len(response.Diagnostics))
				}

				err := response.Diagnostics[0]
				if test.summary != "" && err.Summary() != test.summary {
					t.Errorf("expected summary %q, got %q", test.summary, err.Summary())
				}

				if test.detail != "" && !strings.HasPrefix(err.Detail(), test.detail) {
					t.Errorf("expected detail to start with %q, got %q", test.detail, err.Detail())
				}
			}
		})
	}
}

func TestDNValidator(t *testing.T) {
	t.Parallel()

	runFormatValidator(t, validators.IsValidDN(), map[string]formatTestCase{
		"valid DN simple": {
			val: types.StringValue("CN=Test,DC=contoso,DC=com"),
		},
		"valid DN complex": {
			val: types.StringValue("CN=John Doe,OU=Users,OU=IT,DC=corp,DC=contoso,DC=com"),
		},
		"valid DN with escaped comma": {
			val: types.StringValue(`CN=Test\, User,OU=Users,DC=contoso,DC=com`),
		},
		"valid OU": {
			val: types.StringValue("OU=Domain Users,DC=contoso,DC=com"),
		},
		"invalid DN empty": {
			val:         types.StringValue(""),
			expectError: true,
			summary:     "Invalid Distinguished Name",
			detail:      `The value "" is not valid:`,
		},
		"invalid DN malformed": {
			val:         types.StringValue("invalid-dn"),
			expectError: true,
			summary:     "Invalid Distinguished Name",
			detail:      `The value "invalid-dn" is not valid:`,
		},
		"invalid DN without domain components": {
			val:         types.StringValue("CN=Test,OU=Users"),
			expectError: true,
		},
		"invalid DN empty value": {
			val:         types.StringValue("CN=,DC=contoso,DC=com"),
			expectError: true,
		},
		"null value": {
			val: types.StringNull(),
		},
		"unknown value": {
			val: types.StringUnknown(),
		},
	})
}

func TestSIDValidator(t *testing.T) {
	t.Parallel()

	runFormatValidator(t, validators.IsValidSID(nil), map[string]formatTestCase{
		"well-known": {val: types.StringValue("S-1-1-0")},
		"domain":     {val: types.StringValue("S-1-5-21-1004336348-1177238915-682003330-1105")},
		"qualified":  {val: types.StringValue(`BUILTIN\S-1-5-32-544`)},
		"truncated":  {val: types.StringValue("S-1-"), expectError: true, summary: "Invalid Security Identifier"},
		"not a SID":  {val: types.StringValue("Not-A-SID"), expectError: true},
		"empty":      {val: types.StringValue(""), expectError: true},
		"null value": {val: types.StringNull()},
	})
}

func TestSIDValidator_CustomTable(t *testing.T) {
	t.Parallel()

	table := identity.MustNewWellKnownTable([]identity.WellKnownEntry{{SID: "S-1-5-18", Name: "SYSTEM"}})

	runFormatValidator(t, validators.IsValidSID(table), map[string]formatTestCase{
		"in table":    {val: types.StringValue(`CONTOSO\S-1-5-18`)},
		"by grammar":  {val: types.StringValue("S-1-5-32-544")},
		"bad grammar": {val: types.StringValue("S-1-5"), expectError: true},
	})
}

func TestGUIDValidator(t *testing.T) {
	t.Parallel()

	runFormatValidator(t, validators.IsValidGUID(), map[string]formatTestCase{
		"plain":         {val: types.StringValue("12345678-1234-1234-1234-567890123456")},
		"braced":        {val: types.StringValue("{12345678-1234-1234-1234-567890123456}")},
		"one brace":     {val: types.StringValue("{12345678-1234-1234-1234-567890123456"), expectError: true, summary: "Invalid GUID"},
		"no dashes":     {val: types.StringValue("12345678123412341234567890123456"), expectError: true},
		"unknown value": {val: types.StringUnknown()},
	})
}

func TestFormatValidatorDescriptions(t *testing.T) {
	for expected, v := range map[string]validator.String{
		"value must be a valid Distinguished Name (DN)":   validators.IsValidDN(),
		"value must be a valid Security Identifier (SID)": validators.IsValidSID(nil),
		"value must be a valid GUID":                      validators.IsValidGUID(),
	} {
		if v.Description(t.Context()) != expected {
			t.Errorf("expected description %q, got %q", expected, v.Description(t.Context()))
		}
		if v.MarkdownDescription(t.Context()) != expected {
			t.Errorf("expected markdown description %q, got %q", expected, v.MarkdownDescription(t.Context()))
		}
	}
}
