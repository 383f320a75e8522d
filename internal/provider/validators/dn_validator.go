package validators

import (
	"context"
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/identity"
)

// Ensure the implementation satisfies the expected interface.
var _ validator.String = formatValidator{}

// formatValidator checks a string against one of the identity format
// predicates.
type formatValidator struct {
	description string
	summary     string
	check       func(string) (bool, error)
}

// Description describes the validation in plain text.
func (v formatValidator) Description(_ context.Context) string {
	return v.description
}

// MarkdownDescription describes the validation in Markdown.
func (v formatValidator) MarkdownDescription(ctx context.Context) string {
	return v.Description(ctx)
}

// ValidateString performs the validation.
func (v formatValidator) ValidateString(ctx context.Context, request validator.StringRequest, response *validator.StringResponse) {
	// Skip validation for unknown or null values
	if request.ConfigValue.IsNull() || request.ConfigValue.IsUnknown() {
		return
	}

	value := request.ConfigValue.ValueString()

	ok, err := v.check(value)
	switch {
	case err != nil:
		response.Diagnostics.AddAttributeError(
			request.Path,
			v.summary,
			fmt.Sprintf("The value %q is not valid: %s", value, err.Error()),
		)
	case !ok:
		response.Diagnostics.AddAttributeError(
			request.Path,
			v.summary,
			fmt.Sprintf("The value %q is not valid: %s", value, v.description),
		)
	}
}

// IsValidDN returns a validator which ensures that any configured
// attribute value is an Active Directory Distinguished Name: an optional CN,
// any number of OUs and at least one DC component.
//
// Unknown values and null values are skipped from validation.
func IsValidDN() validator.String {
	return formatValidator{
		description: "value must be a valid Distinguished Name (DN)",
		summary:     "Invalid Distinguished Name",
		check: func(s string) (bool, error) {
			ok, err := identity.IsValidDistinguishedName(s)
			if !ok || err != nil {
				return ok, err
			}
			// The shape check admits escapes the LDAP grammar rejects.
			if _, err := ldap.ParseDN(s); err != nil {
				return false, err
			}
			return true, nil
		},
	}
}
