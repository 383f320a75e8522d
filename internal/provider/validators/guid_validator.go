package validators

import (
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/identity"
)

// IsValidGUID returns a validator which ensures that any configured
// attribute value is a GUID in 8-4-4-4-12 form, with or without braces.
//
// Unknown values and null values are skipped from validation.
func IsValidGUID() validator.String {
	return formatValidator{
		description: "value must be a valid GUID",
		summary:     "Invalid GUID",
		check:       identity.IsValidGUID,
	}
}
