package validators

import (
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/identity"
)

// IsValidSID returns a validator which ensures that any configured
// attribute value is a security identifier in S-R-I-S form or a SID from
// table. A nil table uses the default well-known principals.
//
// Unknown values and null values are skipped from validation.
func IsValidSID(table *identity.WellKnownTable) validator.String {
	if table == nil {
		table = identity.MustNewWellKnownTable(identity.DefaultWellKnownEntries())
	}
	return formatValidator{
		description: "value must be a valid Security Identifier (SID)",
		summary:     "Invalid Security Identifier",
		check:       table.IsValidSecurityIdentifier,
	}
}
