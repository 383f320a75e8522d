package validators

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
)

// Ensure the implementation satisfies the expected interface.
var _ validator.String = caseInsensitiveOneOfValidator{}

// caseInsensitiveOneOfValidator validates that a string matches one of the
// allowed values, ignoring case and surrounding whitespace.
type caseInsensitiveOneOfValidator struct {
	validValues []string
}

// Description describes the validation in plain text.
func (v caseInsensitiveOneOfValidator) Description(_ context.Context) string {
	return fmt.Sprintf("value must be one of: %s (case-insensitive)", strings.Join(v.validValues, ", "))
}

// MarkdownDescription describes the validation in Markdown.
func (v caseInsensitiveOneOfValidator) MarkdownDescription(ctx context.Context) string {
	return v.Description(ctx)
}

// ValidateString performs the validation.
func (v caseInsensitiveOneOfValidator) ValidateString(ctx context.Context, request validator.StringRequest, response *validator.StringResponse) {
	if request.ConfigValue.IsNull() || request.ConfigValue.IsUnknown() {
		return
	}

	value := request.ConfigValue.ValueString()
	trimmed := strings.TrimSpace(value)

	if slices.ContainsFunc(v.validValues, func(valid string) bool { return strings.EqualFold(trimmed, valid) }) {
		return
	}

	response.Diagnostics.AddAttributeError(
		request.Path,
		"Invalid Value",
		fmt.Sprintf(
			"The value %q is not valid. Must be one of: %s (case-insensitive)",
			value,
			strings.Join(v.validValues, ", "),
		),
	)
}

// CaseInsensitiveOneOf returns a validator which ensures that any configured
// attribute value matches one of the provided values, ignoring case, such as
// an identity kind ("User", "user", "USER") or a schema map name.
//
// Unknown values and null values are skipped from validation.
func CaseInsensitiveOneOf(values ...string) validator.String {
	return caseInsensitiveOneOfValidator{
		validValues: values,
	}
}
