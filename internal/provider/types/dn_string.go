package types

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/types/basetypes"
	"github.com/hashicorp/terraform-plugin-go/tftypes"

	ldapclient "github.com/eguibarit/terraform-provider-housekeeping/internal/ldap"
)

// Ensure the implementation satisfies the expected interfaces.
var (
	_ basetypes.StringTypable                    = DNStringType{}
	_ basetypes.StringValuable                   = DNStringValue{}
	_ basetypes.StringValuableWithSemanticEquals = DNStringValue{}
)

// DNStringType is a string type for Distinguished Names whose values
// compare equal when they name the same entry. Resolution returns the DN as
// stored in the directory, which often differs in case from the identity a
// user typed.
type DNStringType struct {
	basetypes.StringType
}

func (t DNStringType) String() string {
	return "DNStringType"
}

func (t DNStringType) ValueType(ctx context.Context) attr.Value {
	return DNStringValue{}
}

func (t DNStringType) Equal(o attr.Type) bool {
	other, ok := o.(DNStringType)
	if !ok {
		return false
	}

	return t.StringType.Equal(other.StringType)
}

func (t DNStringType) ValueFromString(ctx context.Context, in basetypes.StringValue) (basetypes.StringValuable, diag.Diagnostics) {
	return DNStringValue{StringValue: in}, nil
}

func (t DNStringType) ValueFromTerraform(ctx context.Context, in tftypes.Value) (attr.Value, error) {
	attrValue, err := t.StringType.ValueFromTerraform(ctx, in)
	if err != nil {
		return nil, err
	}

	stringValue, ok := attrValue.(basetypes.StringValue)
	if !ok {
		return nil, fmt.Errorf("expected basetypes.StringValue, got: %T", attrValue)
	}

	stringValuable, diags := t.ValueFromString(ctx, stringValue)
	if diags.HasError() {
		return nil, fmt.Errorf("could not create DNStringValue: %v", diags.Errors())
	}

	return stringValuable, nil
}

// DNStringValue is a DN string value with DN-aware semantic equality.
type DNStringValue struct {
	basetypes.StringValue
}

func (v DNStringValue) Equal(o attr.Value) bool {
	other, ok := o.(DNStringValue)
	if !ok {
		return false
	}

	return v.StringValue.Equal(other.StringValue)
}

func (v DNStringValue) Type(ctx context.Context) attr.Type {
	return DNStringType{}
}

// StringSemanticEquals reports whether both values name the same entry,
// ignoring case and whitespace around RDN separators. Unparseable values
// fall back to a case-insensitive comparison.
func (v DNStringValue) StringSemanticEquals(ctx context.Context, newValuable basetypes.StringValuable) (bool, diag.Diagnostics) {
	var diags diag.Diagnostics

	newValue, ok := newValuable.(DNStringValue)
	if !ok {
		diags.AddError(
			"Semantic Equality Check Error",
			"An unexpected value type was received while attempting to perform semantic equality checks. "+
				"This is always an error in the provider. Please report the following to the provider developer:\n\n"+
				fmt.Sprintf("Expected DNStringValue, but got: %T", newValuable),
		)
		return false, diags
	}

	if v.IsNull() || v.IsUnknown() || newValue.IsNull() || newValue.IsUnknown() {
		return v.Equal(newValue), diags
	}

	return ldapclient.EqualDN(v.ValueString(), newValue.ValueString()), diags
}

// DNString returns a known DNStringValue.
func DNString(value string) DNStringValue {
	return DNStringValue{StringValue: basetypes.NewStringValue(value)}
}

// DNStringNull returns a null DNStringValue.
func DNStringNull() DNStringValue {
	return DNStringValue{StringValue: basetypes.NewStringNull()}
}

// DNStringOrNull returns a null value for the empty string.
func DNStringOrNull(value string) DNStringValue {
	if value == "" {
		return DNStringNull()
	}
	return DNString(value)
}
