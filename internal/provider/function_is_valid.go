package provider

import (
	"context"
	"errors"

	"github.com/hashicorp/terraform-plugin-framework/function"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/identity"
)

var (
	_ function.Function = &IsValidFunction{}
)

// IsValidFunction implements the is_valid_dn, is_valid_sid and is_valid_guid
// functions. They differ only in name, documentation and check.
type IsValidFunction struct {
	name        string
	summary     string
	description string
	check       func(string) (bool, error)
}

func NewIsValidDNFunction() function.Function {
	return &IsValidFunction{
		name:    "is_valid_dn",
		summary: "Check whether a string is a well-formed Distinguished Name",
		description: "Returns true when the input is a Distinguished Name made of an optional CN component, any number " +
			"of OU components and at least one DC component, such as `CN=Admin,OU=IT,DC=contoso,DC=com`. " +
			"Escaped commas (`\\,`) are allowed inside values.",
		check: identity.IsValidDistinguishedName,
	}
}

func NewIsValidSIDFunction(table *identity.WellKnownTable) function.Function {
	if table == nil {
		table = identity.MustNewWellKnownTable(identity.DefaultWellKnownEntries())
	}
	return &IsValidFunction{
		name:    "is_valid_sid",
		summary: "Check whether a string is a Security Identifier",
		description: "Returns true when the input is a well-known SID or matches `S-<revision>-<authority>-<subauthority>...` " +
			"with between 1 and 14 subauthorities. A leading `DOMAIN\\` prefix is ignored.",
		check: table.IsValidSecurityIdentifier,
	}
}

func NewIsValidGUIDFunction() function.Function {
	return &IsValidFunction{
		name:    "is_valid_guid",
		summary: "Check whether a string is a GUID",
		description: "Returns true when the input is a GUID in 8-4-4-4-12 hexadecimal form, optionally wrapped in braces " +
			"such as `{12345678-1234-1234-1234-567890123456}`.",
		check: identity.IsValidGUID,
	}
}

// Metadata returns the function name.
func (f *IsValidFunction) Metadata(_ context.Context, req function.MetadataRequest, resp *function.MetadataResponse) {
	resp.Name = f.name
}

// Definition returns the function schema including parameters and return types.
func (f *IsValidFunction) Definition(_ context.Context, req function.DefinitionRequest, resp *function.DefinitionResponse) {
	resp.Definition = function.Definition{
		Summary:             f.summary,
		Description:         f.description,
		MarkdownDescription: f.description,
		Parameters: []function.Parameter{
			function.StringParameter{
				Name:                "value",
				Description:         "The string to check. Must not be empty.",
				MarkdownDescription: "The string to check. Must not be empty.",
			},
		},
		Return: function.BoolReturn{},
	}
}

// Run implements the function logic.
func (f *IsValidFunction) Run(ctx context.Context, req function.RunRequest, resp *function.RunResponse) {
	var value string

	resp.Error = function.ConcatFuncErrors(resp.Error, req.Arguments.Get(ctx, &value))
	if resp.Error != nil {
		return
	}

	valid, err := f.check(value)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidArgument) {
			resp.Error = function.NewArgumentFuncError(0, err.Error())
			return
		}
		resp.Error = function.NewFuncError(err.Error())
		return
	}

	resp.Error = function.ConcatFuncErrors(resp.Error, resp.Result.Set(ctx, valid))
}
