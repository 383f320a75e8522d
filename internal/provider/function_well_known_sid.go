package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/function"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/identity"
)

var _ function.Function = &WellKnownSIDFunction{}

// WellKnownSIDFunction implements the well_known_sid function.
type WellKnownSIDFunction struct {
	table *identity.WellKnownTable
}

func NewWellKnownSIDFunction(table *identity.WellKnownTable) function.Function {
	if table == nil {
		table = identity.MustNewWellKnownTable(identity.DefaultWellKnownEntries())
	}
	return &WellKnownSIDFunction{table: table}
}

// Metadata returns the function name.
func (f *WellKnownSIDFunction) Metadata(_ context.Context, req function.MetadataRequest, resp *function.MetadataResponse) {
	resp.Name = "well_known_sid"
}

// Definition returns the function schema including parameters and return types.
func (f *WellKnownSIDFunction) Definition(_ context.Context, req function.DefinitionRequest, resp *function.DefinitionResponse) {
	resp.Definition = function.Definition{
		Summary:     "Look up the SID of a well-known principal",
		Description: "Returns the SID of a well-known principal such as Everyone, SYSTEM or Administrators. Names are case-insensitive and may carry an NT AUTHORITY\\ or BUILTIN\\ prefix.",
		MarkdownDescription: "Returns the SID of a well-known principal such as `Everyone`, `SYSTEM` or `Administrators`.\n\n" +
			"- Names are matched case-insensitively\n" +
			"- `NT AUTHORITY\\`, `NTAUTHORITY\\`, `BUILTIN\\` and `BUILT-IN\\` prefixes are ignored\n" +
			"- Unknown names are an error",
		Parameters: []function.Parameter{
			function.StringParameter{
				Name:                "name",
				Description:         "Name of the well-known principal.",
				MarkdownDescription: "Name of the well-known principal, e.g. `NT AUTHORITY\\Authenticated Users`.",
			},
		},
		Return: function.StringReturn{},
	}
}

// Run implements the function logic.
func (f *WellKnownSIDFunction) Run(ctx context.Context, req function.RunRequest, resp *function.RunResponse) {
	var name string

	resp.Error = function.ConcatFuncErrors(resp.Error, req.Arguments.Get(ctx, &name))
	if resp.Error != nil {
		return
	}

	sid, ok := f.table.LookupWellKnownSIDByName(name)
	if !ok {
		resp.Error = function.NewArgumentFuncError(0, fmt.Sprintf("%q is not a well-known principal name", name))
		return
	}

	resp.Error = function.ConcatFuncErrors(resp.Error, resp.Result.Set(ctx, sid))
}
