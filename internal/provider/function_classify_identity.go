package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework/function"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/identity"
)

var _ function.Function = &ClassifyIdentityFunction{}

// ClassifyIdentityFunction implements the classify_identity function.
type ClassifyIdentityFunction struct {
	table *identity.WellKnownTable
}

func NewClassifyIdentityFunction(table *identity.WellKnownTable) function.Function {
	if table == nil {
		table = identity.MustNewWellKnownTable(identity.DefaultWellKnownEntries())
	}
	return &ClassifyIdentityFunction{table: table}
}

func (f *ClassifyIdentityFunction) Metadata(_ context.Context, req function.MetadataRequest, resp *function.MetadataResponse) {
	resp.Name = "classify_identity"
}

func (f *ClassifyIdentityFunction) Definition(_ context.Context, req function.DefinitionRequest, resp *function.DefinitionResponse) {
	resp.Definition = function.Definition{
		Summary: "Report which identity form a string uses",
		MarkdownDescription: "Returns `DistinguishedName`, `SecurityIdentifier`, `GUID`, `AccountName` or `Unrecognized`. " +
			"Forms are tried in that order, so `S-1-5-18` is a `SecurityIdentifier` and `CONTOSO\\jdoe` an `AccountName`. " +
			"No directory lookup is made.",
		Parameters: []function.Parameter{
			function.StringParameter{
				Name:                "identity",
				MarkdownDescription: "The identity string.",
			},
		},
		Return: function.StringReturn{},
	}
}

func (f *ClassifyIdentityFunction) Run(ctx context.Context, req function.RunRequest, resp *function.RunResponse) {
	var input string

	resp.Error = function.ConcatFuncErrors(resp.Error, req.Arguments.Get(ctx, &input))
	if resp.Error != nil {
		return
	}

	resp.Error = function.ConcatFuncErrors(resp.Error, resp.Result.Set(ctx, f.table.Classify(input).String()))
}
