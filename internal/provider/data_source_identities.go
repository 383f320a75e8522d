package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework-validators/listvalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/identity"
	ldapclient "github.com/eguibarit/terraform-provider-housekeeping/internal/ldap"
	customtypes "github.com/eguibarit/terraform-provider-housekeeping/internal/provider/types"
)

var _ datasource.DataSource = &IdentitiesDataSource{}
var _ datasource.DataSourceWithConfigure = &IdentitiesDataSource{}

func NewIdentitiesDataSource() datasource.DataSource {
	return &IdentitiesDataSource{}
}

// IdentitiesDataSource resolves a list of identities in order.
type IdentitiesDataSource struct {
	resolver *identity.Resolver
}

// IdentitiesDataSourceModel describes the data source data model.
type IdentitiesDataSourceModel struct {
	ID            types.String                 `tfsdk:"id"`
	Identities    []types.String               `tfsdk:"identities"`
	IgnoreMissing types.Bool                   `tfsdk:"ignore_missing"`
	Results       []IdentitiesDataSourceResult `tfsdk:"results"`
}

// IdentitiesDataSourceResult is one resolved entry of the results list.
type IdentitiesDataSourceResult struct {
	Identity          types.String              `tfsdk:"identity"`
	Found             types.Bool                `tfsdk:"found"`
	Kind              types.String              `tfsdk:"kind"`
	DistinguishedName customtypes.DNStringValue `tfsdk:"distinguished_name"`
	SID               types.String              `tfsdk:"sid"`
	GUID              types.String              `tfsdk:"guid"`
	Name              types.String              `tfsdk:"name"`
}

func (d *IdentitiesDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_identities"
}

func (d *IdentitiesDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Resolves a list of identities. Results are returned in input order. By default any identity " +
			"that does not resolve to a supported object fails the read; set `ignore_missing` to report it with " +
			"`found = false` instead. A directory outage always fails the read.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "A placeholder identifier.",
				Computed:            true,
			},
			"identities": schema.ListAttribute{
				MarkdownDescription: "Identities in any form accepted by `housekeeping_identity`.",
				ElementType:         types.StringType,
				Required:            true,
				Validators: []validator.List{
					listvalidator.SizeAtLeast(1),
					listvalidator.ValueStringsAre(stringvalidator.LengthAtLeast(1)),
				},
			},
			"ignore_missing": schema.BoolAttribute{
				MarkdownDescription: "Report identities that are not found or of an unsupported class instead of failing. Defaults to `false`.",
				Optional:            true,
			},
			"results": schema.ListNestedAttribute{
				MarkdownDescription: "One result per input identity.",
				Computed:            true,
				NestedObject: schema.NestedAttributeObject{
					Attributes: map[string]schema.Attribute{
						"identity": schema.StringAttribute{
							MarkdownDescription: "The input identity.",
							Computed:            true,
						},
						"found": schema.BoolAttribute{
							MarkdownDescription: "Whether the identity resolved to a supported object.",
							Computed:            true,
						},
						"kind": schema.StringAttribute{
							MarkdownDescription: "The kind of object.",
							Computed:            true,
						},
						"distinguished_name": schema.StringAttribute{
							MarkdownDescription: "The Distinguished Name.",
							CustomType:          customtypes.DNStringType{},
							Computed:            true,
						},
						"sid": schema.StringAttribute{
							MarkdownDescription: "The objectSid.",
							Computed:            true,
						},
						"guid": schema.StringAttribute{
							MarkdownDescription: "The objectGUID.",
							Computed:            true,
						},
						"name": schema.StringAttribute{
							MarkdownDescription: "The account name, OU name, or well-known principal name.",
							Computed:            true,
						},
					},
				},
			},
		},
	}
}

func (d *IdentitiesDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	if data := providerDataFrom(req.ProviderData, &resp.Diagnostics); data != nil {
		d.resolver = data.Resolver
	}
}

func (d *IdentitiesDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	ctx = initializeSubsystems(ctx)

	var data IdentitiesDataSourceModel

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	logCompletion := ldapclient.LogDataSourceOperation(ctx, "housekeeping_identities", "read", map[string]any{
		"count": len(data.Identities),
	})
	defer func() { logCompletion(firstError(resp.Diagnostics)) }()

	if d.resolver == nil {
		resp.Diagnostics.AddError("Provider Not Configured", "The identity resolver is not available.")
		return
	}

	inputs := make([]string, 0, len(data.Identities))
	for _, v := range data.Identities {
		inputs = append(inputs, v.ValueString())
	}

	objects, err := d.resolver.ResolveAll(ctx, identity.Strings(inputs...), func(p identity.Progress) {
		tflog.Trace(ctx, "Resolved identity", map[string]any{
			"index": p.Index,
			"total": p.Total,
			"found": p.Err == nil,
		})
	})

	ignoreMissing := data.IgnoreMissing.ValueBool()
	if err != nil && (len(objects) < len(inputs) || !ignoreMissing || !onlyMissing(err)) {
		addResolveError(&resp.Diagnostics, path.Root("identities"), fmt.Sprintf("%d identities", len(inputs)), err)
		return
	}

	data.Results = make([]IdentitiesDataSourceResult, 0, len(inputs))
	for i, obj := range objects {
		var model IdentityDataSourceModel
		if obj == nil {
			obj = &identity.Object{Kind: identity.KindNotFound, Identity: inputs[i]}
		}
		mapObjectToModel(obj, inputs[i], &model)
		data.Results = append(data.Results, IdentitiesDataSourceResult{
			Identity:          types.StringValue(inputs[i]),
			Found:             model.Found,
			Kind:              model.Kind,
			DistinguishedName: model.DistinguishedName,
			SID:               model.SID,
			GUID:              model.GUID,
			Name:              model.Name,
		})
	}
	data.ID = types.StringValue("identities")

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

// onlyMissing reports whether every joined error is a not-found or
// unsupported-class result.
func onlyMissing(err error) bool {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return isMissing(err)
	}
	for _, e := range joined.Unwrap() {
		if !isMissing(e) {
			return false
		}
	}
	return true
}

func isMissing(err error) bool {
	return errors.Is(err, identity.ErrNotFound) || errors.Is(err, identity.ErrUnsupportedObjectClass)
}
