package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework-validators/datasourcevalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/identity"
	ldapclient "github.com/eguibarit/terraform-provider-housekeeping/internal/ldap"
	"github.com/eguibarit/terraform-provider-housekeeping/internal/provider/validators"
)

var _ datasource.DataSource = &WellKnownPrincipalDataSource{}
var _ datasource.DataSourceWithConfigure = &WellKnownPrincipalDataSource{}
var _ datasource.DataSourceWithConfigValidators = &WellKnownPrincipalDataSource{}

func NewWellKnownPrincipalDataSource(table *identity.WellKnownTable) datasource.DataSource {
	return &WellKnownPrincipalDataSource{table: table}
}

// WellKnownPrincipalDataSource looks up well-known SIDs without contacting
// the directory.
type WellKnownPrincipalDataSource struct {
	table   *identity.WellKnownTable
	catalog *identity.Catalog
}

// WellKnownPrincipalDataSourceModel describes the data source data model.
type WellKnownPrincipalDataSourceModel struct {
	ID   types.String `tfsdk:"id"`
	Name types.String `tfsdk:"name"`
	SID  types.String `tfsdk:"sid"`
}

func (d *WellKnownPrincipalDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_well_known_principal"
}

func (d *WellKnownPrincipalDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Translates between well-known principal names and their SIDs. Names are matched " +
			"case-insensitively and may carry an `NT AUTHORITY\\` or `BUILTIN\\` prefix. " +
			"Specify exactly one of `name` or `sid`.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "The SID of the principal.",
				Computed:            true,
			},
			"name": schema.StringAttribute{
				MarkdownDescription: "The principal name, e.g. `Authenticated Users` or `BUILTIN\\Administrators`. " +
					"When `sid` is given this is the canonical name.",
				Optional: true,
				Computed: true,
			},
			"sid": schema.StringAttribute{
				MarkdownDescription: "The principal SID, e.g. `S-1-5-11`.",
				Optional:            true,
				Computed:            true,
				Validators: []validator.String{
					validators.IsValidSID(d.table),
				},
			},
		},
	}
}

// ConfigValidators implements datasource.DataSourceWithConfigValidators.
func (d *WellKnownPrincipalDataSource) ConfigValidators(ctx context.Context) []datasource.ConfigValidator {
	return []datasource.ConfigValidator{
		datasourcevalidator.ExactlyOneOf(
			path.MatchRoot("name"),
			path.MatchRoot("sid"),
		),
	}
}

func (d *WellKnownPrincipalDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	if data := providerDataFrom(req.ProviderData, &resp.Diagnostics); data != nil {
		d.catalog = data.Catalog
	}
}

// wellKnown prefers the table installed in the provider catalog.
func (d *WellKnownPrincipalDataSource) wellKnown() *identity.WellKnownTable {
	if d.catalog != nil {
		if table := d.catalog.WellKnown(); table != nil {
			return table
		}
	}
	return d.table
}

func (d *WellKnownPrincipalDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	ctx = initializeSubsystems(ctx)

	var data WellKnownPrincipalDataSourceModel

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	logCompletion := ldapclient.LogDataSourceOperation(ctx, "housekeeping_well_known_principal", "read", map[string]any{
		"name": data.Name.ValueString(),
		"sid":  data.SID.ValueString(),
	})
	defer func() { logCompletion(firstError(resp.Diagnostics)) }()

	table := d.wellKnown()

	if !data.Name.IsNull() {
		sid, ok := table.LookupWellKnownSIDByName(data.Name.ValueString())
		if !ok {
			resp.Diagnostics.AddAttributeError(
				path.Root("name"),
				"Unknown Well-Known Principal",
				fmt.Sprintf("%q is not a well-known principal name.", data.Name.ValueString()),
			)
			return
		}
		data.SID = types.StringValue(sid)
		if canonical, ok := table.LookupNameBySID(sid); ok {
			data.Name = types.StringValue(canonical)
		}
	} else {
		name, ok := table.LookupNameBySID(data.SID.ValueString())
		if !ok {
			resp.Diagnostics.AddAttributeError(
				path.Root("sid"),
				"Unknown Well-Known SID",
				fmt.Sprintf("%q is not a well-known SID.", data.SID.ValueString()),
			)
			return
		}
		data.Name = types.StringValue(name)
	}

	data.ID = data.SID

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
