package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/identity"
	ldapclient "github.com/eguibarit/terraform-provider-housekeeping/internal/ldap"
	"github.com/eguibarit/terraform-provider-housekeeping/internal/provider/validators"
)

const (
	schemaMapSchema         = "schema"
	schemaMapExtendedRights = "extended_rights"
)

var _ datasource.DataSource = &SchemaGUIDDataSource{}
var _ datasource.DataSourceWithConfigure = &SchemaGUIDDataSource{}

func NewSchemaGUIDDataSource() datasource.DataSource {
	return &SchemaGUIDDataSource{}
}

// SchemaGUIDDataSource exposes the schemaIDGUID and rightsGuid maps loaded
// at provider configuration.
type SchemaGUIDDataSource struct {
	catalog *identity.Catalog
}

// SchemaGUIDDataSourceModel describes the data source data model.
type SchemaGUIDDataSourceModel struct {
	ID   types.String `tfsdk:"id"`
	Name types.String `tfsdk:"name"`
	Map  types.String `tfsdk:"map"`
	GUID types.String `tfsdk:"guid"`
}

func (d *SchemaGUIDDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_schema_guid"
}

func (d *SchemaGUIDDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Looks up the GUID of a schema class or attribute (`schemaIDGUID`) or of an extended right " +
			"(`rightsGuid`). The name `All` always maps to `00000000-0000-0000-0000-000000000000`. " +
			"Requires `load_schema_maps = true` on the provider for any other name.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "`<map>/<name>`.",
				Computed:            true,
			},
			"name": schema.StringAttribute{
				MarkdownDescription: "The lDAPDisplayName of a class or attribute, or the displayName of an extended right. " +
					"Matched case-insensitively.",
				Required: true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"map": schema.StringAttribute{
				MarkdownDescription: "Which map to search: `schema` (default) or `extended_rights`.",
				Optional:            true,
				Validators: []validator.String{
					validators.CaseInsensitiveOneOf(schemaMapSchema, schemaMapExtendedRights),
				},
			},
			"guid": schema.StringAttribute{
				MarkdownDescription: "The GUID in lowercase 8-4-4-4-12 form.",
				Computed:            true,
			},
		},
	}
}

func (d *SchemaGUIDDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	if data := providerDataFrom(req.ProviderData, &resp.Diagnostics); data != nil {
		d.catalog = data.Catalog
	}
}

func (d *SchemaGUIDDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	ctx = initializeSubsystems(ctx)

	var data SchemaGUIDDataSourceModel

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	mapName := schemaMapSchema
	if !data.Map.IsNull() && data.Map.ValueString() != "" {
		mapName = strings.ToLower(data.Map.ValueString())
	}

	logCompletion := ldapclient.LogDataSourceOperation(ctx, "housekeeping_schema_guid", "read", map[string]any{
		"name": data.Name.ValueString(),
		"map":  mapName,
	})
	defer func() { logCompletion(firstError(resp.Diagnostics)) }()

	if d.catalog == nil {
		resp.Diagnostics.AddError("Provider Not Configured", "The schema maps are not available.")
		return
	}

	lookup := d.catalog.SchemaGUID
	if mapName == schemaMapExtendedRights {
		lookup = d.catalog.ExtendedRightGUID
	}

	guid, ok := lookup(data.Name.ValueString())
	if !ok {
		resp.Diagnostics.AddAttributeError(
			path.Root("name"),
			"Unknown Schema Name",
			fmt.Sprintf("%q was not found in the %s map. Set load_schema_maps = true on the provider "+
				"to load the directory schema.", data.Name.ValueString(), mapName),
		)
		return
	}

	tflog.Debug(ctx, "Resolved schema GUID", map[string]any{
		"name": data.Name.ValueString(),
		"guid": guid.String(),
	})

	data.GUID = types.StringValue(guid.String())
	data.ID = types.StringValue(mapName + "/" + data.Name.ValueString())

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
