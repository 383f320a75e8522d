package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/identity"
	ldapclient "github.com/eguibarit/terraform-provider-housekeeping/internal/ldap"
	customtypes "github.com/eguibarit/terraform-provider-housekeeping/internal/provider/types"
	"github.com/eguibarit/terraform-provider-housekeeping/internal/provider/validators"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ datasource.DataSource = &IdentityDataSource{}
var _ datasource.DataSourceWithConfigure = &IdentityDataSource{}

func NewIdentityDataSource() datasource.DataSource {
	return &IdentityDataSource{}
}

// IdentityDataSource resolves one identity reference.
type IdentityDataSource struct {
	resolver *identity.Resolver
}

// IdentityDataSourceModel describes the data source data model.
type IdentityDataSourceModel struct {
	ID           types.String `tfsdk:"id"`
	Identity     types.String `tfsdk:"identity"`
	ExpectedKind types.String `tfsdk:"expected_kind"`

	Found             types.Bool                `tfsdk:"found"`
	Kind              types.String              `tfsdk:"kind"`
	DistinguishedName customtypes.DNStringValue `tfsdk:"distinguished_name"`
	SID               types.String              `tfsdk:"sid"`
	GUID              types.String              `tfsdk:"guid"`
	ObjectClass       types.String              `tfsdk:"object_class"`
	Name              types.String              `tfsdk:"name"`
	SAMAccountName    types.String              `tfsdk:"sam_account_name"`
	Enabled           types.Bool                `tfsdk:"enabled"`
}

func (d *IdentityDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_identity"
}

func (d *IdentityDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Resolves an identity to an Active Directory object. The identity may be a Distinguished Name, " +
			"a SID, an objectGUID, a sAMAccountName (optionally `DOMAIN\\name`), or a well-known principal such as " +
			"`NT AUTHORITY\\SYSTEM`. A missing identity is not an error: `found` is `false` and `kind` is `NotFound`.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "The objectGUID of the resolved object, its SID for well-known principals, " +
					"or the identity itself when nothing was found.",
				Computed: true,
			},
			"identity": schema.StringAttribute{
				MarkdownDescription: "The identity to resolve. Examples: `CN=TestUser,OU=Users,DC=contoso,DC=com`, " +
					"`S-1-5-21-1004336348-1177238915-682003330-1105`, `{12345678-1234-1234-1234-567890123456}`, `CONTOSO\\testuser`.",
				Required: true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"expected_kind": schema.StringAttribute{
				MarkdownDescription: "Fail unless the identity resolves to this kind. One of `User`, `Group`, `Computer`, " +
					"`OrganizationalUnit`, `ServiceAccount` or `WellKnownPrincipal` (case-insensitive).",
				Optional: true,
				Validators: []validator.String{
					validators.CaseInsensitiveOneOf(foundKindNames()...),
				},
			},

			"found": schema.BoolAttribute{
				MarkdownDescription: "Whether the identity resolved to a supported object.",
				Computed:            true,
			},
			"kind": schema.StringAttribute{
				MarkdownDescription: "The kind of object: `User`, `Group`, `Computer`, `OrganizationalUnit`, `ServiceAccount`, " +
					"`WellKnownPrincipal`, `NotFound`, or `Unsupported` for objects of any other class.",
				Computed: true,
			},
			"distinguished_name": schema.StringAttribute{
				MarkdownDescription: "The Distinguished Name as stored in the directory. Null for well-known principals.",
				CustomType:          customtypes.DNStringType{},
				Computed:            true,
			},
			"sid": schema.StringAttribute{
				MarkdownDescription: "The objectSid in string form.",
				Computed:            true,
			},
			"guid": schema.StringAttribute{
				MarkdownDescription: "The objectGUID.",
				Computed:            true,
			},
			"object_class": schema.StringAttribute{
				MarkdownDescription: "The most specific structural objectClass.",
				Computed:            true,
			},
			"name": schema.StringAttribute{
				MarkdownDescription: "The account name, OU name, or well-known principal name.",
				Computed:            true,
			},
			"sam_account_name": schema.StringAttribute{
				MarkdownDescription: "The sAMAccountName for security principals.",
				Computed:            true,
			},
			"enabled": schema.BoolAttribute{
				MarkdownDescription: "Whether the account is enabled. Null for groups, OUs and well-known principals.",
				Computed:            true,
			},
		},
	}
}

func (d *IdentityDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	if data := providerDataFrom(req.ProviderData, &resp.Diagnostics); data != nil {
		d.resolver = data.Resolver
	}
}

func (d *IdentityDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	ctx = initializeSubsystems(ctx)

	var data IdentityDataSourceModel

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	logCompletion := ldapclient.LogDataSourceOperation(ctx, "housekeeping_identity", "read", map[string]any{
		"identity": data.Identity.ValueString(),
	})
	defer func() { logCompletion(firstError(resp.Diagnostics)) }()

	if d.resolver == nil {
		resp.Diagnostics.AddError("Provider Not Configured", "The identity resolver is not available.")
		return
	}

	obj, err := d.resolver.Resolve(ctx, identity.String(data.Identity.ValueString()))
	if err != nil {
		addResolveError(&resp.Diagnostics, path.Root("identity"), data.Identity.ValueString(), err)
		return
	}

	if !data.ExpectedKind.IsNull() && obj.Found() && !strings.EqualFold(obj.Kind.String(), data.ExpectedKind.ValueString()) {
		resp.Diagnostics.AddAttributeError(
			path.Root("expected_kind"),
			"Unexpected Identity Kind",
			fmt.Sprintf("Identity %q resolved to a %s, expected %s.", data.Identity.ValueString(), obj.Kind, data.ExpectedKind.ValueString()),
		)
		return
	}

	if obj.Kind == identity.KindUnsupported {
		resp.Diagnostics.AddAttributeWarning(
			path.Root("identity"),
			"Unsupported Object Class",
			fmt.Sprintf("Identity %q exists but has objectClass %q, which is not a user, group, computer, OU or service account.",
				data.Identity.ValueString(), obj.ObjectClass),
		)
	}

	tflog.Debug(ctx, "Resolved identity", map[string]any{
		"identity": data.Identity.ValueString(),
		"kind":     obj.Kind.String(),
	})

	mapObjectToModel(obj, data.Identity.ValueString(), &data)

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func mapObjectToModel(obj *identity.Object, input string, data *IdentityDataSourceModel) {
	data.Found = types.BoolValue(obj.Found())
	data.Kind = types.StringValue(obj.Kind.String())
	data.DistinguishedName = customtypes.DNStringOrNull(obj.DistinguishedName)
	data.SID = stringOrNull(obj.SID)
	data.GUID = stringOrNull(obj.GUID)
	data.ObjectClass = stringOrNull(obj.ObjectClass)
	data.Name = stringOrNull(obj.Name)
	data.SAMAccountName = types.StringNull()
	data.Enabled = types.BoolNull()

	switch {
	case obj.User != nil:
		data.SAMAccountName = stringOrNull(obj.User.SAMAccountName)
		data.Enabled = types.BoolValue(obj.User.AccountEnabled)
	case obj.Group != nil:
		data.SAMAccountName = stringOrNull(obj.Group.SAMAccountName)
	case obj.Computer != nil:
		data.SAMAccountName = stringOrNull(obj.Computer.SAMAccountName)
		data.Enabled = types.BoolValue(obj.Computer.AccountEnabled)
	case obj.ServiceAccount != nil:
		data.SAMAccountName = stringOrNull(obj.ServiceAccount.SAMAccountName)
		data.Enabled = types.BoolValue(obj.ServiceAccount.AccountEnabled)
	}

	switch {
	case obj.GUID != "":
		data.ID = types.StringValue(obj.GUID)
	case obj.SID != "":
		data.ID = types.StringValue(obj.SID)
	default:
		data.ID = types.StringValue(input)
	}
}

// addResolveError turns a resolver error into an attribute diagnostic.
func addResolveError(diags *diag.Diagnostics, attr path.Path, input string, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidArgument):
		diags.AddAttributeError(attr, "Invalid Identity", err.Error())
	case errors.Is(err, identity.ErrDirectoryUnavailable):
		diags.AddAttributeError(attr, "Directory Unavailable",
			fmt.Sprintf("Could not reach Active Directory while resolving %q: %s", input, err.Error()))
	default:
		diags.AddAttributeError(attr, "Error Resolving Identity",
			fmt.Sprintf("Could not resolve %q: %s", input, err.Error()))
	}
}

// foundKindNames lists the kinds a resolved identity can have.
func foundKindNames() []string {
	names := make([]string, 0, len(identity.KindNames()))
	for _, name := range identity.KindNames() {
		if name != identity.KindNotFound.String() && name != identity.KindUnsupported.String() {
			names = append(names, name)
		}
	}
	return names
}

func stringOrNull(s string) types.String {
	if s == "" {
		return types.StringNull()
	}
	return types.StringValue(s)
}

// firstError formats the first error diagnostic for operation logging.
func firstError(diags diag.Diagnostics) error {
	errs := diags.Errors()
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %s", errs[0].Summary(), errs[0].Detail())
}
