package provider

import (
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/diag"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/identity"
	ldapclient "github.com/eguibarit/terraform-provider-housekeeping/internal/ldap"
)

// ProviderData is handed to data sources by Configure.
type ProviderData struct {
	Client   ldapclient.Client
	Resolver *identity.Resolver
	Catalog  *identity.Catalog
}

// providerDataFrom unwraps the ProviderData passed to a data source's
// Configure method. A nil result with no diagnostics means the provider is
// not configured yet.
func providerDataFrom(raw any, diags *diag.Diagnostics) *ProviderData {
	if raw == nil {
		return nil
	}

	data, ok := raw.(*ProviderData)
	if !ok {
		diags.AddError(
			"Unexpected Data Source Configure Type",
			fmt.Sprintf("Expected *provider.ProviderData, got: %T. Please report this issue to the provider developers.", raw),
		)
		return nil
	}

	return data
}
