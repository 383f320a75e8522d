package provider

import (
	"context"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	ldapclient "github.com/eguibarit/terraform-provider-housekeeping/internal/ldap"
)

// subsystemEnvPrefix follows the Terraform convention
// TF_LOG_PROVIDER_<PROVIDER>_<SUBSYSTEM>.
const subsystemEnvPrefix = "TF_LOG_PROVIDER_HOUSEKEEPING_"

var logSubsystems = []string{
	ldapclient.SubsystemLDAP,
	ldapclient.SubsystemPool,
	ldapclient.SubsystemDirectory,
	ldapclient.SubsystemIdentity,
}

// initializeSubsystems registers the directory and identity subsystems so
// their levels can be tuned independently.
func initializeSubsystems(ctx context.Context) context.Context {
	for _, name := range logSubsystems {
		ctx = tflog.NewSubsystem(ctx, name, tflog.WithLevelFromEnv(subsystemEnvPrefix+strings.ToUpper(name)))
	}
	return initializeLogging(ctx)
}

// initializeLogging initializes the provider subsystem for consistent logging.
// This should be called at the beginning of each data source Read method.
func initializeLogging(ctx context.Context) context.Context {
	return tflog.NewSubsystem(ctx, ldapclient.SubsystemProvider,
		tflog.WithLevelFromEnv(subsystemEnvPrefix+"PROVIDER"))
}
