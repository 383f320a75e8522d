package ldap

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// Logging subsystems registered by the provider.
const (
	SubsystemLDAP      = "ldap"
	SubsystemPool      = "pool"
	SubsystemDirectory = "directory"
	SubsystemIdentity  = "identity"
	SubsystemProvider  = "provider"
)

// LogOperation runs fn and logs its start, duration and outcome.
func LogOperation(ctx context.Context, subsystem, operation string, fields map[string]any, fn func() error) error {
	start := time.Now()

	logFields := make(map[string]any, len(fields)+3)
	maps.Copy(logFields, fields)
	logFields["operation"] = operation

	tflog.SubsystemDebug(ctx, subsystem, "Starting operation", logFields)

	err := fn()

	logFields["duration_ms"] = time.Since(start).Milliseconds()

	if err != nil {
		logFields["error"] = err.Error()
		tflog.SubsystemError(ctx, subsystem, "Operation failed", logFields)
	} else {
		tflog.SubsystemDebug(ctx, subsystem, "Operation completed", logFields)
	}

	return err
}

// LogDirectoryError logs err with its category and, for protocol errors, the
// result code and diagnostic message.
func LogDirectoryError(ctx context.Context, subsystem, operation string, err error, fields map[string]any) {
	logFields := make(map[string]any, len(fields)+5)
	maps.Copy(logFields, fields)
	logFields["operation"] = operation
	logFields["error"] = err.Error()
	logFields["category"] = string(GetErrorCategory(err))

	var resultErr *ldap.Error
	if errors.As(err, &resultErr) {
		logFields["ldap_result_code"] = resultErr.ResultCode
		if resultErr.MatchedDN != "" {
			logFields["ldap_matched_dn"] = resultErr.MatchedDN
		}
		if resultErr.Err != nil {
			logFields["ldap_diagnostic_message"] = resultErr.Err.Error()
		}
	}

	tflog.SubsystemError(ctx, subsystem, "Directory operation failed", logFields)
}

// LogPoolEvent logs connection pool lifecycle events at a level matching their severity.
func LogPoolEvent(ctx context.Context, event string, fields map[string]any) {
	logFields := make(map[string]any, len(fields)+1)
	maps.Copy(logFields, fields)
	logFields["event"] = event

	switch event {
	case "pool_initialized", "connection_created", "connection_released":
		tflog.SubsystemDebug(ctx, SubsystemPool, "Pool event", logFields)
	case "connection_failed", "health_check_failed", "reauthentication_failed":
		tflog.SubsystemWarn(ctx, SubsystemPool, "Pool event", logFields)
	case "all_servers_failed":
		tflog.SubsystemError(ctx, SubsystemPool, "Pool event", logFields)
	default:
		tflog.SubsystemTrace(ctx, SubsystemPool, "Pool event", logFields)
	}
}

var sensitiveKeys = map[string]bool{
	"password":    true,
	"passwd":      true,
	"secret":      true,
	"token":       true,
	"key":         true,
	"private_key": true,
	"credential":  true,
	"credentials": true,
}

// SanitizeFields returns a copy of fields with credential-looking values redacted.
func SanitizeFields(fields map[string]any) map[string]any {
	sanitized := make(map[string]any, len(fields))

	for k, v := range fields {
		if sensitiveKeys[strings.ToLower(k)] {
			sanitized[k] = "[REDACTED]"
			continue
		}
		if str, ok := v.(string); ok && containsSensitivePattern(str) {
			sanitized[k] = "[REDACTED]"
			continue
		}
		sanitized[k] = v
	}

	return sanitized
}

func containsSensitivePattern(s string) bool {
	lower := strings.ToLower(s)
	for _, pattern := range []string{"password=", "passwd=", "secret=", "token=", "key="} {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// LogDataSourceOperation logs entry immediately and returns a func that logs
// exit with duration and outcome. Intended for use with defer.
func LogDataSourceOperation(ctx context.Context, dataSource, operation string, fields map[string]any) func(error) {
	start := time.Now()

	entryFields := make(map[string]any, len(fields)+2)
	maps.Copy(entryFields, fields)
	entryFields["data_source"] = dataSource
	entryFields["operation"] = operation

	tflog.SubsystemDebug(ctx, SubsystemProvider, "Starting data source operation", entryFields)

	return func(err error) {
		exitFields := maps.Clone(entryFields)
		exitFields["duration_ms"] = time.Since(start).Milliseconds()
		exitFields["has_error"] = err != nil

		if err != nil {
			exitFields["error"] = err.Error()
			tflog.SubsystemError(ctx, SubsystemProvider, "Data source operation failed", exitFields)
		} else {
			tflog.SubsystemDebug(ctx, SubsystemProvider, "Data source operation completed", exitFields)
		}
	}
}
