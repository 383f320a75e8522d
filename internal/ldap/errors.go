package ldap

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// ErrorCategory groups directory failures by how a caller should react to them.
type ErrorCategory string

const (
	ErrorCategoryConnection     ErrorCategory = "connection"
	ErrorCategoryAuthentication ErrorCategory = "authentication"
	ErrorCategoryPermission     ErrorCategory = "permission"
	ErrorCategoryNotFound       ErrorCategory = "not_found"
	ErrorCategoryValidation     ErrorCategory = "validation"
	ErrorCategoryServer         ErrorCategory = "server"
	ErrorCategoryUnknown        ErrorCategory = "unknown"
)

// LDAPError is a categorised directory failure.
type LDAPError struct {
	Operation string
	Category  ErrorCategory
	LDAPCode  uint16
	Message   string
	ServerMsg string
	DN        string
	Retryable bool
	Cause     error
}

func (e *LDAPError) Error() string {
	var parts []string

	if e.LDAPCode > 0 {
		parts = append(parts, fmt.Sprintf("LDAP %s failed (code %d)", e.Operation, e.LDAPCode))
	} else {
		parts = append(parts, fmt.Sprintf("LDAP %s failed", e.Operation))
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.ServerMsg != "" && e.ServerMsg != e.Message {
		parts = append(parts, "server: "+e.ServerMsg)
	}

	if e.DN != "" {
		parts = append(parts, "DN: "+e.DN)
	}

	return strings.Join(parts, " - ")
}

func (e *LDAPError) IsRetryable() bool {
	return e.Retryable
}

func (e *LDAPError) Unwrap() error {
	return e.Cause
}

// NewLDAPError categorises err for the named operation.
func NewLDAPError(operation string, err error) *LDAPError {
	if err == nil {
		return nil
	}

	ldapErr := &LDAPError{
		Operation: operation,
		Cause:     err,
	}

	var resultErr *ldap.Error
	if errors.As(err, &resultErr) {
		ldapErr.LDAPCode = resultErr.ResultCode
		if resultErr.Err != nil {
			ldapErr.ServerMsg = resultErr.Err.Error()
		}
		ldapErr.Category = categorizeResultCode(resultErr.ResultCode)
		ldapErr.Retryable = isResultCodeRetryable(resultErr.ResultCode)
		ldapErr.Message = resultCodeMessage(resultErr.ResultCode)
	}

	// Exhausted retries surface as connection failures whatever the last result code was.
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		ldapErr.Category = ErrorCategoryConnection
		ldapErr.Retryable = connErr.IsRetryable()
		if ldapErr.Message == "" {
			ldapErr.Message = err.Error()
		}
		return ldapErr
	}

	if ldapErr.LDAPCode != 0 {
		return ldapErr
	}

	ldapErr.Category = categorizeGenericError(err)
	ldapErr.Retryable = ldapErr.Category == ErrorCategoryConnection || isGenericErrorRetryable(err)
	ldapErr.Message = err.Error()

	return ldapErr
}

func categorizeResultCode(code uint16) ErrorCategory {
	switch code {
	case ldap.LDAPResultInvalidCredentials,
		ldap.LDAPResultInappropriateAuthentication,
		ldap.LDAPResultStrongAuthRequired,
		ldap.LDAPResultAuthMethodNotSupported:
		return ErrorCategoryAuthentication

	case ldap.LDAPResultInsufficientAccessRights,
		ldap.LDAPResultUnwillingToPerform:
		return ErrorCategoryPermission

	case ldap.LDAPResultNoSuchObject,
		ldap.LDAPResultNoSuchAttribute,
		ldap.LDAPResultUndefinedAttributeType:
		return ErrorCategoryNotFound

	case ldap.LDAPResultInvalidAttributeSyntax,
		ldap.LDAPResultInvalidDNSyntax,
		ldap.LDAPResultFilterError,
		ldap.ErrorFilterCompile:
		return ErrorCategoryValidation

	case ldap.LDAPResultServerDown,
		ldap.LDAPResultUnavailable,
		ldap.LDAPResultConnectError,
		ldap.LDAPResultTimeout,
		ldap.ErrorNetwork:
		return ErrorCategoryConnection

	case ldap.LDAPResultBusy,
		ldap.LDAPResultTimeLimitExceeded,
		ldap.LDAPResultAdminLimitExceeded,
		ldap.LDAPResultOperationsError,
		ldap.LDAPResultProtocolError:
		return ErrorCategoryServer

	default:
		return ErrorCategoryUnknown
	}
}

func categorizeGenericError(err error) ErrorCategory {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return ErrorCategoryConnection
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorCategoryConnection
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "connection"),
		strings.Contains(errStr, "network"),
		strings.Contains(errStr, "timeout"),
		strings.Contains(errStr, "broken pipe"),
		strings.Contains(errStr, "no such host"):
		return ErrorCategoryConnection
	case strings.Contains(errStr, "credentials"),
		strings.Contains(errStr, "authentication"):
		return ErrorCategoryAuthentication
	case strings.Contains(errStr, "access denied"),
		strings.Contains(errStr, "permission"):
		return ErrorCategoryPermission
	default:
		return ErrorCategoryUnknown
	}
}

func isResultCodeRetryable(code uint16) bool {
	switch code {
	case ldap.LDAPResultBusy,
		ldap.LDAPResultUnavailable,
		ldap.LDAPResultServerDown,
		ldap.LDAPResultTimeLimitExceeded,
		ldap.LDAPResultConnectError,
		ldap.ErrorNetwork:
		return true
	default:
		return false
	}
}

func isGenericErrorRetryable(err error) bool {
	errStr := strings.ToLower(err.Error())

	for _, pattern := range []string{
		"timeout",
		"broken pipe",
		"connection reset",
		"temporary failure",
		"server temporarily unavailable",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

func resultCodeMessage(code uint16) string {
	if msg, ok := ldap.LDAPResultCodeMap[code]; ok {
		return msg
	}
	return fmt.Sprintf("Unknown LDAP error (code %d)", code)
}

// WrapError categorises err unless it already is an *LDAPError.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var ldapErr *LDAPError
	if errors.As(err, &ldapErr) {
		if ldapErr.Operation == "" {
			ldapErr.Operation = operation
		}
		return err
	}

	return NewLDAPError(operation, err)
}

// IsRetryableError reports whether err is worth retrying against the same server set.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var retryable RetryableError
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}

	var resultErr *ldap.Error
	if errors.As(err, &resultErr) {
		return isResultCodeRetryable(resultErr.ResultCode)
	}

	return isGenericErrorRetryable(err)
}

// GetErrorCategory returns the category of err.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryUnknown
	}

	var ldapErr *LDAPError
	if errors.As(err, &ldapErr) {
		return ldapErr.Category
	}

	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return ErrorCategoryConnection
	}

	var resultErr *ldap.Error
	if errors.As(err, &resultErr) {
		return categorizeResultCode(resultErr.ResultCode)
	}

	return categorizeGenericError(err)
}

// IsNotFoundError reports whether err means the object does not exist.
func IsNotFoundError(err error) bool {
	return GetErrorCategory(err) == ErrorCategoryNotFound
}

// IsConnectionError reports whether err means the directory could not be reached.
func IsConnectionError(err error) bool {
	return GetErrorCategory(err) == ErrorCategoryConnection
}

func IsAuthenticationError(err error) bool {
	return GetErrorCategory(err) == ErrorCategoryAuthentication
}
