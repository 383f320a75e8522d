package identity

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the five failure kinds. A *ResolveError matches the
// sentinel for its kind with errors.Is.
var (
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrUnsupportedIdentityType = errors.New("unsupported identity type")
	ErrUnsupportedObjectClass  = errors.New("unsupported object class")
	ErrNotFound                = errors.New("identity not found")
	ErrDirectoryUnavailable    = errors.New("directory unavailable")
)

// ResolveError describes a failed resolution.
type ResolveError struct {
	Kind        error  // one of the sentinel errors above
	Identity    string // the reference as given, when it has a string form
	ObjectClass string // set for ErrUnsupportedObjectClass
	Err         error  // underlying cause, if any
}

func (e *ResolveError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Identity != "" {
		fmt.Fprintf(&b, " %q", e.Identity)
	}
	if e.ObjectClass != "" {
		fmt.Fprintf(&b, " (objectClass %s)", e.ObjectClass)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ResolveError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newResolveError(kind error, identity string, cause error) *ResolveError {
	return &ResolveError{Kind: kind, Identity: identity, Err: cause}
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDirectoryUnavailable reports whether err is, or wraps, ErrDirectoryUnavailable.
func IsDirectoryUnavailable(err error) bool {
	return errors.Is(err, ErrDirectoryUnavailable)
}
