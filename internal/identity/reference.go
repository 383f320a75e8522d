package identity

import (
	"fmt"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/ldap"
)

// Reference is an identity to resolve: either a String or an already
// resolved *Object.
type Reference interface {
	isReference()
}

// String is a raw identity string: a distinguished name, SID, GUID or
// account name.
type String string

func (String) isReference()  {}
func (*Object) isReference() {}

// ReferenceFrom adapts untyped caller input to a Reference. Strings become
// String values, and directory objects fetched through the ldap package
// become typed *Object values. Anything else is ErrUnsupportedIdentityType.
func ReferenceFrom(v any) (Reference, error) {
	switch v := v.(type) {
	case String:
		return v, nil
	case string:
		return String(v), nil
	case *Object:
		if v != nil {
			return v, nil
		}
	case *ldap.User:
		if v != nil {
			return objectFromUser(v), nil
		}
	case *ldap.Group:
		if v != nil {
			return objectFromGroup(v), nil
		}
	case *ldap.Computer:
		if v != nil {
			return objectFromComputer(v), nil
		}
	case *ldap.OU:
		if v != nil {
			return objectFromOU(v), nil
		}
	case *ldap.ServiceAccount:
		if v != nil {
			return objectFromServiceAccount(v), nil
		}
	}

	return nil, &ResolveError{
		Kind: ErrUnsupportedIdentityType,
		Err:  fmt.Errorf("cannot resolve a value of type %T", v),
	}
}

// Strings converts plain strings to References.
func Strings(values ...string) []Reference {
	refs := make([]Reference, len(values))
	for i, v := range values {
		refs[i] = String(v)
	}
	return refs
}
