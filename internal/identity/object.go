package identity

import (
	"fmt"
	"strings"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/ldap"
)

// Kind is the category of a resolved identity.
type Kind int

const (
	KindNotFound Kind = iota
	KindUser
	KindGroup
	KindComputer
	KindOrganizationalUnit
	KindServiceAccount
	KindWellKnownPrincipal
	KindUnsupported
)

var kindNames = map[Kind]string{
	KindNotFound:           "NotFound",
	KindUser:               "User",
	KindGroup:              "Group",
	KindComputer:           "Computer",
	KindOrganizationalUnit: "OrganizationalUnit",
	KindServiceAccount:     "ServiceAccount",
	KindWellKnownPrincipal: "WellKnownPrincipal",
	KindUnsupported:        "Unsupported",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses a kind name, ignoring case.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return k, nil
		}
	}
	return KindNotFound, fmt.Errorf("%w: unknown identity kind %q", ErrInvalidArgument, s)
}

// KindNames returns every kind name in Kind order.
func KindNames() []string {
	names := make([]string, 0, len(kindNames))
	for k := KindNotFound; k <= KindUnsupported; k++ {
		names = append(names, kindNames[k])
	}
	return names
}

// Object is the outcome of resolving one identity. Exactly one of the
// class-specific fields is set for directory kinds; well-known principals
// carry only SID and Name.
type Object struct {
	Kind Kind

	// Identity is the string that was resolved, empty for objects built
	// from typed input.
	Identity string

	DistinguishedName string
	SID               string
	GUID              string
	Name              string
	ObjectClass       string

	User               *ldap.User
	Group              *ldap.Group
	Computer           *ldap.Computer
	OrganizationalUnit *ldap.OU
	ServiceAccount     *ldap.ServiceAccount
}

// Found reports whether the object names an existing principal.
func (o *Object) Found() bool {
	return o != nil && o.Kind != KindNotFound && o.Kind != KindUnsupported
}

// Err returns nil for found objects, ErrNotFound for KindNotFound and
// ErrUnsupportedObjectClass for KindUnsupported, each as a *ResolveError.
func (o *Object) Err() error {
	if o == nil {
		return newResolveError(ErrNotFound, "", nil)
	}
	switch o.Kind {
	case KindNotFound:
		return newResolveError(ErrNotFound, o.Identity, nil)
	case KindUnsupported:
		return &ResolveError{Kind: ErrUnsupportedObjectClass, Identity: o.Identity, ObjectClass: o.ObjectClass}
	default:
		return nil
	}
}

func (o *Object) String() string {
	if o == nil {
		return "<nil>"
	}
	switch {
	case o.DistinguishedName != "":
		return fmt.Sprintf("%s(%s)", o.Kind, o.DistinguishedName)
	case o.SID != "":
		return fmt.Sprintf("%s(%s)", o.Kind, o.SID)
	default:
		return fmt.Sprintf("%s(%q)", o.Kind, o.Identity)
	}
}

func notFound(identity string) *Object {
	return &Object{Kind: KindNotFound, Identity: identity}
}

func wellKnownPrincipal(identity, sid, name string) *Object {
	return &Object{Kind: KindWellKnownPrincipal, Identity: identity, SID: sid, Name: name}
}

func objectFromUser(u *ldap.User) *Object {
	return &Object{
		Kind:              KindUser,
		DistinguishedName: u.DistinguishedName,
		SID:               u.ObjectSid,
		GUID:              u.ObjectGUID,
		Name:              u.SAMAccountName,
		ObjectClass:       ldap.ObjectClassUser,
		User:              u,
	}
}

func objectFromGroup(g *ldap.Group) *Object {
	return &Object{
		Kind:              KindGroup,
		DistinguishedName: g.DistinguishedName,
		SID:               g.ObjectSid,
		GUID:              g.ObjectGUID,
		Name:              g.SAMAccountName,
		ObjectClass:       ldap.ObjectClassGroup,
		Group:             g,
	}
}

func objectFromComputer(c *ldap.Computer) *Object {
	return &Object{
		Kind:              KindComputer,
		DistinguishedName: c.DistinguishedName,
		SID:               c.ObjectSid,
		GUID:              c.ObjectGUID,
		Name:              c.SAMAccountName,
		ObjectClass:       ldap.ObjectClassComputer,
		Computer:          c,
	}
}

func objectFromOU(ou *ldap.OU) *Object {
	return &Object{
		Kind:               KindOrganizationalUnit,
		DistinguishedName:  ou.DistinguishedName,
		GUID:               ou.ObjectGUID,
		Name:               ou.Name,
		ObjectClass:        ldap.ObjectClassOrganizationalUnit,
		OrganizationalUnit: ou,
	}
}

func objectFromServiceAccount(sa *ldap.ServiceAccount) *Object {
	return &Object{
		Kind:              KindServiceAccount,
		DistinguishedName: sa.DistinguishedName,
		SID:               sa.ObjectSid,
		GUID:              sa.ObjectGUID,
		Name:              sa.SAMAccountName,
		ObjectClass:       ldap.ObjectClassGroupManagedServiceAccount,
		ServiceAccount:    sa,
	}
}
