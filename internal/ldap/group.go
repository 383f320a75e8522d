package ldap

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// GroupScope represents the scope of an Active Directory group.
type GroupScope string

const (
	GroupScopeGlobal      GroupScope = "Global"
	GroupScopeUniversal   GroupScope = "Universal"
	GroupScopeDomainLocal GroupScope = "DomainLocal"
)

func (gs GroupScope) String() string {
	return string(gs)
}

// GroupCategory represents the category of an Active Directory group.
type GroupCategory string

const (
	GroupCategorySecurity     GroupCategory = "Security"
	GroupCategoryDistribution GroupCategory = "Distribution"
)

func (gc GroupCategory) String() string {
	return string(gc)
}

// groupType bit flags.
const (
	GroupTypeFlagBuiltinLocal int32 = 0x00000001 // ADS_GROUP_TYPE_BUILTIN_LOCAL_GROUP
	GroupTypeFlagGlobal       int32 = 0x00000002 // ADS_GROUP_TYPE_GLOBAL_GROUP
	GroupTypeFlagDomainLocal  int32 = 0x00000004 // ADS_GROUP_TYPE_DOMAIN_LOCAL_GROUP
	GroupTypeFlagUniversal    int32 = 0x00000008 // ADS_GROUP_TYPE_UNIVERSAL_GROUP

	GroupTypeFlagSecurity int32 = -2147483648 // ADS_GROUP_TYPE_SECURITY_ENABLED (0x80000000 as signed int32)
)

// Group is the class-specific view of a group object.
type Group struct {
	ObjectGUID        string `json:"objectGUID"`
	DistinguishedName string `json:"distinguishedName"`
	ObjectSid         string `json:"objectSid,omitempty"`

	Name           string        `json:"name"`
	SAMAccountName string        `json:"sAMAccountName"`
	Description    string        `json:"description"`
	Scope          GroupScope    `json:"scope"`
	Category       GroupCategory `json:"category"`
	GroupType      int32         `json:"groupType"`
	Mail           string        `json:"mail,omitempty"`
	BuiltIn        bool          `json:"builtIn"`

	Container string   `json:"container"`
	MemberDNs []string `json:"memberDNs,omitempty"`
	MemberOf  []string `json:"memberOf,omitempty"`

	WhenCreated time.Time `json:"whenCreated"`
	WhenChanged time.Time `json:"whenChanged"`
}

var groupAttributes = []string{
	"objectGUID", "objectSid", "distinguishedName",
	"cn", "sAMAccountName", "description", "groupType", "mail",
	"member", "memberOf", "whenCreated", "whenChanged",
}

// ParseGroupType extracts scope and category from an Active Directory groupType value.
func ParseGroupType(groupType int32) (GroupScope, GroupCategory) {
	var scope GroupScope
	var category GroupCategory

	switch {
	case groupType&GroupTypeFlagGlobal != 0:
		scope = GroupScopeGlobal
	case groupType&GroupTypeFlagDomainLocal != 0, groupType&GroupTypeFlagBuiltinLocal != 0:
		scope = GroupScopeDomainLocal
	case groupType&GroupTypeFlagUniversal != 0:
		scope = GroupScopeUniversal
	default:
		scope = GroupScopeGlobal
	}

	if groupType&GroupTypeFlagSecurity != 0 {
		category = GroupCategorySecurity
	} else {
		category = GroupCategoryDistribution
	}

	return scope, category
}

// FetchGroup reads the group at dn.
func (d *Directory) FetchGroup(ctx context.Context, dn string) (*Group, error) {
	entry, err := d.fetchByDN(ctx, "fetch_group", dn, "(objectClass=group)", groupAttributes)
	if err != nil || entry == nil {
		return nil, err
	}

	group, err := d.entryToGroup(entry)
	if err != nil {
		return nil, WrapError("parse_group_entry", err)
	}
	return group, nil
}

func (d *Directory) entryToGroup(entry *ldap.Entry) (*Group, error) {
	if entry == nil {
		return nil, fmt.Errorf("LDAP entry cannot be nil")
	}

	guid, err := d.guidHandler.ExtractGUID(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to extract GUID: %w", err)
	}

	group := &Group{
		ObjectGUID:        guid,
		DistinguishedName: entryDN(entry),
		ObjectSid:         d.sidHandler.ExtractSIDSafe(entry),
		Name:              entry.GetAttributeValue("cn"),
		SAMAccountName:    entry.GetAttributeValue("sAMAccountName"),
		Description:       entry.GetAttributeValue("description"),
		Mail:              entry.GetAttributeValue("mail"),
		MemberDNs:         entry.GetAttributeValues("member"),
		MemberOf:          entry.GetAttributeValues("memberOf"),
	}

	if groupType := entry.GetAttributeValue("groupType"); groupType != "" {
		group.GroupType = parseInt32(groupType)
		group.Scope, group.Category = ParseGroupType(group.GroupType)
		group.BuiltIn = group.GroupType&GroupTypeFlagBuiltinLocal != 0
	}

	if parent, err := GetDNParent(group.DistinguishedName); err == nil {
		group.Container = parent
	}

	group.WhenCreated, _ = parseGeneralizedTime(entry.GetAttributeValue("whenCreated"))
	group.WhenChanged, _ = parseGeneralizedTime(entry.GetAttributeValue("whenChanged"))

	return group, nil
}
