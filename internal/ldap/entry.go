package ldap

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// Structural object classes with a class-specific accessor.
const (
	ObjectClassUser                       = "user"
	ObjectClassGroup                      = "group"
	ObjectClassComputer                   = "computer"
	ObjectClassOrganizationalUnit         = "organizationalUnit"
	ObjectClassGroupManagedServiceAccount = "msDS-GroupManagedServiceAccount"
)

// Most specific first: a gMSA is also a computer and a computer is also a user.
var structuralPrecedence = []string{
	ObjectClassGroupManagedServiceAccount,
	ObjectClassComputer,
	ObjectClassUser,
	ObjectClassGroup,
	ObjectClassOrganizationalUnit,
}

// DirectoryEntry is the class-agnostic result of a generic identity query.
type DirectoryEntry struct {
	DistinguishedName string
	ObjectClass       string   // most specific structural class
	ObjectClasses     []string // full objectClass chain as returned
	SID               string
	GUID              string
	Name              string
	SAMAccountName    string
}

// genericAttributes are fetched by every identity query.
var genericAttributes = []string{
	"objectClass", "distinguishedName", "objectSid", "objectGUID", "name", "sAMAccountName",
}

// StructuralClass returns the most specific known class in classes, or the
// last value when none is known.
func StructuralClass(classes []string) string {
	for _, known := range structuralPrecedence {
		if slices.ContainsFunc(classes, func(c string) bool { return strings.EqualFold(c, known) }) {
			return known
		}
	}

	if len(classes) == 0 {
		return ""
	}
	return classes[len(classes)-1]
}

func (d *Directory) toDirectoryEntry(entry *ldap.Entry) *DirectoryEntry {
	classes := entry.GetAttributeValues("objectClass")

	return &DirectoryEntry{
		DistinguishedName: entryDN(entry),
		ObjectClass:       StructuralClass(classes),
		ObjectClasses:     classes,
		SID:               d.sidHandler.ExtractSIDSafe(entry),
		GUID:              d.guidHandler.ExtractGUIDSafe(entry),
		Name:              entry.GetAttributeValue("name"),
		SAMAccountName:    entry.GetAttributeValue("sAMAccountName"),
	}
}

func entryDN(entry *ldap.Entry) string {
	if entry.DN != "" {
		return entry.DN
	}
	return entry.GetAttributeValue("distinguishedName")
}

// generalizedTimeLayout is the form Active Directory uses for whenCreated
// and whenChanged.
const generalizedTimeLayout = "20060102150405.0Z"

// parseGeneralizedTime parses whenCreated/whenChanged values.
func parseGeneralizedTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(generalizedTimeLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// fileTimeEpochDelta is the number of 100ns intervals between 1601-01-01 and 1970-01-01.
const fileTimeEpochDelta = 116444736000000000

// parseFileTime parses Windows FILETIME attributes such as lastLogonTimestamp.
// Zero and the "never" sentinel yield nil.
func parseFileTime(value string) *time.Time {
	if value == "" || value == "0" || value == "9223372036854775807" {
		return nil
	}

	ticks, err := strconv.ParseInt(value, 10, 64)
	if err != nil || ticks <= fileTimeEpochDelta {
		return nil
	}

	t := time.Unix(0, (ticks-fileTimeEpochDelta)*100).UTC()
	return &t
}

func parseInt32(value string) int32 {
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return int32(v)
}
