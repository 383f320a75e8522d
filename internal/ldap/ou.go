package ldap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// OU represents an Active Directory Organizational Unit.
type OU struct {
	ObjectGUID        string `json:"objectGUID"`
	DistinguishedName string `json:"distinguishedName"`

	Name        string `json:"name"`
	Description string `json:"description"`
	ManagedBy   string `json:"managedBy,omitempty"`

	// Linked GPO DNs in link order.
	LinkedGPOs []string `json:"linkedGPOs,omitempty"`

	Parent string `json:"parent"`

	WhenCreated time.Time `json:"whenCreated"`
	WhenChanged time.Time `json:"whenChanged"`
}

var ouAttributes = []string{
	"objectGUID", "distinguishedName", "ou", "name", "description",
	"managedBy", "gPLink", "whenCreated", "whenChanged",
}

// FetchOrganizationalUnit reads the OU at dn.
func (d *Directory) FetchOrganizationalUnit(ctx context.Context, dn string) (*OU, error) {
	entry, err := d.fetchByDN(ctx, "fetch_ou", dn, "(objectClass=organizationalUnit)", ouAttributes)
	if err != nil || entry == nil {
		return nil, err
	}

	ou, err := d.entryToOU(entry)
	if err != nil {
		return nil, WrapError("parse_ou_entry", err)
	}
	return ou, nil
}

func (d *Directory) entryToOU(entry *ldap.Entry) (*OU, error) {
	if entry == nil {
		return nil, fmt.Errorf("LDAP entry cannot be nil")
	}

	guid, err := d.guidHandler.ExtractGUID(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to extract GUID: %w", err)
	}

	ou := &OU{
		ObjectGUID:        guid,
		DistinguishedName: entryDN(entry),
		Name:              entry.GetAttributeValue("ou"),
		Description:       entry.GetAttributeValue("description"),
		ManagedBy:         entry.GetAttributeValue("managedBy"),
		LinkedGPOs:        parseGPLink(entry.GetAttributeValue("gPLink")),
	}
	if ou.Name == "" {
		ou.Name = entry.GetAttributeValue("name")
	}

	if parent, err := GetDNParent(ou.DistinguishedName); err == nil {
		ou.Parent = parent
	}

	ou.WhenCreated, _ = parseGeneralizedTime(entry.GetAttributeValue("whenCreated"))
	ou.WhenChanged, _ = parseGeneralizedTime(entry.GetAttributeValue("whenChanged"))

	return ou, nil
}

// parseGPLink extracts GPO DNs from a gPLink value of the form
// [LDAP://cn={GUID},cn=policies,...;0][LDAP://...;2].
func parseGPLink(value string) []string {
	var links []string
	for part := range strings.SplitSeq(value, "]") {
		part = strings.TrimPrefix(strings.TrimSpace(part), "[")
		if part == "" {
			continue
		}

		link, _, _ := strings.Cut(part, ";")
		if len(link) > len("LDAP://") && strings.EqualFold(link[:len("LDAP://")], "LDAP://") {
			link = link[len("LDAP://"):]
		}
		if link != "" {
			links = append(links, link)
		}
	}
	return links
}
