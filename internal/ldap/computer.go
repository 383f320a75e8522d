package ldap

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// Computer is the class-specific view of a computer account.
type Computer struct {
	ObjectGUID        string `json:"objectGUID"`
	DistinguishedName string `json:"distinguishedName"`
	ObjectSid         string `json:"objectSid,omitempty"`

	Name                   string   `json:"name"`
	SAMAccountName         string   `json:"sAMAccountName"`
	DNSHostName            string   `json:"dnsHostName,omitempty"`
	OperatingSystem        string   `json:"operatingSystem,omitempty"`
	OperatingSystemVersion string   `json:"operatingSystemVersion,omitempty"`
	Description            string   `json:"description,omitempty"`
	ServicePrincipalNames  []string `json:"servicePrincipalNames,omitempty"`

	AccountEnabled       bool  `json:"accountEnabled"`
	DomainController     bool  `json:"domainController"`
	TrustedForDelegation bool  `json:"trustedForDelegation"`
	UserAccountControl   int32 `json:"userAccountControl"`

	WhenCreated        time.Time  `json:"whenCreated"`
	WhenChanged        time.Time  `json:"whenChanged"`
	LastLogonTimestamp *time.Time `json:"lastLogonTimestamp,omitempty"`
}

var computerAttributes = []string{
	"objectGUID", "objectSid", "distinguishedName",
	"cn", "sAMAccountName", "dNSHostName", "operatingSystem", "operatingSystemVersion",
	"description", "servicePrincipalName", "userAccountControl",
	"whenCreated", "whenChanged", "lastLogonTimestamp",
}

// FetchComputer reads the computer at dn. Group managed service accounts are excluded.
func (d *Directory) FetchComputer(ctx context.Context, dn string) (*Computer, error) {
	filter := fmt.Sprintf("(&(objectClass=computer)(!(objectClass=%s)))", ObjectClassGroupManagedServiceAccount)
	entry, err := d.fetchByDN(ctx, "fetch_computer", dn, filter, computerAttributes)
	if err != nil || entry == nil {
		return nil, err
	}

	computer, err := d.entryToComputer(entry)
	if err != nil {
		return nil, WrapError("parse_computer_entry", err)
	}
	return computer, nil
}

func (d *Directory) entryToComputer(entry *ldap.Entry) (*Computer, error) {
	if entry == nil {
		return nil, fmt.Errorf("LDAP entry cannot be nil")
	}

	guid, err := d.guidHandler.ExtractGUID(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to extract GUID: %w", err)
	}

	computer := &Computer{
		ObjectGUID:             guid,
		DistinguishedName:      entryDN(entry),
		ObjectSid:              d.sidHandler.ExtractSIDSafe(entry),
		Name:                   entry.GetAttributeValue("cn"),
		SAMAccountName:         entry.GetAttributeValue("sAMAccountName"),
		DNSHostName:            entry.GetAttributeValue("dNSHostName"),
		OperatingSystem:        entry.GetAttributeValue("operatingSystem"),
		OperatingSystemVersion: entry.GetAttributeValue("operatingSystemVersion"),
		Description:            entry.GetAttributeValue("description"),
		ServicePrincipalNames:  entry.GetAttributeValues("servicePrincipalName"),
	}

	if uac := entry.GetAttributeValue("userAccountControl"); uac != "" {
		computer.UserAccountControl = parseInt32(uac)
		computer.AccountEnabled = computer.UserAccountControl&UACAccountDisabled == 0
		computer.DomainController = computer.UserAccountControl&UACServerTrustAccount != 0
		computer.TrustedForDelegation = computer.UserAccountControl&UACTrustedForDelegation != 0
	}

	computer.WhenCreated, _ = parseGeneralizedTime(entry.GetAttributeValue("whenCreated"))
	computer.WhenChanged, _ = parseGeneralizedTime(entry.GetAttributeValue("whenChanged"))
	computer.LastLogonTimestamp = parseFileTime(entry.GetAttributeValue("lastLogonTimestamp"))

	return computer, nil
}
