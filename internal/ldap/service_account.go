package ldap

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// ServiceAccount is the class-specific view of a group managed service account.
type ServiceAccount struct {
	ObjectGUID        string `json:"objectGUID"`
	DistinguishedName string `json:"distinguishedName"`
	ObjectSid         string `json:"objectSid,omitempty"`

	Name                  string   `json:"name"`
	SAMAccountName        string   `json:"sAMAccountName"`
	DNSHostName           string   `json:"dnsHostName,omitempty"`
	Description           string   `json:"description,omitempty"`
	ServicePrincipalNames []string `json:"servicePrincipalNames,omitempty"`

	// Days between managed password changes.
	PasswordIntervalDays int `json:"passwordIntervalDays,omitempty"`

	AccountEnabled     bool  `json:"accountEnabled"`
	UserAccountControl int32 `json:"userAccountControl"`

	WhenCreated time.Time `json:"whenCreated"`
	WhenChanged time.Time `json:"whenChanged"`
}

var serviceAccountAttributes = []string{
	"objectGUID", "objectSid", "distinguishedName",
	"cn", "sAMAccountName", "dNSHostName", "description", "servicePrincipalName",
	"msDS-ManagedPasswordInterval", "userAccountControl", "whenCreated", "whenChanged",
}

// FetchServiceAccount reads the group managed service account at dn.
func (d *Directory) FetchServiceAccount(ctx context.Context, dn string) (*ServiceAccount, error) {
	filter := fmt.Sprintf("(objectClass=%s)", ObjectClassGroupManagedServiceAccount)
	entry, err := d.fetchByDN(ctx, "fetch_service_account", dn, filter, serviceAccountAttributes)
	if err != nil || entry == nil {
		return nil, err
	}

	account, err := d.entryToServiceAccount(entry)
	if err != nil {
		return nil, WrapError("parse_service_account_entry", err)
	}
	return account, nil
}

func (d *Directory) entryToServiceAccount(entry *ldap.Entry) (*ServiceAccount, error) {
	if entry == nil {
		return nil, fmt.Errorf("LDAP entry cannot be nil")
	}

	guid, err := d.guidHandler.ExtractGUID(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to extract GUID: %w", err)
	}

	account := &ServiceAccount{
		ObjectGUID:            guid,
		DistinguishedName:     entryDN(entry),
		ObjectSid:             d.sidHandler.ExtractSIDSafe(entry),
		Name:                  entry.GetAttributeValue("cn"),
		SAMAccountName:        entry.GetAttributeValue("sAMAccountName"),
		DNSHostName:           entry.GetAttributeValue("dNSHostName"),
		Description:           entry.GetAttributeValue("description"),
		ServicePrincipalNames: entry.GetAttributeValues("servicePrincipalName"),
	}

	if interval, err := strconv.Atoi(entry.GetAttributeValue("msDS-ManagedPasswordInterval")); err == nil {
		account.PasswordIntervalDays = interval
	}

	if uac := entry.GetAttributeValue("userAccountControl"); uac != "" {
		account.UserAccountControl = parseInt32(uac)
		account.AccountEnabled = account.UserAccountControl&UACAccountDisabled == 0
	}

	account.WhenCreated, _ = parseGeneralizedTime(entry.GetAttributeValue("whenCreated"))
	account.WhenChanged, _ = parseGeneralizedTime(entry.GetAttributeValue("whenChanged"))

	return account, nil
}
