package ldap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// userAccountControl flags.
const (
	UACAccountDisabled         int32 = 0x00000002
	UACPasswordNotRequired     int32 = 0x00000020
	UACPasswordCantChange      int32 = 0x00000040
	UACNormalAccount           int32 = 0x00000200
	UACInterdomainTrustAccount int32 = 0x00000800
	UACWorkstationTrustAccount int32 = 0x00001000
	UACServerTrustAccount      int32 = 0x00002000
	UACPasswordNeverExpires    int32 = 0x00010000
	UACSmartCardRequired       int32 = 0x00040000
	UACTrustedForDelegation    int32 = 0x00080000
	UACNotDelegated            int32 = 0x00100000
	UACDontRequirePreauth      int32 = 0x00400000
	UACPasswordExpired         int32 = 0x00800000
	UACTrustedToAuthForDeleg   int32 = 0x01000000
)

// User is the class-specific view of a user object.
type User struct {
	ObjectGUID        string `json:"objectGUID"`
	DistinguishedName string `json:"distinguishedName"`
	ObjectSid         string `json:"objectSid,omitempty"`

	SAMAccountName    string `json:"sAMAccountName"`
	UserPrincipalName string `json:"userPrincipalName,omitempty"`
	CommonName        string `json:"commonName"`
	DisplayName       string `json:"displayName,omitempty"`
	GivenName         string `json:"givenName,omitempty"`
	Surname           string `json:"surname,omitempty"`
	Description       string `json:"description,omitempty"`
	EmailAddress      string `json:"emailAddress,omitempty"`
	Department        string `json:"department,omitempty"`
	Title             string `json:"title,omitempty"`
	Manager           string `json:"manager,omitempty"`

	AccountEnabled       bool  `json:"accountEnabled"`
	PasswordNeverExpires bool  `json:"passwordNeverExpires"`
	PasswordNotRequired  bool  `json:"passwordNotRequired"`
	SmartCardRequired    bool  `json:"smartCardRequired"`
	TrustedForDelegation bool  `json:"trustedForDelegation"`
	UserAccountControl   int32 `json:"userAccountControl"`

	MemberOf     []string `json:"memberOf,omitempty"`
	PrimaryGroup string   `json:"primaryGroup,omitempty"` // SID of the primary group

	WhenCreated        time.Time  `json:"whenCreated"`
	WhenChanged        time.Time  `json:"whenChanged"`
	LastLogonTimestamp *time.Time `json:"lastLogonTimestamp,omitempty"`
	PasswordLastSet    *time.Time `json:"passwordLastSet,omitempty"`
	AccountExpires     *time.Time `json:"accountExpires,omitempty"`
}

var userAttributes = []string{
	"objectGUID", "distinguishedName", "objectSid",
	"sAMAccountName", "userPrincipalName", "cn",
	"displayName", "givenName", "sn", "description",
	"mail", "department", "title", "manager",
	"userAccountControl", "memberOf", "primaryGroupID",
	"whenCreated", "whenChanged", "lastLogonTimestamp", "pwdLastSet", "accountExpires",
}

// FetchUser reads the user at dn. Computers are excluded.
func (d *Directory) FetchUser(ctx context.Context, dn string) (*User, error) {
	entry, err := d.fetchByDN(ctx, "fetch_user", dn, "(&(objectClass=user)(!(objectClass=computer)))", userAttributes)
	if err != nil || entry == nil {
		return nil, err
	}

	user, err := d.entryToUser(entry)
	if err != nil {
		return nil, WrapError("parse_user_entry", err)
	}
	return user, nil
}

func (d *Directory) entryToUser(entry *ldap.Entry) (*User, error) {
	if entry == nil {
		return nil, fmt.Errorf("LDAP entry cannot be nil")
	}

	guid, err := d.guidHandler.ExtractGUID(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to extract GUID: %w", err)
	}

	user := &User{
		ObjectGUID:        guid,
		DistinguishedName: entryDN(entry),
		ObjectSid:         d.sidHandler.ExtractSIDSafe(entry),
		SAMAccountName:    entry.GetAttributeValue("sAMAccountName"),
		UserPrincipalName: entry.GetAttributeValue("userPrincipalName"),
		CommonName:        entry.GetAttributeValue("cn"),
		DisplayName:       entry.GetAttributeValue("displayName"),
		GivenName:         entry.GetAttributeValue("givenName"),
		Surname:           entry.GetAttributeValue("sn"),
		Description:       entry.GetAttributeValue("description"),
		EmailAddress:      entry.GetAttributeValue("mail"),
		Department:        entry.GetAttributeValue("department"),
		Title:             entry.GetAttributeValue("title"),
		Manager:           entry.GetAttributeValue("manager"),
		MemberOf:          entry.GetAttributeValues("memberOf"),
	}

	if uac := entry.GetAttributeValue("userAccountControl"); uac != "" {
		user.UserAccountControl = parseInt32(uac)
		user.AccountEnabled = user.UserAccountControl&UACAccountDisabled == 0
		user.PasswordNeverExpires = user.UserAccountControl&UACPasswordNeverExpires != 0
		user.PasswordNotRequired = user.UserAccountControl&UACPasswordNotRequired != 0
		user.SmartCardRequired = user.UserAccountControl&UACSmartCardRequired != 0
		user.TrustedForDelegation = user.UserAccountControl&UACTrustedForDelegation != 0
	}

	user.PrimaryGroup = primaryGroupSID(user.ObjectSid, entry.GetAttributeValue("primaryGroupID"))

	user.WhenCreated, _ = parseGeneralizedTime(entry.GetAttributeValue("whenCreated"))
	user.WhenChanged, _ = parseGeneralizedTime(entry.GetAttributeValue("whenChanged"))
	user.LastLogonTimestamp = parseFileTime(entry.GetAttributeValue("lastLogonTimestamp"))
	user.PasswordLastSet = parseFileTime(entry.GetAttributeValue("pwdLastSet"))
	user.AccountExpires = parseFileTime(entry.GetAttributeValue("accountExpires"))

	return user, nil
}

// primaryGroupSID replaces the RID of objectSID with primaryGroupID.
func primaryGroupSID(objectSID, primaryGroupID string) string {
	if objectSID == "" || primaryGroupID == "" {
		return ""
	}

	idx := strings.LastIndex(objectSID, "-")
	if idx <= 0 || strings.Count(objectSID, "-") < 4 {
		return ""
	}
	return objectSID[:idx] + "-" + primaryGroupID
}
