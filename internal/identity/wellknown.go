package identity

import (
	"fmt"
	"strings"
)

// WellKnownEntry pairs a well-known security identifier with its display name.
type WellKnownEntry struct {
	SID  string
	Name string
}

// WellKnownTable is an immutable set of well-known principals indexed by
// SID and by case-insensitive name.
type WellKnownTable struct {
	entries []WellKnownEntry
	bySID   map[string]int
	byName  map[string]int
}

// Authority qualifiers accepted in front of a well-known principal name.
var wellKnownNamePrefixes = []string{
	`nt authority\`,
	`ntauthority\`,
	`builtin\`,
	`built-in\`,
}

// NewWellKnownTable validates entries and builds a table from them. Every
// SID must be syntactically valid and unique, and every name must be
// non-empty and unique ignoring case.
func NewWellKnownTable(entries []WellKnownEntry) (*WellKnownTable, error) {
	t := &WellKnownTable{
		entries: make([]WellKnownEntry, 0, len(entries)),
		bySID:   make(map[string]int, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}

	for _, e := range entries {
		sid := canonicalSID(e.SID)
		if !isSIDSyntax(sid) {
			return nil, fmt.Errorf("%w: well-known entry %q has malformed SID %q", ErrInvalidArgument, e.Name, e.SID)
		}
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: well-known entry %s has an empty name", ErrInvalidArgument, sid)
		}
		if _, dup := t.bySID[sid]; dup {
			return nil, fmt.Errorf("%w: duplicate well-known SID %s", ErrInvalidArgument, sid)
		}
		key := strings.ToLower(name)
		if prev, dup := t.byName[key]; dup {
			return nil, fmt.Errorf("%w: well-known name %q used by %s and %s",
				ErrInvalidArgument, name, t.entries[prev].SID, sid)
		}

		t.bySID[sid] = len(t.entries)
		t.byName[key] = len(t.entries)
		t.entries = append(t.entries, WellKnownEntry{SID: sid, Name: name})
	}

	return t, nil
}

// MustNewWellKnownTable is like NewWellKnownTable but panics on error.
func MustNewWellKnownTable(entries []WellKnownEntry) *WellKnownTable {
	t, err := NewWellKnownTable(entries)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of entries.
func (t *WellKnownTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns a copy of the entries in construction order.
func (t *WellKnownTable) Entries() []WellKnownEntry {
	if t == nil {
		return nil
	}
	out := make([]WellKnownEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// LookupWellKnownSIDByName returns the SID of the well-known principal
// called name. Matching ignores case and an optional NT AUTHORITY\ or
// BUILTIN\ qualifier (with or without the space or hyphen).
func (t *WellKnownTable) LookupWellKnownSIDByName(name string) (string, bool) {
	if t == nil {
		return "", false
	}

	key := strings.ToLower(strings.TrimSpace(name))
	for _, prefix := range wellKnownNamePrefixes {
		if rest, ok := strings.CutPrefix(key, prefix); ok {
			key = rest
			break
		}
	}

	i, ok := t.byName[key]
	if !ok {
		return "", false
	}
	return t.entries[i].SID, true
}

// LookupNameBySID returns the display name of a well-known SID. The "S-"
// prefix may be in either case.
func (t *WellKnownTable) LookupNameBySID(sid string) (string, bool) {
	if t == nil {
		return "", false
	}
	i, ok := t.bySID[canonicalSID(sid)]
	if !ok {
		return "", false
	}
	return t.entries[i].Name, true
}

// IsValidSecurityIdentifier reports whether s, after removing one optional
// DOMAIN\ prefix, is a security identifier: either a key of the table or a
// string of the form S-R-I-S[-S...] with one to fourteen sub-authorities.
func (t *WellKnownTable) IsValidSecurityIdentifier(s string) (bool, error) {
	if err := requireValue("security identifier", s); err != nil {
		return false, err
	}
	sid := canonicalSID(stripDomainPrefix(s))
	if _, ok := t.LookupNameBySID(sid); ok {
		return true, nil
	}
	return isSIDSyntax(sid), nil
}

// Classify determines which kind of identifier s is, in resolver order:
// distinguished name, security identifier, GUID, then account name.
// Strings that cannot be any of these, including the empty string, are
// ClassUnrecognized.
func (t *WellKnownTable) Classify(s string) Classification {
	if s == "" {
		return ClassUnrecognized
	}
	if ok, _ := IsValidDistinguishedName(s); ok {
		return ClassDistinguishedName
	}
	if ok, _ := t.IsValidSecurityIdentifier(s); ok {
		return ClassSecurityIdentifier
	}
	if ok, _ := IsValidGUID(s); ok {
		return ClassGUID
	}
	if isAccountNameSyntax(stripDomainPrefix(s)) {
		return ClassAccountName
	}
	return ClassUnrecognized
}

// Characters that may not appear in a sAMAccountName.
const invalidAccountNameChars = `"/\[]:;|=,+*?<>`

func isAccountNameSyntax(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(invalidAccountNameChars, r) {
			return false
		}
	}
	return true
}

// Classification identifies the syntactic kind of an identity string.
type Classification int

const (
	ClassUnrecognized Classification = iota
	ClassDistinguishedName
	ClassSecurityIdentifier
	ClassGUID
	ClassAccountName
)

func (c Classification) String() string {
	switch c {
	case ClassDistinguishedName:
		return "DistinguishedName"
	case ClassSecurityIdentifier:
		return "SecurityIdentifier"
	case ClassGUID:
		return "GUID"
	case ClassAccountName:
		return "AccountName"
	default:
		return "Unrecognized"
	}
}

// DefaultWellKnownEntries returns the built-in principals and well-known
// SIDs common to every Windows domain.
func DefaultWellKnownEntries() []WellKnownEntry {
	return []WellKnownEntry{
		{"S-1-0-0", "Nobody"},
		{"S-1-1-0", "Everyone"},
		{"S-1-2-0", "Local"},
		{"S-1-2-1", "Console Logon"},
		{"S-1-3-0", "Creator Owner"},
		{"S-1-3-1", "Creator Group"},
		{"S-1-3-2", "Creator Owner Server"},
		{"S-1-3-3", "Creator Group Server"},
		{"S-1-3-4", "Owner Rights"},

		{"S-1-5-1", "Dialup"},
		{"S-1-5-2", "Network"},
		{"S-1-5-3", "Batch"},
		{"S-1-5-4", "Interactive"},
		{"S-1-5-6", "Service"},
		{"S-1-5-7", "Anonymous Logon"},
		{"S-1-5-8", "Proxy"},
		{"S-1-5-9", "Enterprise Domain Controllers"},
		{"S-1-5-10", "Self"},
		{"S-1-5-11", "Authenticated Users"},
		{"S-1-5-12", "Restricted"},
		{"S-1-5-13", "Terminal Server User"},
		{"S-1-5-14", "Remote Interactive Logon"},
		{"S-1-5-15", "This Organization"},
		{"S-1-5-17", "IUSR"},
		{"S-1-5-18", "SYSTEM"},
		{"S-1-5-19", "Local Service"},
		{"S-1-5-20", "Network Service"},

		{"S-1-5-32-544", "Administrators"},
		{"S-1-5-32-545", "Users"},
		{"S-1-5-32-546", "Guests"},
		{"S-1-5-32-547", "Power Users"},
		{"S-1-5-32-548", "Account Operators"},
		{"S-1-5-32-549", "Server Operators"},
		{"S-1-5-32-550", "Print Operators"},
		{"S-1-5-32-551", "Backup Operators"},
		{"S-1-5-32-552", "Replicator"},
		{"S-1-5-32-554", "Pre-Windows 2000 Compatible Access"},
		{"S-1-5-32-555", "Remote Desktop Users"},
		{"S-1-5-32-556", "Network Configuration Operators"},
		{"S-1-5-32-557", "Incoming Forest Trust Builders"},
		{"S-1-5-32-558", "Performance Monitor Users"},
		{"S-1-5-32-559", "Performance Log Users"},
		{"S-1-5-32-560", "Windows Authorization Access Group"},
		{"S-1-5-32-561", "Terminal Server License Servers"},
		{"S-1-5-32-562", "Distributed COM Users"},
		{"S-1-5-32-568", "IIS_IUSRS"},
		{"S-1-5-32-569", "Cryptographic Operators"},
		{"S-1-5-32-573", "Event Log Readers"},
		{"S-1-5-32-574", "Certificate Service DCOM Access"},
		{"S-1-5-32-575", "RDS Remote Access Servers"},
		{"S-1-5-32-576", "RDS Endpoint Servers"},
		{"S-1-5-32-577", "RDS Management Servers"},
		{"S-1-5-32-578", "Hyper-V Administrators"},
		{"S-1-5-32-579", "Access Control Assistance Operators"},
		{"S-1-5-32-580", "Remote Management Users"},

		{"S-1-5-64-10", "NTLM Authentication"},
		{"S-1-5-64-14", "SChannel Authentication"},
		{"S-1-5-64-21", "Digest Authentication"},
		{"S-1-5-80-0", "All Services"},
		{"S-1-5-113", "Local Account"},
		{"S-1-5-114", "Local Account and Member of Administrators Group"},
		{"S-1-5-1000", "Other Organization"},

		{"S-1-15-2-1", "All Application Packages"},

		{"S-1-16-0", "Untrusted Mandatory Level"},
		{"S-1-16-4096", "Low Mandatory Level"},
		{"S-1-16-8192", "Medium Mandatory Level"},
		{"S-1-16-12288", "High Mandatory Level"},
		{"S-1-16-16384", "System Mandatory Level"},

		{"S-1-18-1", "Authentication Authority Asserted Identity"},
		{"S-1-18-2", "Service Asserted Identity"},
	}
}
