package identity

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// A name is a run of escape pairs or characters other than comma and
	// backslash.
	distinguishedNamePattern = regexp.MustCompile(
		`(?i)^(CN=(?:\\.|[^,\\])+,)?(OU=(?:\\.|[^,\\])+,)*DC=(?:\\.|[^,\\])+(,DC=(?:\\.|[^,\\])+)*$`)

	guidPattern = regexp.MustCompile(
		`^(\{[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\}|` +
			`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})$`)

	// The revision prefix is case-insensitive; see canonicalSID.
	sidPattern = regexp.MustCompile(`^[Ss]-\d+-\d+(-\d+){1,14}$`)
)

func requireValue(kind, s string) error {
	if s == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidArgument, kind)
	}
	return nil
}

// IsValidDistinguishedName reports whether s has the shape of an Active
// Directory distinguished name: an optional CN component, any number of OU
// components and at least one DC component. Empty input is an
// ErrInvalidArgument error; other malformed input is simply false.
func IsValidDistinguishedName(s string) (bool, error) {
	if err := requireValue("distinguished name", s); err != nil {
		return false, err
	}
	return distinguishedNamePattern.MatchString(s), nil
}

// IsValidGUID reports whether s is a GUID in 8-4-4-4-12 form, optionally
// wrapped in a matching pair of braces.
func IsValidGUID(s string) (bool, error) {
	if err := requireValue("GUID", s); err != nil {
		return false, err
	}
	return guidPattern.MatchString(s), nil
}

// isSIDSyntax checks the string form of a security identifier without
// consulting any well-known table.
func isSIDSyntax(s string) bool {
	return sidPattern.MatchString(s)
}

// SplitDistinguishedName splits dn on unescaped commas. Joining the result
// with "," yields dn unchanged.
func SplitDistinguishedName(dn string) []string {
	if dn == "" {
		return nil
	}

	var parts []string
	start := 0
	escaped := false
	for i := 0; i < len(dn); i++ {
		switch {
		case escaped:
			escaped = false
		case dn[i] == '\\':
			escaped = true
		case dn[i] == ',':
			parts = append(parts, dn[start:i])
			start = i + 1
		}
	}
	return append(parts, dn[start:])
}

// canonicalSID upper-cases the "S-" prefix of a security identifier.
func canonicalSID(sid string) string {
	if rest, ok := strings.CutPrefix(sid, "s-"); ok {
		return "S-" + rest
	}
	return sid
}

// stripDomainPrefix removes one leading "DOMAIN\" qualifier.
func stripDomainPrefix(s string) string {
	if _, after, ok := strings.Cut(s, `\`); ok {
		return after
	}
	return s
}
