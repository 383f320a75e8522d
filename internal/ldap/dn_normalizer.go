package ldap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// NormalizeDNCase returns dn with upper-case attribute types, no spaces
// around separators, and values re-escaped. Values keep their case.
func NormalizeDNCase(dn string) (string, error) {
	dn = strings.TrimSpace(dn)
	if dn == "" {
		return "", nil
	}

	parsedDN, err := ldap.ParseDN(dn)
	if err != nil {
		return "", fmt.Errorf("invalid DN syntax: %w", err)
	}

	return formatDN(parsedDN.RDNs), nil
}

func formatDN(rdns []*ldap.RelativeDN) string {
	rdnStrings := make([]string, 0, len(rdns))

	for _, rdn := range rdns {
		attrStrings := make([]string, 0, len(rdn.Attributes))
		for _, attr := range rdn.Attributes {
			attrStrings = append(attrStrings, strings.ToUpper(attr.Type)+"="+EscapeDNValue(attr.Value))
		}
		rdnStrings = append(rdnStrings, strings.Join(attrStrings, "+"))
	}

	return strings.Join(rdnStrings, ",")
}

// EqualDN reports whether a and b name the same entry, ignoring case and
// insignificant whitespace.
func EqualDN(a, b string) bool {
	parsedA, errA := ldap.ParseDN(a)
	parsedB, errB := ldap.ParseDN(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(a, b)
	}
	return parsedA.EqualFold(parsedB)
}

// GetDNParent returns the DN of the parent container.
func GetDNParent(dn string) (string, error) {
	if dn == "" {
		return "", errors.New("DN cannot be empty")
	}

	parsedDN, err := ldap.ParseDN(dn)
	if err != nil {
		return "", fmt.Errorf("invalid DN syntax: %w", err)
	}

	if len(parsedDN.RDNs) <= 1 {
		return "", fmt.Errorf("DN has no parent: %s", dn)
	}

	return formatDN(parsedDN.RDNs[1:]), nil
}

// ExtractRDNValue returns the first value of attrType in dn.
func ExtractRDNValue(dn, attrType string) (string, error) {
	parsedDN, err := ldap.ParseDN(dn)
	if err != nil {
		return "", fmt.Errorf("invalid DN syntax: %w", err)
	}

	for _, rdn := range parsedDN.RDNs {
		for _, attr := range rdn.Attributes {
			if strings.EqualFold(attr.Type, attrType) {
				return attr.Value, nil
			}
		}
	}

	return "", fmt.Errorf("attribute type '%s' not found in DN '%s'", attrType, dn)
}
