package ldap

import (
	"strings"
)

// EscapeDNValue escapes an attribute value for use in a DN per RFC 4514.
func EscapeDNValue(value string) string {
	if !NeedsDNEscaping(value) {
		return value
	}

	var result strings.Builder
	result.Grow(len(value) + 8)

	last := len(value) - 1
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == ',', c == '+', c == '"', c == '\\', c == '<', c == '>', c == ';', c == '=':
			result.WriteByte('\\')
			result.WriteByte(c)
		case c == '#' && i == 0:
			result.WriteString(`\#`)
		case c == ' ' && (i == 0 || i == last):
			result.WriteString(`\ `)
		case c == 0:
			result.WriteString(`\00`)
		default:
			result.WriteByte(c)
		}
	}

	return result.String()
}

// NeedsDNEscaping reports whether EscapeDNValue would change value.
func NeedsDNEscaping(value string) bool {
	if value == "" {
		return false
	}

	if value[0] == ' ' || value[len(value)-1] == ' ' || value[0] == '#' {
		return true
	}

	return strings.ContainsAny(value, ",+\"\\<>;=\x00")
}
