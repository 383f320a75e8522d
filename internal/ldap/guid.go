package ldap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
)

// GUIDBytesLength is the size of a binary objectGUID value.
const GUIDBytesLength = 16

// GUIDHandler converts between textual GUIDs and the objectGUID attribute.
// Active Directory stores GUIDs mixed-endian: the first three groups are
// little-endian and the last eight bytes are in order.
type GUIDHandler struct{}

// NewGUIDHandler creates a new GUID handler instance.
func NewGUIDHandler() *GUIDHandler {
	return &GUIDHandler{}
}

// ParseGUID parses hyphenated, braced or compact textual GUIDs.
func (g *GUIDHandler) ParseGUID(guidString string) (uuid.UUID, error) {
	guidString = strings.TrimSpace(guidString)
	if guidString == "" {
		return uuid.Nil, errors.New("GUID string cannot be empty")
	}

	id, err := uuid.Parse(guidString)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid GUID format %q: %w", guidString, err)
	}
	return id, nil
}

// StringToGUIDBytes converts a textual GUID to the objectGUID byte layout.
func (g *GUIDHandler) StringToGUIDBytes(guidString string) ([]byte, error) {
	id, err := g.ParseGUID(guidString)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, GUIDBytesLength)
	copy(raw, id[:])
	swapGUIDByteOrder(raw)

	return raw, nil
}

// GUIDBytesToString converts an objectGUID value to its lowercase hyphenated form.
func (g *GUIDHandler) GUIDBytesToString(guidBytes []byte) (string, error) {
	if len(guidBytes) != GUIDBytesLength {
		return "", fmt.Errorf("invalid GUID byte length: expected %d, got %d", GUIDBytesLength, len(guidBytes))
	}

	raw := make([]byte, GUIDBytesLength)
	copy(raw, guidBytes)
	swapGUIDByteOrder(raw)

	id, err := uuid.FromBytes(raw)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// GUIDToSearchFilter builds an objectGUID equality filter.
func (g *GUIDHandler) GUIDToSearchFilter(guidString string) (string, error) {
	raw, err := g.StringToGUIDBytes(guidString)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("(objectGUID=%s)", escapeBinary(raw)), nil
}

// ExtractGUID returns the textual objectGUID of entry.
func (g *GUIDHandler) ExtractGUID(entry *ldap.Entry) (string, error) {
	if entry == nil {
		return "", errors.New("LDAP entry cannot be nil")
	}

	raw := entry.GetRawAttributeValue("objectGUID")
	if len(raw) == 0 {
		return "", errors.New("objectGUID attribute not found in entry")
	}

	return g.GUIDBytesToString(raw)
}

// ExtractGUIDSafe returns the entry's objectGUID or "" when absent or malformed.
func (g *GUIDHandler) ExtractGUIDSafe(entry *ldap.Entry) string {
	guid, err := g.ExtractGUID(entry)
	if err != nil {
		return ""
	}
	return guid
}

// swapGUIDByteOrder converts between RFC 4122 and objectGUID layouts in place.
// The operation is its own inverse.
func swapGUIDByteOrder(b []byte) {
	b[0], b[1], b[2], b[3] = b[3], b[2], b[1], b[0]
	b[4], b[5] = b[5], b[4]
	b[6], b[7] = b[7], b[6]
}
