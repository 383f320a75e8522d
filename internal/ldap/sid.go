package ldap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/go-objectsid"
	"github.com/go-ldap/ldap/v3"
)

// maxSubAuthorities is the SubAuthorityCount limit of the binary SID layout.
const maxSubAuthorities = 15

// SIDHandler converts between the binary objectSid attribute and the S-R-I-S... string form.
type SIDHandler struct{}

// NewSIDHandler creates a new SID handler instance.
func NewSIDHandler() *SIDHandler {
	return &SIDHandler{}
}

// ConvertBinarySIDToString decodes a binary objectSid value.
func (s *SIDHandler) ConvertBinarySIDToString(binarySID []byte) (string, error) {
	if len(binarySID) < 8 {
		return "", fmt.Errorf("binary SID too short: %d bytes", len(binarySID))
	}

	if expected := 8 + int(binarySID[1])*4; len(binarySID) < expected {
		return "", fmt.Errorf("binary SID too short for %d sub-authorities", binarySID[1])
	}

	return objectsid.Decode(binarySID).String(), nil
}

// ExtractSID returns the string form of an entry's objectSid.
func (s *SIDHandler) ExtractSID(entry *ldap.Entry) (string, error) {
	if entry == nil {
		return "", errors.New("LDAP entry cannot be nil")
	}

	sidBytes := entry.GetRawAttributeValue("objectSid")
	if len(sidBytes) == 0 {
		return "", errors.New("objectSid attribute not found in entry")
	}

	return s.ConvertBinarySIDToString(sidBytes)
}

// ExtractSIDSafe returns the entry's objectSid or "" when it is absent or
// malformed. Entries that already carry the string form are passed through.
func (s *SIDHandler) ExtractSIDSafe(entry *ldap.Entry) string {
	if entry == nil {
		return ""
	}

	raw := entry.GetRawAttributeValue("objectSid")
	if len(raw) == 0 {
		return ""
	}

	if strings.HasPrefix(string(raw), "S-") {
		if _, err := s.EncodeSID(string(raw)); err == nil {
			return string(raw)
		}
	}

	sid, err := s.ConvertBinarySIDToString(raw)
	if err != nil {
		return ""
	}
	return sid
}

// EncodeSID converts a string SID to the binary objectSid layout: revision,
// sub-authority count, 48-bit big-endian authority, then little-endian
// 32-bit sub-authorities.
func (s *SIDHandler) EncodeSID(sid string) ([]byte, error) {
	parts := strings.Split(sid, "-")
	if len(parts) < 3 || !strings.EqualFold(parts[0], "S") {
		return nil, fmt.Errorf("invalid SID format: %q", sid)
	}

	revision, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid SID revision in %q: %w", sid, err)
	}

	authority, err := strconv.ParseUint(parts[2], 10, 48)
	if err != nil {
		return nil, fmt.Errorf("invalid SID authority in %q: %w", sid, err)
	}

	subs := parts[3:]
	if len(subs) > maxSubAuthorities {
		return nil, fmt.Errorf("SID %q has %d sub-authorities (max %d)", sid, len(subs), maxSubAuthorities)
	}

	out := make([]byte, 8+4*len(subs))
	out[0] = byte(revision)
	out[1] = byte(len(subs))

	var authorityBytes [8]byte
	binary.BigEndian.PutUint64(authorityBytes[:], authority)
	copy(out[2:8], authorityBytes[2:])

	for i, sub := range subs {
		v, err := strconv.ParseUint(sub, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid SID sub-authority %q in %q: %w", sub, sid, err)
		}
		binary.LittleEndian.PutUint32(out[8+4*i:], uint32(v))
	}

	return out, nil
}

// SIDToSearchFilter builds an objectSid equality filter using the escaped
// binary form, which every directory server accepts.
func (s *SIDHandler) SIDToSearchFilter(sid string) (string, error) {
	raw, err := s.EncodeSID(sid)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("(objectSid=%s)", escapeBinary(raw)), nil
}

// escapeBinary renders every byte as a \xx filter escape.
func escapeBinary(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw) * 3)
	for _, c := range raw {
		fmt.Fprintf(&b, "\\%02x", c)
	}
	return b.String()
}
