package ldap

import (
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSIDHandler_EncodeSID(t *testing.T) {
	handler := NewSIDHandler()

	tests := []struct {
		name    string
		sid     string
		want    []byte
		wantErr bool
	}{
		{
			name: "local system",
			sid:  "S-1-5-18",
			want: []byte{0x01, 0x01, 0, 0, 0, 0, 0, 0x05, 0x12, 0, 0, 0},
		},
		{
			name: "builtin administrators",
			sid:  "S-1-5-32-544",
			want: []byte{0x01, 0x02, 0, 0, 0, 0, 0, 0x05, 0x20, 0, 0, 0, 0x20, 0x02, 0, 0},
		},
		{
			name: "everyone",
			sid:  "S-1-1-0",
			want: []byte{0x01, 0x01, 0, 0, 0, 0, 0, 0x01, 0, 0, 0, 0},
		},
		{
			name:    "not a SID",
			sid:     "X-1-5-18",
			wantErr: true,
		},
		{
			name:    "non-numeric sub-authority",
			sid:     "S-1-5-abc",
			wantErr: true,
		},
		{
			name:    "sub-authority overflow",
			sid:     "S-1-5-4294967296",
			wantErr: true,
		},
		{
			name:    "too many sub-authorities",
			sid:     "S-1-5-1-2-3-4-5-6-7-8-9-10-11-12-13-14-15-16",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := handler.EncodeSID(tt.sid)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSIDHandler_RoundTrip(t *testing.T) {
	handler := NewSIDHandler()

	for _, sid := range []string{
		"S-1-5-18",
		"S-1-5-32-544",
		testUserSID,
		"S-1-5-1-2-3-4-5-6-7-8-9-10-11-12-13-14-15",
	} {
		t.Run(sid, func(t *testing.T) {
			raw, err := handler.EncodeSID(sid)
			require.NoError(t, err)

			decoded, err := handler.ConvertBinarySIDToString(raw)
			require.NoError(t, err)
			assert.Equal(t, sid, decoded)
		})
	}
}

func TestSIDHandler_ConvertBinarySIDToString_Truncated(t *testing.T) {
	handler := NewSIDHandler()

	_, err := handler.ConvertBinarySIDToString([]byte{0x01, 0x05, 0, 0})
	require.Error(t, err)

	// Header claims two sub-authorities but carries one.
	_, err = handler.ConvertBinarySIDToString([]byte{0x01, 0x02, 0, 0, 0, 0, 0, 0x05, 0x20, 0, 0, 0})
	require.Error(t, err)
}

func TestSIDHandler_ExtractSIDSafe(t *testing.T) {
	handler := NewSIDHandler()

	binary := newTestEntry(testUserDN, nil, testUserSIDRaw, nil)
	assert.Equal(t, testUserSID, handler.ExtractSIDSafe(binary))

	text := ldap.NewEntry(testUserDN, map[string][]string{"objectSid": {"S-1-5-18"}})
	assert.Equal(t, "S-1-5-18", handler.ExtractSIDSafe(text))

	missing := ldap.NewEntry(testUserDN, nil)
	assert.Empty(t, handler.ExtractSIDSafe(missing))
	assert.Empty(t, handler.ExtractSIDSafe(nil))
}

func TestSIDHandler_SIDToSearchFilter(t *testing.T) {
	handler := NewSIDHandler()

	filter, err := handler.SIDToSearchFilter("S-1-5-18")

	require.NoError(t, err)
	assert.Equal(t, `(objectSid=\01\01\00\00\00\00\00\05\12\00\00\00)`, filter)
}
