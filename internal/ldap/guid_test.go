package ldap

import (
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGUIDHandler_ParseGUID(t *testing.T) {
	handler := NewGUIDHandler()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "hyphenated",
			input: "12345678-1234-1234-1234-567890123456",
			want:  "12345678-1234-1234-1234-567890123456",
		},
		{
			name:  "uppercase braced",
			input: "{BF967ABA-0DE6-11D0-A285-00AA003049E2}",
			want:  "bf967aba-0de6-11d0-a285-00aa003049e2",
		},
		{
			name:  "compact",
			input: "bf967aba0de611d0a28500aa003049e2",
			want:  "bf967aba-0de6-11d0-a285-00aa003049e2",
		},
		{
			name:    "empty",
			input:   "  ",
			wantErr: true,
		},
		{
			name:    "too short",
			input:   "12345678-1234-1234-1234-12345678901",
			wantErr: true,
		},
		{
			name:    "non-hex",
			input:   "1234567g-1234-1234-1234-567890123456",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := handler.ParseGUID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestGUIDHandler_ByteOrder(t *testing.T) {
	handler := NewGUIDHandler()

	raw, err := handler.StringToGUIDBytes(testUserGUID)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x78, 0x56, 0x34, 0x12,
		0x34, 0x12,
		0x34, 0x12,
		0x12, 0x34, 0x56, 0x78, 0x90, 0x12, 0x34, 0x56,
	}, raw)

	back, err := handler.GUIDBytesToString(raw)
	require.NoError(t, err)
	assert.Equal(t, testUserGUID, back)
}

func TestGUIDHandler_GUIDBytesToString_BadLength(t *testing.T) {
	_, err := NewGUIDHandler().GUIDBytesToString([]byte{0x01, 0x02})
	require.Error(t, err)
}

func TestGUIDHandler_ExtractGUID(t *testing.T) {
	handler := NewGUIDHandler()

	guid, err := handler.ExtractGUID(newTestEntry(testUserDN, testUserGUIDRaw, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, testUserGUID, guid)

	_, err = handler.ExtractGUID(ldap.NewEntry(testUserDN, nil))
	require.Error(t, err)

	_, err = handler.ExtractGUID(nil)
	require.Error(t, err)

	assert.Empty(t, handler.ExtractGUIDSafe(ldap.NewEntry(testUserDN, nil)))
}
