package identity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ResolveError
		want string
	}{
		{
			name: "kind only",
			err:  &ResolveError{Kind: ErrNotFound},
			want: "identity not found",
		},
		{
			name: "with identity",
			err:  &ResolveError{Kind: ErrNotFound, Identity: "ghost"},
			want: `identity not found "ghost"`,
		},
		{
			name: "with object class",
			err:  &ResolveError{Kind: ErrUnsupportedObjectClass, Identity: "CN=x,DC=com", ObjectClass: "printQueue"},
			want: `unsupported object class "CN=x,DC=com" (objectClass printQueue)`,
		},
		{
			name: "with cause",
			err:  &ResolveError{Kind: ErrDirectoryUnavailable, Identity: "testuser", Err: errors.New("dial tcp: refused")},
			want: `directory unavailable "testuser": dial tcp: refused`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestResolveError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := &ResolveError{Kind: ErrDirectoryUnavailable, Err: cause}

	assert.ErrorIs(t, err, ErrDirectoryUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
}
