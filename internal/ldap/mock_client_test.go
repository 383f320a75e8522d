package ldap

import (
	"context"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/mock"
)

// MockClient implements the Client interface for testing directory reads.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockClient) BindWithConfig(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockClient) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	result, ok := args.Get(0).(*SearchResult)
	if !ok {
		return nil, args.Error(1)
	}
	return result, args.Error(1)
}

func (m *MockClient) SearchWithPaging(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	result, ok := args.Get(0).(*SearchResult)
	if !ok {
		return nil, args.Error(1)
	}
	return result, args.Error(1)
}

func (m *MockClient) GetBaseDN(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockClient) GetRootDSE(ctx context.Context) (*RootDSE, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	rootDSE, ok := args.Get(0).(*RootDSE)
	if !ok {
		return nil, args.Error(1)
	}
	return rootDSE, args.Error(1)
}

func (m *MockClient) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockClient) Stats() PoolStats {
	args := m.Called()
	stats, ok := args.Get(0).(PoolStats)
	if !ok {
		return PoolStats{}
	}
	return stats
}

// Test fixtures shared by the directory tests.
var (
	testUserGUID    = "12345678-1234-1234-1234-567890123456"
	testUserSID     = "S-1-5-21-1004336348-1177238915-682003330-1105"
	testUserDN      = "CN=TestUser,OU=Users,DC=contoso,DC=com"
	testBaseDN      = "DC=contoso,DC=com"
	testUserGUIDRaw = mustGUIDBytes(testUserGUID)
	testUserSIDRaw  = mustSIDBytes(testUserSID)
)

func mustGUIDBytes(guid string) []byte {
	raw, err := NewGUIDHandler().StringToGUIDBytes(guid)
	if err != nil {
		panic(err)
	}
	return raw
}

func mustSIDBytes(sid string) []byte {
	raw, err := NewSIDHandler().EncodeSID(sid)
	if err != nil {
		panic(err)
	}
	return raw
}

// newTestEntry builds an entry with string attributes plus binary objectGUID
// and objectSid values.
func newTestEntry(dn string, guid, sid []byte, attrs map[string][]string) *ldap.Entry {
	entry := ldap.NewEntry(dn, attrs)
	if guid != nil {
		entry.Attributes = append(entry.Attributes, &ldap.EntryAttribute{
			Name:       "objectGUID",
			Values:     []string{string(guid)},
			ByteValues: [][]byte{guid},
		})
	}
	if sid != nil {
		entry.Attributes = append(entry.Attributes, &ldap.EntryAttribute{
			Name:       "objectSid",
			Values:     []string{string(sid)},
			ByteValues: [][]byte{sid},
		})
	}
	return entry
}
