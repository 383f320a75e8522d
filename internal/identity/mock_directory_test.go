package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/ldap"
)

// MockDirectory is a mock implementation of Directory.
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) QueryByDistinguishedName(ctx context.Context, dn string) (*ldap.DirectoryEntry, error) {
	args := m.Called(ctx, dn)
	entry, _ := args.Get(0).(*ldap.DirectoryEntry)
	return entry, args.Error(1)
}

func (m *MockDirectory) QueryBySID(ctx context.Context, sid string) (*ldap.DirectoryEntry, error) {
	args := m.Called(ctx, sid)
	entry, _ := args.Get(0).(*ldap.DirectoryEntry)
	return entry, args.Error(1)
}

func (m *MockDirectory) QueryByGUID(ctx context.Context, guid string) (*ldap.DirectoryEntry, error) {
	args := m.Called(ctx, guid)
	entry, _ := args.Get(0).(*ldap.DirectoryEntry)
	return entry, args.Error(1)
}

func (m *MockDirectory) QueryByAccountName(ctx context.Context, name string) (*ldap.DirectoryEntry, error) {
	args := m.Called(ctx, name)
	entry, _ := args.Get(0).(*ldap.DirectoryEntry)
	return entry, args.Error(1)
}

func (m *MockDirectory) FetchUser(ctx context.Context, dn string) (*ldap.User, error) {
	args := m.Called(ctx, dn)
	user, _ := args.Get(0).(*ldap.User)
	return user, args.Error(1)
}

func (m *MockDirectory) FetchGroup(ctx context.Context, dn string) (*ldap.Group, error) {
	args := m.Called(ctx, dn)
	group, _ := args.Get(0).(*ldap.Group)
	return group, args.Error(1)
}

func (m *MockDirectory) FetchComputer(ctx context.Context, dn string) (*ldap.Computer, error) {
	args := m.Called(ctx, dn)
	computer, _ := args.Get(0).(*ldap.Computer)
	return computer, args.Error(1)
}

func (m *MockDirectory) FetchOrganizationalUnit(ctx context.Context, dn string) (*ldap.OU, error) {
	args := m.Called(ctx, dn)
	ou, _ := args.Get(0).(*ldap.OU)
	return ou, args.Error(1)
}

func (m *MockDirectory) FetchServiceAccount(ctx context.Context, dn string) (*ldap.ServiceAccount, error) {
	args := m.Called(ctx, dn)
	sa, _ := args.Get(0).(*ldap.ServiceAccount)
	return sa, args.Error(1)
}

const (
	testUserDN    = "CN=TestUser,OU=Users,DC=contoso,DC=com"
	testUserSID   = "S-1-5-21-1004336348-1177238915-682003330-1105"
	testUserGUID  = "12345678-1234-1234-1234-567890123456"
	testGroupDN   = "CN=Domain Admins,OU=Groups,DC=contoso,DC=com"
	testGroupSID  = "S-1-5-21-1004336348-1177238915-682003330-512"
	testGroupGUID = "0b4b6a3e-8b1a-4b59-9d2f-4bb0f2c3f9a1"
)

func testUserEntry() *ldap.DirectoryEntry {
	return &ldap.DirectoryEntry{
		DistinguishedName: testUserDN,
		ObjectClass:       ldap.ObjectClassUser,
		ObjectClasses:     []string{"top", "person", "organizationalPerson", "user"},
		SID:               testUserSID,
		GUID:              testUserGUID,
		Name:              "TestUser",
		SAMAccountName:    "testuser",
	}
}

func testUser() *ldap.User {
	return &ldap.User{
		ObjectGUID:        testUserGUID,
		DistinguishedName: testUserDN,
		ObjectSid:         testUserSID,
		SAMAccountName:    "testuser",
		CommonName:        "TestUser",
		AccountEnabled:    true,
	}
}

func testGroup() *ldap.Group {
	return &ldap.Group{
		ObjectGUID:        testGroupGUID,
		DistinguishedName: testGroupDN,
		ObjectSid:         testGroupSID,
		Name:              "Domain Admins",
		SAMAccountName:    "Domain Admins",
		Scope:             ldap.GroupScopeGlobal,
		Category:          ldap.GroupCategorySecurity,
	}
}

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	table, err := NewWellKnownTable(DefaultWellKnownEntries())
	require.NoError(t, err)
	catalog, err := NewCatalog(table, nil)
	require.NoError(t, err)
	return catalog
}

func newTestResolver(t *testing.T, dir *MockDirectory) *Resolver {
	t.Helper()
	r, err := NewResolver(dir, newTestCatalog(t), nil)
	require.NoError(t, err)
	return r
}

// callCount returns how many times method was invoked on the mock.
func callCount(m *mock.Mock, method string) int {
	n := 0
	for _, call := range m.Calls {
		if call.Method == method {
			n++
		}
	}
	return n
}
