package ldap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPool implements ConnectionPool for client tests.
type MockPool struct {
	mock.Mock
}

func (m *MockPool) Get(ctx context.Context) (*PooledConnection, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	conn, ok := args.Get(0).(*PooledConnection)
	if !ok {
		return nil, args.Error(1)
	}
	return conn, args.Error(1)
}

func (m *MockPool) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockPool) Stats() PoolStats {
	args := m.Called()
	stats, ok := args.Get(0).(PoolStats)
	if !ok {
		return PoolStats{}
	}
	return stats
}

func testClientConfig() *ConnectionConfig {
	cfg := NewConnectionConfig()
	cfg.LDAPURLs = []string{"ldaps://dc1.contoso.com:636"}
	cfg.MaxRetries = 2
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func TestNewClient_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ConnectionConfig)
	}{
		{
			name: "no domain or URLs",
			mutate: func(c *ConnectionConfig) {
				c.LDAPURLs = nil
				c.Domain = ""
			},
		},
		{
			name:   "zero max connections",
			mutate: func(c *ConnectionConfig) { c.MaxConnections = 0 },
		},
		{
			name:   "pool limit exceeded",
			mutate: func(c *ConnectionConfig) { c.MaxConnections = MaxConnectionPoolLimit + 1 },
		},
		{
			name:   "backoff factor too small",
			mutate: func(c *ConnectionConfig) { c.BackoffFactor = 1.0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testClientConfig()
			tt.mutate(cfg)

			client, err := NewClient(t.Context(), cfg)

			require.Error(t, err)
			assert.Nil(t, client)
		})
	}
}

func TestClient_SearchPoolUnavailable(t *testing.T) {
	pool := &MockPool{}
	pool.On("Get", mock.Anything).
		Return(nil, NewConnectionError("failed to create connection after retries", true, errors.New("dial tcp 10.0.0.1:636: connect: connection refused"))).
		Once()

	c := newClientWithPool(pool, testClientConfig())

	result, err := c.Search(t.Context(), &SearchRequest{BaseDN: testBaseDN, Filter: "(objectClass=*)"})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, IsConnectionError(err))
	pool.AssertExpectations(t)
}

func TestClient_SearchNilRequest(t *testing.T) {
	c := newClientWithPool(&MockPool{}, testClientConfig())

	_, err := c.Search(t.Context(), nil)
	require.Error(t, err)

	_, err = c.SearchWithPaging(t.Context(), nil)
	require.Error(t, err)
}

func TestClient_GetBaseDNFromConfig(t *testing.T) {
	cfg := testClientConfig()
	cfg.BaseDN = testBaseDN
	pool := &MockPool{}

	baseDN, err := newClientWithPool(pool, cfg).GetBaseDN(t.Context())

	require.NoError(t, err)
	assert.Equal(t, testBaseDN, baseDN)
	pool.AssertNotCalled(t, "Get", mock.Anything)
}

func TestClient_BindWithConfigRequiresCredentials(t *testing.T) {
	cfg := testClientConfig()
	pool := &MockPool{}

	err := newClientWithPool(pool, cfg).BindWithConfig(t.Context())

	require.Error(t, err)
	pool.AssertNotCalled(t, "Get", mock.Anything)
}

func TestClient_Stats(t *testing.T) {
	pool := &MockPool{}
	pool.On("Stats").Return(PoolStats{Active: 1, Idle: 2, Created: 3})

	stats := newClientWithPool(pool, testClientConfig()).Stats()

	assert.Equal(t, int64(3), stats.Created)
}

func TestClient_WithRetry(t *testing.T) {
	retryable := ldap.NewError(ldap.LDAPResultBusy, errors.New("busy"))
	permanent := ldap.NewError(ldap.LDAPResultInsufficientAccessRights, errors.New("denied"))

	tests := []struct {
		name         string
		errs         []error
		wantCalls    int
		wantErr      bool
		wantConnFail bool
	}{
		{
			name:      "succeeds first time",
			errs:      []error{nil},
			wantCalls: 1,
		},
		{
			name:      "succeeds after retry",
			errs:      []error{retryable, nil},
			wantCalls: 2,
		},
		{
			name:      "permanent error is not retried",
			errs:      []error{permanent},
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:         "retries exhausted",
			errs:         []error{retryable, retryable, retryable},
			wantCalls:    3,
			wantErr:      true,
			wantConnFail: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClientWithPool(&MockPool{}, testClientConfig())

			calls := 0
			err := c.withRetry(t.Context(), func() error {
				err := tt.errs[calls]
				calls++
				return err
			})

			assert.Equal(t, tt.wantCalls, calls)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantConnFail, IsConnectionError(err))
		})
	}
}
