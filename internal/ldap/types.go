package ldap

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-ldap/ldap/v3"
)

// ConnectionConfig holds configuration for directory connections.
// Zero values are filled from the default tags by NewConnectionConfig.
type ConnectionConfig struct {
	// Connection settings
	Domain   string        // Domain for SRV discovery
	LDAPURLs []string      // Direct LDAP URLs (overrides domain)
	BaseDN   string        // Base DN for searches, discovered from the root DSE when empty
	Timeout  time.Duration `default:"30s"`

	// Authentication settings
	Username       string // DN, UPN or down-level logon name
	Password       string
	KerberosRealm  string
	KerberosKeytab string
	KerberosConfig string `default:"/etc/krb5.conf"`
	KerberosCCache string
	KerberosSPN    string // Overrides the ldap/<host> service principal

	// TLS settings
	TLSConfig         *tls.Config
	UseTLS            bool `default:"true"`
	SkipTLS           bool
	TLSCACertFile     string
	TLSClientCertFile string
	TLSClientKeyFile  string

	// Pool settings
	MaxConnections int           `default:"10"`
	MaxIdleTime    time.Duration `default:"5m"`
	HealthCheck    time.Duration `default:"30s"`

	// Retry settings
	MaxRetries     int           `default:"3"`
	InitialBackoff time.Duration `default:"500ms"`
	MaxBackoff     time.Duration `default:"30s"`
	BackoffFactor  float64       `default:"2.0"`
}

// NewConnectionConfig returns a configuration with every default applied and
// certificate verification enabled.
func NewConnectionConfig() *ConnectionConfig {
	cfg := &ConnectionConfig{}
	if err := defaults.Set(cfg); err != nil {
		// Tags are static, so this only fires on a programming error.
		panic(fmt.Sprintf("invalid connection config defaults: %v", err))
	}

	cfg.TLSConfig = &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	return cfg
}

// PooledConnection represents a bound connection owned by the pool.
type PooledConnection struct {
	conn          *ldap.Conn
	lastUsed      time.Time
	healthy       bool
	authenticated bool
	authTime      time.Time
	serverInfo    *ServerInfo
	returnToPool  func(*PooledConnection)
}

// ServerInfo contains information about a domain controller endpoint.
type ServerInfo struct {
	Host     string
	Port     int
	UseTLS   bool
	Priority int
	Weight   int
	Source   string // "srv", "config", "fallback"
}

// ConnectionPool manages a pool of directory connections.
type ConnectionPool interface {
	Get(ctx context.Context) (*PooledConnection, error)
	Close() error
	Stats() PoolStats
}

// PoolStats provides statistics about the connection pool.
type PoolStats struct {
	Active  int64
	Idle    int
	Created int64
	Errors  int64
	Uptime  time.Duration
}

// RootDSE carries the naming contexts advertised by a domain controller.
type RootDSE struct {
	DefaultNamingContext       string
	SchemaNamingContext        string
	ConfigurationNamingContext string
	RootDomainNamingContext    string
	DNSHostName                string
}

// Client provides the read-only directory operations used for identity
// resolution and schema loading.
type Client interface {
	// Connection management
	Connect(ctx context.Context) error
	Close() error
	BindWithConfig(ctx context.Context) error

	// Queries
	Search(ctx context.Context, req *SearchRequest) (*SearchResult, error)
	SearchWithPaging(ctx context.Context, req *SearchRequest) (*SearchResult, error)
	GetBaseDN(ctx context.Context) (string, error)
	GetRootDSE(ctx context.Context) (*RootDSE, error)

	// Health and statistics
	Ping(ctx context.Context) error
	Stats() PoolStats
}

// SearchRequest encapsulates LDAP search parameters.
type SearchRequest struct {
	BaseDN       string
	Scope        SearchScope
	Filter       string
	Attributes   []string
	SizeLimit    int
	TimeLimit    time.Duration
	DerefAliases DerefAliases
}

// SearchResult contains search results and metadata.
type SearchResult struct {
	Entries []*ldap.Entry
	Total   int
	HasMore bool
}

// SearchScope defines LDAP search scope.
type SearchScope int

const (
	ScopeBaseObject SearchScope = iota
	ScopeSingleLevel
	ScopeWholeSubtree
)

func (s SearchScope) String() string {
	switch s {
	case ScopeBaseObject:
		return "base"
	case ScopeSingleLevel:
		return "one"
	case ScopeWholeSubtree:
		return "sub"
	default:
		return "unknown"
	}
}

// DerefAliases defines alias dereferencing behavior.
type DerefAliases int

const (
	NeverDerefAliases DerefAliases = iota
	DerefInSearching
	DerefFindingBaseObj
	DerefAlways
)

// AuthMethod defines authentication method types.
type AuthMethod int

const (
	AuthMethodSimpleBind AuthMethod = iota // Username/password authentication
	AuthMethodKerberos                     // GSSAPI/Kerberos authentication
	AuthMethodExternal                     // External/certificate authentication
)

// String returns string representation of authentication method.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodSimpleBind:
		return "simple"
	case AuthMethodKerberos:
		return "kerberos"
	case AuthMethodExternal:
		return "external"
	default:
		return "unknown"
	}
}

// GetAuthMethod determines the authentication method from the configuration.
// Kerberos takes precedence over simple bind, which takes precedence over
// client certificates.
func (c *ConnectionConfig) GetAuthMethod() AuthMethod {
	switch {
	case c.KerberosRealm != "" && (c.KerberosKeytab != "" || c.KerberosCCache != "" || c.Username != ""):
		return AuthMethodKerberos
	case c.Username != "":
		return AuthMethodSimpleBind
	case c.TLSClientCertFile != "" && c.TLSClientKeyFile != "":
		return AuthMethodExternal
	default:
		return AuthMethodSimpleBind
	}
}

// HasAuthentication checks if any authentication method is configured.
func (c *ConnectionConfig) HasAuthentication() bool {
	hasPassword := c.Username != "" && c.Password != ""
	hasKerberos := c.KerberosRealm != "" && (c.KerberosKeytab != "" || c.KerberosCCache != "" || c.Username != "")
	hasExternal := c.TLSClientCertFile != "" && c.TLSClientKeyFile != ""

	return hasPassword || hasKerberos || hasExternal
}

// RetryableError indicates an error that can be retried.
type RetryableError interface {
	error
	IsRetryable() bool
}

// ConnectionError represents failures to reach or bind to a domain controller.
type ConnectionError struct {
	message   string
	retryable bool
	cause     error
}

func (e *ConnectionError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *ConnectionError) IsRetryable() bool {
	return e.retryable
}

func (e *ConnectionError) Unwrap() error {
	return e.cause
}

// NewConnectionError creates a new connection error.
func NewConnectionError(message string, retryable bool, cause error) *ConnectionError {
	return &ConnectionError{
		message:   message,
		retryable: retryable,
		cause:     cause,
	}
}
