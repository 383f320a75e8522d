package ldap

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

const (
	MaxConnectionPoolLimit = 100

	// Bound connections are re-authenticated after this age.
	maxAuthAge = 5 * time.Minute
)

// connectionPool is a channel-backed pool of bound connections.
type connectionPool struct {
	ctx         context.Context // logging context
	config      *ConnectionConfig
	tlsConfig   *tls.Config
	servers     []*ServerInfo
	connections chan *PooledConnection
	mu          sync.RWMutex
	closed      bool
	discovery   *SRVDiscovery

	activeConns  int64
	totalCreated int64
	totalErrors  int64
	startTime    time.Time

	healthTicker *time.Ticker
	healthStop   chan struct{}
	healthWg     sync.WaitGroup
}

// NewConnectionPool validates config, discovers servers and starts the
// health checker. Connections are created lazily.
func NewConnectionPool(ctx context.Context, config *ConnectionConfig) (ConnectionPool, error) {
	if config == nil {
		config = NewConnectionConfig()
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	tlsConfig, err := buildTLSConfig(config)
	if err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	pool := &connectionPool{
		ctx:         ctx,
		config:      config,
		tlsConfig:   tlsConfig,
		connections: make(chan *PooledConnection, config.MaxConnections),
		discovery:   NewSRVDiscovery(ctx),
		startTime:   time.Now(),
		healthStop:  make(chan struct{}),
	}

	if err := pool.discoverServers(ctx); err != nil {
		return nil, fmt.Errorf("server discovery failed: %w", err)
	}

	if config.HealthCheck > 0 {
		pool.startHealthChecker()
	}

	LogPoolEvent(ctx, "pool_initialized", map[string]any{
		"server_count":    len(pool.servers),
		"max_connections": config.MaxConnections,
	})

	return pool, nil
}

func (p *connectionPool) discoverServers(ctx context.Context) error {
	var servers []*ServerInfo

	switch {
	case len(p.config.LDAPURLs) > 0:
		for _, url := range p.config.LDAPURLs {
			server, err := ParseLDAPURL(url)
			if err != nil {
				return fmt.Errorf("invalid LDAP URL %s: %w", url, err)
			}
			servers = append(servers, server)
		}
	case p.config.Domain != "":
		discoveryCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()

		discovered, err := p.discovery.DiscoverServers(discoveryCtx, p.config.Domain)
		if err != nil {
			return err
		}
		servers = discovered
	default:
		return errors.New("either domain or LDAP URLs must be specified")
	}

	if len(servers) == 0 {
		return errors.New("no servers discovered")
	}

	p.mu.Lock()
	p.servers = servers
	p.mu.Unlock()

	return nil
}

// Get returns an idle healthy connection or dials a new one.
func (p *connectionPool) Get(ctx context.Context) (*PooledConnection, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, errors.New("connection pool is closed")
	}

	select {
	case conn := <-p.connections:
		if p.isConnectionHealthy(conn) {
			if p.config.HasAuthentication() && needsReAuthentication(conn) {
				if err := p.authenticateConnection(conn); err != nil {
					LogPoolEvent(p.ctx, "reauthentication_failed", map[string]any{"error": err.Error()})
					p.closeConnection(conn)
					return p.createConnection(ctx)
				}
			}
			conn.lastUsed = time.Now()
			atomic.AddInt64(&p.activeConns, 1)
			return conn, nil
		}
		p.closeConnection(conn)
	default:
	}

	return p.createConnection(ctx)
}

func (p *connectionPool) createConnection(ctx context.Context) (*PooledConnection, error) {
	var lastErr error
	backoff := p.config.InitialBackoff

	p.mu.RLock()
	servers := p.servers
	p.mu.RUnlock()

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		for _, server := range servers {
			conn, err := p.dial(server)
			if err != nil {
				lastErr = err
				atomic.AddInt64(&p.totalErrors, 1)
				LogPoolEvent(p.ctx, "connection_failed", map[string]any{
					"server":  ServerInfoToURL(server),
					"attempt": attempt + 1,
					"error":   err.Error(),
				})
				// Bad credentials will not improve with another server or attempt.
				if IsAuthenticationError(err) {
					return nil, WrapError("bind", err)
				}
				continue
			}

			atomic.AddInt64(&p.totalCreated, 1)
			atomic.AddInt64(&p.activeConns, 1)
			LogPoolEvent(p.ctx, "connection_created", map[string]any{
				"server": ServerInfoToURL(server),
			})
			return conn, nil
		}

		if attempt < p.config.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff = min(time.Duration(float64(backoff)*p.config.BackoffFactor), p.config.MaxBackoff)
			}
		}
	}

	LogPoolEvent(p.ctx, "all_servers_failed", map[string]any{
		"server_count": len(servers),
		"error":        fmt.Sprint(lastErr),
	})

	return nil, NewConnectionError("failed to create connection after retries", true, lastErr)
}

func (p *connectionPool) dial(server *ServerInfo) (*PooledConnection, error) {
	url := ServerInfoToURL(server)

	var conn *ldap.Conn
	var err error

	if server.UseTLS {
		conn, err = ldap.DialURL(url, ldap.DialWithTLSConfig(p.tlsConfig))
	} else {
		conn, err = ldap.DialURL(url)
		if err == nil && p.config.UseTLS && !p.config.SkipTLS {
			err = conn.StartTLS(p.tlsConfig)
		}
	}
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	conn.SetTimeout(p.config.Timeout)

	pooled := &PooledConnection{
		conn:         conn,
		lastUsed:     time.Now(),
		healthy:      true,
		serverInfo:   server,
		returnToPool: p.returnConnection,
	}

	if p.config.HasAuthentication() {
		if err := p.authenticateConnection(pooled); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to authenticate to %s: %w", url, err)
		}
	}

	return pooled, nil
}

func (p *connectionPool) authenticateConnection(pooled *PooledConnection) error {
	if pooled == nil || pooled.conn == nil {
		return errors.New("connection is nil")
	}

	var err error

	switch method := p.config.GetAuthMethod(); method {
	case AuthMethodSimpleBind:
		err = pooled.conn.Bind(p.config.Username, p.config.Password)
	case AuthMethodKerberos:
		err = performKerberosAuth(p.ctx, pooled.conn, p.config, pooled.serverInfo)
	case AuthMethodExternal:
		err = pooled.conn.ExternalBind()
	default:
		return fmt.Errorf("unsupported authentication method: %s", method)
	}

	if err != nil {
		pooled.authenticated = false
		pooled.authTime = time.Time{}
		return err
	}

	pooled.authenticated = true
	pooled.authTime = time.Now()
	return nil
}

func needsReAuthentication(conn *PooledConnection) bool {
	return conn == nil || !conn.authenticated || time.Since(conn.authTime) > maxAuthAge
}

func (p *connectionPool) returnConnection(conn *PooledConnection) {
	if conn == nil {
		return
	}

	atomic.AddInt64(&p.activeConns, -1)

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || !p.isConnectionHealthy(conn) {
		p.closeConnection(conn)
		return
	}

	select {
	case p.connections <- conn:
	default:
		p.closeConnection(conn)
	}
}

func (p *connectionPool) isConnectionHealthy(conn *PooledConnection) bool {
	if conn == nil || conn.conn == nil || !conn.healthy || conn.conn.IsClosing() {
		return false
	}

	if time.Since(conn.lastUsed) > p.config.MaxIdleTime {
		return false
	}

	return !p.config.HasAuthentication() || conn.authenticated
}

func (p *connectionPool) closeConnection(conn *PooledConnection) {
	if conn != nil && conn.conn != nil {
		conn.conn.Close()
		conn.healthy = false
		conn.authenticated = false
	}
}

// Close closes all idle connections and stops the health checker.
func (p *connectionPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.healthTicker != nil {
		close(p.healthStop)
		p.healthWg.Wait()
		p.healthTicker.Stop()
	}

	close(p.connections)
	for conn := range p.connections {
		p.closeConnection(conn)
	}

	return nil
}

// Stats returns a snapshot of pool counters.
func (p *connectionPool) Stats() PoolStats {
	return PoolStats{
		Active:  atomic.LoadInt64(&p.activeConns),
		Idle:    len(p.connections),
		Created: atomic.LoadInt64(&p.totalCreated),
		Errors:  atomic.LoadInt64(&p.totalErrors),
		Uptime:  time.Since(p.startTime),
	}
}

func (p *connectionPool) startHealthChecker() {
	p.healthTicker = time.NewTicker(p.config.HealthCheck)

	p.healthWg.Go(func() {
		for {
			select {
			case <-p.healthTicker.C:
				p.performHealthCheck()
			case <-p.healthStop:
				return
			}
		}
	})
}

// performHealthCheck probes a few idle connections per tick.
func (p *connectionPool) performHealthCheck() {
	var toCheck []*PooledConnection

drain:
	for range 3 {
		select {
		case conn, ok := <-p.connections:
			if !ok {
				return
			}
			toCheck = append(toCheck, conn)
		default:
			break drain
		}
	}

	for _, conn := range toCheck {
		// Re-acquired connections are returned through returnConnection,
		// which decrements the active counter.
		atomic.AddInt64(&p.activeConns, 1)
		if p.testConnection(conn) {
			p.returnConnection(conn)
			continue
		}
		atomic.AddInt64(&p.activeConns, -1)
		LogPoolEvent(p.ctx, "health_check_failed", map[string]any{
			"server": ServerInfoToURL(conn.serverInfo),
		})
		p.closeConnection(conn)
	}
}

func (p *connectionPool) testConnection(conn *PooledConnection) bool {
	if conn == nil || conn.conn == nil {
		return false
	}

	if p.config.HasAuthentication() && needsReAuthentication(conn) {
		if err := p.authenticateConnection(conn); err != nil {
			return false
		}
	}

	searchReq := ldap.NewSearchRequest(
		"",
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		1, 0, false,
		"(objectClass=*)",
		[]string{"defaultNamingContext"},
		nil,
	)

	if _, err := conn.conn.Search(searchReq); err != nil {
		tflog.SubsystemTrace(p.ctx, SubsystemPool, "Health probe failed", map[string]any{"error": err.Error()})
		return false
	}

	conn.lastUsed = time.Now()
	return true
}

func buildTLSConfig(config *ConnectionConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if config.TLSConfig != nil {
		tlsConfig = config.TLSConfig.Clone()
	}

	if config.TLSCACertFile != "" {
		pem, err := os.ReadFile(config.TLSCACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", config.TLSCACertFile)
		}
		tlsConfig.RootCAs = pool
	}

	if config.TLSClientCertFile != "" || config.TLSClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(config.TLSClientCertFile, config.TLSClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

func validateConfig(config *ConnectionConfig) error {
	if config.MaxConnections <= 0 {
		return errors.New("MaxConnections must be positive")
	}

	if config.MaxConnections > MaxConnectionPoolLimit {
		return fmt.Errorf("MaxConnections too high (max %d)", MaxConnectionPoolLimit)
	}

	if config.MaxIdleTime <= 0 {
		return errors.New("MaxIdleTime must be positive")
	}

	if config.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}

	if config.MaxRetries < 0 {
		return errors.New("MaxRetries cannot be negative")
	}

	if config.BackoffFactor <= 1.0 {
		return errors.New("BackoffFactor must be greater than 1.0")
	}

	return nil
}

// Close returns the connection to its pool.
func (pc *PooledConnection) Close() {
	if pc.returnToPool != nil {
		pc.returnToPool(pc)
	}
}

// Conn returns the underlying LDAP connection.
func (pc *PooledConnection) Conn() *ldap.Conn {
	return pc.conn
}
