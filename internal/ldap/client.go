package ldap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

const (
	searchPageSize    = 1000
	maxPagesPerSearch = 1000
)

// client implements the Client interface on top of a connection pool.
type client struct {
	pool   ConnectionPool
	config *ConnectionConfig
}

// NewClient creates a new directory client with connection pooling.
func NewClient(ctx context.Context, config *ConnectionConfig) (Client, error) {
	if config == nil {
		config = NewConnectionConfig()
	}

	tflog.SubsystemDebug(ctx, SubsystemLDAP, "Creating directory client", map[string]any{
		"domain":          config.Domain,
		"ldap_urls_count": len(config.LDAPURLs),
		"auth_method":     config.GetAuthMethod().String(),
		"use_tls":         config.UseTLS,
		"max_connections": config.MaxConnections,
	})

	start := time.Now()
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		tflog.SubsystemError(ctx, SubsystemLDAP, "Failed to create connection pool", map[string]any{
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return newClientWithPool(pool, config), nil
}

func newClientWithPool(pool ConnectionPool, config *ConnectionConfig) *client {
	return &client{
		pool:   pool,
		config: config,
	}
}

// Connect verifies that a connection can be acquired and the root DSE read.
func (c *client) Connect(ctx context.Context) error {
	return LogOperation(ctx, SubsystemLDAP, "connection_test", map[string]any{
		"domain": c.config.Domain,
	}, func() error {
		conn, err := c.pool.Get(ctx)
		if err != nil {
			return NewConnectionError("connection test failed", true, err)
		}
		defer conn.Close()

		return c.ping(conn)
	})
}

// Close closes the client and all its connections.
func (c *client) Close() error {
	return c.pool.Close()
}

// BindWithConfig checks that pooled connections authenticate with the
// configured credentials.
func (c *client) BindWithConfig(ctx context.Context) error {
	if !c.config.HasAuthentication() {
		return errors.New("no authentication configuration available")
	}

	return LogOperation(ctx, SubsystemLDAP, "authentication", map[string]any{
		"auth_method": c.config.GetAuthMethod().String(),
		"username":    c.config.Username,
	}, func() error {
		conn, err := c.pool.Get(ctx)
		if err != nil {
			return fmt.Errorf("failed to get connection: %w", err)
		}
		defer conn.Close()

		if !conn.authenticated {
			return NewLDAPError("bind", errors.New("connection is not authenticated"))
		}
		return nil
	})
}

// Search performs a single-request LDAP search.
func (c *client) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req == nil {
		return nil, errors.New("search request cannot be nil")
	}

	fields := map[string]any{
		"base_dn":    req.BaseDN,
		"scope":      req.Scope.String(),
		"filter":     req.Filter,
		"attributes": req.Attributes,
		"size_limit": req.SizeLimit,
	}
	start := time.Now()

	conn, err := c.pool.Get(ctx)
	if err != nil {
		LogDirectoryError(ctx, SubsystemLDAP, "get_connection", err, fields)
		return nil, WrapError("search", err)
	}
	defer conn.Close()

	ldapReq := ldap.NewSearchRequest(
		req.BaseDN,
		int(req.Scope),
		int(req.DerefAliases),
		req.SizeLimit,
		int(req.TimeLimit.Seconds()),
		false,
		req.Filter,
		req.Attributes,
		nil,
	)

	var result *ldap.SearchResult
	err = c.withRetry(ctx, func() error {
		var searchErr error
		result, searchErr = conn.Conn().Search(ldapReq)
		return searchErr
	})

	fields["duration_ms"] = time.Since(start).Milliseconds()

	if err != nil {
		// A missing base object is an expected outcome for DN lookups.
		if IsNotFoundError(err) {
			tflog.SubsystemDebug(ctx, SubsystemLDAP, "Search base does not exist", fields)
		} else {
			LogDirectoryError(ctx, SubsystemLDAP, "search", err, fields)
		}
		return nil, WrapError("search", err)
	}

	hasMore := req.SizeLimit > 0 && len(result.Entries) >= req.SizeLimit

	fields["entries_found"] = len(result.Entries)
	tflog.SubsystemDebug(ctx, SubsystemLDAP, "Search completed", fields)

	return &SearchResult{
		Entries: result.Entries,
		Total:   len(result.Entries),
		HasMore: hasMore,
	}, nil
}

// SearchWithPaging performs an LDAP search using the simple paged results control.
func (c *client) SearchWithPaging(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req == nil {
		return nil, errors.New("search request cannot be nil")
	}

	start := time.Now()
	fields := map[string]any{
		"base_dn": req.BaseDN,
		"filter":  req.Filter,
		"scope":   req.Scope.String(),
	}

	conn, err := c.pool.Get(ctx)
	if err != nil {
		LogDirectoryError(ctx, SubsystemLDAP, "get_connection", err, fields)
		return nil, WrapError("paged_search", err)
	}
	defer conn.Close()

	var entries []*ldap.Entry
	pagingControl := ldap.NewControlPaging(searchPageSize)

	for page := 1; ; page++ {
		if page > maxPagesPerSearch {
			tflog.SubsystemWarn(ctx, SubsystemLDAP, "Paged search exceeded page limit, returning partial results", map[string]any{
				"base_dn":       req.BaseDN,
				"max_pages":     maxPagesPerSearch,
				"entries_found": len(entries),
			})
			return &SearchResult{Entries: entries, Total: len(entries), HasMore: true}, nil
		}

		if err := ctx.Err(); err != nil {
			return &SearchResult{Entries: entries, Total: len(entries), HasMore: true}, err
		}

		ldapReq := ldap.NewSearchRequest(
			req.BaseDN,
			int(req.Scope),
			int(req.DerefAliases),
			0,
			int(req.TimeLimit.Seconds()),
			false,
			req.Filter,
			req.Attributes,
			[]ldap.Control{pagingControl},
		)

		var result *ldap.SearchResult
		err = c.withRetry(ctx, func() error {
			var searchErr error
			result, searchErr = conn.Conn().Search(ldapReq)
			return searchErr
		})
		if err != nil {
			fields["page"] = page
			LogDirectoryError(ctx, SubsystemLDAP, "paged_search", err, fields)
			return nil, WrapError("paged_search", err)
		}

		entries = append(entries, result.Entries...)

		tflog.SubsystemTrace(ctx, SubsystemLDAP, "Completed search page", map[string]any{
			"page":          page,
			"page_entries":  len(result.Entries),
			"total_entries": len(entries),
		})

		responseControl, ok := ldap.FindControl(result.Controls, ldap.ControlTypePaging).(*ldap.ControlPaging)
		if !ok || len(responseControl.Cookie) == 0 {
			break
		}
		pagingControl.SetCookie(responseControl.Cookie)
	}

	fields["total_entries"] = len(entries)
	fields["duration_ms"] = time.Since(start).Milliseconds()
	tflog.SubsystemDebug(ctx, SubsystemLDAP, "Paged search completed", fields)

	return &SearchResult{
		Entries: entries,
		Total:   len(entries),
	}, nil
}

// Ping reads the root DSE over a pooled connection.
func (c *client) Ping(ctx context.Context) error {
	conn, err := c.pool.Get(ctx)
	if err != nil {
		return NewConnectionError("failed to get connection", true, err)
	}
	defer conn.Close()

	return c.ping(conn)
}

func (c *client) ping(conn *PooledConnection) error {
	searchReq := ldap.NewSearchRequest(
		"",
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		1, 5, false,
		"(objectClass=*)",
		[]string{"defaultNamingContext"},
		nil,
	)

	if _, err := conn.Conn().Search(searchReq); err != nil {
		return WrapError("ping", err)
	}
	return nil
}

// Stats returns connection pool statistics.
func (c *client) Stats() PoolStats {
	return c.pool.Stats()
}

// GetBaseDN returns the configured base DN, falling back to the root DSE
// defaultNamingContext.
func (c *client) GetBaseDN(ctx context.Context) (string, error) {
	if c.config.BaseDN != "" {
		return c.config.BaseDN, nil
	}

	rootDSE, err := c.GetRootDSE(ctx)
	if err != nil {
		return "", err
	}

	if rootDSE.DefaultNamingContext == "" {
		return "", errors.New("no defaultNamingContext found in root DSE")
	}

	return rootDSE.DefaultNamingContext, nil
}

// GetRootDSE reads the naming contexts from the root DSE.
func (c *client) GetRootDSE(ctx context.Context) (*RootDSE, error) {
	result, err := c.Search(ctx, &SearchRequest{
		BaseDN: "",
		Scope:  ScopeBaseObject,
		Filter: "(objectClass=*)",
		Attributes: []string{
			"defaultNamingContext",
			"schemaNamingContext",
			"configurationNamingContext",
			"rootDomainNamingContext",
			"dnsHostName",
		},
		SizeLimit: 1,
		TimeLimit: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read root DSE: %w", err)
	}

	if len(result.Entries) == 0 {
		return nil, errors.New("no root DSE found")
	}

	entry := result.Entries[0]

	return &RootDSE{
		DefaultNamingContext:       entry.GetAttributeValue("defaultNamingContext"),
		SchemaNamingContext:        entry.GetAttributeValue("schemaNamingContext"),
		ConfigurationNamingContext: entry.GetAttributeValue("configurationNamingContext"),
		RootDomainNamingContext:    entry.GetAttributeValue("rootDomainNamingContext"),
		DNSHostName:                entry.GetAttributeValue("dnsHostName"),
	}, nil
}

// withRetry runs operation with exponential backoff while it fails with a
// retryable error.
func (c *client) withRetry(ctx context.Context, operation func() error) error {
	var lastErr error
	backoff := c.config.InitialBackoff

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			tflog.SubsystemDebug(ctx, SubsystemLDAP, "Retrying operation", map[string]any{
				"attempt":    attempt,
				"max_retry":  c.config.MaxRetries,
				"backoff_ms": backoff.Milliseconds(),
				"last_error": lastErr.Error(),
			})
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryableError(err) || attempt == c.config.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff = min(time.Duration(float64(backoff)*c.config.BackoffFactor), c.config.MaxBackoff)
		}
	}

	if IsRetryableError(lastErr) {
		tflog.SubsystemError(ctx, SubsystemLDAP, "Operation failed after all retries exhausted", map[string]any{
			"total_attempts": c.config.MaxRetries + 1,
			"final_error":    lastErr.Error(),
		})
		return NewConnectionError("operation failed after retries", false, lastErr)
	}

	return lastErr
}
