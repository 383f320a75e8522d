package ldap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// srvLookup matches net.Resolver.LookupSRV.
type srvLookup func(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)

// SRVDiscovery locates domain controllers through DNS SRV records.
type SRVDiscovery struct {
	ctx       context.Context // logging context
	lookupSRV srvLookup
}

// NewSRVDiscovery creates a discovery helper backed by the default resolver.
func NewSRVDiscovery(ctx context.Context) *SRVDiscovery {
	return &SRVDiscovery{
		ctx:       ctx,
		lookupSRV: net.DefaultResolver.LookupSRV,
	}
}

// DiscoverServers returns domain controllers for domain ordered by SRV
// priority and weight. LDAPS records win; plain LDAP and global catalog
// records are consulted only when no LDAPS record exists. With no records at
// all the domain name itself is returned as a fallback.
func (d *SRVDiscovery) DiscoverServers(ctx context.Context, domain string) ([]*ServerInfo, error) {
	if domain == "" {
		return nil, errors.New("domain cannot be empty")
	}

	var servers []*ServerInfo

	for _, record := range []struct {
		name   string
		useTLS bool
	}{
		{"_ldaps._tcp." + domain, true},
		{"_ldap._tcp." + domain, false},
		{"_gc._tcp." + domain, false},
	} {
		found, err := d.lookup(ctx, record.name, record.useTLS)
		if err != nil {
			tflog.SubsystemDebug(d.ctx, SubsystemLDAP, "SRV lookup failed", map[string]any{
				"service": record.name,
				"error":   err.Error(),
			})
			continue
		}

		servers = append(servers, found...)
		if record.useTLS && len(found) > 0 {
			break
		}
	}

	if len(servers) == 0 {
		tflog.SubsystemDebug(d.ctx, SubsystemLDAP, "No SRV records found, using fallback servers", map[string]any{
			"domain": domain,
		})
		return fallbackServers(domain), nil
	}

	sortServersByPriority(servers)

	tflog.SubsystemDebug(d.ctx, SubsystemLDAP, "Server discovery completed", map[string]any{
		"domain":       domain,
		"server_count": len(servers),
	})

	return servers, nil
}

func (d *SRVDiscovery) lookup(ctx context.Context, name string, useTLS bool) ([]*ServerInfo, error) {
	_, records, err := d.lookupSRV(ctx, "", "", name)
	if err != nil {
		return nil, fmt.Errorf("SRV lookup failed for %s: %w", name, err)
	}

	servers := make([]*ServerInfo, 0, len(records))
	for _, srv := range records {
		servers = append(servers, &ServerInfo{
			Host:     strings.TrimSuffix(srv.Target, "."),
			Port:     int(srv.Port),
			UseTLS:   useTLS,
			Priority: int(srv.Priority),
			Weight:   int(srv.Weight),
			Source:   "srv",
		})
	}

	return servers, nil
}

func fallbackServers(domain string) []*ServerInfo {
	return []*ServerInfo{
		{Host: domain, Port: 636, UseTLS: true, Priority: 0, Weight: 100, Source: "fallback"},
		{Host: domain, Port: 389, UseTLS: false, Priority: 1, Weight: 100, Source: "fallback"},
	}
}

func sortServersByPriority(servers []*ServerInfo) {
	sort.SliceStable(servers, func(i, j int) bool {
		if servers[i].Priority != servers[j].Priority {
			return servers[i].Priority < servers[j].Priority
		}
		return servers[i].Weight > servers[j].Weight
	})
}

// ValidateServerInfo checks that server describes a dialable endpoint.
func ValidateServerInfo(server *ServerInfo) error {
	if server == nil {
		return errors.New("server info cannot be nil")
	}

	if server.Host == "" {
		return errors.New("server host cannot be empty")
	}

	if server.Port <= 0 || server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", server.Port)
	}

	return nil
}

// ServerInfoToURL renders server as an ldap:// or ldaps:// URL.
func ServerInfoToURL(server *ServerInfo) string {
	if server == nil {
		return ""
	}

	scheme := "ldap"
	if server.UseTLS {
		scheme = "ldaps"
	}

	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(server.Host, strconv.Itoa(server.Port)))
}

// ParseLDAPURL parses an ldap:// or ldaps:// URL, applying the default port
// for the scheme when none is given.
func ParseLDAPURL(raw string) (*ServerInfo, error) {
	if raw == "" {
		return nil, errors.New("URL cannot be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	server := &ServerInfo{
		Host:   u.Hostname(),
		Weight: 100,
		Source: "config",
	}

	switch u.Scheme {
	case "ldaps":
		server.UseTLS = true
		server.Port = 636
	case "ldap":
		server.Port = 389
	default:
		return nil, errors.New("unsupported scheme, must be ldap:// or ldaps://")
	}

	if portStr := u.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid port number: %s", portStr)
		}
		server.Port = port
	}

	return server, ValidateServerInfo(server)
}
