package ldap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// DirectoryOptions tunes the Directory reader.
type DirectoryOptions struct {
	// BaseDN overrides the search base for account name queries.
	BaseDN  string
	Timeout time.Duration `default:"30s"`
}

// Directory answers the identity queries made during resolution. Each query
// issues exactly one LDAP search; a nil entry with a nil error means the
// directory holds no matching object.
type Directory struct {
	client      Client
	guidHandler *GUIDHandler
	sidHandler  *SIDHandler
	baseDN      string
	timeout     time.Duration
}

// NewDirectory creates a Directory reader on top of client.
func NewDirectory(client Client, opts *DirectoryOptions) *Directory {
	if opts == nil {
		opts = &DirectoryOptions{}
	}
	if err := defaults.Set(opts); err != nil {
		panic(fmt.Sprintf("failed to set directory defaults: %v", err))
	}

	return &Directory{
		client:      client,
		guidHandler: NewGUIDHandler(),
		sidHandler:  NewSIDHandler(),
		baseDN:      opts.BaseDN,
		timeout:     opts.Timeout,
	}
}

// QueryByDistinguishedName reads the entry at dn.
func (d *Directory) QueryByDistinguishedName(ctx context.Context, dn string) (*DirectoryEntry, error) {
	entry, err := d.searchOne(ctx, "query_by_dn", &SearchRequest{
		BaseDN:     dn,
		Scope:      ScopeBaseObject,
		Filter:     "(objectClass=*)",
		Attributes: genericAttributes,
		SizeLimit:  1,
	})
	if err != nil || entry == nil {
		return nil, err
	}
	return d.toDirectoryEntry(entry), nil
}

// QueryBySID finds the object whose objectSid equals sid.
func (d *Directory) QueryBySID(ctx context.Context, sid string) (*DirectoryEntry, error) {
	filter, err := d.sidHandler.SIDToSearchFilter(sid)
	if err != nil {
		return nil, NewLDAPError("query_by_sid", err)
	}
	return d.querySubtree(ctx, "query_by_sid", filter)
}

// QueryByGUID finds the object whose objectGUID equals guid.
func (d *Directory) QueryByGUID(ctx context.Context, guid string) (*DirectoryEntry, error) {
	filter, err := d.guidHandler.GUIDToSearchFilter(guid)
	if err != nil {
		return nil, NewLDAPError("query_by_guid", err)
	}
	return d.querySubtree(ctx, "query_by_guid", filter)
}

// QueryByAccountName finds the object whose sAMAccountName equals name.
// A DOMAIN\name prefix is dropped before querying.
func (d *Directory) QueryByAccountName(ctx context.Context, name string) (*DirectoryEntry, error) {
	if _, account, ok := strings.Cut(name, `\`); ok {
		name = account
	}

	filter := fmt.Sprintf("(sAMAccountName=%s)", ldap.EscapeFilter(name))
	return d.querySubtree(ctx, "query_by_account_name", filter)
}

func (d *Directory) querySubtree(ctx context.Context, op, filter string) (*DirectoryEntry, error) {
	baseDN, err := d.searchBase(ctx)
	if err != nil {
		return nil, err
	}

	entry, err := d.searchOne(ctx, op, &SearchRequest{
		BaseDN:     baseDN,
		Scope:      ScopeWholeSubtree,
		Filter:     filter,
		Attributes: genericAttributes,
		SizeLimit:  1,
	})
	if err != nil || entry == nil {
		return nil, err
	}
	return d.toDirectoryEntry(entry), nil
}

// fetchByDN reads the entry at dn when it matches filter.
func (d *Directory) fetchByDN(ctx context.Context, op, dn, filter string, attributes []string) (*ldap.Entry, error) {
	return d.searchOne(ctx, op, &SearchRequest{
		BaseDN:     dn,
		Scope:      ScopeBaseObject,
		Filter:     filter,
		Attributes: attributes,
		SizeLimit:  1,
	})
}

// searchOne runs req and returns its first entry. A missing base object is
// reported as no entry.
func (d *Directory) searchOne(ctx context.Context, op string, req *SearchRequest) (*ldap.Entry, error) {
	if req.TimeLimit == 0 {
		req.TimeLimit = d.timeout
	}

	tflog.SubsystemTrace(ctx, SubsystemDirectory, "Directory search", map[string]any{
		"operation": op,
		"base_dn":   req.BaseDN,
		"scope":     req.Scope.String(),
		"filter":    req.Filter,
	})

	result, err := d.client.Search(ctx, req)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, nil
		}
		LogDirectoryError(ctx, SubsystemDirectory, op, err, map[string]any{"base_dn": req.BaseDN})
		return nil, WrapError(op, err)
	}

	if result == nil || len(result.Entries) == 0 {
		return nil, nil
	}
	return result.Entries[0], nil
}

func (d *Directory) searchBase(ctx context.Context) (string, error) {
	if d.baseDN != "" {
		return d.baseDN, nil
	}

	baseDN, err := d.client.GetBaseDN(ctx)
	if err != nil {
		return "", WrapError("get_base_dn", err)
	}
	return baseDN, nil
}
