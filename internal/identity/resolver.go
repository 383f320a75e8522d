package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/ldap"
)

// Directory is the read-only directory access the resolver needs. The
// generic queries return a nil entry when nothing matches; the
// class-specific fetches return nil when the object is gone.
type Directory interface {
	QueryByDistinguishedName(ctx context.Context, dn string) (*ldap.DirectoryEntry, error)
	QueryBySID(ctx context.Context, sid string) (*ldap.DirectoryEntry, error)
	QueryByGUID(ctx context.Context, guid string) (*ldap.DirectoryEntry, error)
	QueryByAccountName(ctx context.Context, name string) (*ldap.DirectoryEntry, error)

	FetchUser(ctx context.Context, dn string) (*ldap.User, error)
	FetchGroup(ctx context.Context, dn string) (*ldap.Group, error)
	FetchComputer(ctx context.Context, dn string) (*ldap.Computer, error)
	FetchOrganizationalUnit(ctx context.Context, dn string) (*ldap.OU, error)
	FetchServiceAccount(ctx context.Context, dn string) (*ldap.ServiceAccount, error)
}

var _ Directory = (*ldap.Directory)(nil)

// ResolverOptions tunes a Resolver.
type ResolverOptions struct {
	// QueryTimeout bounds each directory call. Negative disables it.
	QueryTimeout time.Duration `default:"30s"`

	// SkipWellKnownNames disables answering account names such as
	// "NT AUTHORITY\SYSTEM" from the well-known table.
	SkipWellKnownNames bool
}

// Resolver turns identity references into typed directory objects.
// It is safe for concurrent use.
type Resolver struct {
	dir     Directory
	catalog *Catalog
	opts    ResolverOptions
}

// NewResolver returns a Resolver reading from dir with the tables held by
// catalog. A nil opts uses the defaults.
func NewResolver(dir Directory, catalog *Catalog, opts *ResolverOptions) (*Resolver, error) {
	if dir == nil {
		return nil, fmt.Errorf("%w: directory is required", ErrInvalidArgument)
	}
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog is required", ErrInvalidArgument)
	}

	var o ResolverOptions
	if opts != nil {
		o = *opts
	}
	if err := defaults.Set(&o); err != nil {
		return nil, fmt.Errorf("failed to apply resolver defaults: %w", err)
	}

	return &Resolver{dir: dir, catalog: catalog, opts: o}, nil
}

// Catalog returns the catalog the resolver reads from.
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// Resolve classifies ref and looks it up. Typed objects are returned
// unchanged. A missing identity yields a KindNotFound object and an object
// of an unknown class yields KindUnsupported; neither is an error. Errors
// are ErrInvalidArgument, ErrUnsupportedIdentityType,
// ErrDirectoryUnavailable, or a wrapped directory error.
func (r *Resolver) Resolve(ctx context.Context, ref Reference) (*Object, error) {
	switch v := ref.(type) {
	case *Object:
		if v != nil {
			return v, nil
		}
	case String:
		var obj *Object
		err := r.catalog.Read(func(t Tables) error {
			var err error
			obj, err = r.resolveString(ctx, t, string(v))
			return err
		})
		return obj, err
	}

	return nil, &ResolveError{
		Kind: ErrUnsupportedIdentityType,
		Err:  fmt.Errorf("cannot resolve a value of type %T", ref),
	}
}

// ResolveAny is ReferenceFrom followed by Resolve.
func (r *Resolver) ResolveAny(ctx context.Context, v any) (*Object, error) {
	ref, err := ReferenceFrom(v)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, ref)
}

func (r *Resolver) resolveString(ctx context.Context, t Tables, raw string) (*Object, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, newResolveError(ErrInvalidArgument, raw, errors.New("identity must not be empty"))
	}

	class := t.WellKnown.Classify(s)
	ctx = tflog.SubsystemSetField(ctx, ldap.SubsystemIdentity, "identity", s)
	tflog.SubsystemDebug(ctx, ldap.SubsystemIdentity, "Resolving identity", map[string]any{
		"classification": class.String(),
	})

	var (
		entry *ldap.DirectoryEntry
		err   error
	)

	switch class {
	case ClassDistinguishedName:
		err = r.call(ctx, func(ctx context.Context) (err error) {
			entry, err = r.dir.QueryByDistinguishedName(ctx, s)
			return err
		})

	case ClassSecurityIdentifier:
		sid := canonicalSID(stripDomainPrefix(s))
		if name, ok := t.WellKnown.LookupNameBySID(sid); ok {
			tflog.SubsystemDebug(ctx, ldap.SubsystemIdentity, "Resolved well-known SID", map[string]any{"sid": sid})
			return wellKnownPrincipal(s, sid, name), nil
		}
		err = r.call(ctx, func(ctx context.Context) (err error) {
			entry, err = r.dir.QueryBySID(ctx, sid)
			return err
		})

	case ClassGUID:
		err = r.call(ctx, func(ctx context.Context) (err error) {
			entry, err = r.dir.QueryByGUID(ctx, s)
			return err
		})

	case ClassAccountName, ClassUnrecognized:
		// Anything that is not a DN, SID or GUID is tried as an account name.
		if !r.opts.SkipWellKnownNames {
			if sid, ok := t.WellKnown.LookupWellKnownSIDByName(s); ok {
				name, _ := t.WellKnown.LookupNameBySID(sid)
				tflog.SubsystemDebug(ctx, ldap.SubsystemIdentity, "Resolved well-known name", map[string]any{"sid": sid})
				return wellKnownPrincipal(s, sid, name), nil
			}
		}
		err = r.call(ctx, func(ctx context.Context) (err error) {
			entry, err = r.dir.QueryByAccountName(ctx, s)
			return err
		})
	}

	if err != nil {
		return nil, r.directoryError(s, err)
	}
	if entry == nil {
		tflog.SubsystemDebug(ctx, ldap.SubsystemIdentity, "Identity not found")
		return notFound(s), nil
	}

	obj, err := r.fetch(ctx, entry)
	if err != nil {
		return nil, r.directoryError(s, err)
	}
	obj.Identity = s

	tflog.SubsystemDebug(ctx, ldap.SubsystemIdentity, "Resolved identity", map[string]any{
		"kind":         obj.Kind.String(),
		"dn":           obj.DistinguishedName,
		"object_class": entry.ObjectClass,
	})
	return obj, nil
}

// fetch issues the single class-specific read for entry's structural class.
func (r *Resolver) fetch(ctx context.Context, entry *ldap.DirectoryEntry) (*Object, error) {
	var obj *Object
	dn := entry.DistinguishedName

	err := r.call(ctx, func(ctx context.Context) error {
		switch strings.ToLower(entry.ObjectClass) {
		case strings.ToLower(ldap.ObjectClassUser):
			u, err := r.dir.FetchUser(ctx, dn)
			if err == nil && u != nil {
				obj = objectFromUser(u)
			}
			return err
		case strings.ToLower(ldap.ObjectClassGroup):
			g, err := r.dir.FetchGroup(ctx, dn)
			if err == nil && g != nil {
				obj = objectFromGroup(g)
			}
			return err
		case strings.ToLower(ldap.ObjectClassComputer):
			c, err := r.dir.FetchComputer(ctx, dn)
			if err == nil && c != nil {
				obj = objectFromComputer(c)
			}
			return err
		case strings.ToLower(ldap.ObjectClassOrganizationalUnit):
			ou, err := r.dir.FetchOrganizationalUnit(ctx, dn)
			if err == nil && ou != nil {
				obj = objectFromOU(ou)
			}
			return err
		case strings.ToLower(ldap.ObjectClassGroupManagedServiceAccount):
			sa, err := r.dir.FetchServiceAccount(ctx, dn)
			if err == nil && sa != nil {
				obj = objectFromServiceAccount(sa)
			}
			return err
		default:
			obj = &Object{
				Kind:              KindUnsupported,
				DistinguishedName: dn,
				SID:               entry.SID,
				GUID:              entry.GUID,
				Name:              entry.Name,
				ObjectClass:       entry.ObjectClass,
			}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	if obj == nil {
		// Deleted between the generic query and the fetch.
		return &Object{Kind: KindNotFound, DistinguishedName: dn, ObjectClass: entry.ObjectClass}, nil
	}
	if obj.Name == "" {
		obj.Name = entry.Name
	}
	return obj, nil
}

func (r *Resolver) call(ctx context.Context, fn func(context.Context) error) error {
	if r.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.QueryTimeout)
		defer cancel()
	}
	return fn(ctx)
}

// directoryError maps unreachable-directory failures to
// ErrDirectoryUnavailable and wraps everything else unchanged.
func (r *Resolver) directoryError(identity string, err error) error {
	if errors.Is(err, ErrDirectoryUnavailable) || ldap.IsConnectionError(err) {
		return newResolveError(ErrDirectoryUnavailable, identity, err)
	}
	return fmt.Errorf("failed to resolve %q: %w", identity, err)
}
