package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/eguibarit/terraform-provider-housekeeping/internal/ldap"
)

// Tables is one consistent generation of the lookup tables used during
// resolution. Its contents are never mutated.
type Tables struct {
	WellKnown      *WellKnownTable
	Schema         *ldap.GUIDMap
	ExtendedRights *ldap.GUIDMap
}

// Catalog guards the current Tables. Readers hold the read lock for the
// whole of an operation, so Reinitialize waits for in-flight resolutions
// and no resolution sees a mix of two generations.
type Catalog struct {
	mu         sync.RWMutex
	tables     Tables
	generation uint64
}

// NewCatalog returns a catalog holding wellKnown and, when maps is non-nil,
// the schema and extended-rights maps. Missing maps are replaced by maps
// that contain only the "All" sentinel.
func NewCatalog(wellKnown *WellKnownTable, maps *ldap.SchemaMaps) (*Catalog, error) {
	c := &Catalog{}
	if err := c.install(wellKnown, maps); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) install(wellKnown *WellKnownTable, maps *ldap.SchemaMaps) error {
	if wellKnown == nil {
		return fmt.Errorf("%w: well-known table is required", ErrInvalidArgument)
	}

	next := Tables{WellKnown: wellKnown}
	if maps != nil {
		next.Schema, next.ExtendedRights = maps.Schema, maps.ExtendedRights
	}
	if next.Schema == nil {
		next.Schema = ldap.NewGUIDMap(nil)
	}
	if next.ExtendedRights == nil {
		next.ExtendedRights = ldap.NewGUIDMap(nil)
	}

	c.tables = next
	c.generation++
	return nil
}

// Reinitialize replaces the tables. It blocks until every operation
// holding the read side has finished.
func (c *Catalog) Reinitialize(ctx context.Context, wellKnown *WellKnownTable, maps *ldap.SchemaMaps) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.swap(ctx, wellKnown, maps)
}

// Reload loads fresh schema maps with load, outside the lock, and installs
// them alongside the well-known table current at install time.
func (c *Catalog) Reload(ctx context.Context, load func(context.Context) (*ldap.SchemaMaps, error)) error {
	maps, err := load(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload schema maps: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.swap(ctx, c.tables.WellKnown, maps)
}

// swap installs new tables. The caller holds the write lock.
func (c *Catalog) swap(ctx context.Context, wellKnown *WellKnownTable, maps *ldap.SchemaMaps) error {
	if err := c.install(wellKnown, maps); err != nil {
		return err
	}

	tflog.SubsystemInfo(ctx, ldap.SubsystemIdentity, "Identity catalog reinitialized", map[string]any{
		"generation":      c.generation,
		"well_known":      wellKnown.Len(),
		"schema_guids":    c.tables.Schema.Len(),
		"extended_rights": c.tables.ExtendedRights.Len(),
	})
	return nil
}

// Read calls fn with the current tables while holding the read lock.
// fn must not call Reinitialize or Reload.
func (c *Catalog) Read(fn func(Tables) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fn(c.tables)
}

// Generation counts installations, starting at 1.
func (c *Catalog) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Tables returns the current generation of tables. Operations that need
// one consistent view for their whole duration use Read instead.
func (c *Catalog) Tables() Tables {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tables
}

func (c *Catalog) WellKnown() *WellKnownTable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tables.WellKnown
}

// SchemaGUID returns the schemaIDGUID of an attribute or class by its
// lDAPDisplayName. "All" maps to the nil GUID.
func (c *Catalog) SchemaGUID(name string) (uuid.UUID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tables.Schema.Lookup(name)
}

// ExtendedRightGUID returns the rightsGuid of an extended right by display
// name. "All" maps to the nil GUID.
func (c *Catalog) ExtendedRightGUID(name string) (uuid.UUID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tables.ExtendedRights.Lookup(name)
}
