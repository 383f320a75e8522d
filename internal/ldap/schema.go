package ldap

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// AllPropertiesName maps to the nil GUID in every GUIDMap. An ACE whose
// object type is the nil GUID applies to all properties or rights.
const AllPropertiesName = "All"

// GUIDMap is an immutable, case-insensitive name to GUID table.
type GUIDMap struct {
	byName map[string]guidMapEntry
	byGUID map[uuid.UUID]string
}

type guidMapEntry struct {
	name string
	guid uuid.UUID
}

// NewGUIDMap builds a GUIDMap from entries and adds AllPropertiesName.
// Later duplicates (ignoring case) replace earlier ones.
func NewGUIDMap(entries map[string]uuid.UUID) *GUIDMap {
	m := &GUIDMap{
		byName: make(map[string]guidMapEntry, len(entries)+1),
		byGUID: make(map[uuid.UUID]string, len(entries)+1),
	}

	for _, name := range slices.Sorted(maps.Keys(entries)) {
		m.add(name, entries[name])
	}
	m.add(AllPropertiesName, uuid.Nil)

	return m
}

func (m *GUIDMap) add(name string, guid uuid.UUID) {
	m.byName[strings.ToLower(name)] = guidMapEntry{name: name, guid: guid}
	if _, exists := m.byGUID[guid]; !exists || guid == uuid.Nil {
		m.byGUID[guid] = name
	}
}

// Lookup returns the GUID registered for name.
func (m *GUIDMap) Lookup(name string) (uuid.UUID, bool) {
	if m == nil {
		return uuid.Nil, false
	}
	e, ok := m.byName[strings.ToLower(strings.TrimSpace(name))]
	return e.guid, ok
}

// NameOf returns the first name registered for guid.
func (m *GUIDMap) NameOf(guid uuid.UUID) (string, bool) {
	if m == nil {
		return "", false
	}
	name, ok := m.byGUID[guid]
	return name, ok
}

// Len returns the number of names in the map.
func (m *GUIDMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.byName)
}

// Names returns the registered names in sorted order.
func (m *GUIDMap) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.byName))
	for _, e := range m.byName {
		names = append(names, e.name)
	}
	slices.SortFunc(names, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return names
}

// SchemaMaps holds the schema attribute/class GUIDs and the extended rights GUIDs.
type SchemaMaps struct {
	Schema         *GUIDMap
	ExtendedRights *GUIDMap
}

// LoadSchemaMaps reads schemaIDGUID values from the schema naming context and
// rightsGuid values from the Extended-Rights container.
func LoadSchemaMaps(ctx context.Context, client Client) (*SchemaMaps, error) {
	rootDSE, err := client.GetRootDSE(ctx)
	if err != nil {
		return nil, WrapError("load_schema_maps", err)
	}
	if rootDSE.SchemaNamingContext == "" || rootDSE.ConfigurationNamingContext == "" {
		return nil, NewLDAPError("load_schema_maps", errors.New("root DSE does not publish schema and configuration naming contexts"))
	}

	guidHandler := NewGUIDHandler()

	schemaEntries, err := client.SearchWithPaging(ctx, &SearchRequest{
		BaseDN:     rootDSE.SchemaNamingContext,
		Scope:      ScopeWholeSubtree,
		Filter:     "(schemaIDGUID=*)",
		Attributes: []string{"lDAPDisplayName", "schemaIDGUID"},
	})
	if err != nil {
		return nil, WrapError("load_schema_guids", err)
	}

	schema := make(map[string]uuid.UUID, len(schemaEntries.Entries))
	for _, entry := range schemaEntries.Entries {
		name := entry.GetAttributeValue("lDAPDisplayName")
		text, err := guidHandler.GUIDBytesToString(entry.GetRawAttributeValue("schemaIDGUID"))
		if name == "" || err != nil {
			continue
		}
		schema[name] = uuid.MustParse(text)
	}

	rightsEntries, err := client.SearchWithPaging(ctx, &SearchRequest{
		BaseDN:     fmt.Sprintf("CN=Extended-Rights,%s", rootDSE.ConfigurationNamingContext),
		Scope:      ScopeSingleLevel,
		Filter:     "(objectClass=controlAccessRight)",
		Attributes: []string{"displayName", "rightsGuid"},
	})
	if err != nil {
		return nil, WrapError("load_extended_rights", err)
	}

	rights := make(map[string]uuid.UUID, len(rightsEntries.Entries))
	for _, entry := range rightsEntries.Entries {
		name := entry.GetAttributeValue("displayName")
		guid, err := guidHandler.ParseGUID(entry.GetAttributeValue("rightsGuid"))
		if name == "" || err != nil {
			continue
		}
		rights[name] = guid
	}

	loaded := &SchemaMaps{
		Schema:         NewGUIDMap(schema),
		ExtendedRights: NewGUIDMap(rights),
	}

	tflog.SubsystemDebug(ctx, SubsystemDirectory, "Loaded schema GUID maps", map[string]any{
		"schema_guids":         loaded.Schema.Len(),
		"extended_right_guids": loaded.ExtendedRights.Len(),
	})

	return loaded, nil
}
