// Package identity resolves user-supplied identity references (distinguished
// names, SIDs, GUIDs, account names and well-known principal names) into
// typed Active Directory objects.
//
// Resolution classifies the string without I/O, issues at most one generic
// directory query to learn the object's structural class, then exactly one
// class-specific fetch. Well-known SIDs and names are answered from an
// injected WellKnownTable without touching the directory. A missing object
// is reported as a KindNotFound Object rather than an error.
//
// The tables a Resolver reads live in a Catalog, whose read/write lock
// makes Reinitialize wait for in-flight resolutions.
package identity
