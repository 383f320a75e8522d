/*
Package ldap provides the read-only Active Directory access used by the
housekeeping provider to resolve identities.

# Connection Management

The Client interface wraps a pool of bound connections:

  - SRV-based domain controller discovery (_ldaps, _ldap, _gc)
  - LDAPS or StartTLS transport
  - Simple, Kerberos (GSSAPI) and external (client certificate) binds
  - Automatic retry with exponential backoff on retryable failures
  - Paged searches for large result sets

# Directory Reads

Directory answers the four generic identity queries (by distinguished
name, SID, GUID and sAMAccountName) with one search each and returns a
DirectoryEntry carrying the most specific structural object class. The
class-specific fetches return User, Group, Computer, OU and ServiceAccount
views of an already located object.

A missing object is not an error: queries return a nil entry. Transport
failures are returned as *LDAPError values whose Category is
ErrorCategoryConnection.

# Codecs

SIDHandler and GUIDHandler convert between the binary objectSid and
objectGUID attributes and their string forms, and build equality filters
for them. NormalizeDNCase, EqualDN and GetDNParent operate on parsed DNs.

# Schema Maps

LoadSchemaMaps reads schemaIDGUID and rightsGuid values into immutable,
case-insensitive GUIDMap tables. Every GUIDMap maps "All" to the nil GUID.

# Logging

All operations log through tflog subsystems (ldap, pool, directory). Bind
credentials are never logged.
*/
package ldap
