// Package identity implements Quill's credential store.
//
// It owns the User record (username + password hash), the schema rules a
// credential must satisfy, and the persistence boundary used by the account
// flows. Password hashing itself lives in cmd/security/password.
//
// Two Store implementations ship: PostgresStore for production and
// MemoryStore for local development and tests. Both enforce username
// uniqueness atomically.
package identity
