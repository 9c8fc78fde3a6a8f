// Package session issues and verifies Quill's stateless session tokens.
//
// A token is an HS256-signed JWT carrying the holder's username and user id
// plus the issued-at time. There is no server-side session table: a token is
// valid for as long as its signature verifies and, when a TTL is configured,
// until it expires. Revocation is not supported.
//
// The signing secret is injected through Config and never leaves this package.
package session
