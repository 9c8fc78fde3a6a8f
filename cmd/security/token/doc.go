// Package token loads the secret used to sign session tokens.
//
// The secret is read once at startup from QUILL_SESSION_SECRET and handed to
// the session token service; nothing else in the process reads it.
// A missing or short secret is a startup error, never a silent fallback.
package token
