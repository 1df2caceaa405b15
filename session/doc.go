// Package session provides Redis-backed session persistence and compact
// binary session encoding for authentication hot paths.
//
// # Identity
//
// The session id is the lowercase-hex SHA-256 of the raw token, so neither
// the cache key nor the persisted record ever reveals the token; only the
// cookie holder can rederive the id.
//
// # Sliding expiration
//
// Validating a token inside the trailing refresh window rewrites the record
// with a fresh 30-day expiry. This amortizes renewal writes to roughly once
// per half-life rather than once per request.
//
// # What this package must NOT do
//
//   - Import authkit (no upward imports).
//   - Look up users or enforce two-factor policy — those belong to the Engine.
package session
