// Package internal contains helper utilities that are intentionally private to authkit,
// including secure random generation, token hashing, and the secret cipher.
//
// # Sub-packages
//
//   - identity — find-or-create reconciliation of verified external identities
//   - rate — Redis-backed token bucket rate limit primitives
//   - verification — single-use one-time code store
//
// # What this package must NOT do
//
//   - Export types that appear in the public authkit API.
//   - Be imported by any package outside the authkit module.
package internal
