// Package verification provides the Redis-backed store for short-lived
// numeric one-time codes sent over email or SMS.
//
// # Lifecycle
//
// At most one live code exists per identifier. Requesting a new code
// invalidates the prior one; a code is deleted on its first successful
// validation, on expiry, or after exhausting its bounded attempt budget.
// A single mismatch never deletes the code.
//
// # What this package must NOT do
//
//   - Send codes anywhere (dispatch is the Engine's concern).
//   - Be imported outside the authkit module.
package verification
