// Package rate provides the Redis-backed token bucket primitive guarding
// sensitive authentication endpoints.
//
// # Bucket semantics
//
// Refill is computed lazily in whole intervals on each consumption attempt;
// a rejected consume never mutates stored state. Keys follow
// ratelimit:<namespace>:<subject> and expire once the bucket would be fully
// refilled and idle.
//
// # What this package must NOT do
//
//   - Implement endpoint-specific policies (subject keys are chosen by the Engine).
//   - Be imported outside the authkit module.
package rate
