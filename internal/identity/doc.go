// Package identity reconciles verified external identity assertions (OAuth
// profiles, OTP-verified contacts) against the local user store.
//
// # Resolution precedence
//
//  1. Federated id match (strongest signal).
//  2. Verified email/mobile match.
//  3. The current session's user (linking while logged in).
//  4. Create a new user.
//
// Profile merges never overwrite populated fields with federated data; only
// the federation id itself is always asserted. Updates are computed as
// minimal diffs so reconciliation is idempotent.
package identity
