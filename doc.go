// Package authkit is a Redis-backed authentication engine for multi-tenant
// web applications: passwordless one-time-code sign-in over email and SMS,
// OAuth sign-in with PKCE, hashed-token sessions with sliding renewal, and
// TOTP two-factor with single-use recovery codes.
//
// Sessions, one-time codes, and rate-limit buckets live in Redis as
// versioned binary records with TTLs matching their logical expiry. User
// accounts live in a relational store behind the [user.Repository]
// interface. TOTP secrets and recovery codes are persisted only as
// AES-256-GCM ciphertext under a process-wide key.
//
// Build an [Engine] with the [Builder]:
//
//	engine, err := authkit.New().
//		WithConfig(cfg).
//		WithRedis(redisClient).
//		WithUsers(userRepo).
//		WithDispatcher(dispatcher).
//		WithProvider(oauth.NewGoogle(id, secret, callback)).
//		Build()
//
// All Engine methods are safe for concurrent use.
package authkit
