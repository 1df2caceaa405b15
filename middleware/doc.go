// Package middleware adapts the engine to net/http: it resolves the session
// cookie once per request, attaches the actor and client IP to the request
// context, and offers guards for handlers that need a signed-in or
// two-factor-verified caller.
package middleware
