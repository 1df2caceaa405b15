// Package oauth wraps the external OAuth providers behind an opaque
// exchange-code-for-profile contract. The engine never sees provider wire
// formats; it consumes normalized [Profile] values.
//
// Providers here only do the two calls the authentication core needs:
// authorization-code exchange (with PKCE where the provider supports it) and
// a userinfo fetch. Anything richer belongs in a real provider SDK outside
// this module.
package oauth
