package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/voralis/authkit"
)

type actorContextKey struct{}

// ActorFromContext returns the actor resolved by [Session], or nil for an
// anonymous request.
func ActorFromContext(ctx context.Context) *authkit.Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*authkit.Actor)
	return actor
}

// Session resolves the session cookie once per request and stores the actor
// and the client IP in the request context. Resolution failures degrade to
// an anonymous request rather than failing the whole page.
func Session(engine *authkit.Engine, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := authkit.WithClientIP(r.Context(), clientIP(r))

			if cookie, err := r.Cookie(authkit.SessionCookieName); err == nil && cookie.Value != "" {
				actor, err := engine.ResolveCurrentSession(ctx, cookie.Value)
				switch {
				case err != nil:
					logger.Warn().Err(err).Msg("session resolution degraded to anonymous")
				case actor != nil:
					ctx = context.WithValue(ctx, actorContextKey{}, actor)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActor rejects anonymous requests with 401.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ActorFromContext(r.Context()) == nil {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTwoFactor rejects requests whose session has not passed its
// two-factor challenge with 403. Accounts without two-factor enabled pass.
func RequireTwoFactor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		if actor == nil {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		if actor.User.TwoFactorEnabled && !actor.TwoFactorVerified() {
			http.Error(w, "two-factor verification required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the leftmost X-Forwarded-For hop, falling back to the
// socket address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, found := strings.Cut(forwarded, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
