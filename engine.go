package authkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/voralis/authkit/internal"
	"github.com/voralis/authkit/internal/identity"
	"github.com/voralis/authkit/internal/rate"
	"github.com/voralis/authkit/internal/verification"
	"github.com/voralis/authkit/notify"
	"github.com/voralis/authkit/oauth"
	"github.com/voralis/authkit/session"
	"github.com/voralis/authkit/user"
)

// Engine is the authentication core: OTP and OAuth sign-in, session
// lifecycle, and TOTP two-factor management. Build one with [New] and share
// it; all methods are safe for concurrent use.
type Engine struct {
	config Config
	logger zerolog.Logger

	users       user.Repository
	credentials user.CredentialRepository
	sessions    *session.Store
	codes       *verification.Store
	resolver    *identity.Resolver
	cipher      *internal.Cipher
	totp        *totpManager
	cookies     *CookieManager
	providers   map[user.Provider]oauth.Provider
	dispatcher  *notify.Dispatcher

	limits struct {
		otpRequest *rate.Limiter
		otpLogin   *rate.Limiter
		oauth      *rate.Limiter
		twoFactor  *rate.Limiter
	}
}

// Cookies exposes the cookie manager so the HTTP layer can build session and
// state cookies consistently with the engine's configuration.
func (e *Engine) Cookies() *CookieManager {
	return e.cookies
}

func (e *Engine) ready() error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	return nil
}

// limitSubject derives the rate-limit subject for an entry point guarded by
// caller IP. Requests without an attached IP share one anonymous bucket.
func limitSubject(ctx context.Context) string {
	if ip := clientIPFromContext(ctx); ip != "" {
		return "ip:" + ip
	}
	return "ip:unknown"
}

// consume debits one token and converts a rejection into a RateLimitError.
func (e *Engine) consume(ctx context.Context, l *rate.Limiter, subject string) error {
	allowed, retryAfter, err := l.Consume(ctx, subject, 1)
	if err != nil {
		return err
	}
	if !allowed {
		return &RateLimitError{RetryAfter: retryAfter}
	}
	return nil
}

// actorUser unwraps the user behind an optional actor.
func actorUser(a *Actor) *user.User {
	if a == nil {
		return nil
	}
	return a.User
}

// assertionFromContact builds the identity assertion a consumed one-time
// code proves: ownership of exactly one contact channel.
func assertionFromContact(identifier string, kind identifierKind) identity.Assertion {
	a := identity.Assertion{}
	switch kind {
	case identifierEmail:
		a.Email = identifier
		a.EmailVerified = true
	case identifierMobile:
		a.Mobile = identifier
		a.MobileVerified = true
	}
	return a
}

// issueSession mints a raw token and its backing session for the user.
func (e *Engine) issueSession(ctx context.Context, userID string) (*session.Session, string, error) {
	token, err := internal.NewSessionToken()
	if err != nil {
		return nil, "", err
	}
	sess, err := e.sessions.Create(ctx, token, userID)
	if err != nil {
		return nil, "", err
	}
	return sess, token, nil
}

// resolve maps identity errors onto the engine's public taxonomy.
func (e *Engine) resolve(ctx context.Context, a identity.Assertion, current *user.User) (*user.User, bool, error) {
	resolved, created, err := e.resolver.Resolve(ctx, a, current)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrAlreadyLinked):
			return nil, false, fmt.Errorf("%w: %v", ErrIdentityAlreadyLinked, err)
		case errors.Is(err, identity.ErrCreationConflict):
			return nil, false, fmt.Errorf("%w: %v", ErrUserCreationConflict, err)
		case errors.Is(err, identity.ErrNoIdentifier):
			return nil, false, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, false, err
	}
	return resolved, created, nil
}

// newEncryptedRecoveryCode seeds new accounts with an encrypted recovery
// code; the plaintext is shown to the user only on explicit reset.
func (e *Engine) newEncryptedRecoveryCode() (string, error) {
	code, err := internal.NewRecoveryCode()
	if err != nil {
		return "", err
	}
	return e.cipher.EncryptString(code)
}
