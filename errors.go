package authkit

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation is returned for malformed input, rejected before any side effect.
	ErrValidation = errors.New("invalid input")
	// ErrRateLimited is returned when a token bucket rejects the request.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidCode is returned for a one-time or TOTP code that does not match.
	ErrInvalidCode = errors.New("invalid code")
	// ErrInvalidKey is returned for a TOTP key that is not exactly 20 bytes.
	ErrInvalidKey = errors.New("invalid totp key")
	// ErrInvalidRecoveryCode is returned when a recovery code does not match the
	// single active code, including when a concurrent reset already rotated it.
	ErrInvalidRecoveryCode = errors.New("invalid recovery code")
	// ErrIdentityAlreadyLinked is returned when a federated id belongs to a
	// different account than the one currently signed in.
	ErrIdentityAlreadyLinked = errors.New("identity already linked")
	// ErrUserCreationConflict is returned when account creation loses a race on
	// a unique identifier. Callers may retry the authentication.
	ErrUserCreationConflict = errors.New("user creation conflict")
	// ErrSessionRequired is returned by operations that need a signed-in caller.
	ErrSessionRequired = errors.New("session required")
	// ErrContactUnverified gates two-factor operations on a verified contact channel.
	ErrContactUnverified = errors.New("contact channel unverified")
	// ErrTwoFactorNotEnabled is returned when verifying against an account
	// without two-factor configured.
	ErrTwoFactorNotEnabled = errors.New("two-factor not enabled")
	// ErrTwoFactorAlreadyVerified is returned when the session already passed
	// its two-factor challenge.
	ErrTwoFactorAlreadyVerified = errors.New("two-factor already verified")
	// ErrTwoFactorRequired is returned when a sensitive operation needs a
	// two-factor verified session first.
	ErrTwoFactorRequired = errors.New("two-factor verification required")
	// ErrInvalidState is returned for OAuth callbacks whose state does not
	// match the value bound to the browser.
	ErrInvalidState = errors.New("invalid oauth state")
	// ErrExternalProvider wraps OAuth exchange and profile fetch failures.
	// Surfaced to end users as a generic authentication failure.
	ErrExternalProvider = errors.New("external provider failure")
	// ErrUnknownProvider is returned for a provider name no Engine provider matches.
	ErrUnknownProvider = errors.New("unknown oauth provider")
	// ErrStoreUnavailable wraps hard relational-store failures.
	ErrStoreUnavailable = errors.New("user store unavailable")
	// ErrEngineNotReady is returned when an Engine method is called on a nil or
	// unbuilt engine.
	ErrEngineNotReady = errors.New("engine not ready")
)

// RateLimitError carries the retry-after hint alongside ErrRateLimited.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Is makes errors.Is(err, ErrRateLimited) hold for RateLimitError values.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
