package authkit

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/voralis/authkit/user"
)

// Cookie names shared with the web layer.
const (
	SessionCookieName         = "session"
	RedirectCookieName        = "redirect_uri"
	PreferredMethodCookieName = "auth_preferred_method"
)

// SignInMethod names the channel a login completed through; remembered in a
// convenience cookie so the UI can preselect it next time.
type SignInMethod string

const (
	// SignInGoogle is a Google OAuth login.
	SignInGoogle SignInMethod = "google"
	// SignInLinkedin is a LinkedIn OAuth login.
	SignInLinkedin SignInMethod = "linkedin"
	// SignInOTP is an email/SMS one-time-code login.
	SignInOTP SignInMethod = "otp"
)

// ErrCookieInvalid is returned for state cookies that are missing, expired,
// tampered with, or presented for the wrong purpose.
var ErrCookieInvalid = errors.New("invalid signed cookie")

func stateCookieName(p user.Provider) string {
	return fmt.Sprintf("oauth_%s_state", p)
}

func verifierCookieName(p user.Provider) string {
	return fmt.Sprintf("oauth_%s_verifier", p)
}

// CookieManager encodes ephemeral protocol state (OAuth state, PKCE
// verifier, post-login redirect target) as signed, purpose-scoped,
// short-TTL cookies, and builds the session cookie itself.
type CookieManager struct {
	config CookieConfig
	now    func() time.Time
}

func newCookieManager(cfg CookieConfig) *CookieManager {
	return &CookieManager{config: cfg, now: time.Now}
}

type stateClaims struct {
	Purpose string `json:"pur"`
	Value   string `json:"val"`
	jwt.RegisteredClaims
}

// sign binds value to purpose so a cookie minted for one flow can never be
// replayed into another.
func (c *CookieManager) sign(purpose, value string) (string, error) {
	now := c.now()
	claims := stateClaims{
		Purpose: purpose,
		Value:   value,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.config.StateTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.config.SigningKey)
}

func (c *CookieManager) read(purpose, token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &stateClaims{}, func(t *jwt.Token) (any, error) {
		return c.config.SigningKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCookieInvalid, err)
	}

	claims, ok := parsed.Claims.(*stateClaims)
	if !ok || claims.Purpose != purpose {
		return "", ErrCookieInvalid
	}
	return claims.Value, nil
}

func (c *CookieManager) ephemeral(name, signed string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    signed,
		Path:     "/",
		Domain:   c.config.Domain,
		MaxAge:   int(c.config.StateTTL / time.Second),
		HttpOnly: true,
		Secure:   c.config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// StateCookie binds an OAuth state value to the browser for one provider.
func (c *CookieManager) StateCookie(p user.Provider, state string) (*http.Cookie, error) {
	signed, err := c.sign(stateCookieName(p), state)
	if err != nil {
		return nil, err
	}
	return c.ephemeral(stateCookieName(p), signed), nil
}

// ReadState recovers the state bound by StateCookie.
func (c *CookieManager) ReadState(p user.Provider, cookieValue string) (string, error) {
	return c.read(stateCookieName(p), cookieValue)
}

// VerifierCookie binds a PKCE verifier to the browser for one provider.
func (c *CookieManager) VerifierCookie(p user.Provider, verifier string) (*http.Cookie, error) {
	signed, err := c.sign(verifierCookieName(p), verifier)
	if err != nil {
		return nil, err
	}
	return c.ephemeral(verifierCookieName(p), signed), nil
}

// ReadVerifier recovers the verifier bound by VerifierCookie.
func (c *CookieManager) ReadVerifier(p user.Provider, cookieValue string) (string, error) {
	return c.read(verifierCookieName(p), cookieValue)
}

// RedirectCookie carries the post-login redirect target across the flow.
func (c *CookieManager) RedirectCookie(target string) (*http.Cookie, error) {
	signed, err := c.sign(RedirectCookieName, target)
	if err != nil {
		return nil, err
	}
	return c.ephemeral(RedirectCookieName, signed), nil
}

// ReadRedirect recovers the redirect target, or "" for an absent/invalid cookie.
func (c *CookieManager) ReadRedirect(cookieValue string) string {
	target, err := c.read(RedirectCookieName, cookieValue)
	if err != nil {
		return ""
	}
	return target
}

// SessionCookie carries the raw session token. HttpOnly always; Secure
// outside local development; expiry matches the session's.
func (c *CookieManager) SessionCookie(rawToken string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    rawToken,
		Path:     "/",
		Domain:   c.config.Domain,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   c.config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearSessionCookie expires the session cookie immediately.
func (c *CookieManager) ClearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   c.config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// PreferredMethodCookie remembers the channel a login completed through.
// Not signed: it is a UI hint, never an authentication input.
func (c *CookieManager) PreferredMethodCookie(method SignInMethod) *http.Cookie {
	return &http.Cookie{
		Name:     PreferredMethodCookieName,
		Value:    string(method),
		Path:     "/",
		Domain:   c.config.Domain,
		Expires:  c.now().AddDate(1, 0, 0),
		HttpOnly: true,
		Secure:   c.config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
