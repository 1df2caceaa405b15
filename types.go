package authkit

import (
	"net/http"
	"time"

	"github.com/voralis/authkit/session"
	"github.com/voralis/authkit/user"
)

// Actor is the resolved caller of an engine operation: the live session and
// the user it belongs to.
type Actor struct {
	Session *session.Session
	User    *user.User
}

// TwoFactorVerified reports whether the actor's session has passed its
// two-factor challenge.
func (a *Actor) TwoFactorVerified() bool {
	return a != nil && a.Session != nil && a.Session.TwoFactorVerified
}

// AuthResult is the outcome of a completed authentication.
type AuthResult struct {
	User    *user.User
	Session *session.Session
	// Token is the raw session token to hand to the browser. It is never
	// stored server-side; only its hash is.
	Token string
	// NewUser is true when this authentication created the account.
	NewUser bool
	// Method is the channel the login completed through.
	Method SignInMethod
}

// CodeIssued describes a one-time code dispatch. The code itself goes to the
// delivery channel only.
type CodeIssued struct {
	Identifier string
	ExpiresAt  time.Time
}

// TwoFactorProvision is a pending authenticator enrollment. The key stays
// client-side until ConfirmTwoFactorSetup proves possession.
type TwoFactorProvision struct {
	// Key is the base64-encoded 20-byte TOTP key.
	Key string
	// URI is the otpauth:// enrollment URI for authenticator apps.
	URI string
}

// OAuthBegin is everything the HTTP layer needs to start an OAuth redirect:
// the provider URL plus the state and verifier cookies to set.
type OAuthBegin struct {
	RedirectURL    string
	StateCookie    *http.Cookie
	VerifierCookie *http.Cookie
}
