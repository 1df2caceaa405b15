package authkit

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/voralis/authkit/internal"
	"github.com/voralis/authkit/internal/identity"
	"github.com/voralis/authkit/oauth"
	"github.com/voralis/authkit/user"
)

func (e *Engine) provider(name user.Provider) (oauth.Provider, error) {
	p, ok := e.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// BeginOAuth starts an authorization-code flow: it mints a state value and
// PKCE verifier, binds both to the browser as signed cookies, and returns
// the provider redirect URL. Rate limited per caller IP.
func (e *Engine) BeginOAuth(ctx context.Context, name user.Provider) (*OAuthBegin, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	p, err := e.provider(name)
	if err != nil {
		return nil, err
	}

	if err := e.consume(ctx, e.limits.oauth, limitSubject(ctx)); err != nil {
		return nil, err
	}

	state, err := internal.NewOAuthState()
	if err != nil {
		return nil, err
	}
	verifier := oauth.GenerateVerifier()

	stateCookie, err := e.cookies.StateCookie(name, state)
	if err != nil {
		return nil, err
	}
	verifierCookie, err := e.cookies.VerifierCookie(name, verifier)
	if err != nil {
		return nil, err
	}

	return &OAuthBegin{
		RedirectURL:    p.AuthCodeURL(state, verifier),
		StateCookie:    stateCookie,
		VerifierCookie: verifierCookie,
	}, nil
}

// OAuthCallback is the provider redirect back to us: the query parameters
// plus the raw values of the cookies BeginOAuth set.
type OAuthCallback struct {
	State string
	Code  string
	// StateCookie and VerifierCookie are the signed cookie values bound by
	// BeginOAuth.
	StateCookie    string
	VerifierCookie string
}

// CompleteOAuth finishes an authorization-code flow and signs the caller in.
// The callback state must match the cookie-bound value before any provider
// call is made. current carries the already-signed-in actor for the
// account-linking case, or nil.
func (e *Engine) CompleteOAuth(ctx context.Context, name user.Provider, cb OAuthCallback, current *Actor) (*AuthResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	p, err := e.provider(name)
	if err != nil {
		return nil, err
	}

	if err := e.consume(ctx, e.limits.oauth, limitSubject(ctx)); err != nil {
		return nil, err
	}

	if cb.State == "" || cb.Code == "" {
		return nil, fmt.Errorf("%w: missing state or code", ErrValidation)
	}

	boundState, err := e.cookies.ReadState(name, cb.StateCookie)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if subtle.ConstantTimeCompare([]byte(boundState), []byte(cb.State)) != 1 {
		return nil, ErrInvalidState
	}

	verifier, err := e.cookies.ReadVerifier(name, cb.VerifierCookie)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	accessToken, err := p.Exchange(ctx, cb.Code, verifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalProvider, err)
	}
	profile, err := p.FetchProfile(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalProvider, err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("%w: empty subject in profile", ErrExternalProvider)
	}

	resolved, created, err := e.resolve(ctx, assertionFromProfile(name, profile), actorUser(current))
	if err != nil {
		return nil, err
	}

	sess, token, err := e.issueSession(ctx, resolved.ID)
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("user_id", resolved.ID).
		Str("provider", string(name)).
		Bool("new_user", created).
		Msg("oauth sign-in completed")
	return &AuthResult{
		User:    resolved,
		Session: sess,
		Token:   token,
		NewUser: created,
		Method:  SignInMethod(name),
	}, nil
}

func assertionFromProfile(name user.Provider, profile *oauth.Profile) identity.Assertion {
	return identity.Assertion{
		Provider:           name,
		FederatedID:        profile.ID,
		Email:              profile.Email,
		EmailVerified:      profile.EmailVerified,
		Name:               profile.Name,
		AvatarURL:          profile.Picture,
		LinkedinVanityName: profile.VanityName,
	}
}
