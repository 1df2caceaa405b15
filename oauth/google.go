package oauth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/voralis/authkit/user"
)

var googleEndpoints = Endpoints{
	AuthURL:     "https://accounts.google.com/o/oauth2/v2/auth",
	TokenURL:    "https://oauth2.googleapis.com/token",
	UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
}

// Google authenticates against Google with PKCE.
type Google struct {
	oauth     *oauth2.Config
	endpoints Endpoints
	client    *http.Client
}

// NewGoogle builds a Google provider. redirectURL is the registered callback.
func NewGoogle(clientID, clientSecret, redirectURL string) *Google {
	return newGoogleWith(clientID, clientSecret, redirectURL, googleEndpoints, nil)
}

func newGoogleWith(clientID, clientSecret, redirectURL string, endpoints Endpoints, client *http.Client) *Google {
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  endpoints.AuthURL,
				TokenURL: endpoints.TokenURL,
			},
		},
		endpoints: endpoints,
		client:    client,
	}
}

// Name implements [Provider].
func (g *Google) Name() user.Provider {
	return user.ProviderGoogle
}

// AuthCodeURL implements [Provider].
func (g *Google) AuthCodeURL(state, verifier string) string {
	return g.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange implements [Provider].
func (g *Google) Exchange(ctx context.Context, code, verifier string) (string, error) {
	if g.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)
	}
	token, err := g.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

type googleUserinfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// FetchProfile implements [Provider].
func (g *Google) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var info googleUserinfo
	if err := fetchJSON(ctx, g.client, g.endpoints.UserInfoURL, accessToken, &info); err != nil {
		return nil, err
	}
	return &Profile{
		ID:            info.ID,
		Email:         info.Email,
		EmailVerified: info.VerifiedEmail,
		Name:          info.Name,
		Picture:       info.Picture,
	}, nil
}
