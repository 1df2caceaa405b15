package oauth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/voralis/authkit/user"
)

var linkedinEndpoints = Endpoints{
	AuthURL:     "https://www.linkedin.com/oauth/v2/authorization",
	TokenURL:    "https://www.linkedin.com/oauth/v2/accessToken",
	UserInfoURL: "https://api.linkedin.com/v2/userinfo",
}

// Linkedin authenticates against LinkedIn. LinkedIn's OIDC flow does not
// support PKCE, so the verifier is accepted and ignored.
type Linkedin struct {
	oauth     *oauth2.Config
	endpoints Endpoints
	client    *http.Client
}

// NewLinkedin builds a LinkedIn provider. redirectURL is the registered callback.
func NewLinkedin(clientID, clientSecret, redirectURL string) *Linkedin {
	return newLinkedinWith(clientID, clientSecret, redirectURL, linkedinEndpoints, nil)
}

func newLinkedinWith(clientID, clientSecret, redirectURL string, endpoints Endpoints, client *http.Client) *Linkedin {
	return &Linkedin{
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
func (l *Linkedin) Name() user.Provider {
	return user.ProviderLinkedin
}

// AuthCodeURL implements [Provider].
func (l *Linkedin) AuthCodeURL(state, _ string) string {
	return l.oauth.AuthCodeURL(state)
}

// Exchange implements [Provider].
func (l *Linkedin) Exchange(ctx context.Context, code, _ string) (string, error) {
	if l.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, l.client)
	}
	token, err := l.oauth.Exchange(ctx, code)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

type linkedinUserinfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	VanityName    string `json:"vanityName"`
}

// FetchProfile implements [Provider].
func (l *Linkedin) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var info linkedinUserinfo
	if err := fetchJSON(ctx, l.client, l.endpoints.UserInfoURL, accessToken, &info); err != nil {
		return nil, err
	}
	return &Profile{
		ID:            info.Sub,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		Name:          info.Name,
		Picture:       info.Picture,
		VanityName:    info.VanityName,
	}, nil
}
