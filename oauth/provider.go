package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/voralis/authkit/user"
)

// ErrProfileFetch wraps userinfo endpoint failures.
var ErrProfileFetch = errors.New("profile fetch failed")

// Profile is the normalized identity a provider asserts after a successful
// code exchange.
type Profile struct {
	ID            string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
	// VanityName is LinkedIn-specific; empty elsewhere.
	VanityName string
}

// Provider is one external identity provider.
type Provider interface {
	// Name identifies the provider for federated-id storage and cookie scoping.
	Name() user.Provider
	// AuthCodeURL builds the authorization redirect for the given state and
	// PKCE verifier.
	AuthCodeURL(state, verifier string) string
	// Exchange redeems an authorization code for an access token.
	Exchange(ctx context.Context, code, verifier string) (string, error)
	// FetchProfile resolves an access token to the provider's profile.
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}

// GenerateVerifier returns a fresh PKCE code verifier.
func GenerateVerifier() string {
	return oauth2.GenerateVerifier()
}

// Endpoints holds the provider URLs. Overridable for tests.
type Endpoints struct {
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

func fetchJSON(ctx context.Context, client *http.Client, rawURL, accessToken string, out any) error {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrProfileFetch, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}
	return nil
}
