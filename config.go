package authkit

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config tunes every Engine component. Zero values are filled from
// defaultConfig by the Builder; only the two key fields are mandatory.
type Config struct {
	Session      SessionConfig
	Verification VerificationConfig
	TOTP         TOTPConfig
	RateLimit    RateLimitConfig
	Cookie       CookieConfig

	// EncryptionKey is the process-wide 32-byte symmetric key protecting
	// TOTP secrets and recovery codes at rest. Initialized once at process
	// start from an external secret; never persisted.
	EncryptionKey []byte
}

// SessionConfig tunes session lifetime.
type SessionConfig struct {
	Expiry        time.Duration
	RefreshWindow time.Duration
}

// VerificationConfig tunes one-time code issuance.
type VerificationConfig struct {
	Digits      int
	TTL         time.Duration
	MaxAttempts int
}

// TOTPConfig tunes the two-factor engine.
type TOTPConfig struct {
	Issuer    string
	Period    int
	Digits    int
	Algorithm string // "SHA1" (default), "SHA256", "SHA512"
	// Skew is the number of adjacent periods accepted around the current
	// window. 0 accepts the current window only.
	Skew int
}

// LimitConfig is one token bucket namespace's budget.
type LimitConfig struct {
	Max            int
	RefillInterval time.Duration
}

// RateLimitConfig carries the bucket budgets for each guarded entry point.
type RateLimitConfig struct {
	OTPRequest LimitConfig
	OTPLogin   LimitConfig
	OAuth      LimitConfig
	TwoFactor  LimitConfig
}

// CookieConfig tunes the signed-cookie transport.
type CookieConfig struct {
	// SigningKey signs ephemeral state cookies (OAuth state, PKCE verifier,
	// redirect target). Independent from EncryptionKey.
	SigningKey []byte
	// Secure marks cookies Secure; enable outside local development.
	Secure bool
	Domain string
	// StateTTL bounds the life of OAuth state and redirect cookies.
	StateTTL time.Duration
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			Expiry:        30 * 24 * time.Hour,
			RefreshWindow: 15 * 24 * time.Hour,
		},
		Verification: VerificationConfig{
			Digits:      6,
			TTL:         10 * time.Minute,
			MaxAttempts: 5,
		},
		TOTP: TOTPConfig{
			Issuer:    "authkit",
			Period:    30,
			Digits:    6,
			Algorithm: "SHA1",
			Skew:      0,
		},
		RateLimit: RateLimitConfig{
			OTPRequest: LimitConfig{Max: 5, RefillInterval: time.Minute},
			OTPLogin:   LimitConfig{Max: 5, RefillInterval: time.Minute},
			OAuth:      LimitConfig{Max: 10, RefillInterval: time.Minute},
			TwoFactor:  LimitConfig{Max: 5, RefillInterval: time.Minute},
		},
		Cookie: CookieConfig{
			Secure:   true,
			StateTTL: 10 * time.Minute,
		},
	}
}

func validateConfig(cfg *Config) error {
	if len(cfg.EncryptionKey) != 32 {
		return errors.New("config: encryption key must be 32 bytes")
	}
	if len(cfg.Cookie.SigningKey) < 32 {
		return errors.New("config: cookie signing key must be at least 32 bytes")
	}
	if cfg.Session.RefreshWindow >= cfg.Session.Expiry {
		return errors.New("config: refresh window must be shorter than session expiry")
	}
	if cfg.Verification.Digits < 4 || cfg.Verification.Digits > 10 {
		return errors.New("config: verification digits out of range")
	}
	for _, l := range []LimitConfig{
		cfg.RateLimit.OTPRequest, cfg.RateLimit.OTPLogin, cfg.RateLimit.OAuth, cfg.RateLimit.TwoFactor,
	} {
		if l.Max < 1 || l.RefillInterval < time.Second {
			return errors.New("config: rate limit budgets must be positive with second-granular intervals")
		}
	}
	return nil
}

type envConfig struct {
	EncryptionKey    string        `env:"AUTHKIT_ENCRYPTION_KEY,required"`
	CookieSigningKey string        `env:"AUTHKIT_COOKIE_SIGNING_KEY,required"`
	CookieSecure     bool          `env:"AUTHKIT_COOKIE_SECURE" envDefault:"true"`
	CookieDomain     string        `env:"AUTHKIT_COOKIE_DOMAIN"`
	SessionExpiry    time.Duration `env:"AUTHKIT_SESSION_EXPIRY" envDefault:"720h"`
	RefreshWindow    time.Duration `env:"AUTHKIT_SESSION_REFRESH_WINDOW" envDefault:"360h"`
	VerificationTTL  time.Duration `env:"AUTHKIT_VERIFICATION_TTL" envDefault:"10m"`
	TOTPIssuer       string        `env:"AUTHKIT_TOTP_ISSUER" envDefault:"authkit"`
}

// ConfigFromEnv builds a Config from AUTHKIT_* environment variables on top
// of the defaults. Keys are base64 encoded in the environment.
func ConfigFromEnv() (Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := defaultConfig()
	cfg.Session.Expiry = raw.SessionExpiry
	cfg.Session.RefreshWindow = raw.RefreshWindow
	cfg.Verification.TTL = raw.VerificationTTL
	cfg.TOTP.Issuer = raw.TOTPIssuer
	cfg.Cookie.Secure = raw.CookieSecure
	cfg.Cookie.Domain = raw.CookieDomain

	key, err := base64.StdEncoding.DecodeString(raw.EncryptionKey)
	if err != nil {
		return Config{}, fmt.Errorf("config: decode encryption key: %w", err)
	}
	cfg.EncryptionKey = key

	signingKey, err := base64.StdEncoding.DecodeString(raw.CookieSigningKey)
	if err != nil {
		return Config{}, fmt.Errorf("config: decode cookie signing key: %w", err)
	}
	cfg.Cookie.SigningKey = signingKey

	return cfg, validateConfig(&cfg)
}
