package authkit

import (
	"errors"

	"github.com/redis/go-redis/v9"
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

// Builder assembles an [Engine]. Chain the With methods and finish with
// Build; the zero Builder from New carries the default configuration.
type Builder struct {
	config      Config
	redis       redis.UniversalClient
	users       user.Repository
	credentials user.CredentialRepository
	logger      zerolog.Logger
	providers   []oauth.Provider
	dispatcher  *notify.Dispatcher
}

// New starts a Builder with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig replaces the whole configuration. Call before other With
// methods that read it.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithEncryptionKey sets the 32-byte at-rest key without replacing the rest
// of the configuration.
func (b *Builder) WithEncryptionKey(key []byte) *Builder {
	b.config.EncryptionKey = key
	return b
}

// WithCookieSigningKey sets the state-cookie signing key without replacing
// the rest of the configuration.
func (b *Builder) WithCookieSigningKey(key []byte) *Builder {
	b.config.Cookie.SigningKey = key
	return b
}

// WithRedis sets the cache client backing sessions, codes, and rate limits.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUsers sets the relational user repository.
func (b *Builder) WithUsers(users user.Repository) *Builder {
	b.users = users
	return b
}

// WithCredentials sets the optional WebAuthn credential repository.
func (b *Builder) WithCredentials(credentials user.CredentialRepository) *Builder {
	b.credentials = credentials
	return b
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithProvider registers an OAuth provider. Call once per provider.
func (b *Builder) WithProvider(p oauth.Provider) *Builder {
	b.providers = append(b.providers, p)
	return b
}

// WithDispatcher sets the one-time-code delivery dispatcher.
func (b *Builder) WithDispatcher(d *notify.Dispatcher) *Builder {
	b.dispatcher = d
	return b
}

// Build validates the configuration, wires every component, and returns the
// ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if err := validateConfig(&b.config); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("authkit: redis client is required")
	}
	if b.users == nil {
		return nil, errors.New("authkit: user repository is required")
	}
	if b.dispatcher == nil {
		return nil, errors.New("authkit: notify dispatcher is required")
	}

	cipher, err := internal.NewCipher(b.config.EncryptionKey)
	if err != nil {
		return nil, err
	}

	providers := make(map[user.Provider]oauth.Provider, len(b.providers))
	for _, p := range b.providers {
		providers[p.Name()] = p
	}

	e := &Engine{
		config:      b.config,
		logger:      b.logger,
		users:       b.users,
		credentials: b.credentials,
		dispatcher:  b.dispatcher,
		providers:   providers,
		cipher:      cipher,
		totp:        newTOTPManager(b.config.TOTP),
		cookies:     newCookieManager(b.config.Cookie),
		sessions: session.NewStore(b.redis, session.Config{
			Expiry:        b.config.Session.Expiry,
			RefreshWindow: b.config.Session.RefreshWindow,
		}, b.logger),
		codes: verification.NewStore(b.redis, verification.Config{
			Digits:      b.config.Verification.Digits,
			TTL:         b.config.Verification.TTL,
			MaxAttempts: b.config.Verification.MaxAttempts,
		}, b.logger),
	}

	e.limits.otpRequest = rate.New(b.redis, "otp-request", bucket(b.config.RateLimit.OTPRequest), b.logger)
	e.limits.otpLogin = rate.New(b.redis, "otp-login", bucket(b.config.RateLimit.OTPLogin), b.logger)
	e.limits.oauth = rate.New(b.redis, "oauth", bucket(b.config.RateLimit.OAuth), b.logger)
	e.limits.twoFactor = rate.New(b.redis, "two-factor", bucket(b.config.RateLimit.TwoFactor), b.logger)

	e.resolver = identity.NewResolver(b.users, e.newEncryptedRecoveryCode, b.logger)

	return e, nil
}

func bucket(l LimitConfig) rate.Config {
	return rate.Config{Max: l.Max, RefillInterval: l.RefillInterval}
}
