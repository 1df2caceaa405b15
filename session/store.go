package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/voralis/authkit/internal"
)

// ErrRedisUnavailable wraps transport failures talking to the cache.
var ErrRedisUnavailable = errors.New("session redis unavailable")

// Config holds session lifetime tuning.
type Config struct {
	// Expiry is the lifetime granted at creation and at each sliding renewal.
	Expiry time.Duration
	// RefreshWindow is the trailing window before expiry inside which a
	// validated session is proactively renewed.
	RefreshWindow time.Duration
}

// Store issues, validates, refreshes, and invalidates sessions.
type Store struct {
	redis  redis.UniversalClient
	config Config
	logger zerolog.Logger

	now func() time.Time
}

// NewStore creates a session [Store] backed by the given Redis client.
func NewStore(redisClient redis.UniversalClient, cfg Config, logger zerolog.Logger) *Store {
	return &Store{
		redis:  redisClient,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Store) key(id string) string {
	return "session:" + id
}

// Create issues a session for the user, keyed by the one-way hash of the raw
// token. The record TTL matches the absolute expiry so the cache garbage
// collects lapsed sessions on its own.
func (s *Store) Create(ctx context.Context, rawToken, userID string) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:                internal.HashToken(rawToken),
		UserID:            userID,
		TwoFactorVerified: false,
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.config.Expiry),
	}
	if err := s.write(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ValidateToken resolves a raw token to its live session. Unknown tokens
// return nil; expired sessions are deleted and return nil; sessions inside
// the refresh window are renewed to a full expiry before being returned.
func (s *Store) ValidateToken(ctx context.Context, rawToken string) (*Session, error) {
	return s.validate(ctx, internal.HashToken(rawToken))
}

// Get resolves a session by its id without renewal.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil || sess == nil {
		return nil, err
	}
	if !s.now().Before(sess.ExpiresAt) {
		s.Invalidate(ctx, id)
		return nil, nil
	}
	return sess, nil
}

// SetTwoFactorVerified flips the session's two-factor flag, preserving the
// original expiry and TTL. Returns nil when the session is absent or expired.
func (s *Store) SetTwoFactorVerified(ctx context.Context, id string, verified bool) (*Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil || sess == nil {
		return nil, err
	}

	sess.TwoFactorVerified = verified
	if err := s.write(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Invalidate unconditionally deletes a session. Deletes are best-effort; a
// cache failure is logged, not returned.
func (s *Store) Invalidate(ctx context.Context, id string) {
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		s.logger.Warn().Str("session_id", id).Err(err).Msg("session delete failed")
	}
}

func (s *Store) validate(ctx context.Context, id string) (*Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil || sess == nil {
		return nil, err
	}

	now := s.now()
	if !now.Before(sess.ExpiresAt) {
		s.Invalidate(ctx, id)
		return nil, nil
	}

	if !now.Before(sess.ExpiresAt.Add(-s.config.RefreshWindow)) {
		sess.ExpiresAt = now.Add(s.config.Expiry)
		if err := s.write(ctx, sess); err != nil {
			return nil, err
		}
	}

	return sess, nil
}

func (s *Store) load(ctx context.Context, id string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		s.logger.Warn().Str("session_id", id).Err(err).Msg("discarding corrupt session record")
		s.Invalidate(ctx, id)
		return nil, nil
	}
	return sess, nil
}

func (s *Store) write(ctx context.Context, sess *Session) error {
	encoded, err := Encode(sess)
	if err != nil {
		return err
	}

	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.redis.Set(ctx, s.key(sess.ID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
