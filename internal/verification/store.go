package verification

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/voralis/authkit/internal"
)

const codeRecordVersionV1 = 1

// ErrRedisUnavailable wraps transport failures talking to the cache. Reads
// degrade to "not found" before this surfaces; only writes propagate it.
var ErrRedisUnavailable = errors.New("verification redis unavailable")

// Code is a live one-time code for a normalized identifier.
type Code struct {
	Code       string
	Identifier string
	ExpiresAt  time.Time
	Attempts   uint16
}

// Config holds code issuance parameters.
type Config struct {
	Digits      int
	TTL         time.Duration
	MaxAttempts int
}

// Store issues and validates single-use codes, one per identifier.
type Store struct {
	redis  redis.UniversalClient
	config Config
	logger zerolog.Logger

	now func() time.Time
}

// NewStore creates a verification code [Store] backed by the given Redis client.
func NewStore(redisClient redis.UniversalClient, cfg Config, logger zerolog.Logger) *Store {
	return &Store{
		redis:  redisClient,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Store) key(identifier string) string {
	return "verification:" + identifier
}

// Request invalidates any existing code for the identifier and issues a
// fresh one with the configured TTL.
func (s *Store) Request(ctx context.Context, identifier string) (*Code, error) {
	s.Invalidate(ctx, identifier)

	value, err := internal.NewNumericCode(s.config.Digits)
	if err != nil {
		return nil, err
	}

	code := &Code{
		Code:       value,
		Identifier: identifier,
		ExpiresAt:  s.now().Add(s.config.TTL),
	}

	encoded, err := encodeCode(code)
	if err != nil {
		return nil, err
	}
	if err := s.redis.Set(ctx, s.key(identifier), encoded, s.config.TTL).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return code, nil
}

// Validate checks a submitted code. It returns the consumed record on the
// first successful match and nil otherwise. A mismatch burns one attempt but
// keeps the stored code; exhausting the attempt budget deletes it.
func (s *Store) Validate(ctx context.Context, identifier, submitted string) (*Code, error) {
	key := s.key(identifier)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// Fail-open for reads: a cache outage behaves as a miss.
			s.logger.Warn().Str("identifier", identifier).Err(err).Msg("verification read degraded to miss")
		}
		return nil, nil
	}

	code, err := decodeCode(data)
	if err != nil {
		s.logger.Warn().Str("identifier", identifier).Err(err).Msg("discarding corrupt verification record")
		s.Invalidate(ctx, identifier)
		return nil, nil
	}

	if !s.now().Before(code.ExpiresAt) {
		s.Invalidate(ctx, identifier)
		return nil, nil
	}

	if subtle.ConstantTimeCompare([]byte(code.Code), []byte(submitted)) != 1 {
		code.Attempts++
		if int(code.Attempts) >= s.config.MaxAttempts {
			s.Invalidate(ctx, identifier)
			return nil, nil
		}
		ttl := code.ExpiresAt.Sub(s.now())
		if encoded, encErr := encodeCode(code); encErr == nil {
			if err := s.redis.Set(ctx, key, encoded, ttl).Err(); err != nil {
				s.logger.Warn().Str("identifier", identifier).Err(err).Msg("verification attempt counter write failed")
			}
		}
		return nil, nil
	}

	// Single-use: consume on first match.
	s.Invalidate(ctx, identifier)
	return code, nil
}

// Invalidate unconditionally deletes the identifier's code. Deletes are
// best-effort; a cache failure is logged, not returned.
func (s *Store) Invalidate(ctx context.Context, identifier string) {
	if err := s.redis.Del(ctx, s.key(identifier)).Err(); err != nil {
		s.logger.Warn().Str("identifier", identifier).Err(err).Msg("verification delete failed")
	}
}

func encodeCode(code *Code) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(codeRecordVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, code.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, code.ExpiresAt.Unix()); err != nil {
		return nil, err
	}

	if len(code.Code) > 255 {
		return nil, errors.New("verification code too long")
	}
	buf.WriteByte(byte(len(code.Code)))
	buf.WriteString(code.Code)

	if len(code.Identifier) > 65535 {
		return nil, errors.New("verification identifier too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(code.Identifier))); err != nil {
		return nil, err
	}
	buf.WriteString(code.Identifier)

	return buf.Bytes(), nil
}

func decodeCode(data []byte) (*Code, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != codeRecordVersionV1 {
		return nil, errors.New("invalid verification record version")
	}

	code := &Code{}
	if err := binary.Read(reader, binary.BigEndian, &code.Attempts); err != nil {
		return nil, err
	}

	var expiresAt int64
	if err := binary.Read(reader, binary.BigEndian, &expiresAt); err != nil {
		return nil, err
	}
	code.ExpiresAt = time.Unix(expiresAt, 0)

	codeLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	value := make([]byte, codeLen)
	if _, err := io.ReadFull(reader, value); err != nil {
		return nil, err
	}
	code.Code = string(value)

	var identifierLen uint16
	if err := binary.Read(reader, binary.BigEndian, &identifierLen); err != nil {
		return nil, err
	}
	identifier := make([]byte, identifierLen)
	if _, err := io.ReadFull(reader, identifier); err != nil {
		return nil, err
	}
	code.Identifier = string(identifier)

	return code, nil
}
