package rate

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidCost is returned when cost is non-positive or exceeds the bucket maximum.
	ErrInvalidCost = errors.New("invalid rate limit cost")
	// ErrRedisUnavailable wraps transport failures talking to the cache.
	ErrRedisUnavailable = errors.New("rate limit redis unavailable")
)

const bucketRecordVersionV1 = 1

// Config holds token bucket tuning parameters for one namespace.
type Config struct {
	Max            int
	RefillInterval time.Duration
}

type bucketState struct {
	Count      int32
	RefilledAt int64
}

// Limiter is a token bucket keyed by (namespace, subject). One Limiter guards
// one namespace; subjects are typically "ip:<addr>" or "id:<identifier>".
type Limiter struct {
	redis     redis.UniversalClient
	namespace string
	config    Config
	logger    zerolog.Logger

	now func() time.Time
}

// New creates a token bucket [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, namespace string, cfg Config, logger zerolog.Logger) *Limiter {
	return &Limiter{
		redis:     redisClient,
		namespace: namespace,
		config:    cfg,
		logger:    logger,
		now:       time.Now,
	}
}

func (l *Limiter) key(subject string) string {
	return "ratelimit:" + l.namespace + ":" + subject
}

func (l *Limiter) intervalSeconds() int64 {
	return int64(l.config.RefillInterval / time.Second)
}

// Consume attempts to debit cost tokens from the subject's bucket. It returns
// whether the debit was allowed and, when it was not, how long until one
// token refills. A rejected consume does not write to the cache.
func (l *Limiter) Consume(ctx context.Context, subject string, cost int) (bool, time.Duration, error) {
	if cost <= 0 || cost > l.config.Max {
		return false, 0, fmt.Errorf("%w: %d (max %d)", ErrInvalidCost, cost, l.config.Max)
	}

	key := l.key(subject)
	now := l.now().Unix()

	state, err := l.load(ctx, key)
	if err != nil {
		return false, 0, err
	}

	if state == nil {
		// No bucket yet: treat as full bucket minus cost.
		fresh := &bucketState{Count: int32(l.config.Max - cost), RefilledAt: now}
		if err := l.store(ctx, key, fresh); err != nil {
			return false, 0, err
		}
		return true, 0, nil
	}

	refill := (now - state.RefilledAt) / l.intervalSeconds()
	newCount := int64(state.Count) + refill
	if newCount > int64(l.config.Max) {
		newCount = int64(l.config.Max)
	}

	if newCount < int64(cost) {
		elapsed := (now - state.RefilledAt) % l.intervalSeconds()
		retryAfter := time.Duration(l.intervalSeconds()-elapsed) * time.Second
		return false, retryAfter, nil
	}

	updated := &bucketState{Count: int32(newCount - int64(cost)), RefilledAt: now}
	if err := l.store(ctx, key, updated); err != nil {
		return false, 0, err
	}
	return true, 0, nil
}

// Remaining projects the refilled token count for a subject without mutating
// stored state. Missing buckets report the full maximum.
func (l *Limiter) Remaining(ctx context.Context, subject string) (int, error) {
	state, err := l.load(ctx, l.key(subject))
	if err != nil {
		return 0, err
	}
	if state == nil {
		return l.config.Max, nil
	}

	refill := (l.now().Unix() - state.RefilledAt) / l.intervalSeconds()
	count := int64(state.Count) + refill
	if count > int64(l.config.Max) {
		count = int64(l.config.Max)
	}
	return int(count), nil
}

func (l *Limiter) load(ctx context.Context, key string) (*bucketState, error) {
	data, err := l.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	state, err := decodeBucketState(data)
	if err != nil {
		// Corrupt bucket: log and treat as absent rather than locking the
		// subject out.
		l.logger.Warn().Str("key", key).Err(err).Msg("discarding corrupt rate limit bucket")
		return nil, nil
	}
	return state, nil
}

// store persists the bucket with a TTL that expires the key once the bucket
// would be fully refilled and idle. The SET and its TTL are issued in one
// transactional pipeline so they cannot be split by a concurrent write.
func (l *Limiter) store(ctx context.Context, key string, state *bucketState) error {
	encoded, err := encodeBucketState(state)
	if err != nil {
		return err
	}

	ttl := time.Duration(int64(l.config.Max)-int64(state.Count)) * l.config.RefillInterval
	if ttl <= 0 {
		ttl = l.config.RefillInterval
	}

	_, err = l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, encoded, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func encodeBucketState(state *bucketState) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(bucketRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, state.Count); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, state.RefilledAt); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeBucketState(data []byte) (*bucketState, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != bucketRecordVersionV1 {
		return nil, errors.New("invalid bucket record version")
	}

	state := &bucketState{}
	if err := binary.Read(reader, binary.BigEndian, &state.Count); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &state.RefilledAt); err != nil {
		return nil, err
	}
	return state, nil
}
