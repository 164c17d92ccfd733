package correlation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/openbridge/relay/internal/core/domain"
	"github.com/openbridge/relay/internal/metrics"
)

// DefaultTTL bounds how long an unanswered correlation may live.
const DefaultTTL = time.Hour

// keyPrefix namespaces correlation keys so request ids cannot collide
// with unrelated data in a shared Redis.
const keyPrefix = "relay:pending:"

// ErrInvalidRequestID is returned when a request id fails the format
// check. It is distinct from storage errors so callers can tell caller
// misuse from storage failure.
var ErrInvalidRequestID = errors.New("invalid request id")

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// Store persists pending correlations in Redis with a TTL.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore connects to Redis and verifies the connection.
func NewStore(cfg RedisConfig, ttl time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewStoreFromClient(rdb, ttl), nil
}

// NewStoreFromClient creates a store from an existing client.
func NewStoreFromClient(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping reports whether the backing store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func key(requestID string) string {
	return keyPrefix + requestID
}

// validateRequestID rejects anything that is not a UUID before it can
// reach the store's key namespace.
func validateRequestID(requestID string) error {
	if _, err := uuid.Parse(requestID); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidRequestID, requestID)
	}
	return nil
}

// Save writes a pending correlation under its request id. A ttl <= 0
// uses the store's default.
func (s *Store) Save(ctx context.Context, pc domain.PendingCorrelation, ttl time.Duration) error {
	if err := validateRequestID(pc.RequestID); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	data, err := json.Marshal(pc)
	if err != nil {
		return fmt.Errorf("failed to marshal correlation: %w", err)
	}
	if err := s.rdb.Set(ctx, key(pc.RequestID), data, ttl).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}

	metrics.CorrelationsSavedTotal.Inc()
	return nil
}

// Load returns the pending correlation for requestID, or nil when the
// key is absent or expired. Absence is the expected case for late,
// duplicate or forged callbacks and is never an error.
func (s *Store) Load(ctx context.Context, requestID string) (*domain.PendingCorrelation, error) {
	if err := validateRequestID(requestID); err != nil {
		return nil, err
	}

	data, err := s.rdb.Get(ctx, key(requestID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}

	return decode(data)
}

// Take atomically reads and deletes the correlation. A second caller
// racing on the same request id observes nil.
func (s *Store) Take(ctx context.Context, requestID string) (*domain.PendingCorrelation, error) {
	if err := validateRequestID(requestID); err != nil {
		return nil, err
	}

	data, err := s.rdb.GetDel(ctx, key(requestID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getdel failed: %w", err)
	}

	return decode(data)
}

// Delete removes the correlation. Deleting an absent key succeeds.
func (s *Store) Delete(ctx context.Context, requestID string) error {
	if err := validateRequestID(requestID); err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, key(requestID)).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}

func decode(data []byte) (*domain.PendingCorrelation, error) {
	var pc domain.PendingCorrelation
	if err := json.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal correlation: %w", err)
	}
	return &pc, nil
}
