package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/nutricare/internal/domain"
)

const scanBatchSize = 200

// Store implements domain.KVStore over a Redis client. The client is a
// stateless network handle and safe for concurrent use; connectivity
// failures are classified as domain.ErrTransientStore so callers can choose
// between failing open and closed.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

// NewStore creates a Redis-backed key-value store.
func NewStore(client *redis.Client, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		logger: logger.With("component", "redis_store"),
	}
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return classify(err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, classify(fmt.Errorf("GET %s: %w", key, err))
	}
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return classify(fmt.Errorf("SET %s: %w", key, err))
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return classify(fmt.Errorf("DEL: %w", err))
	}
	return nil
}

// DeletePattern scans for keys matching a glob pattern and deletes them in
// batches. SCAN is used instead of KEYS so eviction never blocks the server.
func (s *Store) DeletePattern(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return deleted, classify(fmt.Errorf("SCAN %s: %w", pattern, err))
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, classify(fmt.Errorf("DEL after SCAN: %w", err))
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// IncrWithTTL increments key and starts its expiry window atomically via a
// transactional pipeline. The TTL is only applied when the key has none, so
// the window is anchored to the first request in it.
func (s *Store) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, ttl)
	remaining := pipe.TTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, classify(fmt.Errorf("INCR %s: %w", key, err))
	}

	return incr.Val(), remaining.Val(), nil
}

// classify wraps connectivity failures as domain.ErrTransientStore; other
// errors pass through unchanged.
func classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, redis.ErrClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTransientStore, err)
	}
	return err
}
