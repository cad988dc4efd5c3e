package ingestion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupStore remembers idempotency keys so replayed webhooks are dropped
// before they reach the engine. MarkSeen returns true exactly once per
// (tenant, key) within the retention window.
type DedupStore interface {
	MarkSeen(ctx context.Context, tenantID, idempotencyKey string) (bool, error)
}

// RedisDedupStore is the production store, using SET NX with a TTL so keys
// age out on their own.
type RedisDedupStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDedupStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisDedupStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	return &RedisDedupStore{client: client, ttl: ttl}, nil
}

func (s *RedisDedupStore) MarkSeen(ctx context.Context, tenantID, idempotencyKey string) (bool, error) {
	key := "leadflow:dedup:" + tenantID + ":" + idempotencyKey

	fresh, err := s.client.SetNX(ctx, key, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}

	return fresh, nil
}

func (s *RedisDedupStore) Close() error {
	return s.client.Close()
}

// MemoryDedupStore backs tests and single-process development setups.
type MemoryDedupStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func NewMemoryDedupStore() *MemoryDedupStore {
	return &MemoryDedupStore{seen: make(map[string]bool)}
}

func (s *MemoryDedupStore) MarkSeen(_ context.Context, tenantID, idempotencyKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tenantID + ":" + idempotencyKey
	if s.seen[key] {
		return false, nil
	}

	s.seen[key] = true

	return true, nil
}
