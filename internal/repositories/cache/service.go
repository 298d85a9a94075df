package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"walletcore/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	transactionKeyPrefix = "tx:ref:"
	referenceSeenPrefix  = "tx:seen:"
)

// Service caches only immutable data: completed ledger entries and
// already-used reference ids. Balances are never cached here; every
// balance read goes to the database for the canonical value.
type Service struct {
	client *redis.Client
	ttl    time.Duration
}

func NewService(client *redis.Client, ttl time.Duration) *Service {
	return &Service{client: client, ttl: ttl}
}

// GetTransaction returns a cached completed transaction, or nil on miss.
func (s *Service) GetTransaction(ctx context.Context, referenceID string) (*models.Transaction, error) {
	val, err := s.client.Get(ctx, transactionKeyPrefix+referenceID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache read failed: %w", err)
	}
	var tx models.Transaction
	if err := json.Unmarshal([]byte(val), &tx); err != nil {
		return nil, fmt.Errorf("cache decode failed: %w", err)
	}
	return &tx, nil
}

// SetTransaction stores a completed transaction. Entries in terminal
// states never change, so a stale read is impossible.
func (s *Service) SetTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx == nil || tx.Status == models.StatusPending {
		return nil
	}
	data, err := json.Marshal(tx)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, transactionKeyPrefix+tx.ReferenceID, data, s.ttl).Err()
}

// ReferenceSeen is the fast-path duplicate check. A miss proves nothing;
// the database unique constraint remains the real guarantee.
func (s *Service) ReferenceSeen(ctx context.Context, referenceID string) (bool, error) {
	n, err := s.client.Exists(ctx, referenceSeenPrefix+referenceID).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists check failed: %w", err)
	}
	return n > 0, nil
}

func (s *Service) MarkReference(ctx context.Context, referenceID string) error {
	return s.client.Set(ctx, referenceSeenPrefix+referenceID, 1, s.ttl).Err()
}

func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

func (s *Service) Close() error {
	return s.client.Close()
}
