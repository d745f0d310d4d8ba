package drivers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/creastat/onboarding/session"
)

const (
	// Default TTL for session keys (30 days)
	defaultTTL = 30 * 24 * time.Hour
	// Keys deleted per SCAN page during Wipe
	scanCount = 100
)

// RedisStore implements session.Store using Redis. Each record is one JSON
// value under "<namespace>:session:<userId>"; the owner sentinel lives under
// "<namespace>:owner".
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	keys   session.Keys
}

// NewRedisStore creates a new Redis-based session store.
func NewRedisStore(client *redis.Client, namespace string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		keys:   session.Keys{Namespace: namespace},
	}
}

// Owner implements session.Store.
func (s *RedisStore) Owner(ctx context.Context) (string, error) {
	owner, err := s.client.Get(ctx, s.keys.Owner()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get owner: %w", err)
	}
	return owner, nil
}

// Claim implements session.Store.
func (s *RedisStore) Claim(ctx context.Context, userID string) error {
	if err := s.client.Set(ctx, s.keys.Owner(), userID, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set owner: %w", err)
	}
	return nil
}

// Load implements session.Store.
// Returns nil if the record is not found (not an error).
// Refreshes TTL on every read.
func (s *RedisStore) Load(ctx context.Context, userID string) (*session.Record, error) {
	key := s.keys.Session(userID)
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var rec session.Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	// A failed refresh only shortens the record's life.
	_ = s.client.Expire(ctx, key, s.ttl).Err()

	return &rec, nil
}

// Save implements session.Store.
// Uses WATCH/MULTI/EXEC so Revision and CreatedAt are derived from the value
// being replaced.
func (s *RedisStore) Save(ctx context.Context, rec *session.Record) error {
	key := s.keys.Session(rec.UserID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		now := time.Now()
		rec.CreatedAt = now
		rec.Revision = 1

		val, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var stored session.Record
			if err := json.Unmarshal(val, &stored); err == nil {
				rec.CreatedAt = stored.CreatedAt
				rec.Revision = stored.Revision + 1
			}
		}
		rec.UpdatedAt = now

		newVal, err := json.Marshal(rec)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newVal, s.ttl)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete implements session.Store.
func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.keys.Session(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Wipe implements session.Store.
func (s *RedisStore) Wipe(ctx context.Context) error {
	keys := []string{s.keys.Owner()}
	iter := s.client.Scan(ctx, 0, s.keys.SessionPrefix()+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan sessions: %w", err)
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to wipe sessions: %w", err)
	}
	return nil
}

// Close implements session.Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ session.Store = (*RedisStore)(nil)
