package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists the snapshot under a single Redis key. It suits
// clients that run on ephemeral hosts but share a Redis instance.
type RedisStore struct {
	redis redis.UniversalClient
	key   string
	ttl   time.Duration
}

// NewRedisStore builds a store keyed by prefix and clientID, e.g.
// "acs:kiosk-7". A ttl of zero keeps the record until cleared.
//
//	Performance: 1 Redis command per operation.
func NewRedisStore(client redis.UniversalClient, prefix, clientID string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "acs"
	}
	if clientID == "" {
		clientID = "default"
	}
	return &RedisStore{
		redis: client,
		key:   prefix + ":" + clientID,
		ttl:   ttl,
	}
}

// Key returns the Redis key holding the snapshot.
func (s *RedisStore) Key() string {
	return s.key
}

func (s *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	data, err := s.redis.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	snap, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *RedisStore) Save(ctx context.Context, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
