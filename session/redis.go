package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "session:"
	activeSetKey  = "active_sessions"
	sweepBatchMax = 500
)

// RedisStore keeps sessions in Redis so several engine instances can share
// calls. Expiry is delegated to key TTLs.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisStore wraps a connected client
func NewRedisStore(client *redis.Client, timeout time.Duration) *RedisStore {
	return &RedisStore{
		client:  client,
		timeout: timeout,
	}
}

func (r *RedisStore) Get(ctx context.Context, callID string) (*Session, error) {
	data, err := r.client.Get(ctx, keyPrefix+callID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var s Session
	if err := sonic.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", callID, err)
	}
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	data, err := sonic.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.CallID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, keyPrefix+s.CallID, data, r.timeout)
	pipe.SAdd(ctx, activeSetKey, s.CallID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, callID string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, keyPrefix+callID)
	pipe.SRem(ctx, activeSetKey, callID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// SweepExpired drops call ids whose session key has already expired from
// the active set
func (r *RedisStore) SweepExpired(ctx context.Context) (int, error) {
	removed := 0
	var cursor uint64
	for {
		ids, next, err := r.client.SScan(ctx, activeSetKey, cursor, "", sweepBatchMax).Result()
		if err != nil {
			return removed, fmt.Errorf("redis scan active sessions: %w", err)
		}

		for _, id := range ids {
			n, err := r.client.Exists(ctx, keyPrefix+id).Result()
			if err != nil {
				return removed, fmt.Errorf("redis exists: %w", err)
			}
			if n == 0 {
				if err := r.client.SRem(ctx, activeSetKey, id).Err(); err != nil {
					return removed, fmt.Errorf("redis srem: %w", err)
				}
				removed++
			}
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func (r *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := r.client.SCard(ctx, activeSetKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis count sessions: %w", err)
	}
	return int(n), nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
