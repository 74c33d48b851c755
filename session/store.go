package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/room4-2/serviceswarm/config"
	"github.com/room4-2/serviceswarm/logger"
)

// ErrNotFound is returned when no live session exists for a call
var ErrNotFound = errors.New("session not found")

// Store holds sessions for in-progress calls. Implementations expire a
// session after it has not been written for the configured timeout.
type Store interface {
	Get(ctx context.Context, callID string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, callID string) error
	// SweepExpired reclaims expired sessions and returns how many it removed
	SweepExpired(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// NewStore builds the backend selected by cfg. If Redis is selected but
// unreachable the in-process store is used instead.
func NewStore(cfg *config.Config) Store {
	if cfg.SessionBackend != "redis" {
		return NewMemoryStore(cfg.SessionTimeout)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unavailable, using in-memory sessions",
			zap.String("addr", cfg.RedisURL),
			zap.Error(err),
		)
		_ = client.Close()
		return NewMemoryStore(cfg.SessionTimeout)
	}

	return NewRedisStore(client, cfg.SessionTimeout)
}
