package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/room4-2/serviceswarm/logger"
)

// callLock serializes turns of one call. refs counts holders and waiters so
// the entry can be dropped once nobody needs it.
type callLock struct {
	mu   sync.Mutex
	refs int
}

// Manager fronts a Store with per-call locking and periodic cleanup
type Manager struct {
	store         Store
	sweepInterval time.Duration

	mu    sync.Mutex
	locks map[string]*callLock
}

// NewManager creates a session manager over store
func NewManager(store Store, sweepInterval time.Duration) *Manager {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &Manager{
		store:         store,
		sweepInterval: sweepInterval,
		locks:         make(map[string]*callLock),
	}
}

// Lock blocks until the caller owns callID and returns the release func.
// Every load-modify-save of a session must happen under this lock.
func (sm *Manager) Lock(callID string) func() {
	sm.mu.Lock()
	l, ok := sm.locks[callID]
	if !ok {
		l = &callLock{}
		sm.locks[callID] = l
	}
	l.refs++
	sm.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		sm.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(sm.locks, callID)
		}
		sm.mu.Unlock()
	}
}

// GetSession retrieves a session by call id
func (sm *Manager) GetSession(ctx context.Context, callID string) (*Session, error) {
	return sm.store.Get(ctx, callID)
}

// SaveSession writes s back to the store
func (sm *Manager) SaveSession(ctx context.Context, s *Session) error {
	return sm.store.Put(ctx, s)
}

// RemoveSession deletes the session for callID
func (sm *Manager) RemoveSession(ctx context.Context, callID string) error {
	return sm.store.Delete(ctx, callID)
}

// GetActiveSessionCount returns current session count
func (sm *Manager) GetActiveSessionCount(ctx context.Context) int {
	n, err := sm.store.Count(ctx)
	if err != nil {
		logger.Warn("Failed to count sessions", zap.Error(err))
		return 0
	}
	return n
}

// CleanupInactiveSessions removes sessions that have been inactive
func (sm *Manager) CleanupInactiveSessions(ctx context.Context) int {
	removed, err := sm.store.SweepExpired(ctx)
	if err != nil {
		logger.Error("Session sweep failed", zap.Error(err))
	}
	if removed > 0 {
		logger.Info("Reclaimed inactive sessions", zap.Int("count", removed))
	}
	return removed
}

// StartCleanupRoutine starts periodic cleanup of inactive sessions
func (sm *Manager) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(sm.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.CleanupInactiveSessions(ctx)
		}
	}
}

// Shutdown releases the store
func (sm *Manager) Shutdown() {
	if err := sm.store.Close(); err != nil {
		logger.Warn("Session store close failed", zap.Error(err))
	}
}
