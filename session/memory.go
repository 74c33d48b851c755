package session

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps sessions in process. Each Put restarts the session's
// expiry clock.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates a store whose sessions expire after timeout of
// inactivity. Expired entries are invisible to Get and are reclaimed by
// SweepExpired.
func NewMemoryStore(timeout time.Duration) *MemoryStore {
	return &MemoryStore{
		// No janitor: the Manager's cleanup routine drives SweepExpired
		cache: cache.New(timeout, 0),
	}
}

func (m *MemoryStore) Get(_ context.Context, callID string) (*Session, error) {
	v, ok := m.cache.Get(callID)
	if !ok {
		return nil, ErrNotFound
	}
	s := v.(Session)
	return &s, nil
}

// Put stores a copy of s
func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	m.cache.Set(s.CallID, *s, cache.DefaultExpiration)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, callID string) error {
	m.cache.Delete(callID)
	return nil
}

func (m *MemoryStore) SweepExpired(_ context.Context) (int, error) {
	before := m.cache.ItemCount()
	m.cache.DeleteExpired()
	removed := before - m.cache.ItemCount()
	if removed < 0 {
		removed = 0
	}
	return removed, nil
}

// Count returns the number of unexpired sessions
func (m *MemoryStore) Count(_ context.Context) (int, error) {
	return len(m.cache.Items()), nil
}

func (m *MemoryStore) Close() error {
	m.cache.Flush()
	return nil
}
