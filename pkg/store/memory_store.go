package store

import (
	"context"
	"sync"
	"time"

	"github.com/luongdev/rtcqos/pkg/logger"
	"github.com/luongdev/rtcqos/pkg/stats"
)

type memoryEntry struct {
	local     *stats.RawCapture
	remotes   []*stats.RawCapture
	updatedAt time.Time
	expiresAt time.Time // zero means no expiry
}

// MemoryStore keeps captures in process memory. Expired sessions are dropped
// lazily on access and by Sweep.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memoryEntry
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		now:      time.Now,
	}
}

func (s *MemoryStore) touch(e *memoryEntry, ttl time.Duration) {
	e.updatedAt = s.now()
	if ttl > 0 {
		e.expiresAt = e.updatedAt.Add(ttl)
	} else {
		e.expiresAt = time.Time{}
	}
}

func (s *MemoryStore) expired(e *memoryEntry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}

// entry returns the live entry for id, creating it when missing. Caller holds the write lock.
func (s *MemoryStore) entry(id string) *memoryEntry {
	e, ok := s.sessions[id]
	if !ok || s.expired(e) {
		e = &memoryEntry{}
		s.sessions[id] = e
	}
	return e
}

func (s *MemoryStore) SetLocal(ctx context.Context, sessionID string, capture *stats.RawCapture, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(sessionID)
	e.local = capture
	s.touch(e, ttl)
	return nil
}

func (s *MemoryStore) AppendRemote(ctx context.Context, sessionID string, capture *stats.RawCapture, ttl time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(sessionID)
	e.remotes = append(e.remotes, capture)
	s.touch(e, ttl)
	return len(e.remotes) - 1, nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*SessionCaptures, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok || s.expired(e) {
		return nil, ErrNotFound
	}

	remotes := make([]*stats.RawCapture, len(e.remotes))
	copy(remotes, e.remotes)
	return &SessionCaptures{
		SessionID: sessionID,
		Local:     e.local,
		Remotes:   remotes,
		UpdatedAt: e.updatedAt,
	}, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.sessions {
		if s.expired(e) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// StartSweeper runs Sweep every interval until ctx is done.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					logger.Debug("Swept %d expired sessions", n)
				}
			}
		}
	}()
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*memoryEntry)
	return nil
}
