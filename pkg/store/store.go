package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/luongdev/rtcqos/pkg/stats"
)

// ErrNotFound is returned when no capture has been stored for a session.
var ErrNotFound = errors.New("session not found")

// CaptureStore persists the raw captures of a session with support for
// in-memory and Redis backends
type CaptureStore interface {
	// SetLocal stores (or replaces) the local capture and refreshes the TTL
	SetLocal(ctx context.Context, sessionID string, capture *stats.RawCapture, ttl time.Duration) error

	// AppendRemote appends a remote capture and returns its index
	AppendRemote(ctx context.Context, sessionID string, capture *stats.RawCapture, ttl time.Duration) (int, error)

	// Get retrieves every capture of a session
	Get(ctx context.Context, sessionID string) (*SessionCaptures, error)

	// Delete removes a session
	Delete(ctx context.Context, sessionID string) error

	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error

	// Close closes the store connection
	Close() error
}

// SessionCaptures is everything stored for one session.
type SessionCaptures struct {
	SessionID string
	Local     *stats.RawCapture   // nil until SetLocal
	Remotes   []*stats.RawCapture // in append order
	UpdatedAt time.Time
}
