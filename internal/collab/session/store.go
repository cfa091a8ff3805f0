package session

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned when no session matches the token or snippet
var ErrSessionNotFound = errors.New("session not found")

// Store persists sessions. Implementations must make Create atomic with
// respect to the snippet, and CompareAndSwap atomic with respect to Version.
type Store interface {
	// Create stores a new session, failing with cnst.ErrDuplicateSession if
	// the snippet already has one. The stored Version is 1.
	Create(ctx context.Context, sess *Session) error
	// Get returns a copy of the session with the given token
	Get(ctx context.Context, token string) (*Session, error)
	// GetBySnippet returns a copy of the session for snippetID
	GetBySnippet(ctx context.Context, snippetID uint) (*Session, error)
	// CompareAndSwap replaces the stored session if its version is still
	// expectedVersion and sets sess.Version to expectedVersion+1. A moved
	// version fails with cnst.ErrVersionConflict.
	CompareAndSwap(ctx context.Context, sess *Session, expectedVersion int64) error
	// Delete removes the session, returning false if it did not exist
	Delete(ctx context.Context, token string) (bool, error)
	// List returns all stored sessions
	List(ctx context.Context) ([]*Session, error)
	// Close releases resources held by the store
	Close() error
}
