package session

import (
	"context"
	"sync"

	"github.com/amoylab/snipcollab/internal/common/cnst"

	"go.uber.org/zap"
)

// MemoryStore implements Store in process memory
type MemoryStore struct {
	logger *zap.Logger

	mu        sync.RWMutex
	byToken   map[string]*Session
	bySnippet map[uint]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new memory-based session store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		logger:    logger.Named("session.store.memory"),
		byToken:   make(map[string]*Session),
		bySnippet: make(map[uint]string),
	}
}

// Create implements Store.Create
func (s *MemoryStore) Create(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bySnippet[sess.SnippetID]; ok {
		return cnst.ErrDuplicateSession
	}
	if _, ok := s.byToken[sess.Token]; ok {
		return cnst.ErrDuplicateSession
	}

	sess.Version = 1
	s.byToken[sess.Token] = sess.Clone()
	s.bySnippet[sess.SnippetID] = sess.Token
	return nil
}

// Get implements Store.Get
func (s *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.byToken[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// GetBySnippet implements Store.GetBySnippet
func (s *MemoryStore) GetBySnippet(_ context.Context, snippetID uint) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.bySnippet[snippetID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.byToken[token].Clone(), nil
}

// CompareAndSwap implements Store.CompareAndSwap
func (s *MemoryStore) CompareAndSwap(_ context.Context, sess *Session, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byToken[sess.Token]
	if !ok {
		return ErrSessionNotFound
	}
	if cur.Version != expectedVersion {
		return cnst.ErrVersionConflict
	}

	sess.Version = expectedVersion + 1
	s.byToken[sess.Token] = sess.Clone()
	return nil
}

// Delete implements Store.Delete
func (s *MemoryStore) Delete(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byToken[token]
	if !ok {
		return false, nil
	}
	delete(s.byToken, token)
	if s.bySnippet[sess.SnippetID] == token {
		delete(s.bySnippet, sess.SnippetID)
	}
	return true, nil
}

// List implements Store.List
func (s *MemoryStore) List(_ context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Session, 0, len(s.byToken))
	for _, sess := range s.byToken {
		out = append(out, sess.Clone())
	}
	return out, nil
}

// Close implements Store.Close
func (s *MemoryStore) Close() error {
	return nil
}
