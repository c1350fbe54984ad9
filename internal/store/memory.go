package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/zhouzirui/interview-coach/backend/internal/model/interview"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*interview.Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*interview.Session)}
}

// Create stores a copy of sess. It fails with ErrAlreadyExists on a duplicate id.
func (s *MemoryStore) Create(_ context.Context, sess *interview.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, sess.ID)
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// Get returns a copy of the session.
func (s *MemoryStore) Get(_ context.Context, id string) (*interview.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

// Update replaces the session when its stored version equals expectedVersion
// and the answered turns are unchanged.
func (s *MemoryStore) Update(_ context.Context, sess *interview.Session, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[sess.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("%w: have %d, expected %d", ErrVersionConflict, current.Version, expectedVersion)
	}
	if err := checkAppendOnly(current, sess); err != nil {
		return err
	}

	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
