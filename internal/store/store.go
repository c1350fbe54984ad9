// Package store persists interview sessions.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/zhouzirui/interview-coach/backend/internal/model/interview"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrAlreadyExists   = errors.New("session already exists")
	ErrVersionConflict = errors.New("session version conflict")
	ErrImmutableTurn   = errors.New("answered turns are immutable")
)

// SessionStore is a read-modify-write store for sessions.
type SessionStore interface {
	// Create inserts a new session.
	Create(ctx context.Context, sess *interview.Session) error

	// Get returns a copy of the session, or ErrNotFound.
	Get(ctx context.Context, id string) (*interview.Session, error)

	// Update replaces the session if its stored version still equals
	// expectedVersion, otherwise it fails with ErrVersionConflict. Turns are
	// append-only: rewriting an answered turn fails with ErrImmutableTurn.
	Update(ctx context.Context, sess *interview.Session, expectedVersion int) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// checkAppendOnly verifies next only appends to prev: answered turns are
// unchanged and the previously pending turn keeps its question.
func checkAppendOnly(prev, next *interview.Session) error {
	if len(next.Turns) < len(prev.Turns) {
		return fmt.Errorf("%w: turn count shrank from %d to %d", ErrImmutableTurn, len(prev.Turns), len(next.Turns))
	}
	for i, old := range prev.Turns {
		cur := next.Turns[i]
		if cur.Index != old.Index || cur.Question != old.Question {
			return fmt.Errorf("%w: turn %d question changed", ErrImmutableTurn, i)
		}
		if !old.Answered() {
			continue
		}
		if !sameAnsweredTurn(old, cur) {
			return fmt.Errorf("%w: turn %d was rewritten", ErrImmutableTurn, i)
		}
	}
	for i, t := range next.Turns {
		if t.Index != i {
			return fmt.Errorf("%w: turn indices must be contiguous, got %d at position %d", ErrImmutableTurn, t.Index, i)
		}
	}
	return nil
}

func sameAnsweredTurn(a, b interview.Turn) bool {
	return b.Answered() &&
		a.Answer == b.Answer &&
		*a.Scores == *b.Scores &&
		a.Degraded == b.Degraded &&
		slices.Equal(a.Feedback, b.Feedback) &&
		slices.Equal(a.RetrievedIDs, b.RetrievedIDs)
}
