package interview

import "time"

// Status is the lifecycle state of an interview session.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
)

// Session is the authoritative record of one mock interview.
type Session struct {
	ID          string    `json:"id"`
	RoleProfile string    `json:"roleProfile"`
	Status      Status    `json:"status"`
	Turns       []Turn    `json:"turns"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Version     int       `json:"version"`
}

// Completed reports whether the session reached its terminal state.
func (s *Session) Completed() bool {
	return s.Status == StatusCompleted
}

// PendingTurn returns the turn awaiting an answer, if any.
func (s *Session) PendingTurn() (*Turn, bool) {
	if len(s.Turns) == 0 {
		return nil, false
	}
	last := &s.Turns[len(s.Turns)-1]
	if last.Answered() {
		return nil, false
	}
	return last, true
}

// ScoredTurns returns the turns that carry an answer and scores, in order.
func (s *Session) ScoredTurns() []Turn {
	scored := make([]Turn, 0, len(s.Turns))
	for _, t := range s.Turns {
		if t.Answered() {
			scored = append(scored, t)
		}
	}
	return scored
}

// AnsweredCount is the number of committed turns.
func (s *Session) AnsweredCount() int {
	n := 0
	for _, t := range s.Turns {
		if t.Answered() {
			n++
		}
	}
	return n
}

// Questions lists the question of each turn in order, pending one included.
func Questions(turns []Turn) []string {
	out := make([]string, 0, len(turns))
	for _, t := range turns {
		out = append(out, t.Question)
	}
	return out
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Turns = make([]Turn, len(s.Turns))
	for i, t := range s.Turns {
		cp.Turns[i] = t.Clone()
	}
	return &cp
}
