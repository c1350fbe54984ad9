package interview

import "time"

// Scores is the three-dimensional rubric result, each value in [0,100].
type Scores struct {
	Content       int `json:"content"`
	Structure     int `json:"structure"`
	Communication int `json:"communication"`
}

// Turn is one question/answer exchange.
type Turn struct {
	Index        int       `json:"index"`
	Question     string    `json:"question"`
	Answer       string    `json:"answer,omitempty"`
	Scores       *Scores   `json:"scores,omitempty"`
	Feedback     []string  `json:"feedback,omitempty"`
	RetrievedIDs []string  `json:"retrievedIds,omitempty"`
	Degraded     bool      `json:"degraded,omitempty"`
	AskedAt      time.Time `json:"askedAt"`
	AnsweredAt   time.Time `json:"answeredAt,omitzero"`
}

// Answered is true once the answer and its scores were committed.
func (t Turn) Answered() bool {
	return t.Scores != nil
}

// Clone deep-copies the slices and score pointer.
func (t Turn) Clone() Turn {
	cp := t
	if t.Scores != nil {
		s := *t.Scores
		cp.Scores = &s
	}
	cp.Feedback = append([]string(nil), t.Feedback...)
	cp.RetrievedIDs = append([]string(nil), t.RetrievedIDs...)
	return cp
}

// Snippet is a grounding fragment returned by the vector store.
type Snippet struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Similarity float32 `json:"similarity"`
}

// Report is the derived summary of a session's scored turns.
type Report struct {
	SessionID       string `json:"sessionId"`
	RoleProfile     string `json:"roleProfile"`
	Status          Status `json:"status"`
	ScoredTurns     int    `json:"scoredTurns"`
	Averages        Scores `json:"averages"`
	Overall         int    `json:"overall"`
	Summary         string `json:"summary"`
	SummaryDegraded bool   `json:"summaryDegraded,omitempty"`
}
