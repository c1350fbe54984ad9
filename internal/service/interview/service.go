package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/interview-coach/backend/internal/analysis/rubric"
	domain "github.com/zhouzirui/interview-coach/backend/internal/model/interview"
	"github.com/zhouzirui/interview-coach/backend/internal/model/profile"
	"github.com/zhouzirui/interview-coach/backend/internal/observability"
	"github.com/zhouzirui/interview-coach/backend/internal/service/followup"
	"github.com/zhouzirui/interview-coach/backend/internal/service/report"
	"github.com/zhouzirui/interview-coach/backend/internal/store"
)

// Scorer grades one answer. It never fails; degradation is reported in the
// evaluation.
type Scorer interface {
	Score(ctx context.Context, question, answer string, snippets []domain.Snippet) rubric.Evaluation
}

// Retriever returns grounding snippets, empty on any failure.
type Retriever interface {
	Retrieve(ctx context.Context, query string) []domain.Snippet
}

// Generator decides the next question or the end of the interview.
type Generator interface {
	Next(ctx context.Context, prof profile.Profile, history []domain.Turn, snippets []domain.Snippet) followup.Result
}

// Reporter derives a report from a session snapshot.
type Reporter interface {
	Build(ctx context.Context, sess *domain.Session) (domain.Report, error)
}

// Config bounds the interview.
type Config struct {
	MaxTurns int
}

// Dependencies are the collaborators of the engine.
type Dependencies struct {
	Profiles  profile.Store
	Sessions  store.SessionStore
	Scorer    Scorer
	Retriever Retriever
	Generator Generator
	Reporter  Reporter
	Logger    *zap.Logger
	Metrics   *observability.Metrics
	Now       func() time.Time
}

// Service is the session state machine. It owns every mutation of a session.
type Service struct {
	maxTurns  int
	profiles  profile.Store
	sessions  store.SessionStore
	scorer    Scorer
	retriever Retriever
	generator Generator
	reporter  Reporter
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
	leases    leases
}

// NewService wires the engine.
func NewService(cfg Config, deps Dependencies) (*Service, error) {
	if deps.Profiles == nil || deps.Sessions == nil || deps.Scorer == nil ||
		deps.Retriever == nil || deps.Generator == nil || deps.Reporter == nil {
		return nil, errors.New("interview service: missing dependency")
	}
	if cfg.MaxTurns < 1 {
		return nil, fmt.Errorf("interview service: invalid max turns %d", cfg.MaxTurns)
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		maxTurns:  cfg.MaxTurns,
		profiles:  deps.Profiles,
		sessions:  deps.Sessions,
		scorer:    deps.Scorer,
		retriever: deps.Retriever,
		generator: deps.Generator,
		reporter:  deps.Reporter,
		logger:    observability.OrNop(deps.Logger).Named("interview"),
		metrics:   deps.Metrics,
		now:       now,
	}, nil
}

// StartResult is returned by StartSession.
type StartResult struct {
	SessionID     string `json:"session_id"`
	RoleProfile   string `json:"role_profile"`
	FirstQuestion string `json:"first_question"`
}

// Feedback is the evaluation of one answer.
type Feedback struct {
	Scores   domain.Scores `json:"scores"`
	Bullets  []string      `json:"bullets"`
	Degraded bool          `json:"degraded"`
}

// AnswerResult is returned by SubmitAnswer. NextQuestion is nil once the
// session completed.
type AnswerResult struct {
	TurnIndex    int      `json:"turn_index"`
	Feedback     Feedback `json:"feedback"`
	NextQuestion *string  `json:"next_question"`
	Completed    bool     `json:"completed"`
}

// StartSession creates an ACTIVE session with its opening question pending.
func (s *Service) StartSession(ctx context.Context, roleProfile string) (StartResult, error) {
	prof, ok := s.profiles.FindByID(roleProfile)
	if !ok {
		return StartResult{}, fmt.Errorf("%w: %q", ErrInvalidRoleProfile, roleProfile)
	}

	question := s.nextQuestion(ctx, prof, nil, nil)
	now := s.now()
	sess := &domain.Session{
		ID:          uuid.NewString(),
		RoleProfile: prof.Name,
		Status:      domain.StatusActive,
		Turns:       []domain.Turn{{Index: 0, Question: question, AskedAt: now}},
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		return StartResult{}, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}

	s.metrics.SessionStarted(prof.ID)
	s.logger.Info("session started", zap.String("session_id", sess.ID), zap.String("profile", prof.ID))

	return StartResult{SessionID: sess.ID, RoleProfile: prof.Name, FirstQuestion: question}, nil
}

// nextQuestion asks the generator for a question and keeps it unique within
// the session.
func (s *Service) nextQuestion(ctx context.Context, prof profile.Profile, history []domain.Turn, snippets []domain.Snippet) string {
	res := s.generator.Next(ctx, prof, history, snippets)
	return s.uniqueQuestion(prof, history, res.Text)
}

func (s *Service) uniqueQuestion(prof profile.Profile, history []domain.Turn, candidate string) string {
	asked := domain.Questions(history)

	text := strings.TrimSpace(candidate)
	if text != "" {
		duplicate := false
		for _, q := range asked {
			if strings.EqualFold(strings.TrimSpace(q), text) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			return text
		}
	}
	return followup.FallbackQuestion(prof, asked, len(history))
}

// SubmitAnswer records the answer on the pending turn, scores it and moves
// the session to its next question or to COMPLETED. Calls for the same
// session are serialized: a concurrent call fails fast with
// ErrConcurrentModification.
func (s *Service) SubmitAnswer(ctx context.Context, sessionID, answerText string) (result AnswerResult, err error) {
	defer func() {
		outcome := "OK"
		if err != nil {
			outcome = Code(err)
		}
		s.metrics.Answer(outcome)
	}()

	release, ok := s.leases.acquire(sessionID)
	if !ok {
		return AnswerResult{}, ErrConcurrentModification
	}
	defer release()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return AnswerResult{}, err
	}
	if sess.Completed() {
		return AnswerResult{}, ErrSessionAlreadyCompleted
	}

	answer := strings.TrimSpace(answerText)
	if answer == "" {
		return AnswerResult{}, ErrEmptyAnswer
	}

	pending, ok := sess.PendingTurn()
	if !ok {
		return AnswerResult{}, fmt.Errorf("%w: active session %s has no pending turn", ErrStoreFailure, sessionID)
	}

	prof, ok := s.profiles.FindByID(sess.RoleProfile)
	if !ok {
		prof = profile.Profile{ID: sess.RoleProfile, Name: sess.RoleProfile}
	}

	// the answer is accepted: finish the turn even if the caller goes away
	work := context.WithoutCancel(ctx)

	snippets := s.retriever.Retrieve(work, answer)
	eval := s.scorer.Score(work, pending.Question, answer, snippets)

	scores := eval.Scores
	pending.Answer = answer
	pending.Scores = &scores
	pending.Feedback = eval.Bullets
	pending.RetrievedIDs = snippetIDs(snippets)
	pending.Degraded = eval.Degraded
	pending.AnsweredAt = s.now()
	turnIndex := pending.Index

	var next *string
	reason := ""
	if sess.AnsweredCount() >= s.maxTurns {
		reason = "max_turns"
	} else {
		res := s.generator.Next(work, prof, sess.Turns, snippets)
		if res.Kind == followup.KindEnd {
			reason = "generator_end"
		} else {
			question := s.uniqueQuestion(prof, sess.Turns, res.Text)
			sess.Turns = append(sess.Turns, domain.Turn{
				Index:    len(sess.Turns),
				Question: question,
				AskedAt:  s.now(),
			})
			next = &question
		}
	}
	if reason != "" {
		sess.Status = domain.StatusCompleted
	}

	expected := sess.Version
	sess.Version++
	sess.UpdatedAt = s.now()
	if err := s.sessions.Update(work, sess, expected); err != nil {
		switch {
		case errors.Is(err, store.ErrVersionConflict):
			return AnswerResult{}, fmt.Errorf("%w: %v", ErrConcurrentModification, err)
		case errors.Is(err, store.ErrNotFound):
			return AnswerResult{}, ErrSessionNotFound
		default:
			return AnswerResult{}, fmt.Errorf("%w: %v", ErrStoreFailure, err)
		}
	}

	if reason != "" {
		s.metrics.SessionCompleted(reason)
		s.logger.Info("session completed", zap.String("session_id", sessionID), zap.String("reason", reason))
	}

	return AnswerResult{
		TurnIndex: turnIndex,
		Feedback: Feedback{
			Scores:   scores,
			Bullets:  eval.Bullets,
			Degraded: eval.Degraded,
		},
		NextQuestion: next,
		Completed:    reason != "",
	}, nil
}

// GetReport aggregates the scored turns. ACTIVE sessions with at least one
// scored turn get a partial report.
func (s *Service) GetReport(ctx context.Context, sessionID string) (domain.Report, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return domain.Report{}, err
	}
	if sess.AnsweredCount() == 0 {
		return domain.Report{}, ErrReportNotAvailable
	}

	r, err := s.reporter.Build(ctx, sess)
	if errors.Is(err, report.ErrNoScoredTurns) {
		return domain.Report{}, ErrReportNotAvailable
	}
	return r, err
}

// GetSession returns a snapshot of the session.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.load(ctx, sessionID)
}

func (s *Service) load(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return sess, nil
}

func snippetIDs(snippets []domain.Snippet) []string {
	if len(snippets) == 0 {
		return nil
	}
	ids := make([]string, 0, len(snippets))
	for _, snippet := range snippets {
		ids = append(ids, snippet.ID)
	}
	return ids
}
