package interview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zhouzirui/interview-coach/backend/internal/analysis/rubric"
	domain "github.com/zhouzirui/interview-coach/backend/internal/model/interview"
	"github.com/zhouzirui/interview-coach/backend/internal/model/profile"
	"github.com/zhouzirui/interview-coach/backend/internal/service/ai/aitest"
	"github.com/zhouzirui/interview-coach/backend/internal/service/followup"
	"github.com/zhouzirui/interview-coach/backend/internal/service/report"
	"github.com/zhouzirui/interview-coach/backend/internal/service/retrieval"
	"github.com/zhouzirui/interview-coach/backend/internal/service/scoring"
	"github.com/zhouzirui/interview-coach/backend/internal/store"
)

type harness struct {
	svc      *Service
	sessions store.SessionStore
}

type options struct {
	maxTurns  int
	minTurns  int
	chatModel model.ChatModel
	scorer    Scorer
	sessions  store.SessionStore
}

func newHarness(t *testing.T, opts options) harness {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	if opts.maxTurns == 0 {
		opts.maxTurns = 5
	}
	if opts.minTurns == 0 {
		opts.minTurns = 3
	}
	if opts.sessions == nil {
		opts.sessions = store.NewMemoryStore()
	}

	scorer := opts.scorer
	if scorer == nil {
		svc, err := scoring.NewService(ctx, opts.chatModel, scoring.Config{Timeout: 100 * time.Millisecond}, logger, nil)
		require.NoError(t, err)
		scorer = svc
	}

	generator, err := followup.NewService(ctx, opts.chatModel, followup.Config{Timeout: 100 * time.Millisecond, MinTurns: opts.minTurns}, logger, nil)
	require.NoError(t, err)
	reporter, err := report.NewService(ctx, opts.chatModel, report.Config{Timeout: 100 * time.Millisecond}, logger, nil)
	require.NoError(t, err)

	idx, err := retrieval.OpenIndex(retrieval.IndexConfig{}, retrieval.NewHashEmbedder(retrieval.DefaultHashDimensions))
	require.NoError(t, err)
	require.NoError(t, idx.Ingest(ctx, retrieval.SeedCorpus(), 4))
	retriever := retrieval.NewService(idx, retrieval.Config{TopK: 3, MinSimilarity: 0.2, Timeout: time.Second}, logger, nil)

	svc, err := NewService(Config{MaxTurns: opts.maxTurns}, Dependencies{
		Profiles:  profile.NewMemoryStore(profile.Seed()),
		Sessions:  opts.sessions,
		Scorer:    scorer,
		Retriever: retriever,
		Generator: generator,
		Reporter:  reporter,
		Logger:    logger,
	})
	require.NoError(t, err)
	return harness{svc: svc, sessions: opts.sessions}
}

func assertContiguous(t *testing.T, sess *domain.Session) {
	t.Helper()
	for i, turn := range sess.Turns {
		assert.Equal(t, i, turn.Index)
	}
}

func TestStartSession(t *testing.T) {
	h := newHarness(t, options{})

	res, err := h.svc.StartSession(context.Background(), "Junior Developer")
	require.NoError(t, err)
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, "Junior Developer", res.RoleProfile)
	assert.Contains(t, res.FirstQuestion, "Junior Developer")

	sess, err := h.svc.GetSession(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, sess.Status)
	assert.Equal(t, 1, sess.Version)
	require.Len(t, sess.Turns, 1)
	_, pending := sess.PendingTurn()
	assert.True(t, pending)
}

func TestStartSessionRejectsUnknownProfile(t *testing.T) {
	h := newHarness(t, options{})

	_, err := h.svc.StartSession(context.Background(), "Astronaut")
	assert.True(t, errors.Is(err, ErrInvalidRoleProfile))
	assert.Equal(t, CodeInvalidRoleProfile, Code(err))
}

func TestScriptedInterviewRunsToMaxTurns(t *testing.T) {
	h := newHarness(t, options{maxTurns: 5})
	ctx := context.Background()

	start, err := h.svc.StartSession(ctx, "junior-developer")
	require.NoError(t, err)

	seen := map[string]bool{strings.ToLower(start.FirstQuestion): true}
	for i := 0; i < 5; i++ {
		res, err := h.svc.SubmitAnswer(ctx, start.SessionID, "I built a REST API using Go and Postgres.")
		require.NoError(t, err)
		assert.Equal(t, i, res.TurnIndex)

		for _, score := range []int{res.Feedback.Scores.Content, res.Feedback.Scores.Structure, res.Feedback.Scores.Communication} {
			assert.GreaterOrEqual(t, score, rubric.MinScore)
			assert.LessOrEqual(t, score, rubric.MaxScore)
		}
		assert.LessOrEqual(t, len(res.Feedback.Bullets), rubric.MaxBullets)

		if i < 4 {
			require.NotNil(t, res.NextQuestion)
			assert.False(t, res.Completed)
			assert.False(t, seen[strings.ToLower(*res.NextQuestion)], "question repeated: %s", *res.NextQuestion)
			seen[strings.ToLower(*res.NextQuestion)] = true
		} else {
			assert.Nil(t, res.NextQuestion)
			assert.True(t, res.Completed)
		}
	}

	sess, err := h.svc.GetSession(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, sess.Status)
	assert.Len(t, sess.Turns, 5)
	assertContiguous(t, sess)

	_, err = h.svc.SubmitAnswer(ctx, start.SessionID, "One more thing.")
	assert.True(t, errors.Is(err, ErrSessionAlreadyCompleted))
	assert.Equal(t, CodeSessionAlreadyCompleted, Code(err))
}

func TestModelFailureDegradesButProgresses(t *testing.T) {
	h := newHarness(t, options{chatModel: aitest.Failing(errors.New("provider down"))})
	ctx := context.Background()

	start, err := h.svc.StartSession(ctx, "Product Manager")
	require.NoError(t, err)

	res, err := h.svc.SubmitAnswer(ctx, start.SessionID, "I launched a pricing page redesign.")
	require.NoError(t, err)
	assert.True(t, res.Feedback.Degraded)
	assert.Equal(t, domain.Scores{Content: 50, Structure: 50, Communication: 50}, res.Feedback.Scores)
	assert.Equal(t, []string{rubric.FallbackBullet}, res.Feedback.Bullets)
	require.NotNil(t, res.NextQuestion)
	assert.NotEqual(t, start.FirstQuestion, *res.NextQuestion)
}

func TestGeneratorEndCompletesAfterMinTurns(t *testing.T) {
	fake := aitest.New(func(_ context.Context, _ int, input []*schema.Message) (string, error) {
		if strings.Contains(input[0].Content, "grading one answer") {
			return `{"content": 80, "structure": 70, "communication": 90, "bullets": ["Good detail"]}`, nil
		}
		return "INTERVIEW_COMPLETE", nil
	})
	h := newHarness(t, options{chatModel: fake, maxTurns: 5, minTurns: 3})
	ctx := context.Background()

	start, err := h.svc.StartSession(ctx, "Data Analyst")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		res, err := h.svc.SubmitAnswer(ctx, start.SessionID, "An answer with some detail.")
		require.NoError(t, err)
		require.NotNil(t, res.NextQuestion, "turn %d", i)
		assert.False(t, res.Completed)
	}

	res, err := h.svc.SubmitAnswer(ctx, start.SessionID, "A third answer.")
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Nil(t, res.NextQuestion)
	assert.Equal(t, domain.Scores{Content: 80, Structure: 70, Communication: 90}, res.Feedback.Scores)
}

func TestEmptyAnswerMutatesNothing(t *testing.T) {
	h := newHarness(t, options{})
	ctx := context.Background()

	start, err := h.svc.StartSession(ctx, "UX Designer")
	require.NoError(t, err)
	before, err := h.svc.GetSession(ctx, start.SessionID)
	require.NoError(t, err)

	for _, blank := range []string{"", "   ", "\n\t"} {
		_, err := h.svc.SubmitAnswer(ctx, start.SessionID, blank)
		assert.True(t, errors.Is(err, ErrEmptyAnswer))
		assert.Equal(t, CodeEmptyAnswer, Code(err))
	}

	after, err := h.svc.GetSession(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUnknownSession(t *testing.T) {
	h := newHarness(t, options{})
	ctx := context.Background()

	_, err := h.svc.SubmitAnswer(ctx, "missing", "hello")
	assert.Equal(t, CodeSessionNotFound, Code(err))

	_, err = h.svc.GetReport(ctx, "missing")
	assert.Equal(t, CodeSessionNotFound, Code(err))

	_, err = h.svc.GetSession(ctx, "missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestReportAvailabilityAndDeterminism(t *testing.T) {
	h := newHarness(t, options{})
	ctx := context.Background()

	start, err := h.svc.StartSession(ctx, "Senior Developer")
	require.NoError(t, err)

	_, err = h.svc.GetReport(ctx, start.SessionID)
	assert.True(t, errors.Is(err, ErrReportNotAvailable))

	_, err = h.svc.SubmitAnswer(ctx, start.SessionID, "I led the migration to event sourcing.")
	require.NoError(t, err)

	first, err := h.svc.GetReport(ctx, start.SessionID)
	require.NoError(t, err)
	second, err := h.svc.GetReport(ctx, start.SessionID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusActive, first.Status)
	assert.Equal(t, 1, first.ScoredTurns)
	assert.Equal(t, first.Averages, second.Averages)
	assert.Equal(t, first.Overall, second.Overall)
	assert.NotEmpty(t, first.Summary)

	sess, err := h.svc.GetSession(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.Version)
}

// blockingScorer parks calls whose answer is "block" until release closes.
type blockingScorer struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingScorer) Score(_ context.Context, _, answer string, _ []domain.Snippet) rubric.Evaluation {
	if answer == "block" {
		b.once.Do(func() { close(b.entered) })
		<-b.release
	}
	return rubric.Evaluation{Scores: domain.Scores{Content: 60, Structure: 60, Communication: 60}, Bullets: []string{"ok"}}
}

func TestConcurrentSubmitExactlyOneWins(t *testing.T) {
	scorer := &blockingScorer{entered: make(chan struct{}), release: make(chan struct{})}
	h := newHarness(t, options{scorer: scorer})
	ctx := context.Background()

	busy, err := h.svc.StartSession(ctx, "Junior Developer")
	require.NoError(t, err)
	other, err := h.svc.StartSession(ctx, "Junior Developer")
	require.NoError(t, err)

	type outcome struct {
		res AnswerResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := h.svc.SubmitAnswer(ctx, busy.SessionID, "block")
		done <- outcome{res, err}
	}()
	<-scorer.entered

	_, err = h.svc.SubmitAnswer(ctx, busy.SessionID, "second writer")
	assert.True(t, errors.Is(err, ErrConcurrentModification))
	assert.Equal(t, CodeConcurrentModification, Code(err))

	// other sessions are not blocked
	_, err = h.svc.SubmitAnswer(ctx, other.SessionID, "independent answer")
	require.NoError(t, err)

	close(scorer.release)
	winner := <-done
	require.NoError(t, winner.err)
	assert.Equal(t, 0, winner.res.TurnIndex)

	sess, err := h.svc.GetSession(ctx, busy.SessionID)
	require.NoError(t, err)
	assert.Len(t, sess.Turns, 2)
	assert.Equal(t, "block", sess.Turns[0].Answer)
	assertContiguous(t, sess)

	// the lease is released after the winner finishes
	_, err = h.svc.SubmitAnswer(ctx, busy.SessionID, "next answer")
	assert.NoError(t, err)
}

func TestCallerCancellationDoesNotAbandonTurn(t *testing.T) {
	h := newHarness(t, options{})
	start, err := h.svc.StartSession(context.Background(), "Junior Developer")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := h.svc.SubmitAnswer(ctx, start.SessionID, "Answer sent just before disconnecting.")
	require.NoError(t, err)
	assert.NotNil(t, res.NextQuestion)
}

type conflictingStore struct {
	store.SessionStore
	err error
}

func (c conflictingStore) Update(context.Context, *domain.Session, int) error {
	return c.err
}

func TestStoreErrorsAreMapped(t *testing.T) {
	cases := map[string]struct {
		err  error
		code string
	}{
		"version conflict": {store.ErrVersionConflict, CodeConcurrentModification},
		"disk full":        {errors.New("disk I/O error"), CodeStoreFailure},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, options{sessions: conflictingStore{SessionStore: store.NewMemoryStore(), err: tc.err}})
			start, err := h.svc.StartSession(context.Background(), "Junior Developer")
			require.NoError(t, err)

			_, err = h.svc.SubmitAnswer(context.Background(), start.SessionID, "An answer.")
			assert.Equal(t, tc.code, Code(err))
		})
	}
}

func TestCode(t *testing.T) {
	assert.Equal(t, "", Code(nil))
	assert.Equal(t, CodeInternal, Code(errors.New("other")))
	assert.Equal(t, CodeStoreFailure, Code(errors.Join(errors.New("x"), ErrStoreFailure)))
}
