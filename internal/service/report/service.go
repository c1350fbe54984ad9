package report

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"

	"github.com/zhouzirui/interview-coach/backend/internal/analysis/rubric"
	"github.com/zhouzirui/interview-coach/backend/internal/model/interview"
	"github.com/zhouzirui/interview-coach/backend/internal/observability"
	"github.com/zhouzirui/interview-coach/backend/internal/service/ai"
)

// ErrNoScoredTurns is returned when a session has nothing to aggregate.
var ErrNoScoredTurns = errors.New("no scored turns")

const maxSummaryBullets = 24

// Config controls the report narrative.
type Config struct {
	Timeout time.Duration
}

// Service aggregates scored turns into a report.
type Service struct {
	completer *ai.Completer
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewService creates an aggregator. chatModel may be nil.
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config, logger *zap.Logger, metrics *observability.Metrics) (*Service, error) {
	completer, err := ai.NewCompleter(ctx, chatModel, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to build report summarizer: %w", err)
	}
	return &Service{
		completer: completer,
		logger:    observability.OrNop(logger).Named("report"),
		metrics:   metrics,
	}, nil
}

// Aggregate returns the rounded per-category averages and the overall score,
// the rounded mean of those three averages.
func Aggregate(turns []interview.Turn) (interview.Scores, int, error) {
	var sum [3]int
	n := 0
	for _, turn := range turns {
		if !turn.Answered() {
			continue
		}
		sum[0] += turn.Scores.Content
		sum[1] += turn.Scores.Structure
		sum[2] += turn.Scores.Communication
		n++
	}
	if n == 0 {
		return interview.Scores{}, 0, ErrNoScoredTurns
	}

	avg := interview.Scores{
		Content:       roundDiv(float64(sum[0]), float64(n)),
		Structure:     roundDiv(float64(sum[1]), float64(n)),
		Communication: roundDiv(float64(sum[2]), float64(n)),
	}
	overall := roundDiv(float64(avg.Content+avg.Structure+avg.Communication), 3)
	return avg, overall, nil
}

func roundDiv(num, den float64) int {
	return int(math.Round(num / den))
}

// Build derives the report for a session snapshot. It never mutates sess.
func (s *Service) Build(ctx context.Context, sess *interview.Session) (interview.Report, error) {
	averages, overall, err := Aggregate(sess.Turns)
	if err != nil {
		return interview.Report{}, err
	}

	scored := sess.ScoredTurns()
	r := interview.Report{
		SessionID:   sess.ID,
		RoleProfile: sess.RoleProfile,
		Status:      sess.Status,
		ScoredTurns: len(scored),
		Averages:    averages,
		Overall:     overall,
	}

	summary, err := s.narrate(ctx, sess.RoleProfile, averages, overall, scored)
	if err != nil {
		if !errors.Is(err, ai.ErrDisabled) {
			s.logger.Warn("summary call failed, using template", zap.Error(err), zap.String("session_id", sess.ID))
		}
		s.metrics.Fallback(observability.ComponentSummary)
		r.Summary = TemplateSummary(averages, overall, len(scored))
		r.SummaryDegraded = true
		return r, nil
	}

	r.Summary = summary
	return r, nil
}

func (s *Service) narrate(ctx context.Context, role string, averages interview.Scores, overall int, scored []interview.Turn) (string, error) {
	if s == nil || !s.completer.Enabled() {
		return "", ai.ErrDisabled
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Role: %s\n", role)
	fmt.Fprintf(&b, "Answered questions: %d\n", len(scored))
	fmt.Fprintf(&b, "Average scores (0-100): content %d, structure %d, communication %d, overall %d\n",
		averages.Content, averages.Structure, averages.Communication, overall)
	b.WriteString("Feedback given during the interview:\n")
	written := 0
	for _, turn := range scored {
		for _, bullet := range turn.Feedback {
			if written == maxSummaryBullets {
				break
			}
			fmt.Fprintf(&b, "- %s\n", bullet)
			written++
		}
	}

	start := time.Now()
	summary, err := s.completer.Complete(ctx, summarySystemPrompt, b.String())
	s.metrics.ObserveDownstream(observability.ComponentSummary, start, err)
	return summary, err
}

const summarySystemPrompt = `You are an interview coach writing the closing summary of a mock interview.
Write 3 to 5 sentences in plain English addressed to the candidate: what went well,
the most important area to improve, and one concrete next step. No lists, no JSON.`

// TemplateSummary is the deterministic narrative used when the model is
// unavailable. Ties pick the first category in rubric order.
func TemplateSummary(averages interview.Scores, overall, answered int) string {
	weakest, strongest := rubric.Dimensions[0], rubric.Dimensions[0]
	for _, dim := range rubric.Dimensions[1:] {
		if rubric.Value(averages, dim) < rubric.Value(averages, weakest) {
			weakest = dim
		}
		if rubric.Value(averages, dim) > rubric.Value(averages, strongest) {
			strongest = dim
		}
	}

	noun := "answers"
	if answered == 1 {
		noun = "answer"
	}

	if weakest == strongest || rubric.Value(averages, weakest) == rubric.Value(averages, strongest) {
		return fmt.Sprintf("Across %d %s your scores were even at %d in every category, for an overall score of %d/100. Keep practising to lift all three together.",
			answered, noun, rubric.Value(averages, weakest), overall)
	}

	return fmt.Sprintf("Across %d %s your strongest category was %s (%d) and the one to focus on is %s (%d). Overall score: %d/100.",
		answered, noun, strongest, rubric.Value(averages, strongest), weakest, rubric.Value(averages, weakest), overall)
}
