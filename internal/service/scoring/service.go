package scoring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"

	"github.com/zhouzirui/interview-coach/backend/internal/analysis/rubric"
	"github.com/zhouzirui/interview-coach/backend/internal/model/interview"
	"github.com/zhouzirui/interview-coach/backend/internal/observability"
	"github.com/zhouzirui/interview-coach/backend/internal/service/ai"
)

// answerTokenBudget bounds the candidate answer quoted in the prompt.
const answerTokenBudget = 1500

// Config controls the scorer.
type Config struct {
	Timeout    time.Duration
	MaxBullets int
}

// Service grades answers against the three-dimension rubric and falls back
// to neutral placeholder scores whenever the model cannot produce a usable
// evaluation in time.
type Service struct {
	completer  *ai.Completer
	maxBullets int
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewService creates a scorer. chatModel may be nil, in which case every
// answer receives the fallback evaluation.
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config, logger *zap.Logger, metrics *observability.Metrics) (*Service, error) {
	completer, err := ai.NewCompleter(ctx, chatModel, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to build scorer: %w", err)
	}

	maxBullets := cfg.MaxBullets
	if maxBullets <= 0 {
		maxBullets = rubric.MaxBullets
	}

	return &Service{
		completer:  completer,
		maxBullets: maxBullets,
		logger:     observability.OrNop(logger).Named("scorer"),
		metrics:    metrics,
	}, nil
}

// Enabled reports whether a model backs the scorer.
func (s *Service) Enabled() bool {
	return s != nil && s.completer.Enabled()
}

// Score always returns a valid evaluation.
func (s *Service) Score(ctx context.Context, question, answer string, snippets []interview.Snippet) rubric.Evaluation {
	if !s.Enabled() {
		s.metrics.Fallback(observability.ComponentScorer)
		return rubric.Fallback()
	}

	start := time.Now()
	content, err := s.completer.Complete(ctx, scorerSystemPrompt, buildScorerQuery(question, answer, snippets))
	s.metrics.ObserveDownstream(observability.ComponentScorer, start, err)
	if err != nil {
		s.logger.Warn("scoring call failed, using fallback", zap.Error(err))
		s.metrics.Fallback(observability.ComponentScorer)
		return rubric.Fallback()
	}

	eval, err := rubric.Parse(content, s.maxBullets)
	if err != nil {
		s.logger.Warn("scoring output rejected, using fallback", zap.Error(err), zap.String("output", ai.TruncateToTokens(content, 64)))
		s.metrics.Fallback(observability.ComponentScorer)
		return rubric.Fallback()
	}
	return eval
}

const scorerSystemPrompt = `You are an expert interview coach grading one answer from a mock job interview.
Score the answer on three dimensions, each an integer from 0 to 100:
- content: relevance, depth and concrete evidence
- structure: logical flow, e.g. situation, task, action, result
- communication: clarity, concision and confidence

Respond with a single JSON object and nothing else:
{"content": <int>, "structure": <int>, "communication": <int>, "bullets": ["<actionable feedback>", ...]}
Give between 2 and 6 short, specific feedback bullets.`

func buildScorerQuery(question, answer string, snippets []interview.Snippet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Interview question:\n%s\n\n", strings.TrimSpace(question))
	fmt.Fprintf(&b, "Candidate answer:\n%s\n", ai.TruncateToTokens(strings.TrimSpace(answer), answerTokenBudget))

	if len(snippets) > 0 {
		b.WriteString("\nCoaching notes that may help your assessment:\n")
		for _, snippet := range snippets {
			fmt.Fprintf(&b, "- %s\n", snippet.Text)
		}
	}
	return b.String()
}
