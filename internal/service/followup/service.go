package followup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"

	"github.com/zhouzirui/interview-coach/backend/internal/analysis/modelout"
	"github.com/zhouzirui/interview-coach/backend/internal/model/interview"
	"github.com/zhouzirui/interview-coach/backend/internal/model/profile"
	"github.com/zhouzirui/interview-coach/backend/internal/observability"
	"github.com/zhouzirui/interview-coach/backend/internal/service/ai"
)

// Kind tags a generator result.
type Kind string

const (
	KindQuestion Kind = "question"
	KindEnd      Kind = "end"
)

// EndSentinel is the legacy plain-text end-of-interview marker.
const EndSentinel = "INTERVIEW_COMPLETE"

const (
	historyAnswerTokens = 300
	historyTokenBudget  = 2400
	maxQuestionRunes    = 600
)

// Result is the next step of an interview.
type Result struct {
	Kind     Kind
	Text     string
	Fallback bool
}

// Config controls the generator.
type Config struct {
	Timeout  time.Duration
	MinTurns int
}

// Service produces the next interview question, or signals the end of the
// interview once enough ground has been covered.
type Service struct {
	completer *ai.Completer
	prompts   *ai.ProfilePromptManager
	minTurns  int
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewService creates a generator. chatModel may be nil.
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config, logger *zap.Logger, metrics *observability.Metrics) (*Service, error) {
	completer, err := ai.NewCompleter(ctx, chatModel, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to build follow-up generator: %w", err)
	}

	minTurns := cfg.MinTurns
	if minTurns < 1 {
		minTurns = 1
	}

	return &Service{
		completer: completer,
		prompts:   ai.NewProfilePromptManager(),
		minTurns:  minTurns,
		logger:    observability.OrNop(logger).Named("followup"),
		metrics:   metrics,
	}, nil
}

// Next returns the next question or End. history holds every turn of the
// session so far; a Question result never repeats one of its questions.
func (s *Service) Next(ctx context.Context, prof profile.Profile, history []interview.Turn, snippets []interview.Snippet) Result {
	asked := interview.Questions(history)
	answered := 0
	for _, turn := range history {
		if turn.Answered() {
			answered++
		}
	}

	if !s.completer.Enabled() {
		return s.fallback(prof, asked, len(history))
	}

	start := time.Now()
	content, err := s.completer.Complete(ctx, s.systemPrompt(prof), s.buildQuery(history, snippets, answered))
	s.metrics.ObserveDownstream(observability.ComponentGenerator, start, err)
	if err != nil {
		s.logger.Warn("follow-up call failed, using fallback question", zap.Error(err))
		return s.fallback(prof, asked, len(history))
	}

	result, err := Classify(content)
	if err != nil {
		s.logger.Warn("follow-up output unclassifiable, using fallback question", zap.Error(err))
		return s.fallback(prof, asked, len(history))
	}

	switch result.Kind {
	case KindEnd:
		if len(history) == 0 || answered < s.minTurns {
			s.logger.Debug("early end ignored", zap.Int("answered", answered), zap.Int("min_turns", s.minTurns))
			return s.fallback(prof, asked, len(history))
		}
		return result
	default:
		if containsQuestion(asked, result.Text) {
			s.logger.Info("model repeated a question, using fallback question")
			return s.fallback(prof, asked, len(history))
		}
		return result
	}
}

var errUnclassifiable = errors.New("unclassifiable generator output")

type payload struct {
	Kind     string `json:"kind"`
	Text     string `json:"text"`
	Question string `json:"question"`
}

// Classify turns raw model output into a tagged result.
func Classify(content string) (Result, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return Result{}, errUnclassifiable
	}
	if trimmed == EndSentinel {
		return Result{Kind: KindEnd}, nil
	}

	var p payload
	if err := modelout.DecodeObject(trimmed, &p); err == nil {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			text = strings.TrimSpace(p.Question)
		}
		switch strings.ToLower(strings.TrimSpace(p.Kind)) {
		case "end":
			return Result{Kind: KindEnd}, nil
		case "question", "":
			if text != "" && len([]rune(text)) <= maxQuestionRunes {
				return Result{Kind: KindQuestion, Text: text}, nil
			}
		}
		return Result{}, errUnclassifiable
	}

	// the legacy sentinel only counts outside a decodable object
	if strings.Contains(trimmed, EndSentinel) {
		return Result{Kind: KindEnd}, nil
	}

	// a bare question line
	if !strings.ContainsAny(trimmed, "{}\n") && strings.HasSuffix(trimmed, "?") && len([]rune(trimmed)) <= maxQuestionRunes {
		return Result{Kind: KindQuestion, Text: trimmed}, nil
	}
	return Result{}, errUnclassifiable
}

func (s *Service) fallback(prof profile.Profile, asked []string, nextIndex int) Result {
	s.metrics.Fallback(observability.ComponentGenerator)
	return Result{Kind: KindQuestion, Text: FallbackQuestion(prof, asked, nextIndex), Fallback: true}
}

// FallbackQuestion picks the opening line for an empty session, then the
// first unasked question of the profile bank, then a numbered generic
// question unique to nextIndex.
func FallbackQuestion(prof profile.Profile, asked []string, nextIndex int) string {
	if len(asked) == 0 && strings.TrimSpace(prof.OpeningQuestion) != "" {
		return prof.OpeningQuestion
	}
	for _, q := range prof.FallbackQuestions {
		if !containsQuestion(asked, q) {
			return q
		}
	}
	return fmt.Sprintf("Question %d: tell me about another experience that shows why you are a strong fit for the %s role.", nextIndex+1, prof.Name)
}

func containsQuestion(asked []string, question string) bool {
	needle := strings.TrimSpace(question)
	for _, q := range asked {
		if strings.EqualFold(strings.TrimSpace(q), needle) {
			return true
		}
	}
	return false
}

func (s *Service) systemPrompt(prof profile.Profile) string {
	return s.prompts.BuildSystemPrompt(prof) + `

Output format. Respond with exactly one JSON object and nothing else:
- to ask the next question: {"kind": "question", "text": "<one interview question>"}
- to finish the interview: {"kind": "end"}`
}

func (s *Service) buildQuery(history []interview.Turn, snippets []interview.Snippet, answered int) string {
	var b strings.Builder

	if len(history) == 0 {
		b.WriteString("The interview is starting. Ask a warm, open opening question about the candidate's background.\n")
	} else {
		b.WriteString("Interview so far:\n")
		answers := budgetAnswers(history)
		for i, turn := range history {
			fmt.Fprintf(&b, "Q%d: %s\n", turn.Index+1, turn.Question)
			if turn.Answered() {
				if answers[i] == "" {
					fmt.Fprintf(&b, "A%d: (answer omitted)\n", turn.Index+1)
				} else {
					fmt.Fprintf(&b, "A%d: %s\n", turn.Index+1, answers[i])
				}
				fmt.Fprintf(&b, "Scores: content %d, structure %d, communication %d\n",
					turn.Scores.Content, turn.Scores.Structure, turn.Scores.Communication)
			}
		}
	}

	if len(snippets) > 0 {
		b.WriteString("\nRelevant coaching notes you may use to make the question specific:\n")
		for _, snippet := range snippets {
			fmt.Fprintf(&b, "- %s\n", snippet.Text)
		}
	}

	if len(history) > 0 {
		b.WriteString("\nQuestions already asked (never repeat them):\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "- %s\n", turn.Question)
		}
		fmt.Fprintf(&b, "\nAnswered so far: %d. You may finish the interview only after at least %d answers.\n", answered, s.minTurns)
	}
	return b.String()
}

// budgetAnswers truncates each answer and keeps the most recent ones within
// historyTokenBudget. Dropped answers are left empty.
func budgetAnswers(history []interview.Turn) []string {
	answers := make([]string, len(history))
	used := 0
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].Answered() {
			continue
		}
		text := ai.TruncateToTokens(history[i].Answer, historyAnswerTokens)
		n := ai.CountTokens(text)
		if used+n > historyTokenBudget {
			break
		}
		used += n
		answers[i] = text
	}
	return answers
}
