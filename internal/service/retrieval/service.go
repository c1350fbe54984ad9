package retrieval

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/interview-coach/backend/internal/model/interview"
	"github.com/zhouzirui/interview-coach/backend/internal/observability"
)

// Searcher performs a nearest-neighbour lookup.
type Searcher interface {
	Query(ctx context.Context, text string, k int) ([]interview.Snippet, error)
}

// Config controls retrieval.
type Config struct {
	TopK          int
	MinSimilarity float32
	Timeout       time.Duration
}

// Service fetches grounding snippets. Retrieval is best-effort: any failure
// yields an empty result.
type Service struct {
	searcher      Searcher
	topK          int
	minSimilarity float32
	timeout       time.Duration
	logger        *zap.Logger
	metrics       *observability.Metrics
}

// NewService creates a retriever. A nil searcher always returns no snippets.
func NewService(searcher Searcher, cfg Config, logger *zap.Logger, metrics *observability.Metrics) *Service {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 3
	}
	return &Service{
		searcher:      searcher,
		topK:          topK,
		minSimilarity: cfg.MinSimilarity,
		timeout:       cfg.Timeout,
		logger:        observability.OrNop(logger).Named("retriever"),
		metrics:       metrics,
	}
}

// Retrieve returns at most TopK snippets at or above the similarity
// threshold, most similar first.
func (s *Service) Retrieve(ctx context.Context, query string) []interview.Snippet {
	if s == nil || s.searcher == nil || strings.TrimSpace(query) == "" {
		return nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	type result struct {
		snippets []interview.Snippet
		err      error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		snippets, err := s.searcher.Query(ctx, query, s.topK)
		done <- result{snippets: snippets, err: err}
	}()

	var res result
	select {
	case <-ctx.Done():
		res.err = ctx.Err()
	case res = <-done:
	}
	s.metrics.ObserveDownstream(observability.ComponentRetriever, start, res.err)
	if res.err != nil {
		s.logger.Warn("retrieval failed, continuing without snippets", zap.Error(res.err))
		s.metrics.Fallback(observability.ComponentRetriever)
		return nil
	}

	kept := make([]interview.Snippet, 0, len(res.snippets))
	for _, snippet := range res.snippets {
		if snippet.Similarity >= s.minSimilarity {
			kept = append(kept, snippet)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Similarity > kept[j].Similarity
	})
	if len(kept) > s.topK {
		kept = kept[:s.topK]
	}
	return kept
}
