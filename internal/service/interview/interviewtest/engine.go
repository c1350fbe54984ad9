// Package interviewtest builds a fully wired engine for transport tests.
package interviewtest

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap/zaptest"

	"github.com/zhouzirui/interview-coach/backend/internal/model/profile"
	"github.com/zhouzirui/interview-coach/backend/internal/service/followup"
	"github.com/zhouzirui/interview-coach/backend/internal/service/interview"
	"github.com/zhouzirui/interview-coach/backend/internal/service/report"
	"github.com/zhouzirui/interview-coach/backend/internal/service/retrieval"
	"github.com/zhouzirui/interview-coach/backend/internal/service/scoring"
	"github.com/zhouzirui/interview-coach/backend/internal/store"
)

// NewEngine returns an engine over an in-memory store and the seed corpus.
// chatModel may be nil, which runs every component on its fallback.
func NewEngine(t testing.TB, chatModel model.ChatModel, maxTurns int) *interview.Service {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	scorer, err := scoring.NewService(ctx, chatModel, scoring.Config{Timeout: time.Second}, logger, nil)
	if err != nil {
		t.Fatalf("scoring.NewService err: %v", err)
	}
	generator, err := followup.NewService(ctx, chatModel, followup.Config{Timeout: time.Second, MinTurns: 1}, logger, nil)
	if err != nil {
		t.Fatalf("followup.NewService err: %v", err)
	}
	reporter, err := report.NewService(ctx, chatModel, report.Config{Timeout: time.Second}, logger, nil)
	if err != nil {
		t.Fatalf("report.NewService err: %v", err)
	}

	idx, err := retrieval.OpenIndex(retrieval.IndexConfig{}, retrieval.NewHashEmbedder(retrieval.DefaultHashDimensions))
	if err != nil {
		t.Fatalf("OpenIndex err: %v", err)
	}
	if err := idx.Ingest(ctx, retrieval.SeedCorpus(), 4); err != nil {
		t.Fatalf("Ingest err: %v", err)
	}

	svc, err := interview.NewService(interview.Config{MaxTurns: maxTurns}, interview.Dependencies{
		Profiles:  profile.NewMemoryStore(profile.Seed()),
		Sessions:  store.NewMemoryStore(),
		Scorer:    scorer,
		Retriever: retrieval.NewService(idx, retrieval.Config{TopK: 3, MinSimilarity: 0.2, Timeout: time.Second}, logger, nil),
		Generator: generator,
		Reporter:  reporter,
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("interview.NewService err: %v", err)
	}
	return svc
}
