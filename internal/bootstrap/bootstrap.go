// Package bootstrap wires the interview engine from configuration. The API
// server and the command line tool share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/cloudwego/eino/components/model"
	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/zhouzirui/interview-coach/backend/internal/config"
	"github.com/zhouzirui/interview-coach/backend/internal/model/profile"
	"github.com/zhouzirui/interview-coach/backend/internal/observability"
	"github.com/zhouzirui/interview-coach/backend/internal/service/followup"
	"github.com/zhouzirui/interview-coach/backend/internal/service/interview"
	"github.com/zhouzirui/interview-coach/backend/internal/service/report"
	"github.com/zhouzirui/interview-coach/backend/internal/service/retrieval"
	"github.com/zhouzirui/interview-coach/backend/internal/service/scoring"
	"github.com/zhouzirui/interview-coach/backend/internal/store"
)

// App holds the wired engine and the resources it owns.
type App struct {
	Engine   *interview.Service
	Profiles profile.Store
	Sessions store.SessionStore
	Index    *retrieval.Index
}

// Close releases the session store.
func (a *App) Close() error {
	if a == nil || a.Sessions == nil {
		return nil
	}
	return a.Sessions.Close()
}

// Build wires every component described by cfg. A missing or broken model
// configuration is not fatal: every component then runs on its fallback.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) (*App, error) {
	logger = observability.OrNop(logger)

	sessions, err := OpenStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	app, err := build(ctx, cfg, sessions, logger, metrics)
	if err != nil {
		_ = sessions.Close()
		return nil, err
	}
	return app, nil
}

func build(ctx context.Context, cfg *config.Config, sessions store.SessionStore, logger *zap.Logger, metrics *observability.Metrics) (*App, error) {
	chatModel := NewChatModel(ctx, cfg.AI, logger)

	idx, err := OpenIndex(cfg.Retrieval)
	if err != nil {
		return nil, err
	}
	if idx.Count() == 0 {
		if err := idx.Ingest(ctx, retrieval.SeedCorpus(), runtime.NumCPU()); err != nil {
			// retrieval degrades to empty results
			logger.Warn("seed corpus ingest failed", zap.Error(err))
		}
	}

	scorer, err := scoring.NewService(ctx, chatModel, scoring.Config{
		Timeout:    cfg.Interview.ScoreTimeout,
		MaxBullets: cfg.Interview.MaxBullets,
	}, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("init scorer: %w", err)
	}

	generator, err := followup.NewService(ctx, chatModel, followup.Config{
		Timeout:  cfg.Interview.GenerateTimeout,
		MinTurns: cfg.Interview.MinTurns,
	}, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("init question generator: %w", err)
	}

	reporter, err := report.NewService(ctx, chatModel, report.Config{
		Timeout: cfg.Interview.SummaryTimeout,
	}, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("init reporter: %w", err)
	}

	retriever := retrieval.NewService(idx, retrieval.Config{
		TopK:          cfg.Retrieval.TopK,
		MinSimilarity: cfg.Retrieval.MinSimilarity,
		Timeout:       cfg.Interview.RetrieveTimeout,
	}, logger, metrics)

	profiles := profile.NewMemoryStore(profile.Seed())
	engine, err := interview.NewService(interview.Config{MaxTurns: cfg.Interview.MaxTurns}, interview.Dependencies{
		Profiles:  profiles,
		Sessions:  sessions,
		Scorer:    scorer,
		Retriever: retriever,
		Generator: generator,
		Reporter:  reporter,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		return nil, err
	}

	return &App{Engine: engine, Profiles: profiles, Sessions: sessions, Index: idx}, nil
}

// OpenStore opens the configured session store.
func OpenStore(cfg config.StoreConfig) (store.SessionStore, error) {
	switch cfg.Driver {
	case config.StoreMemory, "":
		return store.NewMemoryStore(), nil
	case config.StoreSQLite:
		s, err := store.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// OpenIndex opens the knowledge index with the configured embedder.
func OpenIndex(cfg config.RetrievalConfig) (*retrieval.Index, error) {
	var embed chromem.EmbeddingFunc
	switch cfg.Embedder {
	case config.EmbedderOllama:
		e, err := retrieval.NewOllamaEmbedder("", cfg.OllamaModel, cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("init ollama embedder: %w", err)
		}
		embed = e.EmbeddingFunc()
	case config.EmbedderHash, "":
		embed = retrieval.NewHashEmbedder(retrieval.DefaultHashDimensions)
	default:
		return nil, errors.New("unknown embedder " + cfg.Embedder)
	}

	idx, err := retrieval.OpenIndex(retrieval.IndexConfig{
		PersistPath: cfg.PersistPath,
		Collection:  cfg.Collection,
	}, embed)
	if err != nil {
		return nil, fmt.Errorf("open knowledge index: %w", err)
	}
	return idx, nil
}

// NewChatModel returns the Ark chat model, or nil when it is not configured
// or fails to initialise.
func NewChatModel(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) model.ChatModel {
	if !cfg.Enabled() {
		logger.Info("ark credentials not configured, running on deterministic fallbacks")
		return nil
	}
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		logger.Warn("failed to initialize chat model, running on deterministic fallbacks", zap.Error(err))
		return nil
	}
	logger.Info("chat model initialized", zap.String("model", cfg.Model))
	return chatModel
}
