package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/interview-coach/backend/internal/config"
)

func staticConfig(t *testing.T) configLoader {
	t.Helper()
	persist := filepath.Join(t.TempDir(), "index")
	return func() (*config.Config, error) {
		return &config.Config{
			Interview: config.InterviewConfig{
				MaxTurns:        2,
				MinTurns:        1,
				MaxBullets:      4,
				ScoreTimeout:    time.Second,
				RetrieveTimeout: time.Second,
				GenerateTimeout: time.Second,
				SummaryTimeout:  time.Second,
			},
			Retrieval: config.RetrievalConfig{
				Embedder:      config.EmbedderHash,
				TopK:          3,
				MinSimilarity: 0.1,
				PersistPath:   persist,
				Collection:    "tips",
			},
		}, nil
	}
}

func run(t *testing.T, load configLoader, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out, load)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestProfilesCommand(t *testing.T) {
	out, err := run(t, staticConfig(t), "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "junior-developer")
	assert.Contains(t, out, "Senior Developer")
}

func TestSimulateCommand(t *testing.T) {
	out, err := run(t, staticConfig(t), "simulate",
		"--profile", "Junior Developer",
		"--answer", "I built a small CLI that cut our release time in half.",
		"--answer", "I paired with a teammate to debug a race condition.",
		"--answer", "never used, the session completes first")
	require.NoError(t, err)

	assert.Contains(t, out, "Q1: ")
	assert.Contains(t, out, "Q2: ")
	assert.NotContains(t, out, "Q3: ")
	assert.Contains(t, out, "(fallback)")
	assert.Contains(t, out, "report (COMPLETED)")
}

func TestSimulateReadsAnswersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.txt")
	require.NoError(t, os.WriteFile(path, []byte("first answer\n\n  second answer  \n"), 0o600))

	answers, err := readAnswers(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"first answer", "second answer"}, answers)
}

func TestSimulateRequiresAnswers(t *testing.T) {
	_, err := run(t, staticConfig(t), "simulate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no answers")
}

func TestIngestCommand(t *testing.T) {
	corpus := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, os.WriteFile(corpus, []byte(`[
		{"id": "silence", "text": "Pause before answering a hard question instead of rambling.", "tags": ["delivery"]},
		{"id": "tradeoffs", "text": "Name the trade-offs you considered and why you chose one.", "tags": ["design"]}
	]`), 0o600))

	load := staticConfig(t)
	out, err := run(t, load, "ingest", "--corpus", corpus, "--concurrency", "2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ingested 2 documents, collection now holds 2"), out)

	// the collection persists across runs
	out, err = run(t, load, "ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "ingested 15 documents, collection now holds 17")
}
