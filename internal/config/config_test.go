package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("INTERVIEW_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5, cfg.Interview.MaxTurns)
	assert.Equal(t, 3, cfg.Interview.MinTurns)
	assert.Equal(t, 6, cfg.Interview.MaxBullets)
	assert.Equal(t, 20*time.Second, cfg.Interview.ScoreTimeout)
	assert.Equal(t, 5*time.Second, cfg.Interview.RetrieveTimeout)
	assert.Equal(t, EmbedderHash, cfg.Retrieval.Embedder)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.2, cfg.Retrieval.MinSimilarity, 1e-6)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9090")
	t.Setenv("INTERVIEW_MAX_TURNS", "7")
	t.Setenv("INTERVIEW_SCORE_TIMEOUT", "3")
	t.Setenv("INTERVIEW_GENERATE_TIMEOUT", "1500ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("STORE_DRIVER", "SQLite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, 7, cfg.Interview.MaxTurns)
	assert.Equal(t, 3*time.Second, cfg.Interview.ScoreTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Interview.GenerateTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"INTERVIEW_MAX_TURNS":     "many",
		"INTERVIEW_SCORE_TIMEOUT": "soon",
		"ARK_TEMPERATURE":         "warm",
		"RETRIEVAL_EMBEDDER":      "bert",
		"STORE_DRIVER":            "postgres",
		"LOG_DEVELOPMENT":         "maybe",
		"PORT":                    "80 80",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsMaxBelowMin(t *testing.T) {
	t.Setenv("INTERVIEW_MAX_TURNS", "2")
	t.Setenv("INTERVIEW_MIN_TURNS", "3")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFromConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interview.yaml")
	require.NoError(t, os.WriteFile(path, []byte("INTERVIEW_MAX_TURNS: 8\nRETRIEVAL_TOP_K: 5\n"), 0o600))
	t.Setenv("INTERVIEW_CONFIG", path)
	t.Setenv("RETRIEVAL_TOP_K", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Interview.MaxTurns)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
}

func TestAIConfigEnabled(t *testing.T) {
	assert.False(t, AIConfig{}.Enabled())
	assert.True(t, AIConfig{Model: "m", APIKey: "k"}.Enabled())
	assert.True(t, AIConfig{Model: "m", AccessKey: "a", SecretKey: "s"}.Enabled())
	assert.False(t, AIConfig{Model: "m", AccessKey: "a"}.Enabled())
}
