package retrieval

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedderIsDeterministicAndNormalized(t *testing.T) {
	embed := NewHashEmbedder(64)

	a, err := embed(context.Background(), "Describe a bug you fixed")
	require.NoError(t, err)
	b, err := embed(context.Background(), "describe a BUG you fixed!")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestHashEmbedderDropsStopwords(t *testing.T) {
	vec, err := NewHashEmbedder(32)(context.Background(), "the and of a")
	require.NoError(t, err)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func newOllamaServer(t *testing.T, calls *atomic.Int32, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/api/embeddings" {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "model not loaded"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{3, 4}})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOllamaEmbedderCachesQueries(t *testing.T) {
	var calls atomic.Int32
	server := newOllamaServer(t, &calls, http.StatusOK)

	embedder, err := NewOllamaEmbedder(server.URL, "nomic-embed-text", 8)
	require.NoError(t, err)

	first, err := embedder.Embed(context.Background(), "star method")
	require.NoError(t, err)
	second, err := embedder.Embed(context.Background(), "star method")
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float32{0.6, 0.8}, first, 1e-6)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOllamaEmbedderPropagatesErrors(t *testing.T) {
	var calls atomic.Int32
	server := newOllamaServer(t, &calls, http.StatusInternalServerError)

	embedder, err := NewOllamaEmbedder(server.URL, "nomic-embed-text", 8)
	require.NoError(t, err)

	_, err = embedder.Embed(context.Background(), "anything")
	assert.Error(t, err)
}
