package retrieval

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ollama/ollama/api"
	"github.com/philippgille/chromem-go"
	"golang.org/x/sync/singleflight"
)

// DefaultHashDimensions is the vector size of the hash embedder.
const DefaultHashDimensions = 384

// NewHashEmbedder returns a deterministic bag-of-words embedder based on
// feature hashing. It needs no model server and is used by default and in
// tests.
func NewHashEmbedder(dims int) chromem.EmbeddingFunc {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, dims)
		for _, token := range tokenize(text) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(token))
			sum := h.Sum32()
			sign := float32(1)
			if sum&1 == 1 {
				sign = -1
			}
			vec[int(sum>>1)%dims] += sign
		}
		return normalize(vec), nil
	}
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "how": {}, "i": {}, "in": {}, "is": {}, "it": {}, "me": {},
	"my": {}, "of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "to": {}, "was": {},
	"we": {}, "what": {}, "with": {}, "you": {}, "your": {},
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if _, skip := stopwords[f]; skip || len(f) < 2 {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

var ErrEmptyEmbedding = errors.New("empty embedding")

// OllamaEmbedder embeds text through an Ollama server. Query embeddings are
// cached and concurrent requests for the same text share one call.
type OllamaEmbedder struct {
	client *api.Client
	model  string
	cache  *lru.Cache[string, []float32]
	group  singleflight.Group
}

// NewOllamaEmbedder uses OLLAMA_HOST from the environment when baseURL is
// empty.
func NewOllamaEmbedder(baseURL, model string, cacheSize int) (*OllamaEmbedder, error) {
	var client *api.Client
	if baseURL == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		client = c
	} else {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
		}
		client = api.NewClient(u, http.DefaultClient)
	}

	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}

	return &OllamaEmbedder{client: client, model: model, cache: cache}, nil
}

// Embed returns the normalized embedding for text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.cache.Get(text); ok {
		return vec, nil
	}

	v, err, _ := e.group.Do(text, func() (any, error) {
		resp, err := e.client.Embeddings(ctx, &api.EmbeddingRequest{
			Model:  e.model,
			Prompt: text,
		})
		if err != nil {
			return nil, fmt.Errorf("ollama embeddings: %w", err)
		}
		if len(resp.Embedding) == 0 {
			return nil, ErrEmptyEmbedding
		}

		vec := make([]float32, len(resp.Embedding))
		for i, f := range resp.Embedding {
			vec[i] = float32(f)
		}
		vec = normalize(vec)
		e.cache.Add(text, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// EmbeddingFunc adapts the embedder to chromem.
func (e *OllamaEmbedder) EmbeddingFunc() chromem.EmbeddingFunc {
	return e.Embed
}
