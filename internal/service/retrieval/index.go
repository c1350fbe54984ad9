package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/philippgille/chromem-go"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/interview-coach/backend/internal/model/interview"
)

// Document is one knowledge-corpus entry.
type Document struct {
	ID   string   `json:"id"`
	Text string   `json:"text"`
	Tags []string `json:"tags,omitempty"`
}

// IndexConfig selects where the collection lives. An empty PersistPath keeps
// it in memory.
type IndexConfig struct {
	PersistPath string
	Collection  string
}

// Index is a chromem-go collection of corpus documents.
type Index struct {
	collection *chromem.Collection
}

// OpenIndex opens or creates the collection.
func OpenIndex(cfg IndexConfig, embed chromem.EmbeddingFunc) (*Index, error) {
	var db *chromem.DB
	if cfg.PersistPath == "" {
		db = chromem.NewDB()
	} else {
		persistent, err := chromem.NewPersistentDB(cfg.PersistPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector store at %s: %w", cfg.PersistPath, err)
		}
		db = persistent
	}

	name := cfg.Collection
	if name == "" {
		name = "interview-tips"
	}

	collection, err := db.GetOrCreateCollection(name, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", name, err)
	}
	return &Index{collection: collection}, nil
}

// Count returns the number of indexed documents.
func (i *Index) Count() int {
	return i.collection.Count()
}

// Ingest embeds and stores docs with at most concurrency embeddings in flight.
func (i *Index) Ingest(ctx context.Context, docs []Document, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 4
	}

	for _, doc := range docs {
		if strings.TrimSpace(doc.ID) == "" || strings.TrimSpace(doc.Text) == "" {
			return fmt.Errorf("document %q: id and text are required", doc.ID)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, doc := range docs {
		g.Go(func() error {
			err := i.collection.AddDocument(gctx, chromem.Document{
				ID:       doc.ID,
				Content:  doc.Text,
				Metadata: map[string]string{"tags": strings.Join(doc.Tags, ",")},
			})
			if err != nil {
				return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Query returns up to k nearest documents, most similar first.
func (i *Index) Query(ctx context.Context, text string, k int) ([]interview.Snippet, error) {
	n := i.collection.Count()
	if n == 0 || k <= 0 || strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if k > n {
		k = n
	}

	results, err := i.collection.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	snippets := make([]interview.Snippet, 0, len(results))
	for _, r := range results {
		snippets = append(snippets, interview.Snippet{
			ID:         r.ID,
			Text:       r.Content,
			Similarity: r.Similarity,
		})
	}
	return snippets, nil
}
