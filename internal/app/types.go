package app

import (
	"context"

	"ragserver/internal/retrieval"
	"ragserver/internal/vector"
)

// VectorStore is the full weaviate surface the application wires together;
// each consumer sees only its own narrower interface.
type VectorStore interface {
	EnsureSchema(ctx context.Context) error
	UpsertChunks(ctx context.Context, points []vector.Point) error
	DeleteStaleChunks(ctx context.Context, url string, fromPosition int) error
	DeleteChunksByURLPrefix(ctx context.Context, prefix string) error
	Search(ctx context.Context, vec []float32, topK int, minScore float64) ([]retrieval.Result, error)
	CountChunks(ctx context.Context) (int, error)
}

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

// Embedder covers both embedding modes. Document and query embedding are
// distinct operations and are never interchangeable at a call-site.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
