package ingest

import (
	"context"
	"time"

	"ragserver/internal/text"
	"ragserver/internal/vector"
)

// SourceDocument is one fetched page. It lives only until extraction.
type SourceDocument struct {
	URL       string
	RawMarkup string
	FetchedAt time.Time
	Status    int
}

// ExtractedText is the cleaned text of a page, scoped to a single ingestion
// pass.
type ExtractedText struct {
	URL       string
	CleanText string
	Title     string
	WordCount int
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*SourceDocument, error)
}

type Extractor interface {
	Extract(doc *SourceDocument) (*ExtractedText, error)
}

type Chunker interface {
	Chunk(cleanText, url string) []text.ContentChunk
}

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

type VectorStore interface {
	UpsertChunks(ctx context.Context, points []vector.Point) error
	DeleteStaleChunks(ctx context.Context, url string, fromPosition int) error
}
