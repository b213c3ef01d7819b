package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrInvalidQuery is returned for empty or over-long queries. Invalid input
// is surfaced, never silently truncated.
var ErrInvalidQuery = errors.New("invalid query")

// Result is one retrieved chunk, ordered by descending relevance. It is never
// mutated after creation.
type Result struct {
	Text           string  `json:"text"`
	SourceURL      string  `json:"source_url"`
	RelevanceScore float64 `json:"relevance_score"`
	ChunkID        string  `json:"chunk_id"`
	Position       int     `json:"position"`
	Title          string  `json:"title,omitempty"`
}

type Embedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

type VectorStore interface {
	Search(ctx context.Context, vector []float32, topK int, minScore float64) ([]Result, error)
}

type Config struct {
	MaxQueryChars       int
	DefaultLimit        int
	DefaultMinRelevance float64
}

type Service struct {
	embedder Embedder
	store    VectorStore
	cfg      Config
	logger   *QueryLogger
}

func NewService(e Embedder, s VectorStore, cfg Config, l *QueryLogger) *Service {
	if cfg.MaxQueryChars <= 0 {
		cfg.MaxQueryChars = 1000
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 5
	}
	return &Service{embedder: e, store: s, cfg: cfg, logger: l}
}

// Retrieve validates the query, embeds it in query mode, and returns at most
// limit results at or above minRelevance. A negative minRelevance selects the
// configured default; zero is honored as an unfiltered search. An empty result
// set is a valid outcome; the insufficient-context policy belongs to the
// caller.
func (s *Service) Retrieve(ctx context.Context, query string, limit int, minRelevance float64) ([]Result, error) {
	start := time.Now()

	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidQuery)
	}
	if len(query) > s.cfg.MaxQueryChars {
		return nil, fmt.Errorf("%w: length %d exceeds maximum %d", ErrInvalidQuery, len(query), s.cfg.MaxQueryChars)
	}

	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if minRelevance < 0 {
		minRelevance = s.cfg.DefaultMinRelevance
	}

	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.store.Search(ctx, vec, limit, minRelevance)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	if len(results) == 0 {
		slog.InfoContext(ctx, "no results above relevance threshold", "min_relevance", minRelevance)
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:      query,
			NumResults: len(results),
			Duration:   time.Since(start),
		})
	}

	return results, nil
}
