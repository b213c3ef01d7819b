package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ragserver/internal/vector"
)

// Pipeline stage names, recorded on failures so a report shows where each URL
// stopped.
const (
	StageFetch   = "fetch"
	StageExtract = "extract"
	StageChunk   = "chunk"
	StageEmbed   = "embed"
	StageStore   = "store"
)

// Failure records a single URL that did not make it through the pipeline.
type Failure struct {
	URL   string `json:"url"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// Report summarizes one ingestion pass over a sitemap.
type Report struct {
	SitemapURL    string        `json:"sitemap_url"`
	Discovered    int           `json:"discovered"`
	Succeeded     int           `json:"succeeded"`
	Failed        int           `json:"failed"`
	PointsWritten int           `json:"points_written"`
	Failures      []Failure     `json:"failures,omitempty"`
	Duration      time.Duration `json:"duration"`
	StartedAt     time.Time     `json:"started_at"`
}

// Pipeline runs the fetch, extract, chunk, embed and store stages for every
// URL in a sitemap. URLs are processed concurrently with a bounded worker
// pool; a failure on one URL never aborts the others.
type Pipeline struct {
	loader      *SitemapLoader
	fetcher     Fetcher
	extractor   Extractor
	chunker     Chunker
	embedder    Embedder
	store       VectorStore
	concurrency int
}

type PipelineConfig struct {
	Concurrency int
}

func NewPipeline(loader *SitemapLoader, f Fetcher, e Extractor, c Chunker, emb Embedder, store VectorStore, cfg PipelineConfig) *Pipeline {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Pipeline{
		loader:      loader,
		fetcher:     f,
		extractor:   e,
		chunker:     c,
		embedder:    emb,
		store:       store,
		concurrency: concurrency,
	}
}

// Run ingests every page listed by the sitemap and returns a per-URL report.
// The returned error is non-nil only when the sitemap itself cannot be loaded;
// page-level failures are reported, not raised.
func (p *Pipeline) Run(ctx context.Context, sitemapURL string) (*Report, error) {
	started := time.Now()

	urls, err := p.loader.Load(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("load sitemap: %w", err)
	}

	report := &Report{
		SitemapURL: sitemapURL,
		Discovered: len(urls),
		StartedAt:  started,
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, u := range urls {
		url := u
		g.Go(func() error {
			written, err := p.ingestURL(gctx, url)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Failures = append(report.Failures, Failure{
					URL:   url,
					Stage: stageOf(err),
					Error: err.Error(),
				})
				slog.WarnContext(gctx, "url ingestion failed", "url", url, "stage", stageOf(err), "error", err)
				return nil
			}
			report.Succeeded++
			report.PointsWritten += written
			return nil
		})
	}

	// Workers swallow per-URL errors, so Wait only surfaces context
	// cancellation.
	if err := g.Wait(); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	report.Duration = time.Since(started)
	slog.InfoContext(ctx, "ingestion run finished",
		"sitemap_url", sitemapURL,
		"discovered", report.Discovered,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"points_written", report.PointsWritten,
		"duration", report.Duration.String(),
	)
	return report, nil
}

// stageError tags an error with the pipeline stage it came from.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func atStage(stage string, err error) error {
	return &stageError{stage: stage, err: err}
}

func stageOf(err error) string {
	if se, ok := err.(*stageError); ok {
		return se.stage
	}
	return "unknown"
}

// ingestURL runs one URL through every stage and returns the number of points
// written. New points are upserted before stale ones are deleted, so a
// failure at any stage leaves the previously indexed content untouched.
func (p *Pipeline) ingestURL(ctx context.Context, url string) (int, error) {
	doc, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, atStage(StageFetch, err)
	}

	extracted, err := p.extractor.Extract(doc)
	if err != nil {
		return 0, atStage(StageExtract, err)
	}

	chunks := p.chunker.Chunk(extracted.CleanText, url)
	if len(chunks) == 0 {
		return 0, atStage(StageChunk, fmt.Errorf("no chunks produced"))
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, atStage(StageEmbed, err)
	}
	if len(vectors) != len(chunks) {
		return 0, atStage(StageEmbed, fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(chunks), len(vectors)))
	}

	now := time.Now().UTC()
	points := make([]vector.Point, len(chunks))
	for i, c := range chunks {
		points[i] = vector.Point{
			ChunkID:   c.ID,
			URL:       c.URL,
			Text:      c.Text,
			Position:  c.Position,
			Title:     extracted.Title,
			Vector:    vectors[i],
			CreatedAt: now,
		}
	}

	if err := p.store.UpsertChunks(ctx, points); err != nil {
		return 0, atStage(StageStore, err)
	}
	if err := p.store.DeleteStaleChunks(ctx, url, len(points)); err != nil {
		return 0, atStage(StageStore, fmt.Errorf("delete stale chunks: %w", err))
	}

	slog.DebugContext(ctx, "ingested url", "url", url, "chunks", len(points))
	return len(points), nil
}
