package worker

import (
	"context"

	"ragserver/internal/ingest"
)

// Ingestor runs a full ingestion pass over a sitemap.
type Ingestor interface {
	Run(ctx context.Context, sitemapURL string) (*ingest.Report, error)
}

// SourceStatusStore updates a source's lifecycle status as its ingestion
// progresses.
type SourceStatusStore interface {
	UpdateStatus(ctx context.Context, id, status string) error
}

// RunRecorder persists the report of a finished ingestion pass.
type RunRecorder interface {
	RecordRun(ctx context.Context, sourceID string, report *ingest.Report) error
}
