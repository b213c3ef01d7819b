package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"ragserver/internal/middleware"
)

const (
	statusIngesting = "ingesting"
	statusReady     = "ready"
	statusFailed    = "failed"
)

const ingestTimeout = 30 * time.Minute

// IngestConsumer handles ingest.task messages: it runs the ingestion pipeline,
// persists the run report, and moves the source through its status lifecycle.
type IngestConsumer struct {
	ingestor Ingestor
	sources  SourceStatusStore
	runs     RunRecorder
}

func NewIngestConsumer(ingestor Ingestor, sources SourceStatusStore, runs RunRecorder) *IngestConsumer {
	return &IngestConsumer{
		ingestor: ingestor,
		sources:  sources,
		runs:     runs,
	}
}

func (h *IngestConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload IngestTaskPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison pill: invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}
	if payload.SourceID == "" || payload.SitemapURL == "" {
		slog.Error("poison pill: incomplete payload", "source_id", payload.SourceID, "sitemap_url", payload.SitemapURL)
		return nil
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}
	ctx, cancel := context.WithTimeout(ctx, ingestTimeout)
	defer cancel()

	if err := h.sources.UpdateStatus(ctx, payload.SourceID, statusIngesting); err != nil {
		slog.ErrorContext(ctx, "failed to mark source ingesting", "error", err, "source_id", payload.SourceID)
		return err // Retry
	}

	slog.InfoContext(ctx, "ingestion started", "source_id", payload.SourceID, "sitemap_url", payload.SitemapURL)

	report, err := h.ingestor.Run(ctx, payload.SitemapURL)
	if err != nil {
		slog.ErrorContext(ctx, "ingestion run failed", "error", err, "source_id", payload.SourceID)
		if statusErr := h.sources.UpdateStatus(ctx, payload.SourceID, statusFailed); statusErr != nil {
			slog.ErrorContext(ctx, "failed to mark source failed", "error", statusErr, "source_id", payload.SourceID)
		}
		return err // Retry
	}

	if err := h.runs.RecordRun(ctx, payload.SourceID, report); err != nil {
		// The vector store already holds the new points; losing the report
		// row is not worth re-running the whole pipeline.
		slog.ErrorContext(ctx, "failed to persist run report", "error", err, "source_id", payload.SourceID)
	}

	status := statusReady
	if report.Succeeded == 0 && report.Discovered > 0 {
		status = statusFailed
	}
	if err := h.sources.UpdateStatus(ctx, payload.SourceID, status); err != nil {
		slog.ErrorContext(ctx, "failed to update source status", "error", err, "source_id", payload.SourceID)
		return nil
	}

	slog.InfoContext(ctx, "ingestion finished",
		"source_id", payload.SourceID,
		"status", status,
		"discovered", report.Discovered,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"points_written", report.PointsWritten,
	)
	return nil
}
