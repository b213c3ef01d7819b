package run

import (
	"context"
	"encoding/json"
	"fmt"

	"ragserver/internal/ingest"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordRun converts a pipeline report into a persisted run row. Satisfies
// the worker's RunRecorder.
func (s *Service) RecordRun(ctx context.Context, sourceID string, report *ingest.Report) error {
	var failures json.RawMessage
	if len(report.Failures) > 0 {
		b, err := json.Marshal(report.Failures)
		if err != nil {
			return fmt.Errorf("marshal failures: %w", err)
		}
		failures = b
	}

	r := &Run{
		SourceID:      sourceID,
		Discovered:    report.Discovered,
		Succeeded:     report.Succeeded,
		Failed:        report.Failed,
		PointsWritten: report.PointsWritten,
		Failures:      failures,
		StartedAt:     report.StartedAt,
		FinishedAt:    report.StartedAt.Add(report.Duration),
	}
	return s.repo.Save(ctx, r)
}

func (s *Service) ListBySource(ctx context.Context, sourceID string) ([]Run, error) {
	return s.repo.ListBySource(ctx, sourceID)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
