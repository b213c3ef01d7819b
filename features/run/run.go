package run

import (
	"encoding/json"
	"time"
)

// Run is one persisted ingestion pass over a source's sitemap.
type Run struct {
	ID            string          `json:"id"`
	SourceID      string          `json:"source_id"`
	Discovered    int             `json:"discovered"`
	Succeeded     int             `json:"succeeded"`
	Failed        int             `json:"failed"`
	PointsWritten int             `json:"points_written"`
	Failures      json.RawMessage `json:"failures,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
}
