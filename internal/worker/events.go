package worker

// IngestTaskPayload is the ingest.task message published by the API when a
// source is created or resynced.
type IngestTaskPayload struct {
	SourceID      string `json:"source_id"`
	SitemapURL    string `json:"sitemap_url"`
	CorrelationID string `json:"correlation_id"`
}
