package config

// NSQ topics shared between the API (producer) and the ingestion worker
// (consumer). Defined centrally so both sides stay in sync.
const (
	TopicIngestTask = "ingest.task"
)
