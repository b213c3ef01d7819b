package run

import (
	"context"
	"database/sql"
	"encoding/json"
)

type Repository interface {
	Save(ctx context.Context, run *Run) error
	ListBySource(ctx context.Context, sourceID string) ([]Run, error)
	Count(ctx context.Context) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, run *Run) error {
	query := `INSERT INTO ingestion_runs (source_id, discovered, succeeded, failed, points_written, failures, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		run.SourceID, run.Discovered, run.Succeeded, run.Failed,
		run.PointsWritten, run.Failures, run.StartedAt, run.FinishedAt,
	).Scan(&run.ID)
}

func (r *PostgresRepo) ListBySource(ctx context.Context, sourceID string) ([]Run, error) {
	query := `SELECT id, source_id, discovered, succeeded, failed, points_written, failures, started_at, finished_at
		FROM ingestion_runs WHERE source_id = $1 ORDER BY started_at DESC`
	rows, err := r.db.QueryContext(ctx, query, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var failures []byte
		if err := rows.Scan(&run.ID, &run.SourceID, &run.Discovered, &run.Succeeded, &run.Failed,
			&run.PointsWritten, &failures, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, err
		}
		run.Failures = json.RawMessage(failures)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM ingestion_runs`
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}
