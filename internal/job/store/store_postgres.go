package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"idvet/internal/job"
	"idvet/pkg/sentinel"
)

// PostgresStore persists jobs as JSONB rows. The status column is denormalized
// for operational queries; the payload column is the source of truth. Updates
// take a row lock so per-job mutations serialize across instances.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema the store expects:
//
//	CREATE TABLE IF NOT EXISTS kyc_jobs (
//	    id         TEXT PRIMARY KEY,
//	    status     TEXT NOT NULL,
//	    payload    JSONB NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
func (s *PostgresStore) Create(ctx context.Context, j job.Job) error {
	payload, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	query := `
		INSERT INTO kyc_jobs (id, status, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query, j.ID, string(j.Status), payload, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (job.Job, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM kyc_jobs WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return job.Job{}, sentinel.ErrNotFound
	}
	if err != nil {
		return job.Job{}, fmt.Errorf("select job: %w", err)
	}

	var j job.Job
	if err := json.Unmarshal(payload, &j); err != nil {
		return job.Job{}, fmt.Errorf("unmarshal job: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, mutate func(*job.Job) error) (job.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return job.Job{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var payload []byte
	err = tx.QueryRowContext(ctx, `SELECT payload FROM kyc_jobs WHERE id = $1 FOR UPDATE`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return job.Job{}, sentinel.ErrNotFound
	}
	if err != nil {
		return job.Job{}, fmt.Errorf("lock job: %w", err)
	}

	var j job.Job
	if err := json.Unmarshal(payload, &j); err != nil {
		return job.Job{}, fmt.Errorf("unmarshal job: %w", err)
	}

	if err := mutate(&j); err != nil {
		return job.Job{}, err
	}

	next, err := json.Marshal(j)
	if err != nil {
		return job.Job{}, fmt.Errorf("marshal job: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE kyc_jobs SET status = $2, payload = $3, updated_at = $4 WHERE id = $1`,
		id, string(j.Status), next, j.UpdatedAt,
	)
	if err != nil {
		return job.Job{}, fmt.Errorf("update job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return job.Job{}, fmt.Errorf("commit: %w", err)
	}
	return j, nil
}
