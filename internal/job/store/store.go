// Package store persists job state. Stores are interface-driven so the
// pipeline can run against memory in tests and Postgres or Redis in
// deployments without rewiring business code.
package store

import (
	"context"

	"idvet/internal/job"
)

// Store is the durable keyed record of job state. All updates are atomic with
// respect to a single job id: concurrent readers never observe a
// partially-applied transition. No cross-job transactions exist.
type Store interface {
	// Create persists a new job. Fails with sentinel.ErrConflict if the id
	// already exists.
	Create(ctx context.Context, j job.Job) error

	// Get returns a snapshot of the job, or sentinel.ErrNotFound.
	Get(ctx context.Context, id string) (job.Job, error)

	// Update applies mutate to the job under the store's per-id lock and
	// persists the result. If mutate returns an error nothing is written.
	// Returns the post-mutation snapshot.
	Update(ctx context.Context, id string, mutate func(*job.Job) error) (job.Job, error)
}
