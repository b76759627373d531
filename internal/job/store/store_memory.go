package store

import (
	"context"
	"sync"

	"idvet/internal/job"
	"idvet/pkg/sentinel"
)

// InMemoryStore keeps jobs in a mutex-guarded map. It is the default for
// single-instance deployments and tests; it intentionally favors clarity over
// performance.
type InMemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]job.Job
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{jobs: make(map[string]job.Job)}
}

func (s *InMemoryStore) Create(_ context.Context, j job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[j.ID]; exists {
		return sentinel.ErrConflict
	}
	s.jobs[j.ID] = j.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if j, ok := s.jobs[id]; ok {
		return j.Clone(), nil
	}
	return job.Job{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Update(_ context.Context, id string, mutate func(*job.Job) error) (job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.jobs[id]
	if !ok {
		return job.Job{}, sentinel.ErrNotFound
	}
	next := current.Clone()
	if err := mutate(&next); err != nil {
		return job.Job{}, err
	}
	s.jobs[id] = next
	return next.Clone(), nil
}
