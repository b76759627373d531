package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"idvet/internal/job"
	"idvet/pkg/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) TestCreateAndGet() {
	j := job.New("doc-1", "", "", []string{"watchman"})
	s.Require().NoError(s.store.Create(s.ctx, j))

	got, err := s.store.Get(s.ctx, j.ID)
	s.Require().NoError(err)
	s.Equal(j.ID, got.ID)
	s.Equal(job.StatusSubmitted, got.Status)
}

func (s *InMemoryStoreSuite) TestCreateDuplicateConflicts() {
	j := job.New("doc-1", "", "", nil)
	s.Require().NoError(s.store.Create(s.ctx, j))
	s.ErrorIs(s.store.Create(s.ctx, j), sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestGetUnknownID() {
	_, err := s.store.Get(s.ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestUpdateUnknownID() {
	_, err := s.store.Update(s.ctx, "missing", func(*job.Job) error { return nil })
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestUpdateAppliesMutation() {
	j := job.New("doc-1", "", "", nil)
	s.Require().NoError(s.store.Create(s.ctx, j))

	updated, err := s.store.Update(s.ctx, j.ID, func(cur *job.Job) error {
		return cur.Transition(job.StatusExtracting)
	})
	s.Require().NoError(err)
	s.Equal(job.StatusExtracting, updated.Status)

	got, err := s.store.Get(s.ctx, j.ID)
	s.Require().NoError(err)
	s.Equal(job.StatusExtracting, got.Status)
}

func (s *InMemoryStoreSuite) TestUpdateErrorLeavesJobUntouched() {
	j := job.New("doc-1", "", "", nil)
	s.Require().NoError(s.store.Create(s.ctx, j))

	_, err := s.store.Update(s.ctx, j.ID, func(cur *job.Job) error {
		cur.Status = job.StatusCompleted // must not be persisted
		return sentinel.ErrInvalidState
	})
	s.ErrorIs(err, sentinel.ErrInvalidState)

	got, err := s.store.Get(s.ctx, j.ID)
	s.Require().NoError(err)
	s.Equal(job.StatusSubmitted, got.Status)
}

func (s *InMemoryStoreSuite) TestSnapshotsDoNotAliasStoreState() {
	j := job.New("doc-1", "", "", []string{"watchman"})
	s.Require().NoError(s.store.Create(s.ctx, j))

	got, err := s.store.Get(s.ctx, j.ID)
	s.Require().NoError(err)
	got.Status = job.StatusFailed

	again, err := s.store.Get(s.ctx, j.ID)
	s.Require().NoError(err)
	s.Equal(job.StatusSubmitted, again.Status)
}

// Concurrent per-provider updates must all land: the per-id lock serializes
// mutations so none are lost.
func (s *InMemoryStoreSuite) TestConcurrentUpdates() {
	providers := []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6", "p7"}
	j := job.New("doc-1", "", "", providers)
	s.Require().NoError(s.store.Create(s.ctx, j))

	var wg sync.WaitGroup
	for _, p := range providers {
		wg.Add(1)
		go func(provider string) {
			defer wg.Done()
			_, err := s.store.Update(s.ctx, j.ID, func(cur *job.Job) error {
				cur.RecordOutcome(provider, job.Outcome{Status: job.OutcomeSuccess})
				return nil
			})
			s.NoError(err)
		}(p)
	}
	wg.Wait()

	got, err := s.store.Get(s.ctx, j.ID)
	s.Require().NoError(err)
	s.Len(got.Screening, len(providers))
	s.True(got.ScreeningComplete())
}
