package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"idvet/internal/job"
	"idvet/pkg/sentinel"
)

const (
	// Redis key prefix for job records
	jobKeyPrefix = "kyc:job:"

	// Optimistic update attempts before giving up under contention. Each job
	// has a single writer goroutine, so collisions are rare in practice.
	redisUpdateAttempts = 5
)

// RedisStore is the distributed job store for multi-instance deployments.
// Updates use WATCH/MULTI so a concurrent write to the same job forces a
// re-read and re-apply rather than a lost update.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}

func (s *RedisStore) Create(ctx context.Context, j job.Job) error {
	payload, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	ok, err := s.client.SetNX(ctx, jobKey(j.ID), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("setnx job: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (job.Job, error) {
	payload, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return job.Job{}, sentinel.ErrNotFound
	}
	if err != nil {
		return job.Job{}, fmt.Errorf("get job: %w", err)
	}

	var j job.Job
	if err := json.Unmarshal(payload, &j); err != nil {
		return job.Job{}, fmt.Errorf("unmarshal job: %w", err)
	}
	return j, nil
}

func (s *RedisStore) Update(ctx context.Context, id string, mutate func(*job.Job) error) (job.Job, error) {
	key := jobKey(id)
	var updated job.Job

	txn := func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get job: %w", err)
		}

		var j job.Job
		if err := json.Unmarshal(payload, &j); err != nil {
			return fmt.Errorf("unmarshal job: %w", err)
		}

		if err := mutate(&j); err != nil {
			return err
		}

		next, err := json.Marshal(j)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = j
		return nil
	}

	for attempt := 0; attempt < redisUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue // lost the race, re-read and retry
		}
		return job.Job{}, err
	}
	return job.Job{}, sentinel.ErrConflict
}
