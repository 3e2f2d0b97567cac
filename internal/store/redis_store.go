package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flibusta-apps/batch-downloader/internal/models"
)

// Store persists job records in Redis under expiring keys. Every save
// refreshes the expiry; records are never deleted explicitly.
type Store struct {
	client *redis.Client
	jobTTL time.Duration
}

// New builds a job store over an existing Redis client.
func New(client *redis.Client, jobTTL time.Duration) *Store {
	if jobTTL == 0 {
		jobTTL = time.Hour
	}
	return &Store{client: client, jobTTL: jobTTL}
}

func jobKey(jobID string) string {
	return "at_" + jobID
}

func archivingKey(jobID string) string {
	return "at_lock_" + jobID
}

func requestKey(digest string) string {
	return "rq_" + digest
}

// Save writes the job record with the standard expiry.
func (s *Store) Save(ctx context.Context, job models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.client.Set(ctx, jobKey(job.ID), data, s.jobTTL).Err(); err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

// Get loads a job record. It returns (nil, nil) when the key is missing or
// expired; the two are indistinguishable by design.
func (s *Store) Get(ctx context.Context, jobID string) (*models.Job, error) {
	data, err := s.client.Get(ctx, jobKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

// TryMarkArchiving atomically claims the archive-assembly step for a job.
// Only the first caller wins; concurrent fan-in checks that observe the same
// all-ready state lose the claim and submit nothing.
func (s *Store) TryMarkArchiving(ctx context.Context, jobID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, archivingKey(jobID), "1", s.jobTTL).Result()
	if err != nil {
		return false, fmt.Errorf("mark archiving: %w", err)
	}
	return ok, nil
}

// RememberRequest maps a request digest to a job id so an identical request
// reuses the live job instead of fanning out again.
func (s *Store) RememberRequest(ctx context.Context, digest, jobID string) error {
	if err := s.client.Set(ctx, requestKey(digest), jobID, s.jobTTL).Err(); err != nil {
		return fmt.Errorf("remember request: %w", err)
	}
	return nil
}

// JobForRequest returns the job id previously mapped to the digest, or ""
// when no live mapping exists.
func (s *Store) JobForRequest(ctx context.Context, digest string) (string, error) {
	jobID, err := s.client.Get(ctx, requestKey(digest)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup request: %w", err)
	}
	return jobID, nil
}
