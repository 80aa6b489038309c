package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/slavkostrov/playlist-selection/internal/errs"
	"github.com/slavkostrov/playlist-selection/internal/model"
)

// jobTTL bounds how long finished and abandoned jobs stay queryable.
const jobTTL = 24 * time.Hour

// JobStore persists job records between the API and the worker.
type JobStore interface {
	Save(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, jobID string) (*model.Job, error)
}

// RedisJobStore keeps jobs as JSON under "job:<id>" with a 24h TTL.
type RedisJobStore struct {
	redis *redis.Client
}

func NewRedisJobStore(redisClient *redis.Client) *RedisJobStore {
	return &RedisJobStore{redis: redisClient}
}

func (s *RedisJobStore) Save(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("%w: marshal job %s: %v", errs.ErrPersistence, job.ID, err)
	}
	if err := s.redis.Set(ctx, jobKey(job.ID), data, jobTTL).Err(); err != nil {
		return fmt.Errorf("%w: save job %s: %v", errs.ErrPersistence, job.ID, err)
	}
	return nil
}

func (s *RedisJobStore) Get(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errs.NotFound("job %s not found", jobID)
		}
		return nil, fmt.Errorf("%w: load job %s: %v", errs.ErrPersistence, jobID, err)
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("%w: decode job %s: %v", errs.ErrPersistence, jobID, err)
	}
	return &job, nil
}

func jobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

// MemoryJobStore is an in-process store for tests.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string][]byte
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: map[string][]byte{}}
}

func (s *MemoryJobStore) Save(_ context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("%w: marshal job %s: %v", errs.ErrPersistence, job.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = data
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, jobID string) (*model.Job, error) {
	s.mu.RLock()
	data, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, errs.NotFound("job %s not found", jobID)
	}
	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("%w: decode job %s: %v", errs.ErrPersistence, jobID, err)
	}
	return &job, nil
}
