package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/slavkostrov/playlist-selection/internal/errs"
	"github.com/slavkostrov/playlist-selection/internal/model"
)

const TaskTypePredict = "predict:process"

// Enqueuer hands tasks to the background queue.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// PredictService handles recommendation job management.
type PredictService struct {
	store JobStore
	queue Enqueuer
}

func NewPredictService(store JobStore, queue Enqueuer) *PredictService {
	return &PredictService{store: store, queue: queue}
}

// Submit validates the seed, persists a pending job and queues it for
// processing.
func (s *PredictService) Submit(ctx context.Context, userID string, req *model.PredictSubmitRequest) (*model.PredictSubmitResponse, error) {
	seed := req.Seed()
	if err := seed.Validate(); err != nil {
		return nil, err
	}

	jobID := uuid.New().String()
	now := time.Now()

	payload := &model.PredictJobPayload{
		Seed:   seed,
		Strict: req.Strict,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	job := &model.Job{
		ID:        jobID,
		Status:    model.JobStatusPending,
		UserID:    userID,
		Payload:   payloadBytes,
		CreatedAt: now,
	}
	if err := s.store.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := newPredictTask(jobID, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	_, err = s.queue.Enqueue(task,
		asynq.Queue("predict"),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.PredictSubmitResponse{
		JobID:     jobID,
		Status:    model.JobStatusPending,
		CreatedAt: now,
	}, nil
}

// GetStatus returns the current state of a job.
func (s *PredictService) GetStatus(ctx context.Context, jobID string) (*model.PredictStatusResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.PredictStatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		RetryCount:  job.RetryCount,
	}, nil
}

// GetResult returns the recommendation list of a completed job. Any
// other state reports not found so callers keep polling status.
func (s *PredictService) GetResult(ctx context.Context, jobID string) (*model.PredictResultResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusCompleted {
		return nil, errs.NotFound("job %s has no result yet (status %s)", jobID, job.Status)
	}

	var result model.PredictResultResponse
	if err := json.Unmarshal(job.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &result, nil
}

func newPredictTask(jobID string, payload []byte) (*asynq.Task, error) {
	taskPayload := map[string]interface{}{
		"jobId":   jobID,
		"payload": payload,
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePredict, data), nil
}
