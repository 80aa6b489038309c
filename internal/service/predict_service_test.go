package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/slavkostrov/playlist-selection/internal/errs"
	"github.com/slavkostrov/playlist-selection/internal/model"
)

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func newTestService() (*PredictService, *MemoryJobStore, *fakeQueue) {
	store := NewMemoryJobStore()
	queue := &fakeQueue{}
	return NewPredictService(store, queue), store, queue
}

func TestSubmitQueuesPendingJob(t *testing.T) {
	svc, store, queue := newTestService()

	resp, err := svc.Submit(context.Background(), "user-1", &model.PredictSubmitRequest{
		TrackIDs: []string{"t1", "t2"},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if resp.JobID == "" {
		t.Fatal("expected a job id")
	}
	if resp.Status != model.JobStatusPending {
		t.Errorf("status = %s, want pending", resp.Status)
	}

	job, err := store.Get(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if job.Status != model.JobStatusPending {
		t.Errorf("persisted status = %s, want pending", job.Status)
	}
	if job.UserID != "user-1" {
		t.Errorf("persisted user = %q, want user-1", job.UserID)
	}

	var payload model.PredictJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		t.Fatalf("payload not attached: %v", err)
	}
	if len(payload.Seed.TrackIDs) != 2 {
		t.Errorf("payload seed = %v", payload.Seed)
	}

	if len(queue.tasks) != 1 {
		t.Fatalf("expected 1 enqueued task, got %d", len(queue.tasks))
	}
	if queue.tasks[0].Type() != TaskTypePredict {
		t.Errorf("task type = %s, want %s", queue.tasks[0].Type(), TaskTypePredict)
	}
}

func TestSubmitRejectsInvalidSeed(t *testing.T) {
	svc, _, queue := newTestService()

	tests := []*model.PredictSubmitRequest{
		{}, // neither variant
		{TrackIDs: []string{"t1"}, Songs: []model.SongQuery{{Name: "x"}}}, // both
	}
	for _, req := range tests {
		_, err := svc.Submit(context.Background(), "user-1", req)
		if !errors.Is(err, errs.ErrValidation) {
			t.Errorf("Submit(%+v): expected validation error, got %v", req, err)
		}
	}
	if len(queue.tasks) != 0 {
		t.Errorf("invalid submissions must not enqueue, got %d tasks", len(queue.tasks))
	}
}

func TestGetStatusUnknownJob(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.GetStatus(context.Background(), "missing")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetResultOnlyWhenCompleted(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	job := &model.Job{
		ID:        "job-1",
		Status:    model.JobStatusProcessing,
		CreatedAt: time.Now(),
	}
	if err := store.Save(ctx, job); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if _, err := svc.GetResult(ctx, "job-1"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("result before completion: expected ErrNotFound, got %v", err)
	}

	result := model.PredictResultResponse{
		JobID:     "job-1",
		Songs:     []model.Song{{ID: "n1", Name: "Track"}},
		CreatedAt: job.CreatedAt,
	}
	job.Result, _ = json.Marshal(result)
	job.Status = model.JobStatusCompleted
	if err := store.Save(ctx, job); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := svc.GetResult(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if len(got.Songs) != 1 || got.Songs[0].ID != "n1" {
		t.Errorf("result songs = %v", got.Songs)
	}
}

func TestFailedJobStatusStaysQueryable(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	msg := "catalog down"
	job := &model.Job{
		ID:        "job-1",
		Status:    model.JobStatusFailed,
		Error:     &msg,
		CreatedAt: time.Now(),
	}
	if err := store.Save(ctx, job); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	status, err := svc.GetStatus(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if status.Status != model.JobStatusFailed {
		t.Errorf("status = %s, want failed", status.Status)
	}
	if status.Error == nil || *status.Error != msg {
		t.Errorf("expected error message %q on status", msg)
	}
}
