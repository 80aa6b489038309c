// Package worker runs queued recommendation jobs: resolve the seed,
// query the similarity index and persist the result, driving the job
// state machine as it goes.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/slavkostrov/playlist-selection/internal/errs"
	"github.com/slavkostrov/playlist-selection/internal/features"
	"github.com/slavkostrov/playlist-selection/internal/model"
	"github.com/slavkostrov/playlist-selection/internal/recommender"
	"github.com/slavkostrov/playlist-selection/internal/service"
)

// maxRetries matches the queue's delivery budget for a task.
const maxRetries = 3

// SeedResolver resolves seeds and hydrates result track ids.
type SeedResolver interface {
	Resolve(ctx context.Context, seed model.SeedSpec, strict bool) ([]model.TrackMeta, error)
	LookupTracks(ctx context.Context, ids []string) ([]model.Song, error)
}

// Notifier pushes job updates to subscribed clients. May be nil.
type Notifier interface {
	BroadcastStatus(jobID string, status model.JobStatus)
	BroadcastComplete(jobID string, result interface{})
	BroadcastError(jobID string, code, message string)
}

// PredictWorker processes recommendation jobs.
type PredictWorker struct {
	store    service.JobStore
	resolver SeedResolver
	rec      recommender.Recommender
	hub      Notifier
}

func NewPredictWorker(store service.JobStore, res SeedResolver, rec recommender.Recommender, hub Notifier) *PredictWorker {
	return &PredictWorker{
		store:    store,
		resolver: res,
		rec:      rec,
		hub:      hub,
	}
}

// ProcessTask handles one queued delivery of a recommendation job.
func (w *PredictWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID   string          `json:"jobId"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", asynq.SkipRetry)
	}

	var payload model.PredictJobPayload
	if err := json.Unmarshal(taskPayload.Payload, &payload); err != nil {
		w.failJob(ctx, taskPayload.JobID, "invalid payload")
		return fmt.Errorf("failed to unmarshal predict payload: %w", asynq.SkipRetry)
	}

	retryCount, _ := asynq.GetRetryCount(ctx)
	return w.process(ctx, taskPayload.JobID, &payload, retryCount)
}

// process runs the pipeline for one delivery. retryCount is how many
// deliveries preceded this one.
func (w *PredictWorker) process(ctx context.Context, jobID string, payload *model.PredictJobPayload, retryCount int) error {
	log.Printf("Starting predict job: %s (attempt %d)", jobID, retryCount+1)

	job, err := w.store.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("job %s: %v: %w", jobID, err, asynq.SkipRetry)
	}
	if job.Status.Terminal() {
		log.Printf("Predict job %s already %s, skipping delivery", jobID, job.Status)
		return nil
	}

	// A redelivery after a crash may find the job mid-transition;
	// only advance through states it has not reached yet.
	job.RetryCount = retryCount
	if job.Status == model.JobStatusPending {
		if err := w.setStatus(ctx, job, model.JobStatusReceived); err != nil {
			return err
		}
	}
	if job.Status == model.JobStatusReceived {
		if err := w.setStatus(ctx, job, model.JobStatusProcessing); err != nil {
			return err
		}
	}

	songs, err := w.run(ctx, job.ID, payload)
	if err != nil {
		return w.finish(ctx, job, err)
	}

	result := &model.PredictResultResponse{
		JobID:     job.ID,
		Songs:     songs,
		CreatedAt: job.CreatedAt,
	}
	if err := w.completeJob(ctx, job, result); err != nil {
		return err
	}
	if w.hub != nil {
		w.hub.BroadcastComplete(job.ID, result)
	}
	log.Printf("Predict job %s completed with %d songs", job.ID, len(songs))
	return nil
}

// run executes resolve, query and hydrate for the job.
func (w *PredictWorker) run(ctx context.Context, jobID string, payload *model.PredictJobPayload) ([]model.Song, error) {
	meta, err := w.resolver.Resolve(ctx, payload.Seed, payload.Strict)
	if err != nil {
		return nil, err
	}
	if len(meta) == 0 {
		// Nothing matched the seed; the job still completes.
		log.Printf("Predict job %s resolved no tracks", jobID)
		return []model.Song{}, nil
	}

	rows := features.Transform(meta)
	ids, err := w.rec.Recommend(rows)
	if errors.Is(err, errs.ErrModelUnavailable) {
		log.Printf("Predict job %s: no trained index, echoing seed tracks", jobID)
		ids, err = recommender.Passthrough{}.Recommend(rows)
	}
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Song{}, nil
	}

	return w.resolver.LookupTracks(ctx, ids)
}

// finish classifies a pipeline error: transient failures with budget
// left go back to pending for redelivery, everything else is fatal.
func (w *PredictWorker) finish(ctx context.Context, job *model.Job, runErr error) error {
	if errs.IsTransient(runErr) && job.RetryCount < maxRetries {
		log.Printf("Predict job %s hit transient error (attempt %d/%d): %v",
			job.ID, job.RetryCount+1, maxRetries+1, runErr)
		if err := w.setStatus(ctx, job, model.JobStatusPending); err != nil {
			return err
		}
		return runErr
	}

	w.failJob(ctx, job.ID, runErr.Error())
	return fmt.Errorf("predict job %s: %v: %w", job.ID, runErr, asynq.SkipRetry)
}

// setStatus persists a state-machine transition and notifies subscribers.
func (w *PredictWorker) setStatus(ctx context.Context, job *model.Job, next model.JobStatus) error {
	if !job.Status.CanTransition(next) {
		return fmt.Errorf("job %s: illegal transition %s -> %s: %w",
			job.ID, job.Status, next, asynq.SkipRetry)
	}
	job.Status = next
	if next == model.JobStatusProcessing && job.StartedAt == nil {
		now := time.Now()
		job.StartedAt = &now
	}
	if err := w.store.Save(ctx, job); err != nil {
		return err
	}
	if w.hub != nil {
		w.hub.BroadcastStatus(job.ID, next)
	}
	return nil
}

// completeJob attaches the result and the terminal status in one write.
func (w *PredictWorker) completeJob(ctx context.Context, job *model.Job, result *model.PredictResultResponse) error {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("job %s: marshal result: %v: %w", job.ID, err, asynq.SkipRetry)
	}
	job.Status = model.JobStatusCompleted
	job.Result = resultBytes
	now := time.Now()
	job.CompletedAt = &now
	return w.store.Save(ctx, job)
}

func (w *PredictWorker) failJob(ctx context.Context, jobID, msg string) {
	job, err := w.store.Get(ctx, jobID)
	if err != nil {
		log.Printf("Failed to load job %s for failure update: %v", jobID, err)
		return
	}
	job.Status = model.JobStatusFailed
	job.Error = &msg
	now := time.Now()
	job.CompletedAt = &now
	if err := w.store.Save(ctx, job); err != nil {
		log.Printf("Failed to persist failure for job %s: %v", jobID, err)
		return
	}
	if w.hub != nil {
		w.hub.BroadcastError(jobID, "processing_failed", msg)
	}
}
