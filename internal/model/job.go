package model

import (
	"encoding/json"
	"time"
)

// Job represents one asynchronous recommendation request from submission
// to result. Records are mutated only by the worker that owns the job.
type Job struct {
	ID          string          `json:"id"`
	Status      JobStatus       `json:"status"`
	UserID      string          `json:"userId,omitempty"`
	Error       *string         `json:"error,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	RetryCount  int             `json:"retryCount"`
}

// PredictJobPayload contains the data for a predict job.
type PredictJobPayload struct {
	Seed   SeedSpec `json:"seed"`
	Strict bool     `json:"strict,omitempty"`
}
