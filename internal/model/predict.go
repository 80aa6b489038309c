package model

import "time"

// PredictSubmitRequest is the body of POST /api/predict/submit.
type PredictSubmitRequest struct {
	TrackIDs []string    `json:"trackIdList,omitempty" validate:"omitempty,dive,min=1"`
	Songs    []SongQuery `json:"songList,omitempty" validate:"omitempty,dive"`
	Strict   bool        `json:"strict,omitempty"`
}

// Seed builds the SeedSpec from the request body.
func (r PredictSubmitRequest) Seed() SeedSpec {
	return SeedSpec{TrackIDs: r.TrackIDs, Songs: r.Songs}
}

// PredictSubmitResponse acknowledges a queued job.
type PredictSubmitResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// PredictStatusResponse reports the current job state.
type PredictStatusResponse struct {
	JobID       string     `json:"jobId"`
	Status      JobStatus  `json:"status"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	RetryCount  int        `json:"retryCount"`
}

// PredictResultResponse carries the finished recommendation list,
// ordered by ascending neighbor distance.
type PredictResultResponse struct {
	JobID     string    `json:"jobId"`
	Songs     []Song    `json:"songs"`
	CreatedAt time.Time `json:"createdAt"`
}
