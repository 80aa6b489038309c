package model

// Job status
//
// A job moves strictly pending → received → processing → completed/failed.
// A transient failure sends it back to pending until the retry budget runs out.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusReceived   JobStatus = "received"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// validTransitions encodes the job state machine.
var validTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusReceived},
	JobStatusReceived:   {JobStatusProcessing},
	JobStatusProcessing: {JobStatusCompleted, JobStatusFailed, JobStatusPending},
}

// CanTransition reports whether moving from s to next is allowed.
func (s JobStatus) CanTransition(next JobStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
