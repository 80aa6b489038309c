package worker

import (
	"time"

	"github.com/hibiken/asynq"
)

// maxRetryDelay caps the exponential backoff between redeliveries.
const maxRetryDelay = 700 * time.Second

// RetryDelay implements exponential backoff without jitter: 2^n seconds
// for the n-th retry, capped at maxRetryDelay.
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	delay := time.Second
	for i := 0; i < n; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}
