package domain

import "time"

// ResultStatus is the outcome written by the worker process.
type ResultStatus string

const (
	ResultStatusSuccess ResultStatus = "success"
	ResultStatusError   ResultStatus = "error"
)

// WorkerResult is the single structured line a worker emits when it exits.
type WorkerResult struct {
	Status ResultStatus `json:"status"`
	JobID  string       `json:"job_id"`
	URL    string       `json:"url,omitempty"`
	Error  string       `json:"error,omitempty"`
	Code   string       `json:"code"`
}

// Succeeded reports whether the worker published an artifact.
func (r WorkerResult) Succeeded() bool {
	return r.Status == ResultStatusSuccess
}

// WorkerReport is a worker result as received by the dispatcher. It is kept
// apart from the JobRecord so the job state machine is never touched by it.
type WorkerReport struct {
	Result     WorkerResult `json:"result"`
	ReceivedAt time.Time    `json:"received_at"`
}
