package domain

import (
	"strings"

	"github.com/google/uuid"
)

// JobIDLength is the number of characters kept from a random UUID string.
const JobIDLength = 8

// JobStatus represents the status of a job
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusFailed  JobStatus = "failed"
)

// IsTerminal reports whether no further transition can follow this status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusFailed
}

// JobRecord is the state tracked for a submitted job. It is always handled by
// value so a stored record is replaced as a whole, never edited in place.
type JobRecord struct {
	Status      JobStatus `json:"status"`
	Explanation string    `json:"explanation,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// NewJobID returns a short random job token.
func NewJobID() string {
	return uuid.NewString()[:JobIDLength]
}

// PendingRecord is the record inserted when a submission is accepted.
func PendingRecord() JobRecord {
	return JobRecord{Status: JobStatusPending}
}

// RunningRecord is the record committed once the worker has been launched.
func RunningRecord(explanation string) JobRecord {
	return JobRecord{Status: JobStatusRunning, Explanation: explanation}
}

// FailedRecord is the terminal record for a job that could not be launched.
func FailedRecord(detail string) JobRecord {
	return JobRecord{Status: JobStatusFailed, Error: detail}
}

// CanTransition reports whether a record may move from one status to another.
// Only pending -> running and pending -> failed exist.
func CanTransition(from, to JobStatus) bool {
	return from == JobStatusPending && (to == JobStatusRunning || to == JobStatusFailed)
}

// ValidJobID rejects ids that could not have been produced by NewJobID.
func ValidJobID(id string) bool {
	if len(id) != JobIDLength {
		return false
	}
	return strings.Trim(id, "0123456789abcdef") == ""
}
