package secondary

import (
	"context"
	"time"

	"gitlab.com/scenecast.net/internal/domain"
)

// UpdateFunc receives the current value for a key and returns its replacement.
// Returning an error aborts the update and leaves the stored value untouched.
type UpdateFunc[T any] func(current T) (T, error)

// KVStore is a keyed store with whole-value replace semantics. Readers never
// observe a value that is partially written.
type KVStore[T any] interface {
	// Put stores v under id, replacing any previous value.
	Put(ctx context.Context, id string, v T) error

	// Get returns the value for id and whether it exists.
	Get(ctx context.Context, id string) (T, bool, error)

	// Update atomically replaces the value for id with fn(current).
	// It returns errs.NotFound when id has never been put.
	Update(ctx context.Context, id string, fn UpdateFunc[T]) error
}

// JobStore holds the lifecycle record of every accepted job.
type JobStore = KVStore[domain.JobRecord]

// ReportStore holds the completion reports sent back by workers.
type ReportStore = KVStore[domain.WorkerReport]

// Sweeper is implemented by stores that can drop entries nobody wrote to
// since a cutoff. It returns the number of removed entries.
type Sweeper interface {
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}
