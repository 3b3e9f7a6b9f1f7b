// Package memory holds the process-local store used by default and in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"gitlab.com/scenecast.net/internal/core/ports/secondary"
	"gitlab.com/scenecast.net/internal/domain"
	"gitlab.com/scenecast.net/internal/static/errs"
)

var (
	_ secondary.JobStore    = (*Store[domain.JobRecord])(nil)
	_ secondary.ReportStore = (*Store[domain.WorkerReport])(nil)
	_ secondary.Sweeper     = (*Store[domain.JobRecord])(nil)
)

type entry[T any] struct {
	value     T
	updatedAt time.Time
}

// Store is a mutex-guarded map of values. Values are copied in and out, so
// a reader always gets a complete snapshot of the last committed value.
type Store[T any] struct {
	mu   sync.RWMutex
	data map[string]entry[T]
	now  func() time.Time
}

// New creates an empty store.
func New[T any]() *Store[T] {
	return &Store[T]{
		data: make(map[string]entry[T]),
		now:  time.Now,
	}
}

func (s *Store[T]) Put(_ context.Context, id string, v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = entry[T]{value: v, updatedAt: s.now()}
	return nil
}

func (s *Store[T]) Get(_ context.Context, id string) (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	return e.value, ok, nil
}

// Update holds the write lock while fn runs, so fn must not call back into
// the store.
func (s *Store[T]) Update(_ context.Context, id string, fn secondary.UpdateFunc[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[id]
	if !ok {
		return errs.NotFound
	}
	next, err := fn(e.value)
	if err != nil {
		return err
	}
	s.data[id] = entry[T]{value: next, updatedAt: s.now()}
	return nil
}

// Sweep removes every entry last written before cutoff.
func (s *Store[T]) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.data {
		if e.updatedAt.Before(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
