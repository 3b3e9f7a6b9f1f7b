package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gitlab.com/scenecast.net/internal/domain"
	"gitlab.com/scenecast.net/internal/static/errs"
)

func TestPutGet(t *testing.T) {
	s := New[domain.JobRecord]()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected absent record, got ok=%v err=%v", ok, err)
	}

	if err := s.Put(ctx, "a", domain.PendingRecord()); err != nil {
		t.Fatalf("put: %v", err)
	}
	rec, ok, err := s.Get(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("expected record, got ok=%v err=%v", ok, err)
	}
	if rec.Status != domain.JobStatusPending {
		t.Errorf("expected pending, got %s", rec.Status)
	}
}

func TestUpdate(t *testing.T) {
	s := New[domain.JobRecord]()
	ctx := context.Background()

	err := s.Update(ctx, "missing", func(r domain.JobRecord) (domain.JobRecord, error) { return r, nil })
	if !errors.Is(err, errs.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	_ = s.Put(ctx, "a", domain.PendingRecord())
	err = s.Update(ctx, "a", func(r domain.JobRecord) (domain.JobRecord, error) {
		return domain.RunningRecord("a circle"), nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	rec, _, _ := s.Get(ctx, "a")
	if rec.Status != domain.JobStatusRunning || rec.Explanation != "a circle" {
		t.Errorf("unexpected record %+v", rec)
	}

	boom := errors.New("boom")
	err = s.Update(ctx, "a", func(r domain.JobRecord) (domain.JobRecord, error) {
		return domain.FailedRecord("x"), boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutator error, got %v", err)
	}
	rec, _, _ = s.Get(ctx, "a")
	if rec.Status != domain.JobStatusRunning {
		t.Errorf("aborted update must not change the record, got %+v", rec)
	}
}

func TestSweep(t *testing.T) {
	s := New[domain.JobRecord]()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return base }
	_ = s.Put(ctx, "old", domain.PendingRecord())
	s.now = func() time.Time { return base.Add(time.Hour) }
	_ = s.Put(ctx, "new", domain.PendingRecord())

	removed, err := s.Sweep(ctx, base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok, _ := s.Get(ctx, "old"); ok {
		t.Error("old record should be swept")
	}
	if _, ok, _ := s.Get(ctx, "new"); !ok {
		t.Error("new record should survive")
	}
}

func TestConcurrentWritersAndReaders(t *testing.T) {
	s := New[domain.JobRecord]()
	ctx := context.Background()
	const n = 100

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("job-%d", i)
		_ = s.Put(ctx, id, domain.PendingRecord())
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Update(ctx, id, func(domain.JobRecord) (domain.JobRecord, error) {
				return domain.FailedRecord(id), nil
			})
		}()
		go func() {
			defer wg.Done()
			rec, ok, _ := s.Get(ctx, id)
			if !ok {
				t.Errorf("record %s vanished", id)
				return
			}
			if rec.Status == domain.JobStatusFailed && rec.Error != id {
				t.Errorf("torn record for %s: %+v", id, rec)
			}
		}()
	}
	wg.Wait()

	if s.Len() != n {
		t.Fatalf("expected %d records, got %d", n, s.Len())
	}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("job-%d", i)
		rec, _, _ := s.Get(ctx, id)
		if rec.Status != domain.JobStatusFailed || rec.Error != id {
			t.Errorf("unexpected final record for %s: %+v", id, rec)
		}
	}
}
