package recordstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"gitlab.com/scenecast.net/internal/adapter/logging"
	"gitlab.com/scenecast.net/internal/domain"
	"gitlab.com/scenecast.net/internal/static/errs"
)

func newTestStore(t *testing.T, expiration time.Duration) (*Store[domain.JobRecord], *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore[domain.JobRecord](client, logging.NewNopLogger(), "test:"+JobKeyPrefix, expiration), mr
}

func TestPutGet(t *testing.T) {
	s, mr := newTestStore(t, 0)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "1a2b3c4d"); err != nil || ok {
		t.Fatalf("expected absent record, got ok=%v err=%v", ok, err)
	}

	if err := s.Put(ctx, "1a2b3c4d", domain.PendingRecord()); err != nil {
		t.Fatalf("put: %v", err)
	}

	raw, err := mr.Get("test:job:1a2b3c4d")
	if err != nil {
		t.Fatalf("expected key in redis: %v", err)
	}
	if raw != `{"status":"pending"}` {
		t.Errorf("unexpected stored value %s", raw)
	}

	rec, ok, err := s.Get(ctx, "1a2b3c4d")
	if err != nil || !ok {
		t.Fatalf("expected record, got ok=%v err=%v", ok, err)
	}
	if rec.Status != domain.JobStatusPending {
		t.Errorf("expected pending, got %s", rec.Status)
	}
}

func TestUpdate(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ctx := context.Background()

	err := s.Update(ctx, "missing", func(r domain.JobRecord) (domain.JobRecord, error) { return r, nil })
	if !errors.Is(err, errs.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	_ = s.Put(ctx, "1a2b3c4d", domain.PendingRecord())
	err = s.Update(ctx, "1a2b3c4d", func(domain.JobRecord) (domain.JobRecord, error) {
		return domain.FailedRecord("quota exceeded"), nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	rec, _, _ := s.Get(ctx, "1a2b3c4d")
	if rec.Status != domain.JobStatusFailed || rec.Error != "quota exceeded" {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestExpiration(t *testing.T) {
	s, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	_ = s.Put(ctx, "1a2b3c4d", domain.PendingRecord())
	if ttl := mr.TTL("test:job:1a2b3c4d"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %s", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, "1a2b3c4d"); ok {
		t.Error("expected record to expire")
	}
}
