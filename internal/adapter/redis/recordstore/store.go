package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"gitlab.com/scenecast.net/internal/core/ports/primary"
	"gitlab.com/scenecast.net/internal/core/ports/secondary"
	"gitlab.com/scenecast.net/internal/domain"
	"gitlab.com/scenecast.net/internal/static/errs"
)

const (
	JobKeyPrefix    = "job:"
	ReportKeyPrefix = "report:"

	maxUpdateAttempts = 10
)

var (
	_ secondary.JobStore    = (*Store[domain.JobRecord])(nil)
	_ secondary.ReportStore = (*Store[domain.WorkerReport])(nil)
)

// Store implements KVStore with Redis. Each value is one JSON string key, so
// SET replaces it atomically. Expiry is delegated to Redis key TTLs.
type Store[T any] struct {
	redisClient *redis.Client
	logger      primary.Logger
	keyPrefix   string
	expiration  time.Duration
}

// NewStore creates a Redis store. A zero expiration keeps keys forever;
// otherwise every write refreshes the key TTL.
func NewStore[T any](redisClient *redis.Client, logger primary.Logger, keyPrefix string, expiration time.Duration) *Store[T] {
	return &Store[T]{
		redisClient: redisClient,
		logger:      logger,
		keyPrefix:   keyPrefix,
		expiration:  expiration,
	}
}

func (r *Store[T]) key(id string) string {
	return fmt.Sprintf("%s%s", r.keyPrefix, id)
}

// Put saves a value to Redis
func (r *Store[T]) Put(ctx context.Context, id string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Error("Failed to marshal record", "id", id, "error", err)
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if err := r.redisClient.Set(ctx, r.key(id), data, r.expiration).Err(); err != nil {
		r.logger.Error("Failed to save record", "id", id, "error", err)
		return fmt.Errorf("failed to save record: %w", err)
	}

	return nil
}

// Get retrieves a value from Redis by ID
func (r *Store[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var v T
	data, err := r.redisClient.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return v, false, nil
		}
		r.logger.Error("Failed to get record", "id", id, "error", err)
		return v, false, fmt.Errorf("failed to get record: %w", err)
	}

	if err := json.Unmarshal(data, &v); err != nil {
		r.logger.Error("Failed to unmarshal record", "id", id, "error", err)
		return v, false, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return v, true, nil
}

// Update runs an optimistic WATCH/MULTI cycle, retrying when another client
// touched the key in between.
func (r *Store[T]) Update(ctx context.Context, id string, fn secondary.UpdateFunc[T]) error {
	key := r.key(id)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return errs.NotFound
			}
			return fmt.Errorf("failed to get record: %w", err)
		}

		var current T
		if err := json.Unmarshal(data, &current); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		nextData, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, nextData, r.expiration)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := r.redisClient.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			r.logger.Debug("Record changed during update, retrying", "id", id, "attempt", attempt)
			continue
		}
		return err
	}

	r.logger.Error("Failed to update record", "id", id, "attempts", maxUpdateAttempts)
	return fmt.Errorf("failed to update record %s: too many concurrent writers", id)
}
