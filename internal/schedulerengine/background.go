package schedulerengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"gitlab.com/scenecast.net/internal/config"
	"gitlab.com/scenecast.net/internal/core/ports/primary"
	"gitlab.com/scenecast.net/internal/core/ports/secondary"
)

// cronParser supports standard 5-field cron and descriptors like "@every 10m".
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// SchedulerEngine periodically drops records nobody touched within the
// configured TTL.
type SchedulerEngine struct {
	SweepCfg *config.SweepConfig
	sweepers map[string]secondary.Sweeper
	logger   primary.Logger
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

func NewSchedulerEngine(sweepCfg *config.SweepConfig, logger primary.Logger) *SchedulerEngine {
	return &SchedulerEngine{
		SweepCfg: sweepCfg,
		sweepers: make(map[string]secondary.Sweeper),
		logger:   logger,
		now:      time.Now,
	}
}

// Register adds a store to sweep. Stores that expire entries on their own
// are simply not registered.
func (s *SchedulerEngine) Register(name string, sweeper secondary.Sweeper) {
	s.sweepers[name] = sweeper
}

// StartSweepEngine schedules the sweep and returns. It does nothing when the
// TTL is zero. The schedule stops when ctx is done or Stop is called.
func (s *SchedulerEngine) StartSweepEngine(ctx context.Context) error {
	if s.SweepCfg.TTL <= 0 {
		s.logger.Info("Record expiry disabled")
		return nil
	}
	if len(s.sweepers) == 0 {
		s.logger.Info("No store needs sweeping")
		return nil
	}

	schedule, err := cronParser.Parse(s.SweepCfg.Schedule)
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.SweepCfg.Schedule, err)
	}

	c := cron.New(cron.WithParser(cronParser))
	c.Schedule(schedule, cron.FuncJob(func() {
		s.SweepExpired(ctx)
	}))

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	c.Start()
	s.logger.Info("Record expiry scheduled", "schedule", s.SweepCfg.Schedule, "ttl", s.SweepCfg.TTL.String())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running sweep.
func (s *SchedulerEngine) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// SweepExpired runs every registered sweeper once and returns how many
// entries were removed in total.
func (s *SchedulerEngine) SweepExpired(ctx context.Context) int {
	cutoff := s.now().Add(-s.SweepCfg.TTL)
	total := 0
	for name, sweeper := range s.sweepers {
		removed, err := sweeper.Sweep(ctx, cutoff)
		if err != nil {
			s.logger.Error("Failed to sweep store", "store", name, "error", err)
			continue
		}
		if removed > 0 {
			s.logger.Info("Expired records removed", "store", name, "count", removed)
		}
		total += removed
	}
	return total
}
