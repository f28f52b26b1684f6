package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"oxylog/internal/domain"
)

// SyncFunc runs one sync attempt. *Reader.Sync satisfies it.
type SyncFunc func(ctx context.Context) (*SyncResult, error)

// PruneFunc applies retention. *Reader.Prune satisfies it.
type PruneFunc func(ctx context.Context) (int64, error)

// Scheduler drives periodic syncs in watch mode. The oximeter is only
// awake briefly after a recording, so most scheduled attempts are expected
// to fail quietly; the breaker inside the Reader keeps them cheap.
type Scheduler struct {
	cron   *cron.Cron
	sync   SyncFunc
	prune  PruneFunc
	logger *slog.Logger
}

func NewScheduler(sync SyncFunc, prune PruneFunc, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		sync:   sync,
		prune:  prune,
		logger: logger,
	}
}

// Start registers the schedule and begins running. Accepts the standard
// five-field cron syntax plus @every descriptors.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.runOnce(ctx)
	})
	if err != nil {
		return domain.NewDomainError("scheduler.start", domain.ErrScheduleInvalid, err.Error())
	}
	s.cron.Start()
	s.logger.Info("watch schedule started", "schedule", schedule)
	return nil
}

// Stop halts the schedule and waits for a running sync to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	started := time.Now()
	result, err := s.sync(ctx)
	if err != nil {
		// Device asleep is the normal case between recordings.
		level := slog.LevelWarn
		if errors.Is(err, domain.ErrDeviceNotFound) {
			level = slog.LevelDebug
		}
		s.logger.Log(ctx, level, "scheduled sync failed",
			"err", err, "duration", time.Since(started))
		return
	}

	s.logger.Info("scheduled sync succeeded",
		"received", result.Received,
		"stored", result.Stored,
	)

	if s.prune == nil {
		return
	}
	if _, err := s.prune(ctx); err != nil {
		s.logger.Warn("retention prune failed", "err", err)
	}
}
