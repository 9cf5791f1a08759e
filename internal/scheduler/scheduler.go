// Package scheduler runs the periodic booking cleanup in the background.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"nails-service/pkg/sl"
)

type Cleaner interface {
	Cleanup(ctx context.Context) (int, error)
}

type Scheduler struct {
	log     *slog.Logger
	cron    *cron.Cron
	cleaner Cleaner
	timeout time.Duration
}

// New registers the cleanup job under a standard five-field cron spec.
func New(log *slog.Logger, cleaner Cleaner, spec string) (*Scheduler, error) {
	const op = "scheduler.New"

	s := &Scheduler{
		log:     log.With(slog.String("component", "scheduler")),
		cron:    cron.New(cron.WithLocation(time.Local)),
		cleaner: cleaner,
		timeout: 5 * time.Minute,
	}

	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("%s: invalid schedule %q: %w", op, spec, err)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.log.Info("cleanup scheduler started")
	s.cron.Start()
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
		s.log.Info("cleanup scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("cleanup scheduler stop timed out")
	}
}

func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	deleted, err := s.cleaner.Cleanup(ctx)
	if err != nil {
		s.log.Error("scheduled cleanup failed", sl.Err(err))
		return
	}

	s.log.Info("scheduled cleanup finished", slog.Int("deleted", deleted))
}
