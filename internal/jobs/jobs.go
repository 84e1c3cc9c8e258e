package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// VideoRetrier re-provisions video links for bookings created while the
// provider was unavailable.
type VideoRetrier interface {
	RetryPendingVideoLinks(ctx context.Context, limit int) (int, error)
}

// RetryBatchSize caps the bookings handled per run.
const RetryBatchSize = 50

// Scheduler runs the periodic background jobs.
type Scheduler struct {
	cron    *cron.Cron
	retrier VideoRetrier
	logger  *slog.Logger
	timeout time.Duration
}

// NewScheduler registers the video retry job on the given cron schedule
// (standard five-field syntax or descriptors such as "@every 1m").
func NewScheduler(schedule string, retrier VideoRetrier, logger *slog.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		retrier: retrier,
		logger:  logger,
		timeout: 30 * time.Second,
	}

	if _, err := s.cron.AddFunc(schedule, s.RetryVideoLinks); err != nil {
		return nil, fmt.Errorf("invalid video retry schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("job scheduler stop timed out")
	}
}

// RetryVideoLinks runs one retry pass.
func (s *Scheduler) RetryVideoLinks() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.retrier.RetryPendingVideoLinks(ctx, RetryBatchSize)
	if err != nil {
		s.logger.Error("video link retry failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("video links provisioned", "count", n)
	}
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
