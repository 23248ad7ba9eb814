package schedulerengine

import (
	"context"
	"errors"
	"sync"
	"time"

	"gitlab.com/fcv-2025.net/assessment/internal/config"
	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/assessment/internal/core/services/session"
	"gitlab.com/fcv-2025.net/assessment/internal/domain"
	"gitlab.com/fcv-2025.net/assessment/internal/static/errs"
)

const sweepWorkers = 4

// SchedulerEngine runs the periodic attempt upkeep. None of the loops is
// needed for correctness; every session operation checks the clock itself.
type SchedulerEngine struct {
	SessionCfg *config.SessionSvcCfg
	sessions   session.ISessionManager
	logger     primary.Logger
	wg         sync.WaitGroup
}

func NewSchedulerEngine(
	sessionCfg *config.SessionSvcCfg,
	sessions session.ISessionManager,
	logger primary.Logger,
) *SchedulerEngine {
	return &SchedulerEngine{
		SessionCfg: sessionCfg,
		sessions:   sessions,
		logger:     logger,
	}
}

// Start launches the loops; they stop when ctx is cancelled
func (s *SchedulerEngine) Start(ctx context.Context) {
	s.every(ctx, "progress sync", s.SessionCfg.SyncProgressInterval, s.SyncProgress)
	s.every(ctx, "expiry sweep", s.SessionCfg.ExpirySweepInterval, s.SweepExpired)
	s.every(ctx, "submission retry", s.SessionCfg.SubmitRetryInterval, s.RetrySubmissions)
}

// Wait blocks until every loop has returned
func (s *SchedulerEngine) Wait() {
	s.wg.Wait()
}

func (s *SchedulerEngine) every(ctx context.Context, name string, interval time.Duration, fn func(ctx context.Context)) {
	if interval <= 0 {
		s.logger.Warn("Background loop disabled", "loop", name)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

// SyncProgress pushes every running attempt to the backend. Failures are
// retried on the next tick.
func (s *SchedulerEngine) SyncProgress(ctx context.Context) {
	states, err := s.sessions.ListActive(ctx)
	if err != nil {
		s.logger.Error("Failed to list attempts", "error", err)
		return
	}
	for _, state := range states {
		if state.Status != domain.AttemptStatusActive || s.sessions.Tick(state) == 0 {
			continue
		}
		if err := s.sessions.PushProgress(ctx, state.Key()); err != nil {
			s.logger.Debug("Progress sync failed", "attempt", state.Key().String(), "error", err)
		}
	}
}

// SweepExpired auto-submits attempts whose time is over
func (s *SchedulerEngine) SweepExpired(ctx context.Context) {
	states, err := s.sessions.ListActive(ctx)
	if err != nil {
		s.logger.Error("Failed to list attempts", "error", err)
		return
	}

	expired := make([]domain.AttemptKey, 0)
	for _, state := range states {
		if state.IsFinalized() || s.sessions.Tick(state) > 0 {
			continue
		}
		expired = append(expired, state.Key())
	}
	if len(expired) == 0 {
		return
	}

	keyCh := make(chan domain.AttemptKey, len(expired))
	for _, key := range expired {
		keyCh <- key
	}
	close(keyCh)

	workerSize := sweepWorkers
	if len(expired) < workerSize {
		workerSize = len(expired)
	}
	var wg sync.WaitGroup
	wg.Add(workerSize)
	for i := 0; i < workerSize; i++ {
		go func() {
			defer wg.Done()
			for key := range keyCh {
				s.expire(ctx, key)
			}
		}()
	}
	wg.Wait()
	s.logger.Debug("Expiry sweep done", "count", len(expired))
}

func (s *SchedulerEngine) expire(ctx context.Context, key domain.AttemptKey) {
	_, err := s.sessions.ExpireAndAutoSubmit(ctx, key)
	switch {
	case err == nil:
		s.logger.Info("Expired attempt submitted", "attempt", key.String())
	case errors.Is(err, errs.ErrAlreadyFinalized),
		errors.Is(err, errs.ErrNotExpired),
		errors.Is(err, errs.ErrAttemptNotFound):
	case errs.IsNetwork(err):
		s.logger.Warn("Expired attempt queued for retry", "attempt", key.String(), "error", err)
	default:
		s.logger.Error("Failed to auto-submit attempt", "attempt", key.String(), "error", err)
	}
}

// RetrySubmissions delivers queued submissions and purges old delivered rows
func (s *SchedulerEngine) RetrySubmissions(ctx context.Context) {
	delivered, err := s.sessions.RetryPendingSubmissions(ctx)
	if err != nil {
		s.logger.Error("Submission retry failed", "error", err)
	}
	if delivered > 0 {
		s.logger.Info("Queued submissions delivered", "count", delivered)
	}
	if _, err := s.sessions.PurgeDeliveredSubmissions(ctx); err != nil {
		s.logger.Error("Failed to purge delivered submissions", "error", err)
	}
}
