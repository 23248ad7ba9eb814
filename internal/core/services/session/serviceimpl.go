package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gitlab.com/fcv-2025.net/assessment/internal/config"
	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/assessment/internal/domain"
	"gitlab.com/fcv-2025.net/assessment/internal/static/errs"
)

var _ ISessionManager = (*Manager)(nil)

// Manager implements ISessionManager
type Manager struct {
	store   secondary.AttemptStore
	backend secondary.ActivityBackend
	outbox  secondary.SubmissionOutbox
	clock   secondary.Clock
	logger  primary.Logger
	cfg     *config.SessionSvcCfg
	locks   *keyLocks
	newID   func() uuid.UUID
}

// NewManager creates a new session manager
func NewManager(
	store secondary.AttemptStore,
	backend secondary.ActivityBackend,
	outbox secondary.SubmissionOutbox,
	clock secondary.Clock,
	logger primary.Logger,
	cfg *config.SessionSvcCfg,
) *Manager {
	return &Manager{
		store:   store,
		backend: backend,
		outbox:  outbox,
		clock:   clock,
		logger:  logger,
		cfg:     cfg,
		locks:   newKeyLocks(),
		newID:   uuid.New,
	}
}

func (m *Manager) StartOrResume(ctx context.Context, req StartRequest) (*domain.AttemptState, error) {
	if req.Activity == nil {
		return nil, errs.ErrActivityNotFound
	}
	unlock := m.locks.Lock(req.Key.String())
	defer unlock()

	existing, err := m.store.Get(ctx, req.Key)
	switch {
	case errors.Is(err, errs.ErrCorruptLocalState):
		m.logger.Warn("Discarding corrupt attempt state", "attempt", req.Key.String(), "error", err)
		if err := m.store.Delete(ctx, req.Key); err != nil {
			return nil, fmt.Errorf("failed to discard corrupt attempt: %w", err)
		}
		existing = nil
	case err != nil:
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}

	restore := true
	if existing != nil && existing.IsTombstone() {
		m.logger.Debug("Purging submitted attempt before fresh start", "attempt", req.Key.String())
		if err := m.store.Delete(ctx, req.Key); err != nil {
			return nil, fmt.Errorf("failed to purge submitted attempt: %w", err)
		}
		m.clearProgress(ctx, req.Key)
		existing, restore = nil, false
	}

	now := m.clock.Now()
	if existing != nil {
		return m.resume(ctx, existing, req.Activity, now)
	}
	return m.start(ctx, req, now, restore)
}

func (m *Manager) start(ctx context.Context, req StartRequest, now time.Time, restore bool) (*domain.AttemptState, error) {
	activity := req.Activity
	if activity.DurationSeconds <= 0 && activity.CloseDate == nil {
		return nil, errs.ErrNoDeadline
	}
	if activity.AttemptLimitReached(req.Role) {
		return nil, errs.ErrAttemptLimitReached
	}

	endTime := domain.EffectiveDeadline(now, activity.Duration(), activity.CloseDate)
	if !endTime.After(now) {
		return nil, errs.ErrAttemptExpired
	}

	state := domain.NewAttemptState(req.Key, req.Role, activity, now, endTime, req.Files)
	if restore {
		state = m.restoreProgress(ctx, state, activity, now)
		if state.IsExpired(now) {
			state.Observe(now)
			if err := m.persist(ctx, state, now); err != nil {
				return nil, err
			}
			return state.Clone(), errs.ErrAttemptExpired
		}
	}

	if err := m.persist(ctx, state, now); err != nil {
		return nil, err
	}
	m.logger.Info("Attempt started",
		"attempt", req.Key.String(),
		"role", req.Role,
		"endTime", state.EndTime,
		"remaining", state.RemainingSeconds(now))
	return state.Clone(), nil
}

// restoreProgress continues the attempt the backend saved progress for, as
// long as that attempt is still running. Progress left by an ended attempt
// is cleared.
func (m *Manager) restoreProgress(ctx context.Context, state *domain.AttemptState, activity *domain.Activity, now time.Time) *domain.AttemptState {
	key := state.Key()
	progress, err := m.backend.GetProgress(ctx, key)
	if err != nil {
		m.logger.Warn("Could not load saved progress, starting empty", "attempt", key.String(), "error", err)
		return state
	}
	if progress == nil {
		return state
	}
	if !progress.LiveAt(now) {
		m.logger.Info("Ignoring saved progress of an ended attempt", "attempt", key.String(), "savedAttemptId", progress.AttemptID)
		m.clearProgress(ctx, key)
		return state
	}
	state.Adopt(progress)
	state.Tighten(domain.EffectiveDeadline(state.StartTime, activity.Duration(), activity.CloseDate))
	m.logger.Info("Restoring saved progress", "attempt", key.String(), "attemptId", state.AttemptID)
	return domain.Reconcile(state, progress)
}

func (m *Manager) resume(ctx context.Context, state *domain.AttemptState, activity *domain.Activity, now time.Time) (*domain.AttemptState, error) {
	if state.IsFinalized() {
		return state, errs.ErrAlreadyFinalized
	}

	if activity.DurationSeconds > 0 || activity.CloseDate != nil {
		deadline := domain.EffectiveDeadline(state.StartTime, activity.Duration(), activity.CloseDate)
		if state.Tighten(deadline) {
			m.logger.Info("Attempt deadline tightened", "attempt", state.Key().String(), "endTime", deadline)
			if state.IsExpired(now) {
				state.Observe(now)
				if err := m.persist(ctx, state, now); err != nil {
					return nil, err
				}
				return state.Clone(), errs.ErrStaleDeadline
			}
			if err := m.persist(ctx, state, now); err != nil {
				return nil, err
			}
		}
	}

	if state.IsExpired(now) {
		state.Observe(now)
		return state.Clone(), errs.ErrAttemptExpired
	}
	return state.Clone(), nil
}

func (m *Manager) Get(ctx context.Context, key domain.AttemptKey) (*domain.AttemptState, error) {
	state, err := m.load(ctx, key)
	if err != nil {
		return nil, err
	}
	state.Observe(m.clock.Now())
	return state, nil
}

func (m *Manager) Tick(state *domain.AttemptState) int {
	return state.RemainingSeconds(m.clock.Now())
}

func (m *Manager) RecordRun(ctx context.Context, key domain.AttemptKey, itemID, testCaseID string, outcome domain.RunOutcome) (*domain.AttemptState, domain.TestCaseResult, error) {
	var result domain.TestCaseResult
	state, err := m.mutate(ctx, key, func(state *domain.AttemptState, now time.Time) error {
		result = state.RecordRun(itemID, testCaseID, outcome, now)
		return nil
	})
	return state, result, err
}

func (m *Manager) SwitchItem(ctx context.Context, key domain.AttemptKey, itemID string) (*domain.AttemptState, error) {
	return m.mutate(ctx, key, func(state *domain.AttemptState, now time.Time) error {
		state.SwitchItem(itemID, now)
		return nil
	})
}

func (m *Manager) UpdateFiles(ctx context.Context, key domain.AttemptKey, files []domain.SourceFile, activeFileID string) (*domain.AttemptState, error) {
	return m.mutate(ctx, key, func(state *domain.AttemptState, now time.Time) error {
		state.UpdateFiles(files, activeFileID, now)
		return nil
	})
}

func (m *Manager) Persist(ctx context.Context, state *domain.AttemptState) error {
	unlock := m.locks.Lock(state.Key().String())
	defer unlock()

	stored, err := m.store.Get(ctx, state.Key())
	if err != nil && !errors.Is(err, errs.ErrCorruptLocalState) {
		return fmt.Errorf("failed to load attempt: %w", err)
	}
	if stored != nil && stored.IsFinalized() && !state.IsFinalized() {
		return errs.ErrAlreadyFinalized
	}
	return m.persist(ctx, state, m.clock.Now())
}

func (m *Manager) SyncFromServer(ctx context.Context, key domain.AttemptKey) (*domain.AttemptState, error) {
	return m.mutate(ctx, key, func(state *domain.AttemptState, now time.Time) error {
		progress, err := m.backend.GetProgress(ctx, key)
		if err != nil {
			return err
		}
		if progress == nil {
			return nil
		}
		if !state.Owns(progress) {
			m.logger.Debug("Saved progress belongs to another attempt", "attempt", key.String(), "savedAttemptId", progress.AttemptID)
			return nil
		}
		merged := domain.Reconcile(state, progress)
		merged.UpdatedAt = now
		*state = *merged
		return nil
	})
}

// PushProgress holds the key lock until the backend answers, so a finalize
// never runs between the read and the save.
func (m *Manager) PushProgress(ctx context.Context, key domain.AttemptKey) error {
	unlock := m.locks.Lock(key.String())
	defer unlock()

	state, err := m.load(ctx, key)
	if err != nil {
		return err
	}
	if state.IsFinalized() || state.IsExpired(m.clock.Now()) {
		return nil
	}
	if err := m.backend.SaveProgress(ctx, key, state.Progress()); err != nil {
		return fmt.Errorf("failed to push progress: %w", err)
	}
	return nil
}

func (m *Manager) Finalize(ctx context.Context, key domain.AttemptKey) (*domain.SubmissionPayload, error) {
	unlock := m.locks.Lock(key.String())
	defer unlock()

	state, err := m.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if state.IsFinalized() {
		return state.Submission, errs.ErrAlreadyFinalized
	}
	return m.finalize(ctx, state, m.clock.Now(), false)
}

func (m *Manager) Submit(ctx context.Context, key domain.AttemptKey) (*domain.SubmissionPayload, error) {
	unlock := m.locks.Lock(key.String())
	defer unlock()

	state, err := m.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if state.IsTombstone() {
		return state.Submission, errs.ErrAlreadyFinalized
	}

	now := m.clock.Now()
	payload := state.Submission
	if payload == nil {
		if payload, err = m.finalize(ctx, state, now, false); err != nil {
			return nil, err
		}
	}
	return m.deliver(ctx, state, payload, now)
}

func (m *Manager) ExpireAndAutoSubmit(ctx context.Context, key domain.AttemptKey) (*domain.SubmissionPayload, error) {
	unlock := m.locks.Lock(key.String())
	defer unlock()

	state, err := m.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if state.IsFinalized() {
		return state.Submission, errs.ErrAlreadyFinalized
	}

	now := m.clock.Now()
	if !state.IsExpired(now) {
		return nil, errs.ErrNotExpired
	}
	state.Observe(now)

	m.logger.Info("Attempt time is over, auto-submitting", "attempt", key.String())
	payload, err := m.finalize(ctx, state, now, true)
	if err != nil {
		return nil, err
	}
	return m.deliver(ctx, state, payload, now)
}

func (m *Manager) Discard(ctx context.Context, key domain.AttemptKey) error {
	unlock := m.locks.Lock(key.String())
	defer unlock()

	state, err := m.store.Get(ctx, key)
	if err != nil && !errors.Is(err, errs.ErrCorruptLocalState) {
		return fmt.Errorf("failed to load attempt: %w", err)
	}
	if state != nil && !state.IsFinalized() {
		return errs.ErrAttemptInProgress
	}
	if err := m.backend.ClearProgress(ctx, key); err != nil {
		return fmt.Errorf("failed to clear saved progress: %w", err)
	}
	if err := m.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to discard attempt: %w", err)
	}

	if state != nil && state.Role == domain.RoleTeacher {
		if err := m.backend.DeleteSubmission(ctx, key); err != nil {
			m.logger.Warn("Failed to delete preview submission", "attempt", key.String(), "error", err)
		}
	}
	m.logger.Info("Attempt discarded", "attempt", key.String())
	return nil
}

func (m *Manager) ListActive(ctx context.Context) ([]*domain.AttemptState, error) {
	states, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	now := m.clock.Now()
	active := make([]*domain.AttemptState, 0, len(states))
	for _, s := range states {
		if s.IsTombstone() {
			continue
		}
		s.Observe(now)
		active = append(active, s)
	}
	return active, nil
}

// mutate applies fn to the stored state under the key lock. Finalized or
// expired attempts are refused before fn runs.
func (m *Manager) mutate(ctx context.Context, key domain.AttemptKey, fn func(state *domain.AttemptState, now time.Time) error) (*domain.AttemptState, error) {
	unlock := m.locks.Lock(key.String())
	defer unlock()

	state, err := m.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if state.IsFinalized() {
		return state, errs.ErrAlreadyFinalized
	}

	now := m.clock.Now()
	if state.IsExpired(now) {
		state.Observe(now)
		return state, errs.ErrAttemptExpired
	}

	if err := fn(state, now); err != nil {
		return state.Clone(), err
	}
	if err := m.persist(ctx, state, now); err != nil {
		return nil, err
	}
	return state.Clone(), nil
}

// load reads the stored state. A corrupt entry is deleted and reads as
// not started.
func (m *Manager) load(ctx context.Context, key domain.AttemptKey) (*domain.AttemptState, error) {
	state, err := m.store.Get(ctx, key)
	if errors.Is(err, errs.ErrCorruptLocalState) {
		m.logger.Warn("Discarding corrupt attempt state", "attempt", key.String(), "error", err)
		if err := m.store.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("failed to discard corrupt attempt: %w", err)
		}
		return nil, errs.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}
	if state == nil {
		return nil, errs.ErrAttemptNotFound
	}
	return state, nil
}

func (m *Manager) finalize(ctx context.Context, state *domain.AttemptState, now time.Time, auto bool) (*domain.SubmissionPayload, error) {
	payload := state.BuildSubmission(m.newID(), now, auto)
	if err := m.persist(ctx, state, now); err != nil {
		return nil, err
	}
	m.logger.Info("Attempt finalized",
		"attempt", state.Key().String(),
		"submissionId", payload.SubmissionID,
		"score", payload.Score,
		"autoSubmitted", auto)
	return payload, nil
}

// deliver sends the payload. On failure the state stays finalizing and the
// payload goes to the outbox for the retry loop.
func (m *Manager) deliver(ctx context.Context, state *domain.AttemptState, payload *domain.SubmissionPayload, now time.Time) (*domain.SubmissionPayload, error) {
	if err := m.backend.Submit(ctx, payload); err != nil {
		m.logger.Warn("Submission failed, queued for retry",
			"attempt", state.Key().String(),
			"submissionId", payload.SubmissionID,
			"error", err)
		if qerr := m.outbox.Enqueue(ctx, payload, m.cfg.SubmitRetryLimit); qerr != nil {
			m.logger.Error("Failed to queue submission", "submissionId", payload.SubmissionID, "error", qerr)
		}
		return payload, err
	}

	if err := m.acknowledge(ctx, state, now); err != nil {
		return payload, err
	}
	return payload, nil
}

func (m *Manager) acknowledge(ctx context.Context, state *domain.AttemptState, now time.Time) error {
	m.clearProgress(ctx, state.Key())
	state.Acknowledge(now)
	if err := m.persist(ctx, state, now); err != nil {
		return err
	}
	m.logger.Info("Submission acknowledged", "attempt", state.Key().String(), "submissionId", state.Submission.SubmissionID)
	return nil
}

func (m *Manager) clearProgress(ctx context.Context, key domain.AttemptKey) {
	if err := m.backend.ClearProgress(ctx, key); err != nil {
		m.logger.Warn("Failed to clear saved progress", "attempt", key.String(), "error", err)
	}
}

func (m *Manager) persist(ctx context.Context, state *domain.AttemptState, now time.Time) error {
	if err := m.store.Set(ctx, state, m.ttl(state, now)); err != nil {
		return fmt.Errorf("failed to persist attempt: %w", err)
	}
	return nil
}

func (m *Manager) ttl(state *domain.AttemptState, now time.Time) time.Duration {
	if state.IsTombstone() {
		return m.cfg.TombstoneRetention
	}
	ttl := state.EndTime.Sub(now) + m.cfg.AttemptRetention
	if ttl <= 0 {
		return m.cfg.AttemptRetention
	}
	return ttl
}
