package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"gitlab.com/fcv-2025.net/assessment/internal/domain"
	"gitlab.com/fcv-2025.net/assessment/internal/static/errs"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memStore struct {
	mu      sync.Mutex
	states  map[string]*domain.AttemptState
	ttls    map[string]time.Duration
	corrupt map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		states:  make(map[string]*domain.AttemptState),
		ttls:    make(map[string]time.Duration),
		corrupt: make(map[string]bool),
	}
}

func (s *memStore) Get(ctx context.Context, key domain.AttemptKey) (*domain.AttemptState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.corrupt[key.String()] {
		return nil, errs.ErrCorruptLocalState
	}
	return s.states[key.String()].Clone(), nil
}

func (s *memStore) Set(ctx context.Context, state *domain.AttemptState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.corrupt, state.Key().String())
	s.states[state.Key().String()] = state.Clone()
	s.ttls[state.Key().String()] = ttl
	return nil
}

func (s *memStore) Delete(ctx context.Context, key domain.AttemptKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.corrupt, key.String())
	delete(s.states, key.String())
	return nil
}

func (s *memStore) List(ctx context.Context) ([]*domain.AttemptState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.AttemptState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st.Clone())
	}
	return out, nil
}

func (s *memStore) stored(key domain.AttemptKey) *domain.AttemptState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[key.String()].Clone()
}

// fakeBackend keeps the last saved progress like the LMS does
type fakeBackend struct {
	mu          sync.Mutex
	progress    *domain.ServerProgress
	progressErr error
	submitErr   error
	clearErr    error
	submitted   []*domain.SubmissionPayload
	saved       []*domain.ServerProgress
	cleared     int
	deleted     int

	// saveEntered and saveGate hold SaveProgress open when set
	saveEntered chan struct{}
	saveGate    chan struct{}
}

func (b *fakeBackend) GetActivity(ctx context.Context, activityID string) (*domain.Activity, error) {
	return nil, errs.ErrActivityNotFound
}

func (b *fakeBackend) GetItems(ctx context.Context, activityID string) ([]domain.Item, error) {
	return nil, nil
}

func (b *fakeBackend) GetProgress(ctx context.Context, key domain.AttemptKey) (*domain.ServerProgress, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progress, b.progressErr
}

func (b *fakeBackend) SaveProgress(ctx context.Context, key domain.AttemptKey, progress *domain.ServerProgress) error {
	b.mu.Lock()
	entered, gate := b.saveEntered, b.saveGate
	b.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.saved = append(b.saved, progress)
	b.progress = progress
	return nil
}

func (b *fakeBackend) ClearProgress(ctx context.Context, key domain.AttemptKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.clearErr != nil {
		return b.clearErr
	}
	b.cleared++
	b.progress = nil
	return nil
}

func (b *fakeBackend) savedProgress() *domain.ServerProgress {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progress
}

func (b *fakeBackend) Submit(ctx context.Context, payload *domain.SubmissionPayload) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		return b.submitErr
	}
	b.submitted = append(b.submitted, payload)
	return nil
}

func (b *fakeBackend) DeleteSubmission(ctx context.Context, key domain.AttemptKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted++
	return nil
}

func (b *fakeBackend) setSubmitErr(err error) {
	b.mu.Lock()
	b.submitErr = err
	b.mu.Unlock()
}

func (b *fakeBackend) submissions() []*domain.SubmissionPayload {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*domain.SubmissionPayload(nil), b.submitted...)
}

type memOutbox struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.PendingSubmission
}

func newMemOutbox() *memOutbox {
	return &memOutbox{rows: make(map[uuid.UUID]*domain.PendingSubmission)}
}

func (o *memOutbox) Enqueue(ctx context.Context, payload *domain.SubmissionPayload, retryLimit int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.rows[payload.SubmissionID]; ok {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	o.rows[payload.SubmissionID] = &domain.PendingSubmission{
		SubmissionID: payload.SubmissionID,
		ActivityID:   payload.ActivityID,
		UserID:       payload.UserID,
		Payload:      data,
		Status:       domain.SubmissionStatusPending,
		RetryLimit:   retryLimit,
	}
	return nil
}

func (o *memOutbox) GetPending(ctx context.Context, limit int, retryBefore time.Time) ([]*domain.PendingSubmission, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []*domain.PendingSubmission
	for _, row := range o.rows {
		if row.Status == domain.SubmissionStatusPending && (row.RetryCount == 0 || row.UpdatedAt.Before(retryBefore)) {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (o *memOutbox) MarkDelivered(ctx context.Context, submissionID uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if row, ok := o.rows[submissionID]; ok {
		row.Status = domain.SubmissionStatusDelivered
	}
	return nil
}

func (o *memOutbox) MarkAttemptFailed(ctx context.Context, submissionID uuid.UUID, cause string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if row, ok := o.rows[submissionID]; ok {
		row.RetryCount++
		row.LastError = &cause
		if row.RetryCount >= row.RetryLimit {
			row.Status = domain.SubmissionStatusFailed
		}
	}
	return nil
}

func (o *memOutbox) PurgeDelivered(ctx context.Context, before time.Time) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var n int64
	for id, row := range o.rows {
		if row.Status == domain.SubmissionStatusDelivered {
			delete(o.rows, id)
			n++
		}
	}
	return n, nil
}

func (o *memOutbox) row(id uuid.UUID) *domain.PendingSubmission {
	o.mu.Lock()
	defer o.mu.Unlock()
	if row, ok := o.rows[id]; ok {
		cp := *row
		return &cp
	}
	return nil
}
