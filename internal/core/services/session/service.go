package session

import (
	"context"

	"gitlab.com/fcv-2025.net/assessment/internal/domain"
)

// StartRequest carries what the manager needs to open or resume an attempt
type StartRequest struct {
	Key      domain.AttemptKey
	Role     domain.Role
	Activity *domain.Activity
	// Files seeds the editor of a fresh attempt
	Files []domain.SourceFile
}

// ISessionManager owns the lifecycle of timed attempts
type ISessionManager interface {
	// StartOrResume opens a fresh attempt or resumes the stored one,
	// tightening its deadline to the activity's current limits
	StartOrResume(ctx context.Context, req StartRequest) (*domain.AttemptState, error)

	// Get loads the stored attempt with the active -> expired edge applied
	Get(ctx context.Context, key domain.AttemptKey) (*domain.AttemptState, error)

	// Tick returns the remaining whole seconds, floored at zero
	Tick(state *domain.AttemptState) int

	RecordRun(ctx context.Context, key domain.AttemptKey, itemID, testCaseID string, outcome domain.RunOutcome) (*domain.AttemptState, domain.TestCaseResult, error)
	SwitchItem(ctx context.Context, key domain.AttemptKey, itemID string) (*domain.AttemptState, error)
	UpdateFiles(ctx context.Context, key domain.AttemptKey, files []domain.SourceFile, activeFileID string) (*domain.AttemptState, error)

	// Persist overwrites the stored state
	Persist(ctx context.Context, state *domain.AttemptState) error

	// SyncFromServer merges the backend's saved progress into the stored state
	SyncFromServer(ctx context.Context, key domain.AttemptKey) (*domain.AttemptState, error)

	// PushProgress saves local progress to the backend
	PushProgress(ctx context.Context, key domain.AttemptKey) error

	// Finalize builds the submission payload exactly once. Later calls return
	// the stored payload with errs.ErrAlreadyFinalized.
	Finalize(ctx context.Context, key domain.AttemptKey) (*domain.SubmissionPayload, error)

	// Submit finalizes if needed and delivers the payload to the backend
	Submit(ctx context.Context, key domain.AttemptKey) (*domain.SubmissionPayload, error)

	// ExpireAndAutoSubmit finalizes and delivers an attempt whose time is over
	ExpireAndAutoSubmit(ctx context.Context, key domain.AttemptKey) (*domain.SubmissionPayload, error)

	// Discard removes a submitted attempt so a fresh one can start
	Discard(ctx context.Context, key domain.AttemptKey) error

	// ListActive returns every stored attempt that is not a tombstone
	ListActive(ctx context.Context) ([]*domain.AttemptState, error)

	// RetryPendingSubmissions delivers outbox rows and returns how many
	// were accepted
	RetryPendingSubmissions(ctx context.Context) (int, error)

	// PurgeDeliveredSubmissions drops outbox rows older than the retention
	PurgeDeliveredSubmissions(ctx context.Context) (int64, error)
}
