package secondary

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gitlab.com/fcv-2025.net/assessment/internal/domain"
)

// SubmissionOutbox keeps finalized submissions until the backend accepts them
type SubmissionOutbox interface {
	// Enqueue is idempotent on the submission id
	Enqueue(ctx context.Context, payload *domain.SubmissionPayload, retryLimit int) error

	// GetPending returns PENDING rows never retried or last failed before
	// retryBefore, oldest first
	GetPending(ctx context.Context, limit int, retryBefore time.Time) ([]*domain.PendingSubmission, error)

	MarkDelivered(ctx context.Context, submissionID uuid.UUID) error

	// MarkAttemptFailed bumps the retry counter and moves the row to FAILED
	// once the limit is reached
	MarkAttemptFailed(ctx context.Context, submissionID uuid.UUID, cause string) error

	// PurgeDelivered removes delivered rows last touched before the cutoff
	PurgeDelivered(ctx context.Context, before time.Time) (int64, error)
}
