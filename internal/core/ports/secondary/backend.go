package secondary

import (
	"context"

	"gitlab.com/fcv-2025.net/assessment/internal/domain"
)

// ActivityBackend is the LMS REST API. Transport failures are returned as
// *errs.NetworkError.
type ActivityBackend interface {
	GetActivity(ctx context.Context, activityID string) (*domain.Activity, error)
	GetItems(ctx context.Context, activityID string) ([]domain.Item, error)

	// GetProgress returns nil, nil when the user has no saved progress
	GetProgress(ctx context.Context, key domain.AttemptKey) (*domain.ServerProgress, error)
	SaveProgress(ctx context.Context, key domain.AttemptKey, progress *domain.ServerProgress) error
	ClearProgress(ctx context.Context, key domain.AttemptKey) error

	Submit(ctx context.Context, payload *domain.SubmissionPayload) error
	DeleteSubmission(ctx context.Context, key domain.AttemptKey) error
}
