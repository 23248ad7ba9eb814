package activity

import (
	"context"

	"gitlab.com/fcv-2025.net/assessment/internal/domain"
)

// IActivityCatalog serves activities with their items, as seen by one user
type IActivityCatalog interface {
	// Get returns the cached activity when available
	Get(ctx context.Context, key domain.AttemptKey) (*domain.Activity, error)

	// Fresh always asks the backend and refreshes the cache
	Fresh(ctx context.Context, key domain.AttemptKey) (*domain.Activity, error)

	Invalidate(key domain.AttemptKey)
}
