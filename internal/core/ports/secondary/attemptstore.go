package secondary

import (
	"context"
	"time"

	"gitlab.com/fcv-2025.net/assessment/internal/domain"
)

// AttemptStore is the durable key-value store for attempt drafts
type AttemptStore interface {
	// Get returns nil, nil when nothing is stored. A blob that cannot be
	// decoded returns errs.ErrCorruptLocalState.
	Get(ctx context.Context, key domain.AttemptKey) (*domain.AttemptState, error)

	// Set overwrites the stored state. ttl <= 0 keeps the entry forever.
	Set(ctx context.Context, state *domain.AttemptState, ttl time.Duration) error

	Delete(ctx context.Context, key domain.AttemptKey) error

	// List returns every decodable stored attempt
	List(ctx context.Context) ([]*domain.AttemptState, error)
}
