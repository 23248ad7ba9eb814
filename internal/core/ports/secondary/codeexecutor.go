package secondary

import (
	"context"

	"gitlab.com/fcv-2025.net/assessment/internal/domain"
)

type CodeExecutor interface {
	// Execute runs one program to completion. The run is registered under
	// owner so that Kill can stop it.
	Execute(ctx context.Context, owner domain.AttemptKey, req *domain.RunRequest) (*domain.RunOutput, error)

	// Kill stops the in-flight run of owner, if any
	Kill(ctx context.Context, owner domain.AttemptKey) error

	// SendInput feeds stdin of the in-flight run of owner
	SendInput(ctx context.Context, owner domain.AttemptKey, data string) error
}

type LanguageCatalog interface {
	Get(id string) (*domain.Language, bool)
	List() []domain.Language
}
