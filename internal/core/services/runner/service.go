package runner

import (
	"context"

	"gitlab.com/fcv-2025.net/assessment/internal/domain"
)

// IRunnerService executes attempt code against test cases
type IRunnerService interface {
	RunTestCase(ctx context.Context, key domain.AttemptKey, itemID, testCaseID, language, code string) (*domain.TestCaseRun, error)

	// RunItem runs every test case of the item in order and stops at the
	// first run that cannot be recorded
	RunItem(ctx context.Context, key domain.AttemptKey, itemID, language, code string) ([]*domain.TestCaseRun, error)

	// RunCustom runs code on user supplied input. Nothing is recorded.
	RunCustom(ctx context.Context, key domain.AttemptKey, language, code, input string) (*domain.RunOutput, error)

	Kill(ctx context.Context, key domain.AttemptKey) error

	// SendInput feeds stdin of the program RunCustom is running
	SendInput(ctx context.Context, key domain.AttemptKey, data string) error

	Languages() []domain.Language
}
