package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/assessment/internal/core/services/activity"
	"gitlab.com/fcv-2025.net/assessment/internal/core/services/session"
	"gitlab.com/fcv-2025.net/assessment/internal/domain"
	"gitlab.com/fcv-2025.net/assessment/internal/static/errs"
)

var _ IRunnerService = (*RunnerService)(nil)

type RunnerService struct {
	sessions  session.ISessionManager
	catalog   activity.IActivityCatalog
	executor  secondary.CodeExecutor
	languages secondary.LanguageCatalog
	logger    primary.Logger
}

func NewRunnerService(
	sessions session.ISessionManager,
	catalog activity.IActivityCatalog,
	executor secondary.CodeExecutor,
	languages secondary.LanguageCatalog,
	logger primary.Logger,
) *RunnerService {
	return &RunnerService{
		sessions:  sessions,
		catalog:   catalog,
		executor:  executor,
		languages: languages,
		logger:    logger,
	}
}

func (s *RunnerService) RunTestCase(ctx context.Context, key domain.AttemptKey, itemID, testCaseID, language, code string) (*domain.TestCaseRun, error) {
	if err := s.ensureRunnable(ctx, key); err != nil {
		return nil, err
	}
	item, err := s.item(ctx, key, itemID, language)
	if err != nil {
		return nil, err
	}
	tc, ok := item.TestCase(testCaseID)
	if !ok {
		return nil, errs.ErrTestCaseNotFound
	}
	return s.runOne(ctx, key, item.ID, tc, language, code)
}

func (s *RunnerService) RunItem(ctx context.Context, key domain.AttemptKey, itemID, language, code string) ([]*domain.TestCaseRun, error) {
	if err := s.ensureRunnable(ctx, key); err != nil {
		return nil, err
	}
	item, err := s.item(ctx, key, itemID, language)
	if err != nil {
		return nil, err
	}

	runs := make([]*domain.TestCaseRun, 0, len(item.TestCases))
	for i := range item.TestCases {
		run, err := s.runOne(ctx, key, item.ID, &item.TestCases[i], language, code)
		if err != nil {
			return runs, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (s *RunnerService) RunCustom(ctx context.Context, key domain.AttemptKey, language, code, input string) (*domain.RunOutput, error) {
	if err := s.ensureRunnable(ctx, key); err != nil {
		return nil, err
	}
	if _, ok := s.languages.Get(language); !ok {
		return nil, errs.ErrUnsupportedLanguage
	}
	return s.executor.Execute(ctx, key, domain.NewRunRequest(language, code, input))
}

func (s *RunnerService) Kill(ctx context.Context, key domain.AttemptKey) error {
	return s.executor.Kill(ctx, key)
}

func (s *RunnerService) SendInput(ctx context.Context, key domain.AttemptKey, data string) error {
	return s.executor.SendInput(ctx, key, data)
}

func (s *RunnerService) Languages() []domain.Language {
	return s.languages.List()
}

// runOne executes one test case and records it. A killed run leaves the
// attempt untouched.
func (s *RunnerService) runOne(ctx context.Context, key domain.AttemptKey, itemID string, tc *domain.TestCase, language, code string) (*domain.TestCaseRun, error) {
	out, err := s.executor.Execute(ctx, key, domain.NewRunRequest(language, code, tc.Input))
	if err != nil {
		return nil, err
	}
	if out.Killed {
		return nil, errs.ErrRunKilled
	}

	outcome := Grade(tc, out)
	_, result, err := s.sessions.RecordRun(ctx, key, itemID, tc.ID, outcome)
	if err != nil {
		if errors.Is(err, errs.ErrAttemptExpired) {
			s.logger.Info("Run finished after the deadline, result dropped", "attempt", key.String(), "testCaseId", tc.ID)
		}
		return nil, err
	}

	s.logger.Debug("Test case run recorded",
		"attempt", key.String(),
		"itemId", itemID,
		"testCaseId", tc.ID,
		"pass", outcome.Pass,
		"points", outcome.Points)
	return &domain.TestCaseRun{
		ItemID:     itemID,
		TestCaseID: tc.ID,
		Outcome:    outcome,
		Result:     result,
		Output:     out,
	}, nil
}

func (s *RunnerService) ensureRunnable(ctx context.Context, key domain.AttemptKey) error {
	state, err := s.sessions.Get(ctx, key)
	if err != nil {
		return err
	}
	if state.IsFinalized() {
		return errs.ErrAlreadyFinalized
	}
	if state.Status == domain.AttemptStatusExpired {
		return errs.ErrAttemptExpired
	}
	return nil
}

func (s *RunnerService) item(ctx context.Context, key domain.AttemptKey, itemID, language string) (*domain.Item, error) {
	act, err := s.catalog.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}
	item, ok := act.Item(itemID)
	if !ok {
		return nil, errs.ErrItemNotFound
	}
	if _, ok := s.languages.Get(language); !ok || !item.AllowsLanguage(language) {
		return nil, errs.ErrUnsupportedLanguage
	}
	return item, nil
}

// Grade compares program output with the expected output. A passing run
// earns the full points of the test case.
func Grade(tc *domain.TestCase, out *domain.RunOutput) domain.RunOutcome {
	output := out.Stdout
	if out.Stderr != "" {
		output = strings.TrimRight(out.Stdout+out.Stderr, "\n")
	}

	pass := !out.TimedOut && !out.Killed && out.ExitCode == 0 &&
		NormalizeOutput(out.Stdout) == NormalizeOutput(tc.ExpectedOutput)
	points := 0.0
	if pass {
		points = tc.Points
	}
	return domain.RunOutcome{Pass: pass, Points: points, Output: output}
}

// NormalizeOutput ignores CRLF line endings, trailing spaces on each line
// and trailing blank lines
func NormalizeOutput(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
