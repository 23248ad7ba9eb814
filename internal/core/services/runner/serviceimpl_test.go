package runner

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/fcv-2025.net/assessment/internal/adapter/logging"
	"gitlab.com/fcv-2025.net/assessment/internal/core/services/session"
	"gitlab.com/fcv-2025.net/assessment/internal/domain"
	"gitlab.com/fcv-2025.net/assessment/internal/static/errs"
)

type fakeSessions struct {
	session.ISessionManager

	mu       sync.Mutex
	status   domain.AttemptStatus
	state    *domain.AttemptState
	expireOn int
	recorded int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		status: domain.AttemptStatusActive,
		state:  &domain.AttemptState{ScorePolicy: domain.ScorePolicyHighestScore},
	}
}

func (f *fakeSessions) Get(ctx context.Context, key domain.AttemptKey) (*domain.AttemptState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.state.Clone()
	s.Status = f.status
	return s, nil
}

func (f *fakeSessions) RecordRun(ctx context.Context, key domain.AttemptKey, itemID, testCaseID string, outcome domain.RunOutcome) (*domain.AttemptState, domain.TestCaseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expireOn > 0 && f.recorded+1 >= f.expireOn {
		return nil, domain.TestCaseResult{}, errs.ErrAttemptExpired
	}
	f.recorded++
	res := f.state.RecordRun(itemID, testCaseID, outcome, f.state.UpdatedAt)
	return f.state.Clone(), res, nil
}

type fakeCatalog struct {
	activity *domain.Activity
}

func (c *fakeCatalog) Get(ctx context.Context, key domain.AttemptKey) (*domain.Activity, error) {
	return c.activity, nil
}

func (c *fakeCatalog) Fresh(ctx context.Context, key domain.AttemptKey) (*domain.Activity, error) {
	return c.activity, nil
}

func (c *fakeCatalog) Invalidate(key domain.AttemptKey) {}

// echoExecutor prints the input back, or a fixed output when set
type echoExecutor struct {
	mu     sync.Mutex
	fixed  *domain.RunOutput
	inputs []string
	stdin  []string
	killed int
}

func (e *echoExecutor) Execute(ctx context.Context, owner domain.AttemptKey, req *domain.RunRequest) (*domain.RunOutput, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inputs = append(e.inputs, req.Input)
	if e.fixed != nil {
		out := *e.fixed
		return &out, nil
	}
	return &domain.RunOutput{RunID: req.RunID, Stdout: req.Input + "\r\n"}, nil
}

func (e *echoExecutor) Kill(ctx context.Context, owner domain.AttemptKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.killed++
	return nil
}

func (e *echoExecutor) SendInput(ctx context.Context, owner domain.AttemptKey, data string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stdin = append(e.stdin, data)
	return nil
}

type staticLanguages map[string]domain.Language

func (l staticLanguages) Get(id string) (*domain.Language, bool) {
	lang, ok := l[id]
	return &lang, ok
}

func (l staticLanguages) List() []domain.Language {
	out := make([]domain.Language, 0, len(l))
	for _, lang := range l {
		out = append(out, lang)
	}
	return out
}

var key = domain.AttemptKey{ActivityID: "act-1", UserID: "u1"}

func newRunner(t *testing.T) (*RunnerService, *fakeSessions, *echoExecutor) {
	t.Helper()
	activity := &domain.Activity{
		ID: "act-1",
		Items: []domain.Item{{
			ID:               "item-1",
			AllowedLanguages: []string{"python"},
			TestCases: []domain.TestCase{
				{ID: "tc-1", Input: "1", ExpectedOutput: "1", Points: 2},
				{ID: "tc-2", Input: "2", ExpectedOutput: "2\n", Points: 3},
				{ID: "tc-3", Input: "3", ExpectedOutput: "three", Points: 5},
			},
		}},
	}
	sessions := newFakeSessions()
	executor := &echoExecutor{}
	languages := staticLanguages{
		"python": {ID: "python", Name: "Python 3"},
		"c":      {ID: "c", Name: "C"},
	}
	svc := NewRunnerService(sessions, &fakeCatalog{activity: activity}, executor, languages, logging.NewNopLogger())
	return svc, sessions, executor
}

func TestRunTestCase_PassAwardsFullPoints(t *testing.T) {
	svc, _, _ := newRunner(t)

	run, err := svc.RunTestCase(context.Background(), key, "item-1", "tc-2", "python", "print(input())")
	require.NoError(t, err)
	assert.True(t, run.Outcome.Pass)
	assert.Equal(t, 3.0, run.Outcome.Points)
	assert.Equal(t, 1, run.Result.Runs)
}

func TestRunTestCase_FailAwardsZero(t *testing.T) {
	svc, _, _ := newRunner(t)

	run, err := svc.RunTestCase(context.Background(), key, "item-1", "tc-3", "python", "print(input())")
	require.NoError(t, err)
	assert.False(t, run.Outcome.Pass)
	assert.Equal(t, 0.0, run.Outcome.Points)
}

func TestRunItem_RunsEveryTestCase(t *testing.T) {
	svc, sessions, executor := newRunner(t)

	runs, err := svc.RunItem(context.Background(), key, "item-1", "python", "print(input())")
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"1", "2", "3"}, executor.inputs)
	assert.Equal(t, 5.0, sessions.state.Score)
}

func TestRunItem_StopsWhenDeadlinePassesMidway(t *testing.T) {
	svc, sessions, _ := newRunner(t)
	sessions.expireOn = 2

	runs, err := svc.RunItem(context.Background(), key, "item-1", "python", "print(input())")
	assert.ErrorIs(t, err, errs.ErrAttemptExpired)
	assert.Len(t, runs, 1)
	assert.Equal(t, 1, sessions.recorded)
}

func TestRun_RefusedOnExpiredOrFinalizedAttempt(t *testing.T) {
	svc, sessions, executor := newRunner(t)

	sessions.status = domain.AttemptStatusExpired
	_, err := svc.RunTestCase(context.Background(), key, "item-1", "tc-1", "python", "")
	assert.ErrorIs(t, err, errs.ErrAttemptExpired)

	sessions.status = domain.AttemptStatusFinalized
	_, err = svc.RunCustom(context.Background(), key, "python", "", "x")
	assert.ErrorIs(t, err, errs.ErrAlreadyFinalized)

	assert.Empty(t, executor.inputs)
}

func TestRun_LanguageValidation(t *testing.T) {
	svc, _, _ := newRunner(t)
	ctx := context.Background()

	_, err := svc.RunTestCase(ctx, key, "item-1", "tc-1", "c", "")
	assert.ErrorIs(t, err, errs.ErrUnsupportedLanguage)

	_, err = svc.RunCustom(ctx, key, "brainfuck", "", "")
	assert.ErrorIs(t, err, errs.ErrUnsupportedLanguage)

	_, err = svc.RunTestCase(ctx, key, "item-9", "tc-1", "python", "")
	assert.ErrorIs(t, err, errs.ErrItemNotFound)

	_, err = svc.RunTestCase(ctx, key, "item-1", "tc-9", "python", "")
	assert.ErrorIs(t, err, errs.ErrTestCaseNotFound)
}

func TestRunTestCase_KilledRunIsNotRecorded(t *testing.T) {
	svc, sessions, executor := newRunner(t)
	executor.fixed = &domain.RunOutput{Killed: true}

	_, err := svc.RunTestCase(context.Background(), key, "item-1", "tc-1", "python", "")
	assert.ErrorIs(t, err, errs.ErrRunKilled)
	assert.Equal(t, 0, sessions.recorded)

	require.NoError(t, svc.Kill(context.Background(), key))
	assert.Equal(t, 1, executor.killed)

	require.NoError(t, svc.SendInput(context.Background(), key, "5\n"))
	assert.Equal(t, []string{"5\n"}, executor.stdin)
}

func TestGrade(t *testing.T) {
	tc := &domain.TestCase{ExpectedOutput: "a\nb", Points: 4}

	tests := []struct {
		name string
		out  domain.RunOutput
		pass bool
	}{
		{"exact", domain.RunOutput{Stdout: "a\nb"}, true},
		{"crlf and trailing spaces", domain.RunOutput{Stdout: "a  \r\nb\r\n\n"}, true},
		{"wrong", domain.RunOutput{Stdout: "a\nc"}, false},
		{"non-zero exit", domain.RunOutput{Stdout: "a\nb", ExitCode: 1}, false},
		{"timed out", domain.RunOutput{Stdout: "a\nb", TimedOut: true}, false},
		{"leading space matters", domain.RunOutput{Stdout: " a\nb"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := Grade(tc, &tt.out)
			assert.Equal(t, tt.pass, outcome.Pass)
			if tt.pass {
				assert.Equal(t, 4.0, outcome.Points)
			} else {
				assert.Equal(t, 0.0, outcome.Points)
			}
		})
	}
}
