package domain

import (
	"time"

	"github.com/google/uuid"
)

// Language is an entry of the language catalog
type Language struct {
	ID        string `toml:"id" json:"id"`
	Name      string `toml:"name" json:"name"`
	Extension string `toml:"extension" json:"extension"`
	Template  string `toml:"template" json:"template"`
}

// RunRequest is one program execution sent to the compiler service
type RunRequest struct {
	RunID    uuid.UUID `json:"run_id"`
	Language string    `json:"language"`
	Code     string    `json:"code"`
	Input    string    `json:"input"`
}

func NewRunRequest(language, code, input string) *RunRequest {
	return &RunRequest{
		RunID:    uuid.New(),
		Language: language,
		Code:     code,
		Input:    input,
	}
}

// RunOutput is the collected result of one execution
type RunOutput struct {
	RunID    uuid.UUID     `json:"run_id"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Killed   bool          `json:"killed"`
	TimedOut bool          `json:"timed_out"`
	Duration time.Duration `json:"duration"`
}

// TestCaseRun is the graded outcome of one test case, as returned to callers
type TestCaseRun struct {
	ItemID     string         `json:"item_id"`
	TestCaseID string         `json:"test_case_id"`
	Outcome    RunOutcome     `json:"outcome"`
	Result     TestCaseResult `json:"result"`
	Output     *RunOutput     `json:"output"`
}
