package attempts

import "gitlab.com/fcv-2025.net/assessment/internal/domain"

type StartRequest struct {
	Files []domain.SourceFile `json:"files"`
}

type UpdateFilesRequest struct {
	Files        []domain.SourceFile `json:"files"`
	ActiveFileID string              `json:"active_file_id"`
}

type RunRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Input    string `json:"input"`
}

// InputRequest is stdin for the program started by a custom run
type InputRequest struct {
	Data string `json:"data"`
}

// AttemptResponse is the attempt state with the countdown the client shows
type AttemptResponse struct {
	*domain.AttemptState
	RemainingSeconds int `json:"remaining_seconds"`
}

type RunItemResponse struct {
	Runs             []*domain.TestCaseRun `json:"runs"`
	RemainingSeconds int                   `json:"remaining_seconds"`
}

type SubmissionResponse struct {
	Submission       *domain.SubmissionPayload `json:"submission"`
	AlreadySubmitted bool                      `json:"already_submitted"`
}
