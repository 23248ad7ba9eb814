package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionPayload is the final record sent to the backend when an attempt
// ends. SubmissionID doubles as the idempotency key for retries.
type SubmissionPayload struct {
	SubmissionID    uuid.UUID                            `json:"submission_id"`
	AttemptID       uuid.UUID                            `json:"attempt_id"`
	ActivityID      string                               `json:"activity_id"`
	UserID          string                               `json:"user_id"`
	Role            Role                                 `json:"role"`
	Preview         bool                                 `json:"preview"`
	Score           float64                              `json:"score"`
	MaxScore        float64                              `json:"max_score"`
	ElapsedSeconds  int64                                `json:"elapsed_seconds"`
	PassedCount     int                                  `json:"passed_count"`
	TotalCount      int                                  `json:"total_count"`
	ItemScores      map[string]float64                   `json:"item_scores"`
	ItemTimes       map[string]float64                   `json:"item_times"`
	Files           []SourceFile                         `json:"files"`
	TestCaseResults map[string]map[string]TestCaseResult `json:"test_case_results"`
	AutoSubmitted   bool                                 `json:"auto_submitted"`
	StartedAt       time.Time                            `json:"started_at"`
	SubmittedAt     time.Time                            `json:"submitted_at"`
}

// BuildSubmission closes the open item window and snapshots the attempt.
// It moves the state to finalizing; callers guard against a second call.
func (s *AttemptState) BuildSubmission(id uuid.UUID, now time.Time, auto bool) *SubmissionPayload {
	s.closeItemWindow(now)

	itemTimes := make(map[string]float64, len(s.ItemTimes))
	for itemID, t := range s.ItemTimes {
		itemTimes[itemID] = t.AccumulatedSeconds
	}

	total := s.TestCaseCount
	recorded := 0
	for _, cases := range s.TestCaseResults {
		recorded += len(cases)
	}
	if recorded > total {
		total = recorded
	}

	payload := &SubmissionPayload{
		SubmissionID:    id,
		AttemptID:       s.AttemptID,
		ActivityID:      s.ActivityID,
		UserID:          s.UserID,
		Role:            s.Role,
		Preview:         s.Role == RoleTeacher,
		Score:           Score(s.TestCaseResults, s.ScorePolicy),
		MaxScore:        s.MaxScore,
		ElapsedSeconds:  s.ElapsedSeconds(now),
		PassedCount:     PassedCount(s.TestCaseResults, s.ScorePolicy),
		TotalCount:      total,
		ItemScores:      ItemScores(s.TestCaseResults, s.ScorePolicy),
		ItemTimes:       itemTimes,
		Files:           append([]SourceFile(nil), s.Files...),
		TestCaseResults: cloneResults(s.TestCaseResults),
		AutoSubmitted:   auto,
		StartedAt:       s.StartTime,
		SubmittedAt:     now,
	}

	s.Score = payload.Score
	s.Submission = payload
	s.Status = AttemptStatusFinalizing
	s.UpdatedAt = now
	return payload
}

// Acknowledge turns the state into a tombstone for the delivered submission
func (s *AttemptState) Acknowledge(now time.Time) {
	ack := now
	s.AcknowledgedAt = &ack
	s.Status = AttemptStatusFinalized
	s.Files = nil
	s.TestCaseResults = nil
	s.ItemTimes = nil
	s.UpdatedAt = now
}

// SubmissionStatus represents the delivery state of an outbox row
type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "PENDING"
	SubmissionStatusDelivered SubmissionStatus = "DELIVERED"
	SubmissionStatusFailed    SubmissionStatus = "FAILED"
)

// PendingSubmission is a finalized submission awaiting delivery
type PendingSubmission struct {
	SubmissionID uuid.UUID        `db:"submission_id"`
	ActivityID   string           `db:"activity_id"`
	UserID       string           `db:"user_id"`
	Payload      []byte           `db:"payload"`
	Status       SubmissionStatus `db:"status"`
	RetryCount   int              `db:"retry_count"`
	RetryLimit   int              `db:"retry_limit"`
	LastError    *string          `db:"last_error"`
	CreatedAt    time.Time        `db:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at"`
	DeliveredAt  *time.Time       `db:"delivered_at"`
}

func (p *PendingSubmission) Key() AttemptKey {
	return AttemptKey{ActivityID: p.ActivityID, UserID: p.UserID}
}

type PendingSubmissionsTable struct {
	SubmissionID string
	ActivityID   string
	UserID       string
	Payload      string
	Status       string
	RetryCount   string
	RetryLimit   string
	LastError    string
	CreatedAt    string
	UpdatedAt    string
	DeliveredAt  string
}

func GetPendingSubmissionsTable() PendingSubmissionsTable {
	return PendingSubmissionsTable{
		SubmissionID: "submission_id",
		ActivityID:   "activity_id",
		UserID:       "user_id",
		Payload:      "payload",
		Status:       "status",
		RetryCount:   "retry_count",
		RetryLimit:   "retry_limit",
		LastError:    "last_error",
		CreatedAt:    "created_at",
		UpdatedAt:    "updated_at",
		DeliveredAt:  "delivered_at",
	}
}

func (t PendingSubmissionsTable) GetTableName() string {
	return "pending_submissions"
}
