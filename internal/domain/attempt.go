package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus represents the lifecycle stage of an attempt
type AttemptStatus string

const (
	AttemptStatusNotStarted AttemptStatus = "not_started"
	AttemptStatusActive     AttemptStatus = "active"
	AttemptStatusExpired    AttemptStatus = "expired"
	AttemptStatusFinalizing AttemptStatus = "finalizing"
	AttemptStatusFinalized  AttemptStatus = "finalized"
)

const attemptKeyPrefix = "attempt:"

// AttemptKey identifies the single attempt a user may hold on an activity
type AttemptKey struct {
	ActivityID string `json:"activity_id"`
	UserID     string `json:"user_id"`
}

func (k AttemptKey) String() string {
	return fmt.Sprintf("%s%s:%s", attemptKeyPrefix, k.ActivityID, k.UserID)
}

// SourceFile is one editor buffer of an attempt
type SourceFile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Content   string `json:"content"`
}

// ItemTime accumulates the seconds spent on one item. StartedAt is set
// while the item is the selected one.
type ItemTime struct {
	AccumulatedSeconds float64    `json:"accumulated_seconds"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
}

// AttemptState is the locally persisted draft of an in-progress attempt
type AttemptState struct {
	// AttemptID tells apart successive attempts on the same key
	AttemptID   uuid.UUID     `json:"attempt_id"`
	ActivityID  string        `json:"activity_id"`
	UserID      string        `json:"user_id"`
	Role        Role          `json:"role"`
	Status      AttemptStatus `json:"status"`
	ScorePolicy ScorePolicy   `json:"score_policy"`

	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	CloseDate *time.Time `json:"close_date,omitempty"`

	Files           []SourceFile                         `json:"files"`
	ActiveFileID    string                               `json:"active_file_id"`
	TestCaseResults map[string]map[string]TestCaseResult `json:"test_case_results"`
	SelectedItem    string                               `json:"selected_item"`
	ItemTimes       map[string]ItemTime                  `json:"item_times"`

	Score         float64 `json:"score"`
	MaxScore      float64 `json:"max_score"`
	TestCaseCount int     `json:"test_case_count"`

	Submission     *SubmissionPayload `json:"submission,omitempty"`
	AcknowledgedAt *time.Time         `json:"acknowledged_at,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// EffectiveDeadline returns min(now+duration, closeDate). A non-positive
// duration means the activity is bounded by its close date only.
func EffectiveDeadline(now time.Time, duration time.Duration, closeDate *time.Time) time.Time {
	if duration <= 0 && closeDate != nil {
		return *closeDate
	}
	deadline := now.Add(duration)
	if closeDate != nil && closeDate.Before(deadline) {
		return *closeDate
	}
	return deadline
}

// NewAttemptState creates a fresh active attempt for the given activity
func NewAttemptState(key AttemptKey, role Role, activity *Activity, now, endTime time.Time, files []SourceFile) *AttemptState {
	state := &AttemptState{
		AttemptID:       uuid.New(),
		ActivityID:      key.ActivityID,
		UserID:          key.UserID,
		Role:            role,
		Status:          AttemptStatusActive,
		ScorePolicy:     activity.ScorePolicy.OrDefault(),
		StartTime:       now,
		EndTime:         endTime,
		CloseDate:       activity.CloseDate,
		Files:           append([]SourceFile(nil), files...),
		TestCaseResults: make(map[string]map[string]TestCaseResult),
		ItemTimes:       make(map[string]ItemTime),
		MaxScore:        activity.MaxScore(),
		TestCaseCount:   activity.TestCaseCount(),
		UpdatedAt:       now,
	}
	if len(files) > 0 {
		state.ActiveFileID = files[0].ID
	}
	if len(activity.Items) > 0 {
		state.SwitchItem(activity.Items[0].ID, now)
	}
	return state
}

func (s *AttemptState) Key() AttemptKey {
	return AttemptKey{ActivityID: s.ActivityID, UserID: s.UserID}
}

// RemainingSeconds is recomputed from the wall clock on every call so it
// stays correct after the caller was suspended.
func (s *AttemptState) RemainingSeconds(now time.Time) int {
	left := s.EndTime.Sub(now).Seconds()
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left))
}

func (s *AttemptState) IsExpired(now time.Time) bool {
	return !now.Before(s.EndTime)
}

// IsFinalized reports whether finalize already ran for this attempt
func (s *AttemptState) IsFinalized() bool {
	return s.Status == AttemptStatusFinalizing || s.Status == AttemptStatusFinalized
}

// IsTombstone reports whether the submission was acknowledged by the backend
func (s *AttemptState) IsTombstone() bool {
	return s.AcknowledgedAt != nil
}

// Observe applies the wall-clock edge active -> expired.
func (s *AttemptState) Observe(now time.Time) {
	if s.Status == AttemptStatusActive && s.IsExpired(now) {
		s.Status = AttemptStatusExpired
	}
}

// Tighten lowers EndTime to deadline. It never extends the attempt.
func (s *AttemptState) Tighten(deadline time.Time) bool {
	if !deadline.Before(s.EndTime) {
		return false
	}
	s.EndTime = deadline
	return true
}

// RecordRun stores the outcome of one test case run. Latest fields always
// follow the run; best fields only move when points strictly improve, so
// the earliest best run is kept on ties.
func (s *AttemptState) RecordRun(itemID, testCaseID string, outcome RunOutcome, now time.Time) TestCaseResult {
	if s.TestCaseResults == nil {
		s.TestCaseResults = make(map[string]map[string]TestCaseResult)
	}
	item, ok := s.TestCaseResults[itemID]
	if !ok {
		item = make(map[string]TestCaseResult)
		s.TestCaseResults[itemID] = item
	}

	res := item[testCaseID]
	res.LatestPass = outcome.Pass
	res.LatestPoints = outcome.Points
	res.LatestOutput = outcome.Output
	if res.Runs == 0 || outcome.Points > res.BestPoints {
		res.BestPass = outcome.Pass
		res.BestPoints = outcome.Points
		res.BestOutput = outcome.Output
	}
	res.Runs++
	res.LastRunAt = now
	item[testCaseID] = res

	s.Score = Score(s.TestCaseResults, s.ScorePolicy)
	s.UpdatedAt = now
	return res
}

// SwitchItem closes the time window of the selected item and opens one
// for itemID.
func (s *AttemptState) SwitchItem(itemID string, now time.Time) {
	if s.ItemTimes == nil {
		s.ItemTimes = make(map[string]ItemTime)
	}
	s.closeItemWindow(now)

	t := s.ItemTimes[itemID]
	opened := now
	t.StartedAt = &opened
	s.ItemTimes[itemID] = t
	s.SelectedItem = itemID
	s.UpdatedAt = now
}

func (s *AttemptState) closeItemWindow(now time.Time) {
	if s.SelectedItem == "" {
		return
	}
	s.closeWindow(s.SelectedItem, now)
}

// closeWindow counts time up to the deadline at most
func (s *AttemptState) closeWindow(itemID string, now time.Time) {
	t, ok := s.ItemTimes[itemID]
	if !ok || t.StartedAt == nil {
		return
	}
	end := now
	if s.EndTime.Before(end) {
		end = s.EndTime
	}
	if spent := end.Sub(*t.StartedAt).Seconds(); spent > 0 {
		t.AccumulatedSeconds += spent
	}
	t.StartedAt = nil
	s.ItemTimes[itemID] = t
}

// UpdateFiles replaces the editor buffers
func (s *AttemptState) UpdateFiles(files []SourceFile, activeFileID string, now time.Time) {
	s.Files = append([]SourceFile(nil), files...)
	if activeFileID != "" {
		s.ActiveFileID = activeFileID
	}
	s.UpdatedAt = now
}

// ElapsedSeconds is the attempt duration up to now, capped at the deadline
func (s *AttemptState) ElapsedSeconds(now time.Time) int64 {
	end := now
	if s.EndTime.Before(end) {
		end = s.EndTime
	}
	elapsed := end.Sub(s.StartTime)
	if elapsed < 0 {
		return 0
	}
	return int64(elapsed / time.Second)
}

// Clone returns a deep copy
func (s *AttemptState) Clone() *AttemptState {
	if s == nil {
		return nil
	}
	out := *s
	out.Files = append([]SourceFile(nil), s.Files...)
	out.TestCaseResults = cloneResults(s.TestCaseResults)
	out.ItemTimes = make(map[string]ItemTime, len(s.ItemTimes))
	for id, t := range s.ItemTimes {
		if t.StartedAt != nil {
			started := *t.StartedAt
			t.StartedAt = &started
		}
		out.ItemTimes[id] = t
	}
	if s.CloseDate != nil {
		closeDate := *s.CloseDate
		out.CloseDate = &closeDate
	}
	if s.AcknowledgedAt != nil {
		ack := *s.AcknowledgedAt
		out.AcknowledgedAt = &ack
	}
	if s.Submission != nil {
		sub := *s.Submission
		out.Submission = &sub
	}
	return &out
}

func cloneResults(in map[string]map[string]TestCaseResult) map[string]map[string]TestCaseResult {
	out := make(map[string]map[string]TestCaseResult, len(in))
	for itemID, cases := range in {
		cp := make(map[string]TestCaseResult, len(cases))
		for tcID, r := range cases {
			cp[tcID] = r
		}
		out[itemID] = cp
	}
	return out
}
