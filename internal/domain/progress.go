package domain

import (
	"time"

	"github.com/google/uuid"
)

// ServerProgress is the draft progress saved on the backend
type ServerProgress struct {
	AttemptID       uuid.UUID                            `json:"attempt_id"`
	Files           []SourceFile                         `json:"files,omitempty"`
	ActiveFileID    string                               `json:"active_file_id,omitempty"`
	TestCaseResults map[string]map[string]TestCaseResult `json:"test_case_results,omitempty"`
	SelectedItem    string                               `json:"selected_item,omitempty"`
	ItemTimes       map[string]ItemTime                  `json:"item_times,omitempty"`
	Score           float64                              `json:"score"`
	StartTime       *time.Time                           `json:"start_time,omitempty"`
	EndTime         *time.Time                           `json:"end_time,omitempty"`
	UpdatedAt       time.Time                            `json:"updated_at"`
}

// Progress snapshots the state in the shape the backend stores
func (s *AttemptState) Progress() *ServerProgress {
	c := s.Clone()
	start, end := c.StartTime, c.EndTime
	return &ServerProgress{
		AttemptID:       c.AttemptID,
		Files:           c.Files,
		ActiveFileID:    c.ActiveFileID,
		TestCaseResults: c.TestCaseResults,
		SelectedItem:    c.SelectedItem,
		ItemTimes:       c.ItemTimes,
		Score:           c.Score,
		StartTime:       &start,
		EndTime:         &end,
		UpdatedAt:       c.UpdatedAt,
	}
}

// LiveAt reports whether the progress was saved by an attempt still running
// at now. Progress without a deadline is never live.
func (p *ServerProgress) LiveAt(now time.Time) bool {
	return p != nil && p.EndTime != nil && p.EndTime.After(now)
}

// Owns reports whether p was saved by this attempt. Either side missing an
// attempt id matches.
func (s *AttemptState) Owns(p *ServerProgress) bool {
	return p.AttemptID == uuid.Nil || s.AttemptID == uuid.Nil || p.AttemptID == s.AttemptID
}

// Adopt makes a fresh local state continue the attempt p was saved by. The
// deadline only moves earlier.
func (s *AttemptState) Adopt(p *ServerProgress) {
	if p.AttemptID != uuid.Nil {
		s.AttemptID = p.AttemptID
	}
	if p.StartTime != nil && p.StartTime.Before(s.StartTime) {
		s.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		s.Tighten(*p.EndTime)
	}
}

// Reconcile merges saved server progress into local state. Non-empty server
// fields win; the local EndTime is always kept and the score is recomputed
// from the merged results. Progress of another attempt is ignored.
func Reconcile(local *AttemptState, server *ServerProgress) *AttemptState {
	out := local.Clone()
	if server == nil || !local.Owns(server) {
		return out
	}

	if len(server.Files) > 0 {
		out.Files = append([]SourceFile(nil), server.Files...)
	}
	if server.ActiveFileID != "" {
		out.ActiveFileID = server.ActiveFileID
	}
	if len(server.TestCaseResults) > 0 {
		out.TestCaseResults = cloneResults(server.TestCaseResults)
	}
	if server.SelectedItem != "" {
		out.SelectedItem = server.SelectedItem
	}
	if len(server.ItemTimes) > 0 {
		out.ItemTimes = make(map[string]ItemTime, len(server.ItemTimes))
		for id, t := range server.ItemTimes {
			t.StartedAt = nil
			out.ItemTimes[id] = t
		}
	}
	out.reopenSelectedWindow(local.UpdatedAt)

	out.Score = Score(out.TestCaseResults, out.ScorePolicy)
	return out
}

// reopenSelectedWindow leaves at most one open window, on the selected item.
// Other open windows are closed at the given time.
func (s *AttemptState) reopenSelectedWindow(at time.Time) {
	if s.ItemTimes == nil {
		s.ItemTimes = make(map[string]ItemTime)
	}
	for id, t := range s.ItemTimes {
		if id != s.SelectedItem && t.StartedAt != nil {
			s.closeWindow(id, at)
		}
	}
	if s.SelectedItem == "" {
		return
	}
	t := s.ItemTimes[s.SelectedItem]
	if t.StartedAt == nil {
		opened := at
		t.StartedAt = &opened
		s.ItemTimes[s.SelectedItem] = t
	}
}
