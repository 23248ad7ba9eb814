package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newState(t *testing.T, policy ScorePolicy, duration time.Duration) *AttemptState {
	t.Helper()
	activity := &Activity{
		ID:          "a",
		ScorePolicy: policy,
		Items: []Item{
			{ID: "i1", TestCases: []TestCase{{ID: "t1", Points: 5}, {ID: "t2", Points: 5}}},
			{ID: "i2", TestCases: []TestCase{{ID: "t3", Points: 10}}},
		},
	}
	return NewAttemptState(AttemptKey{ActivityID: "a", UserID: "u"}, RoleStudent, activity, base, base.Add(duration), nil)
}

func TestEffectiveDeadline(t *testing.T) {
	early := base.Add(5 * time.Minute)
	late := base.Add(time.Hour)

	tests := []struct {
		name      string
		duration  time.Duration
		closeDate *time.Time
		want      time.Time
	}{
		{"duration only", 10 * time.Minute, nil, base.Add(10 * time.Minute)},
		{"close date earlier", 10 * time.Minute, &early, early},
		{"close date later", 10 * time.Minute, &late, base.Add(10 * time.Minute)},
		{"close date only", 0, &late, late},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectiveDeadline(base, tt.duration, tt.closeDate))
		})
	}
}

func TestRemainingSeconds(t *testing.T) {
	s := newState(t, ScorePolicyHighestScore, 10*time.Minute)

	assert.Equal(t, 600, s.RemainingSeconds(base))
	assert.Equal(t, 1, s.RemainingSeconds(base.Add(599*time.Second+500*time.Millisecond)))
	assert.Equal(t, 0, s.RemainingSeconds(base.Add(10*time.Minute)))
	assert.Equal(t, 0, s.RemainingSeconds(base.Add(2*time.Hour)))

	// a long suspension is accounted for on the next read
	assert.False(t, s.IsExpired(base.Add(9*time.Minute)))
	assert.True(t, s.IsExpired(base.Add(10*time.Minute)))
}

func TestTightenNeverExtends(t *testing.T) {
	s := newState(t, ScorePolicyHighestScore, 30*time.Minute)

	assert.False(t, s.Tighten(base.Add(time.Hour)))
	assert.Equal(t, base.Add(30*time.Minute), s.EndTime)

	assert.True(t, s.Tighten(base.Add(20*time.Minute)))
	assert.Equal(t, base.Add(20*time.Minute), s.EndTime)
}

func TestRecordRun_LatestAndBest(t *testing.T) {
	s := newState(t, ScorePolicyHighestScore, time.Hour)

	for i, points := range []float64{3, 5, 2} {
		s.RecordRun("i1", "t1", RunOutcome{Pass: points == 5, Points: points, Output: outputOf(i)}, base.Add(time.Duration(i)*time.Second))
	}
	res := s.TestCaseResults["i1"]["t1"]
	assert.Equal(t, 5.0, res.BestPoints)
	assert.Equal(t, "run-1", res.BestOutput)
	assert.True(t, res.BestPass)
	assert.Equal(t, 2.0, res.LatestPoints)
	assert.Equal(t, "run-2", res.LatestOutput)
	assert.False(t, res.LatestPass)
	assert.Equal(t, 3, res.Runs)

	// a tie with the best keeps the earlier best run
	res = s.RecordRun("i1", "t1", RunOutcome{Pass: true, Points: 5, Output: "run-3"}, base.Add(4*time.Second))
	assert.Equal(t, 5.0, res.LatestPoints)
	assert.Equal(t, "run-3", res.LatestOutput)
	assert.Equal(t, "run-1", res.BestOutput)
}

func outputOf(i int) string {
	return []string{"run-0", "run-1", "run-2"}[i]
}

func TestScoreFollowsPolicy(t *testing.T) {
	highest := newState(t, ScorePolicyHighestScore, time.Hour)
	last := newState(t, ScorePolicyLastAttempt, time.Hour)

	for _, s := range []*AttemptState{highest, last} {
		s.RecordRun("i1", "t1", RunOutcome{Pass: true, Points: 5}, base)
		s.RecordRun("i1", "t1", RunOutcome{Pass: false, Points: 0}, base.Add(time.Second))
		s.RecordRun("i2", "t3", RunOutcome{Pass: true, Points: 10}, base.Add(2*time.Second))
	}

	assert.Equal(t, 15.0, highest.Score)
	assert.Equal(t, 10.0, last.Score)
	assert.Equal(t, 2, PassedCount(highest.TestCaseResults, highest.ScorePolicy))
	assert.Equal(t, 1, PassedCount(last.TestCaseResults, last.ScorePolicy))
}

func TestSwitchItemCapsAtDeadline(t *testing.T) {
	s := newState(t, ScorePolicyHighestScore, 10*time.Minute)
	require.Equal(t, "i1", s.SelectedItem)

	s.SwitchItem("i2", base.Add(4*time.Minute))
	s.SwitchItem("i1", base.Add(30*time.Minute))

	assert.Equal(t, 240.0, s.ItemTimes["i1"].AccumulatedSeconds)
	assert.Equal(t, 360.0, s.ItemTimes["i2"].AccumulatedSeconds)
	assert.Nil(t, s.ItemTimes["i2"].StartedAt)
	assert.NotNil(t, s.ItemTimes["i1"].StartedAt)
}

func TestReconcile(t *testing.T) {
	local := newState(t, ScorePolicyHighestScore, 10*time.Minute)
	local.Files = []SourceFile{{ID: "f1", Content: "local"}}
	serverEnd := base.Add(-time.Hour)

	t.Run("nil server keeps local", func(t *testing.T) {
		out := Reconcile(local, nil)
		assert.Equal(t, local.Files, out.Files)
		assert.Equal(t, local.EndTime, out.EndTime)
	})

	t.Run("server fields win except end time", func(t *testing.T) {
		out := Reconcile(local, &ServerProgress{
			Files:        []SourceFile{{ID: "f1", Content: "server"}},
			SelectedItem: "i2",
			TestCaseResults: map[string]map[string]TestCaseResult{
				"i2": {"t3": {BestPass: true, BestPoints: 10, LatestPoints: 10, Runs: 1}},
			},
			ItemTimes: map[string]ItemTime{"i1": {AccumulatedSeconds: 42}},
			EndTime:   &serverEnd,
		})
		assert.Equal(t, "server", out.Files[0].Content)
		assert.Equal(t, "i2", out.SelectedItem)
		assert.Equal(t, local.EndTime, out.EndTime)
		assert.Equal(t, 10.0, out.Score)
		assert.Equal(t, 42.0, out.ItemTimes["i1"].AccumulatedSeconds)
		assert.Nil(t, out.ItemTimes["i1"].StartedAt)
		assert.NotNil(t, out.ItemTimes["i2"].StartedAt)
	})

	t.Run("empty server fields keep local", func(t *testing.T) {
		out := Reconcile(local, &ServerProgress{})
		assert.Equal(t, "local", out.Files[0].Content)
		assert.Equal(t, "i1", out.SelectedItem)
	})

	t.Run("progress of another attempt is ignored", func(t *testing.T) {
		out := Reconcile(local, &ServerProgress{
			AttemptID: uuid.New(),
			Files:     []SourceFile{{ID: "f1", Content: "server"}},
		})
		assert.Equal(t, "local", out.Files[0].Content)
	})

	t.Run("new selection without item times keeps local time", func(t *testing.T) {
		at := base.Add(90 * time.Second)
		moved := local.Clone()
		moved.UpdatedAt = at

		out := Reconcile(moved, &ServerProgress{AttemptID: moved.AttemptID, SelectedItem: "i2"})
		assert.Equal(t, 90.0, out.ItemTimes["i1"].AccumulatedSeconds)
		assert.Nil(t, out.ItemTimes["i1"].StartedAt)
		require.NotNil(t, out.ItemTimes["i2"].StartedAt)
		assert.Equal(t, at, *out.ItemTimes["i2"].StartedAt)
	})

	assert.Equal(t, "local", local.Files[0].Content)
}

func TestServerProgressLiveAtAndAdopt(t *testing.T) {
	s := newState(t, ScorePolicyHighestScore, 10*time.Minute)
	savedStart := base.Add(-time.Minute)
	savedEnd := base.Add(5 * time.Minute)
	p := &ServerProgress{AttemptID: uuid.New(), StartTime: &savedStart, EndTime: &savedEnd}

	assert.True(t, p.LiveAt(base))
	assert.False(t, p.LiveAt(savedEnd))
	assert.False(t, (&ServerProgress{}).LiveAt(base))
	assert.False(t, s.Owns(p))

	s.Adopt(p)
	assert.True(t, s.Owns(p))
	assert.Equal(t, savedStart, s.StartTime)
	assert.Equal(t, savedEnd, s.EndTime)

	later := base.Add(time.Hour)
	s.Adopt(&ServerProgress{EndTime: &later})
	assert.Equal(t, savedEnd, s.EndTime)
}

func TestBuildSubmissionAndAcknowledge(t *testing.T) {
	s := newState(t, ScorePolicyHighestScore, 10*time.Minute)
	s.RecordRun("i1", "t1", RunOutcome{Pass: true, Points: 5}, base.Add(time.Minute))

	id := uuid.New()
	payload := s.BuildSubmission(id, base.Add(3*time.Minute), false)

	assert.Equal(t, id, payload.SubmissionID)
	assert.Equal(t, s.AttemptID, payload.AttemptID)
	assert.Equal(t, 5.0, payload.Score)
	assert.Equal(t, 20.0, payload.MaxScore)
	assert.Equal(t, 1, payload.PassedCount)
	assert.Equal(t, 3, payload.TotalCount)
	assert.Equal(t, int64(180), payload.ElapsedSeconds)
	assert.Equal(t, 180.0, payload.ItemTimes["i1"])
	assert.Equal(t, map[string]float64{"i1": 5}, payload.ItemScores)
	assert.False(t, payload.Preview)
	assert.True(t, s.IsFinalized())
	assert.False(t, s.IsTombstone())

	s.Acknowledge(base.Add(4 * time.Minute))
	assert.True(t, s.IsTombstone())
	assert.Equal(t, AttemptStatusFinalized, s.Status)
	assert.Equal(t, id, s.Submission.SubmissionID)
}

func TestAttemptLimit(t *testing.T) {
	a := &Activity{MaxAttempts: 2, AttemptsUsed: 2}
	assert.True(t, a.AttemptLimitReached(RoleStudent))
	assert.False(t, a.AttemptLimitReached(RoleTeacher))

	a.MaxAttempts = 0
	assert.False(t, a.AttemptLimitReached(RoleStudent))
}

func TestAttemptKeyString(t *testing.T) {
	assert.Equal(t, "attempt:act:user", AttemptKey{ActivityID: "act", UserID: "user"}.String())
}
