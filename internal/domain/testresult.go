package domain

import (
	"sort"
	"time"
)

// ScorePolicy decides which run of a test case counts towards the score
type ScorePolicy string

const (
	ScorePolicyLastAttempt  ScorePolicy = "last_attempt"
	ScorePolicyHighestScore ScorePolicy = "highest_score"
)

func (p ScorePolicy) OrDefault() ScorePolicy {
	if p == ScorePolicyLastAttempt {
		return p
	}
	return ScorePolicyHighestScore
}

// RunOutcome is the graded result of one test case execution
type RunOutcome struct {
	Pass   bool    `json:"pass"`
	Points float64 `json:"points"`
	Output string  `json:"output"`
}

// TestCaseResult keeps both the most recent and the best run of a test case
type TestCaseResult struct {
	LatestPass   bool    `json:"latest_pass"`
	LatestPoints float64 `json:"latest_points"`
	LatestOutput string  `json:"latest_output"`

	BestPass   bool    `json:"best_pass"`
	BestPoints float64 `json:"best_points"`
	BestOutput string  `json:"best_output"`

	Runs      int       `json:"runs"`
	LastRunAt time.Time `json:"last_run_at"`
}

// Counted returns the pass flag and points the policy counts
func (r TestCaseResult) Counted(policy ScorePolicy) (bool, float64) {
	if policy.OrDefault() == ScorePolicyLastAttempt {
		return r.LatestPass, r.LatestPoints
	}
	return r.BestPass, r.BestPoints
}

// Score sums the counted points of every recorded test case. This is the
// only place the score policy is resolved.
func Score(results map[string]map[string]TestCaseResult, policy ScorePolicy) float64 {
	var total float64
	for _, cases := range results {
		for _, r := range cases {
			_, points := r.Counted(policy)
			total += points
		}
	}
	return total
}

// ItemScores returns the counted points per item
func ItemScores(results map[string]map[string]TestCaseResult, policy ScorePolicy) map[string]float64 {
	out := make(map[string]float64, len(results))
	for itemID, cases := range results {
		var sum float64
		for _, r := range cases {
			_, points := r.Counted(policy)
			sum += points
		}
		out[itemID] = sum
	}
	return out
}

// PassedCount counts test cases whose counted run passed
func PassedCount(results map[string]map[string]TestCaseResult, policy ScorePolicy) int {
	passed := 0
	for _, cases := range results {
		for _, r := range cases {
			if ok, _ := r.Counted(policy); ok {
				passed++
			}
		}
	}
	return passed
}

// SortedItemIDs returns item ids of results in a stable order
func SortedItemIDs(results map[string]map[string]TestCaseResult) []string {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
