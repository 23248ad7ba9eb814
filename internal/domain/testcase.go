package domain

import "time"

// TestCase is one graded input/output pair of an item
type TestCase struct {
	ID             string  `json:"id"`
	Input          string  `json:"input"`
	ExpectedOutput string  `json:"expected_output"`
	Points         float64 `json:"points"`
	Hidden         bool    `json:"hidden"`
}

// Item is one programming exercise of an activity
type Item struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	AllowedLanguages []string   `json:"allowed_languages"`
	TestCases        []TestCase `json:"test_cases"`
}

// Activity is a timed assessment as served by the LMS backend
type Activity struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	DurationSeconds int64       `json:"duration_seconds"`
	CloseDate       *time.Time  `json:"close_date,omitempty"`
	ScorePolicy     ScorePolicy `json:"score_policy"`
	MaxAttempts     int         `json:"max_attempts"`
	AttemptsUsed    int         `json:"attempts_used"`
	Items           []Item      `json:"items"`
}

func (a *Activity) Duration() time.Duration {
	return time.Duration(a.DurationSeconds) * time.Second
}

func (a *Activity) MaxScore() float64 {
	var total float64
	for _, item := range a.Items {
		for _, tc := range item.TestCases {
			total += tc.Points
		}
	}
	return total
}

func (a *Activity) TestCaseCount() int {
	n := 0
	for _, item := range a.Items {
		n += len(item.TestCases)
	}
	return n
}

func (a *Activity) Item(itemID string) (*Item, bool) {
	for i := range a.Items {
		if a.Items[i].ID == itemID {
			return &a.Items[i], true
		}
	}
	return nil, false
}

func (it *Item) TestCase(testCaseID string) (*TestCase, bool) {
	for i := range it.TestCases {
		if it.TestCases[i].ID == testCaseID {
			return &it.TestCases[i], true
		}
	}
	return nil, false
}

// AllowsLanguage reports whether language may be used on the item. An empty
// list allows every language.
func (it *Item) AllowsLanguage(language string) bool {
	if len(it.AllowedLanguages) == 0 {
		return true
	}
	for _, l := range it.AllowedLanguages {
		if l == language {
			return true
		}
	}
	return false
}

// AttemptLimitReached applies only to graded attempts
func (a *Activity) AttemptLimitReached(role Role) bool {
	if role == RoleTeacher || a.MaxAttempts <= 0 {
		return false
	}
	return a.AttemptsUsed >= a.MaxAttempts
}
