package clock

import (
	"time"

	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/secondary"
)

var _ secondary.Clock = Wall{}

// Wall reads the system clock
type Wall struct{}

func (Wall) Now() time.Time {
	return time.Now()
}
