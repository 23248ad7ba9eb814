package secondary

import "time"

type Clock interface {
	Now() time.Time
}
