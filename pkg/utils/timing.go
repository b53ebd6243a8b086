package utils

import (
	"time"
)

// Timer starts a clock at `start` and returns a function that reports the
// elapsed time, rounded to milliseconds, each time it is called.
func Timer(start time.Time) func() time.Duration {
	return func() time.Duration {
		return time.Since(start).Round(time.Millisecond)
	}
}
