package domain

import "time"

// Clock supplies the current time so lifecycle transitions stay deterministic
// under test.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
