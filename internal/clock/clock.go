// Package clock provides a controllable time source so the schedule
// materializer can be driven by simulated time in tests.
package clock

import "time"

// Timer fires once on its channel after a delay, unless stopped.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// Clock is the time source injected into time-dependent components.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// System returns a Clock backed by the wall clock.
func System() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) NewTimer(d time.Duration) Timer {
	return &systemTimer{t: time.NewTimer(d)}
}

type systemTimer struct {
	t *time.Timer
}

func (s *systemTimer) C() <-chan time.Time { return s.t.C }

func (s *systemTimer) Stop() bool { return s.t.Stop() }
