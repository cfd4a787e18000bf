package controller

import "time"

// Clock supplies monotonically non-decreasing milliseconds. The host is
// contractually required to keep it monotonic.
type Clock interface {
	NowMillis() int64
}

// OutputSink drives one actuator output line. Pin numbers are opaque
// handles; polarity is the sink's concern, not the core's.
type OutputSink interface {
	Set(pin int, on bool)
}

// Actuator is the capability set shared by all three driver variants.
// Dispatch is by this closed interface, not inheritance.
type Actuator interface {
	Start()
	Stop()
	Tick()
	IsOn() bool
	// NeedsTick reports that a deadline is armed and the driver needs
	// ticking to progress.
	NeedsTick() bool
	// StartTime is the clock value of the last off→on transition.
	StartTime() int64
	// RunTime is total energized time in whole seconds.
	RunTime() int64
	ResetRunTime()
}

type systemClock struct {
	start time.Time
}

func (c *systemClock) NowMillis() int64 {
	return time.Since(c.start).Milliseconds()
}

// NewSystemClock returns a Clock backed by the runtime monotonic clock,
// counting from the moment of this call.
func NewSystemClock() Clock {
	return &systemClock{start: time.Now()}
}
