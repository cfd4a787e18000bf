package controller

import (
	"time"

	"github.com/rs/zerolog"
)

type valveState int

const (
	valveStop valveState = iota
	valveDelayOn
	valveRun
	valveDelayOff
)

// ReversingValve drives the electric reversing valve that flips the
// refrigerant circuit into heat-pump mode. The circuit needs time to
// equalize around a position change, so both transitions pass through a
// settling window; running the compressors against an unsettled system
// damages them.
type ReversingValve struct {
	name  string
	pin   int
	out   OutputSink
	clock Clock
	log   zerolog.Logger

	settle int64 // ms

	state       valveState
	delayActive bool
	requested   bool
	on          bool
	delayStart  int64
	stopTime    int64
	startTime   int64
	runSecs     int64
}

func NewReversingValve(name string, pin int, settle time.Duration, out OutputSink, clock Clock, logger zerolog.Logger) *ReversingValve {
	out.Set(pin, false)
	return &ReversingValve{
		name:   name,
		pin:    pin,
		out:    out,
		clock:  clock,
		log:    logger,
		settle: settle.Milliseconds(),
		state:  valveStop,
	}
}

// Start arms the settling window toward the heat position. Valid from the
// stopped state or mid-settle toward off; ignored otherwise. A start during
// DelayOff re-arms the full settling window.
func (v *ReversingValve) Start() {
	switch v.state {
	case valveStop, valveDelayOff:
	default:
		return
	}
	v.state = valveDelayOn
	v.requested = true
	v.delayActive = true
	v.delayStart = v.clock.NowMillis()
	v.log.Info().Str("device", v.name).Msg("valve settling toward heat position")
	v.tryRun()
}

// Stop arms the settling window toward the cool position. Valid while
// settling on or running; ignored otherwise.
func (v *ReversingValve) Stop() {
	switch v.state {
	case valveDelayOn, valveRun:
	default:
		return
	}
	v.state = valveDelayOff
	v.requested = false
	v.delayActive = true
	v.delayStart = v.clock.NowMillis()
	v.log.Info().Str("device", v.name).Msg("valve settling toward cool position")
	v.tryStop()
}

// Tick advances whichever settling window is armed.
func (v *ReversingValve) Tick() {
	switch v.state {
	case valveDelayOn:
		v.tryRun()
	case valveDelayOff:
		v.tryStop()
	}
}

// settled gates completion of both windows; it does not consult requested,
// so the same guard serves DelayOn and DelayOff.
func (v *ReversingValve) settled() bool {
	return v.clock.NowMillis() >= v.delayStart+v.settle
}

func (v *ReversingValve) tryRun() {
	if !v.settled() {
		v.delayActive = true
		return
	}
	v.delayActive = false
	v.state = valveRun
	v.on = true
	v.startTime = v.clock.NowMillis()
	v.out.Set(v.pin, true)
	v.log.Info().Str("device", v.name).Msg("valve in heat position")
}

func (v *ReversingValve) tryStop() {
	if !v.settled() {
		v.delayActive = true
		return
	}
	if v.on {
		v.stopTime = v.clock.NowMillis()
		v.runSecs += (v.stopTime - v.startTime) / 1000
		v.log.Info().Str("device", v.name).Int64("run_seconds", v.runSecs).Msg("valve in cool position")
	}
	v.state = valveStop
	v.requested = false
	v.delayActive = false
	v.on = false
	v.out.Set(v.pin, false)
}

// IsOn is true only once the valve has settled into the heat position.
func (v *ReversingValve) IsOn() bool { return v.on }

func (v *ReversingValve) NeedsTick() bool { return v.delayActive }

// IsRequested reports the last commanded direction: true toward heat.
func (v *ReversingValve) IsRequested() bool { return v.requested }

func (v *ReversingValve) StartTime() int64 { return v.startTime }

func (v *ReversingValve) RunTime() int64 { return v.runSecs }

func (v *ReversingValve) ResetRunTime() { v.runSecs = 0 }
