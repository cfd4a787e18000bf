package controller

import (
	"github.com/rs/zerolog"
)

// Relay is a plain on/off actuator: fan stages, the gas heater, and the two
// coach heat stages. No timing constraints of its own.
type Relay struct {
	name  string
	pin   int
	out   OutputSink
	clock Clock
	log   zerolog.Logger

	on        bool
	startTime int64
	runSecs   int64
}

func NewRelay(name string, pin int, out OutputSink, clock Clock, logger zerolog.Logger) *Relay {
	out.Set(pin, false)
	return &Relay{
		name:  name,
		pin:   pin,
		out:   out,
		clock: clock,
		log:   logger,
	}
}

// Start energizes the output. Repeated calls while on do not retrigger the
// start timestamp.
func (r *Relay) Start() {
	if r.on {
		return
	}
	r.out.Set(r.pin, true)
	r.on = true
	r.startTime = r.clock.NowMillis()
	r.log.Info().Str("device", r.name).Msg("relay on")
}

func (r *Relay) Stop() {
	if !r.on {
		return
	}
	r.out.Set(r.pin, false)
	r.on = false
	r.runSecs += (r.clock.NowMillis() - r.startTime) / 1000
	r.log.Info().Str("device", r.name).Int64("run_seconds", r.runSecs).Msg("relay off")
}

func (r *Relay) Tick() {}

func (r *Relay) IsOn() bool { return r.on }

func (r *Relay) NeedsTick() bool { return false }

func (r *Relay) StartTime() int64 { return r.startTime }

func (r *Relay) RunTime() int64 { return r.runSecs }

func (r *Relay) ResetRunTime() { r.runSecs = 0 }
