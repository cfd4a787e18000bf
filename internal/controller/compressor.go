package controller

import (
	"time"

	"github.com/rs/zerolog"
)

type compressorState int

const (
	compStop compressorState = iota
	compDelay
	compRun
)

// Compressor drives an AC compressor relay. The refrigerant cycle needs a
// minimum off-time between runs, so a start request lands in a delay state
// and the output energizes only once the restart guard is satisfied.
type Compressor struct {
	name  string
	pin   int
	out   OutputSink
	clock Clock
	log   zerolog.Logger

	restartDelay int64 // ms

	state       compressorState
	delayActive bool
	requested   bool
	on          bool
	stopTime    int64
	startTime   int64
	runSecs     int64
}

// NewCompressor seeds stopTime with the current clock so the first start
// still waits the full restart delay.
func NewCompressor(name string, pin int, restartDelay time.Duration, out OutputSink, clock Clock, logger zerolog.Logger) *Compressor {
	out.Set(pin, false)
	return &Compressor{
		name:         name,
		pin:          pin,
		out:          out,
		clock:        clock,
		log:          logger,
		restartDelay: restartDelay.Milliseconds(),
		state:        compStop,
		stopTime:     clock.NowMillis(),
	}
}

// Start is valid only in the stopped state; ignored while delaying or
// running. If the restart guard is already satisfied the output energizes
// immediately.
func (c *Compressor) Start() {
	if c.state != compStop {
		return
	}
	c.state = compDelay
	c.requested = true
	c.delayActive = true
	c.log.Debug().Str("device", c.name).Msg("compressor start requested, restart guard armed")
	c.tryRun()
}

// Stop is valid in the delay and run states; ignored while stopped.
func (c *Compressor) Stop() {
	switch c.state {
	case compStop:
		return
	case compRun:
		now := c.clock.NowMillis()
		c.stopTime = now
		c.runSecs += (now - c.startTime) / 1000
		c.log.Info().Str("device", c.name).Int64("run_seconds", c.runSecs).Msg("compressor off")
	case compDelay:
		c.log.Debug().Str("device", c.name).Msg("compressor start request cancelled")
	}
	c.state = compStop
	c.requested = false
	c.delayActive = false
	c.on = false
	c.out.Set(c.pin, false)
}

// Tick advances the restart guard; a no-op outside the delay state.
func (c *Compressor) Tick() {
	if c.state != compDelay {
		return
	}
	c.tryRun()
}

func (c *Compressor) tryRun() {
	if c.clock.NowMillis() < c.stopTime+c.restartDelay {
		c.delayActive = true
		return
	}
	c.delayActive = false
	c.state = compRun
	c.on = true
	c.startTime = c.clock.NowMillis()
	c.out.Set(c.pin, true)
	c.log.Info().Str("device", c.name).Msg("compressor on")
}

func (c *Compressor) IsOn() bool { return c.on }

func (c *Compressor) NeedsTick() bool { return c.delayActive }

// IsRequested reports whether a start is pending or the compressor is running.
func (c *Compressor) IsRequested() bool { return c.requested }

func (c *Compressor) StartTime() int64 { return c.startTime }

func (c *Compressor) RunTime() int64 { return c.runSecs }

func (c *Compressor) ResetRunTime() { c.runSecs = 0 }
