package controller

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

const testSettle = 60 * time.Second

func newTestValve() (*ReversingValve, *fakeClock, *recordingSink) {
	clk := &fakeClock{}
	sink := newRecordingSink()
	v := NewReversingValve("reversing_valve", 4, testSettle, sink, clk, zerolog.Nop())
	return v, clk, sink
}

func TestValveSettlesBeforeEnergizing(t *testing.T) {
	v, clk, sink := newTestValve()

	clk.advance(time.Hour) // age does not matter, every transition settles
	v.Start()
	assert.False(t, v.IsOn())
	assert.True(t, v.NeedsTick())
	assert.True(t, v.IsRequested())

	requested := clk.ms
	for clk.ms < requested+testSettle.Milliseconds()-1000 {
		clk.advance(time.Second)
		v.Tick()
		assert.False(t, v.IsOn(), "valve energized early at t=%d", clk.ms)
	}
	clk.advance(time.Second)
	v.Tick()
	assert.True(t, v.IsOn())
	assert.True(t, sink.on(4))
	assert.False(t, v.NeedsTick())
}

func TestValveSettlesBeforeDeenergizing(t *testing.T) {
	v, clk, sink := newTestValve()

	v.Start()
	clk.advance(testSettle)
	v.Tick()
	assert.True(t, v.IsOn())

	clk.advance(10 * time.Minute)
	v.Stop()
	requested := clk.ms

	// the heat position holds through the settling window
	assert.True(t, v.IsOn())
	assert.True(t, sink.on(4))
	assert.False(t, v.IsRequested())

	for clk.ms < requested+testSettle.Milliseconds()-1000 {
		clk.advance(time.Second)
		v.Tick()
		assert.True(t, v.IsOn(), "valve dropped early at t=%d", clk.ms)
	}
	clk.advance(time.Second)
	v.Tick()
	assert.False(t, v.IsOn())
	assert.False(t, sink.on(4))
	assert.Equal(t, int64(600+60), v.RunTime())
}

func TestValveStartDuringDelayOffRearmsFullSettle(t *testing.T) {
	v, clk, _ := newTestValve()

	v.Start()
	clk.advance(testSettle)
	v.Tick()
	v.Stop()

	clk.advance(30 * time.Second)
	v.Start()
	rearmed := clk.ms
	assert.True(t, v.IsOn(), "output holds while settling back toward heat")

	clk.advance(testSettle - time.Second)
	v.Tick()
	// still in DelayOn: the re-armed window runs the full settle time
	assert.True(t, v.NeedsTick())

	clk.advance(time.Second)
	v.Tick()
	assert.True(t, v.IsOn())
	assert.Equal(t, rearmed+testSettle.Milliseconds(), v.StartTime())
}

func TestValveStopDuringDelayOnNeverEnergizes(t *testing.T) {
	v, clk, sink := newTestValve()

	v.Start()
	clk.advance(10 * time.Second)
	v.Stop()

	clk.advance(2 * testSettle)
	v.Tick()
	assert.False(t, v.IsOn())
	assert.False(t, sink.on(4), "output must never pulse on an aborted start")
	assert.Equal(t, int64(0), v.RunTime())
}

func TestValveIgnoresRedundantEvents(t *testing.T) {
	v, clk, _ := newTestValve()

	// stop while stopped
	v.Stop()
	assert.False(t, v.NeedsTick())

	v.Start()
	armed := v.delayStart
	clk.advance(10 * time.Second)
	// start while settling on must not re-arm the window
	v.Start()
	assert.Equal(t, armed, v.delayStart)

	clk.advance(testSettle)
	v.Tick()
	assert.True(t, v.IsOn())
	// start while running is ignored
	started := v.StartTime()
	v.Start()
	assert.Equal(t, started, v.StartTime())
}
