package controller

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

const testRestartDelay = 120 * time.Second

func newTestCompressor() (*Compressor, *fakeClock, *recordingSink) {
	clk := &fakeClock{}
	sink := newRecordingSink()
	c := NewCompressor("compressor_1", 1, testRestartDelay, sink, clk, zerolog.Nop())
	return c, clk, sink
}

func TestCompressorFirstStartWaitsRestartDelay(t *testing.T) {
	c, clk, sink := newTestCompressor()

	// stop time is seeded at construction, so the very first start waits
	c.Start()
	assert.False(t, c.IsOn())
	assert.True(t, c.NeedsTick())
	assert.True(t, c.IsRequested())

	clk.advance(119 * time.Second)
	c.Tick()
	assert.False(t, c.IsOn())

	clk.advance(time.Second)
	c.Tick()
	assert.True(t, c.IsOn())
	assert.True(t, sink.on(1))
	assert.False(t, c.NeedsTick())
}

func TestCompressorStartsImmediatelyWhenGuardSatisfied(t *testing.T) {
	c, clk, _ := newTestCompressor()

	clk.advance(10 * time.Minute)
	c.Start()
	assert.True(t, c.IsOn(), "start should run immediately once the off-time is long enough")
}

func TestCompressorRestartGuardBetweenRuns(t *testing.T) {
	c, clk, _ := newTestCompressor()

	clk.advance(10 * time.Minute)
	c.Start()
	clk.advance(5 * time.Minute)
	c.Stop()
	stoppedAt := clk.ms
	assert.False(t, c.IsOn())
	assert.Equal(t, int64(300), c.RunTime())

	c.Start()
	assert.False(t, c.IsOn())
	for clk.ms < stoppedAt+testRestartDelay.Milliseconds()-1000 {
		clk.advance(time.Second)
		c.Tick()
		assert.False(t, c.IsOn(), "restart before the delay elapsed at t=%d", clk.ms)
	}
	clk.advance(time.Second)
	c.Tick()
	assert.True(t, c.IsOn())
}

func TestCompressorStopInDelayCancels(t *testing.T) {
	c, clk, sink := newTestCompressor()

	c.Start()
	assert.True(t, c.NeedsTick())
	c.Stop()
	assert.False(t, c.IsOn())
	assert.False(t, c.NeedsTick())
	assert.False(t, c.IsRequested())
	assert.False(t, sink.on(1))

	// a cancelled request leaves run time untouched
	clk.advance(time.Hour)
	c.Tick()
	assert.False(t, c.IsOn())
	assert.Equal(t, int64(0), c.RunTime())
}

func TestCompressorEventIdempotence(t *testing.T) {
	c, clk, _ := newTestCompressor()

	// start while delaying and running is ignored
	c.Start()
	c.Start()
	clk.advance(10 * time.Minute)
	c.Tick()
	assert.True(t, c.IsOn())
	started := c.StartTime()
	c.Start()
	assert.Equal(t, started, c.StartTime())

	// stop while stopped is ignored
	c.Stop()
	runTotal := c.RunTime()
	c.Stop()
	assert.Equal(t, runTotal, c.RunTime())
}

// Property: across any randomized sequence of events, the interval between
// leaving Run and the next arrival in Run is at least the restart delay.
func TestCompressorRestartProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	c, clk, _ := newTestCompressor()

	lastOff := clk.ms // seeded stop time
	wasOn := false

	for i := 0; i < 20000; i++ {
		switch rng.Intn(4) {
		case 0:
			c.Start()
		case 1:
			c.Stop()
		default:
			clk.advance(time.Duration(rng.Intn(10000)) * time.Millisecond)
			c.Tick()
		}

		if c.IsOn() && !wasOn {
			assert.GreaterOrEqual(t, clk.ms, lastOff+testRestartDelay.Milliseconds(),
				"compressor re-energized %dms after stop", clk.ms-lastOff)
		}
		if !c.IsOn() && wasOn {
			lastOff = clk.ms
		}
		wasOn = c.IsOn()
	}
}
