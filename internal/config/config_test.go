package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jahartley/rv-hvac-controller/internal/model"
)

func intPtr(v int) *int { return &v }

func fullOutputs() Outputs {
	return Outputs{
		Compressor1:    intPtr(17),
		Compressor2:    intPtr(27),
		GasHeat:        intPtr(22),
		ReversingValve: intPtr(23),
		FanLow:         intPtr(24),
		FanHigh:        intPtr(25),
		CoachHeatLow:   intPtr(5),
		CoachHeatHigh:  intPtr(6),
	}
}

func TestValidate(t *testing.T) {
	t.Run("complete assignment passes", func(t *testing.T) {
		cfg := Config{Outputs: fullOutputs()}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing output is reported by name", func(t *testing.T) {
		outputs := fullOutputs()
		outputs.ReversingValve = nil
		cfg := Config{Outputs: outputs}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outputs.reversing_valve")
	})

	t.Run("duplicate pin is reported", func(t *testing.T) {
		outputs := fullOutputs()
		outputs.FanHigh = intPtr(17) // collides with compressor_1
		cfg := Config{Outputs: outputs}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pin 17")
	})
}

func TestPinsOrder(t *testing.T) {
	cfg := Config{Outputs: fullOutputs()}
	require.NoError(t, cfg.Validate())

	pins := cfg.Pins()
	assert.Equal(t, 17, pins[model.ItemComp1])
	assert.Equal(t, 27, pins[model.ItemComp2])
	assert.Equal(t, 23, pins[model.ItemReversingValve])
	assert.Equal(t, 6, pins[model.ItemCoachHeatHigh])
}

func TestTimingsOverrides(t *testing.T) {
	t.Run("zero keeps defaults", func(t *testing.T) {
		cfg := Config{}
		assert.Equal(t, model.DefaultTimings(), cfg.Timings())
	})

	t.Run("overrides fold in", func(t *testing.T) {
		cfg := Config{Timing: Timing{
			CompRestartDelayMS: 90000,
			ValveSettleMS:      30000,
		}}
		tm := cfg.Timings()
		assert.Equal(t, 90*time.Second, tm.CompRestartDelay)
		assert.Equal(t, 30*time.Second, tm.ValveSettle)
		assert.Equal(t, 30*time.Second, tm.DecidePeriod, "untouched values keep defaults")
	})
}
