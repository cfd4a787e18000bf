package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jahartley/rv-hvac-controller/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "hvac.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSettingsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	got, err := s.LoadSettings()
	require.NoError(t, err)
	assert.Nil(t, got, "fresh database has no settings")

	want := Settings{
		SystemMode:   model.ModeHeat,
		FanMode:      model.FanLow,
		HeatSetpoint: 68,
		CoolSetpoint: 74,
	}
	require.NoError(t, s.SaveSettings(want))

	got, err = s.LoadSettings()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	// saving again replaces the single row
	want.SystemMode = model.ModeAuto
	require.NoError(t, s.SaveSettings(want))
	got, err = s.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, model.ModeAuto, got.SystemMode)
}

func TestDeviceState(t *testing.T) {
	s := openTestStore(t)

	devices, err := s.LoadDevices()
	require.NoError(t, err)
	assert.Empty(t, devices)

	require.NoError(t, s.SaveDevice("compressor_1", DeviceState{Enabled: true, RunSeconds: 4200}))
	require.NoError(t, s.SaveDevice("gas_heat", DeviceState{Enabled: false, RunSeconds: 90}))
	require.NoError(t, s.SaveDevice("compressor_1", DeviceState{Enabled: true, RunSeconds: 4800}))

	devices, err = s.LoadDevices()
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, int64(4800), devices["compressor_1"].RunSeconds)
	assert.False(t, devices["gas_heat"].Enabled)
}
