package controller

import (
	"github.com/jahartley/rv-hvac-controller/internal/model"
)

// SetSystemMode overwrites the user-selected operating mode. The goal
// hardware mode follows at the next decide deadline.
func (c *Controller) SetSystemMode(m model.SystemMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.systemMode = m
	c.log.Info().Stringer("mode", m).Msg("system mode set")
}

// SetFanMode overwrites the requested fan mode; it latches on the next tick.
func (c *Controller) SetFanMode(m model.FanMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userFanMode = m
	c.log.Info().Stringer("fan_mode", m).Msg("fan mode set")
}

// SetCoolSetpoint accepts the new setpoint only if it keeps the 2 °F
// deadband above the heat setpoint. On rejection the prior value is kept.
func (c *Controller) SetCoolSetpoint(temp int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if temp-2 < c.heatSetpoint {
		c.log.Warn().Int("requested", temp).Int("heat_setpoint", c.heatSetpoint).Msg("cool setpoint rejected, deadband too small")
		return false
	}
	c.coolSetpoint = temp
	c.log.Info().Int("cool_setpoint", temp).Msg("cool setpoint set")
	return true
}

// SetHeatSetpoint is symmetric with SetCoolSetpoint.
func (c *Controller) SetHeatSetpoint(temp int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if temp+2 > c.coolSetpoint {
		c.log.Warn().Int("requested", temp).Int("cool_setpoint", c.coolSetpoint).Msg("heat setpoint rejected, deadband too small")
		return false
	}
	c.heatSetpoint = temp
	c.log.Info().Int("heat_setpoint", temp).Msg("heat setpoint set")
	return true
}

// SetTemperature overwrites the measured temperature in °F.
func (c *Controller) SetTemperature(temp int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.temp = temp
	c.log.Debug().Int("temperature", temp).Msg("temperature set")
}

// SetAvailable flips the system-determined availability flag. A true→false
// transition immediately commands the device to stop; compressor and valve
// enter their delay/stop paths rather than yanking the output.
func (c *Controller) SetAvailable(hi model.HardwareItem, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.available[hi] == ok {
		return
	}
	c.available[hi] = ok
	c.log.Info().Stringer("device", hi).Bool("available", ok).Msg("availability changed")
	if !ok {
		c.items[hi].Stop()
	}
}

// SetEnabled flips the user-permitted flag, with the same stop-on-drop
// behavior as SetAvailable.
func (c *Controller) SetEnabled(hi model.HardwareItem, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled[hi] == ok {
		return
	}
	c.enabled[hi] = ok
	c.log.Info().Stringer("device", hi).Bool("enabled", ok).Msg("enabled flag changed")
	if !ok {
		c.items[hi].Stop()
	}
}

func (c *Controller) CoolSetpoint() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.coolSetpoint
}

func (c *Controller) HeatSetpoint() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.heatSetpoint
}

func (c *Controller) Temperature() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.temp
}

func (c *Controller) Mode() model.SystemMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.systemMode
}

func (c *Controller) FanMode() model.FanMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userFanMode
}

func (c *Controller) GoalMode() model.HardwareMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goal
}

func (c *Controller) IsOn(hi model.HardwareItem) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[hi].IsOn()
}

func (c *Controller) RunTimeSeconds(hi model.HardwareItem) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[hi].RunTime()
}

// DeviceStatus is a point-in-time view of one actuator for the API and
// metrics layers.
type DeviceStatus struct {
	Name       string `json:"name"`
	On         bool   `json:"on"`
	Available  bool   `json:"available"`
	Enabled    bool   `json:"enabled"`
	RunSeconds int64  `json:"run_seconds"`
}

// Snapshot captures supervisor state and every device in one locked pass.
type Snapshot struct {
	SystemMode   model.SystemMode   `json:"system_mode"`
	FanMode      model.FanMode      `json:"fan_mode"`
	GoalMode     model.HardwareMode `json:"goal_mode"`
	HeatSetpoint int                `json:"heat_setpoint"`
	CoolSetpoint int                `json:"cool_setpoint"`
	Temperature  int                `json:"temperature"`
	Devices      []DeviceStatus     `json:"devices"`
}

func (c *Controller) Status() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		SystemMode:   c.systemMode,
		FanMode:      c.userFanMode,
		GoalMode:     c.goal,
		HeatSetpoint: c.heatSetpoint,
		CoolSetpoint: c.coolSetpoint,
		Temperature:  c.temp,
		Devices:      make([]DeviceStatus, 0, model.NumItems),
	}
	for _, hi := range model.Items() {
		snap.Devices = append(snap.Devices, DeviceStatus{
			Name:       hi.String(),
			On:         c.items[hi].IsOn(),
			Available:  c.available[hi],
			Enabled:    c.enabled[hi],
			RunSeconds: c.items[hi].RunTime(),
		})
	}
	return snap
}
