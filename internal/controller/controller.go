package controller

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/jahartley/rv-hvac-controller/internal/model"
)

// TempNoSample is the sentinel reported before the host has fed a
// temperature; goal derivation skips while it is current.
const TempNoSample = -128

const (
	defaultHeatSetpoint = 70
	defaultCoolSetpoint = 73
)

// Config carries everything the supervisor needs at construction. The host
// binds each hardware item to a driver; the supervisor never touches output
// pins directly.
type Config struct {
	Items   [model.NumItems]Actuator
	Clock   Clock
	Timings model.Timings
	Logger  zerolog.Logger
}

// Controller is the supervisor: it holds system mode, fan mode, setpoints,
// measured temperature and the current goal hardware mode, and on each tick
// services the drivers, sequences the active goal, and on a throttled
// schedule re-derives the goal from temperature.
type Controller struct {
	mu    sync.Mutex
	items [model.NumItems]Actuator
	clock Clock
	log   zerolog.Logger

	decidePeriod   int64 // all ms
	fanToCompDelay int64
	compStagger    int64

	available [model.NumItems]bool
	enabled   [model.NumItems]bool

	systemMode   model.SystemMode
	userFanMode  model.FanMode
	fanMode      model.FanMode
	heatSetpoint int
	coolSetpoint int
	temp         int
	goal         model.HardwareMode
	nextDecideAt int64
}

func New(cfg Config) *Controller {
	c := &Controller{
		items:          cfg.Items,
		clock:          cfg.Clock,
		log:            cfg.Logger,
		decidePeriod:   cfg.Timings.DecidePeriod.Milliseconds(),
		fanToCompDelay: cfg.Timings.FanToCompDelay.Milliseconds(),
		compStagger:    cfg.Timings.CompStagger.Milliseconds(),
		systemMode:     model.ModeOff,
		userFanMode:    model.FanAuto,
		fanMode:        model.FanAuto,
		heatSetpoint:   defaultHeatSetpoint,
		coolSetpoint:   defaultCoolSetpoint,
		temp:           TempNoSample,
		goal:           model.HWOff,
		nextDecideAt:   cfg.Clock.NowMillis() + cfg.Timings.DecidePeriod.Milliseconds(),
	}
	for i := range c.available {
		c.available[i] = true
		c.enabled[i] = true
	}
	return c
}

// BuildItems wires the standard driver variant to each hardware item:
// compressors get restart-delay state machines, the reversing valve gets
// the settling state machine, everything else is a plain relay.
func BuildItems(pins [model.NumItems]int, t model.Timings, out OutputSink, clock Clock, logger zerolog.Logger) [model.NumItems]Actuator {
	var items [model.NumItems]Actuator
	for _, hi := range model.Items() {
		name := hi.String()
		switch hi {
		case model.ItemComp1, model.ItemComp2:
			items[hi] = NewCompressor(name, pins[hi], t.CompRestartDelay, out, clock, logger)
		case model.ItemReversingValve:
			items[hi] = NewReversingValve(name, pins[hi], t.ValveSettle, out, clock, logger)
		default:
			items[hi] = NewRelay(name, pins[hi], out, clock, logger)
		}
	}
	return items
}

// Tick runs one supervision pass: service every driver, latch the fan mode,
// enact the current goal, then (throttled) re-derive the goal from
// temperature. Non-blocking; all timing is deadline-based on the clock port
// so tick jitter is tolerated.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.NowMillis()

	for i := range c.items {
		c.items[i].Tick()
	}

	if c.fanMode != c.userFanMode {
		c.fanMode = c.userFanMode
		c.log.Info().Stringer("fan_mode", c.fanMode).Msg("fan mode latched")
	}

	c.enact(now)
	c.deriveGoal(now)
}

func (c *Controller) usable(hi model.HardwareItem) bool {
	return c.available[hi] && c.enabled[hi]
}

func (c *Controller) item(hi model.HardwareItem) Actuator {
	return c.items[hi]
}

func (c *Controller) setGoal(hm model.HardwareMode) {
	if c.goal == hm {
		return
	}
	c.log.Info().Stringer("from", c.goal).Stringer("to", hm).Msg("changing hardware mode")
	c.goal = hm
}

// --- fan selection ---------------------------------------------------------

type fanRequest int

const (
	// fanUser follows the latched user fan mode; Auto stops both stages.
	fanUser fanRequest = iota
	// fanPreferLow demands airflow with the low stage preferred; user Auto
	// behaves as low, user High is honored.
	fanPreferLow
	// fanPreferHigh demands airflow with the high stage preferred; the user
	// fan mode is ignored.
	fanPreferHigh
)

// selectFan is the single fan-stage selection subroutine shared by every
// goal branch. Returns false when neither stage is usable, in which case
// both stages have been commanded off and the caller must keep compressors
// off.
func (c *Controller) selectFan(req fanRequest) bool {
	lowOK := c.usable(model.ItemFanLow)
	highOK := c.usable(model.ItemFanHigh)
	if !lowOK && !highOK {
		c.item(model.ItemFanLow).Stop()
		c.item(model.ItemFanHigh).Stop()
		return false
	}

	switch req {
	case fanUser:
		switch c.fanMode {
		case model.FanAuto:
			c.item(model.ItemFanLow).Stop()
			c.item(model.ItemFanHigh).Stop()
		case model.FanLow, model.FanCirculate:
			c.startFanStage(model.ItemFanLow)
		case model.FanHigh:
			c.startFanStage(model.ItemFanHigh)
		}
	case fanPreferLow:
		if c.fanMode == model.FanHigh {
			c.startFanStage(model.ItemFanHigh)
		} else {
			c.startFanStage(model.ItemFanLow)
		}
	case fanPreferHigh:
		if highOK {
			c.startFanStage(model.ItemFanHigh)
		} else {
			c.startFanStage(model.ItemFanLow)
		}
	}
	return true
}

// startFanStage starts the wanted stage, falling back to the other when it
// is not usable. The outgoing stage stops before the incoming one starts so
// both are never commanded on together.
func (c *Controller) startFanStage(want model.HardwareItem) {
	other := model.ItemFanHigh
	if want == model.ItemFanHigh {
		other = model.ItemFanLow
	}
	if !c.usable(want) {
		want, other = other, want
	}
	if c.item(other).IsOn() {
		c.item(other).Stop()
	}
	c.item(want).Start()
}

func (c *Controller) fanOn() bool {
	return c.item(model.ItemFanLow).IsOn() || c.item(model.ItemFanHigh).IsOn()
}

// fanDelayMet reports whether every running fan stage has been on at least
// the fan-to-compressor delay.
func (c *Controller) fanDelayMet(now int64) bool {
	low := c.item(model.ItemFanLow)
	high := c.item(model.ItemFanHigh)
	if low.IsOn() && low.StartTime()+c.fanToCompDelay > now {
		return false
	}
	if high.IsOn() && high.StartTime()+c.fanToCompDelay > now {
		return false
	}
	return true
}

// --- goal sequencing -------------------------------------------------------

func (c *Controller) enact(now int64) {
	switch c.goal {
	case model.HWOff:
		c.enactOff()
	case model.HWLowCool:
		c.enactLowCool(now)
	case model.HWHighCool:
		c.enactHighCool(now)
	case model.HWLowHeat:
		c.enactLowHeat(now)
	case model.HWHighHeat:
		c.enactHighHeat(now)
	case model.HWMaxHeat:
		c.enactMaxHeat(now)
	case model.HWLowFan:
		c.enactFanOnly(fanPreferLow)
	case model.HWHighFan:
		c.enactFanOnly(fanPreferHigh)
	}
}

// stopHeatSources commands the gas heater and both coach heat stages off.
func (c *Controller) stopHeatSources() {
	c.item(model.ItemGasHeat).Stop()
	c.item(model.ItemCoachHeatHigh).Stop()
	c.item(model.ItemCoachHeatLow).Stop()
}

func (c *Controller) compressorsOff() bool {
	return !c.item(model.ItemComp1).IsOn() && !c.item(model.ItemComp2).IsOn()
}

// retireValve commands the valve off once both compressors are confirmed
// off. Returns true while the valve is still in the heat position, meaning
// the caller should end this tick and re-evaluate on the next one; valve
// settling does not require the compressors.
func (c *Controller) retireValve() bool {
	if !c.item(model.ItemReversingValve).IsOn() {
		return false
	}
	if c.compressorsOff() {
		c.item(model.ItemReversingValve).Stop()
	}
	return true
}

func (c *Controller) enactOff() {
	c.stopHeatSources()
	c.item(model.ItemComp2).Stop()
	c.item(model.ItemComp1).Stop()
	if c.retireValve() {
		return
	}
	c.selectFan(fanUser)
}

func (c *Controller) enactLowCool(now int64) {
	c.stopHeatSources()
	c.item(model.ItemComp2).Stop()
	if c.item(model.ItemReversingValve).IsOn() {
		c.item(model.ItemComp1).Stop()
		c.retireValve()
		return
	}
	if !c.selectFan(fanPreferLow) {
		c.item(model.ItemComp1).Stop()
		return
	}
	if !c.fanDelayMet(now) {
		return
	}
	comp1 := c.item(model.ItemComp1)
	if !comp1.IsOn() && c.usable(model.ItemComp1) && c.fanOn() {
		comp1.Start()
	}
}

func (c *Controller) enactHighCool(now int64) {
	c.stopHeatSources()
	if c.item(model.ItemReversingValve).IsOn() {
		c.item(model.ItemComp1).Stop()
		c.item(model.ItemComp2).Stop()
		c.retireValve()
		return
	}
	if !c.selectFan(fanPreferHigh) {
		c.item(model.ItemComp1).Stop()
		c.item(model.ItemComp2).Stop()
		return
	}
	if !c.fanDelayMet(now) {
		return
	}
	comp1 := c.item(model.ItemComp1)
	comp2 := c.item(model.ItemComp2)
	if !comp1.IsOn() && c.usable(model.ItemComp1) && c.fanOn() {
		comp1.Start()
	}
	if !comp1.IsOn() || comp1.StartTime()+c.compStagger > now {
		return
	}
	if !comp2.IsOn() && c.usable(model.ItemComp2) && c.fanOn() {
		comp2.Start()
	}
}

func (c *Controller) enactLowHeat(now int64) {
	valve := c.item(model.ItemReversingValve)

	// first usable option on the priority ladder wins
	if c.usable(model.ItemCoachHeatLow) {
		c.item(model.ItemComp2).Stop()
		c.item(model.ItemComp1).Stop()
		valve.Stop()
		c.item(model.ItemGasHeat).Stop()
		c.item(model.ItemCoachHeatHigh).Stop()
		c.item(model.ItemCoachHeatLow).Start()
		c.selectFan(fanUser)
		return
	}

	if c.usable(model.ItemReversingValve) {
		c.item(model.ItemComp2).Stop()
		c.stopHeatSources()
		if !valve.IsOn() {
			c.item(model.ItemComp1).Stop()
			c.item(model.ItemComp2).Stop()
			if c.compressorsOff() {
				valve.Start()
			}
		}
		if !c.selectFan(fanPreferLow) {
			c.item(model.ItemComp1).Stop()
			return
		}
		if !c.fanDelayMet(now) {
			return
		}
		comp1 := c.item(model.ItemComp1)
		if !comp1.IsOn() && c.usable(model.ItemComp1) && c.fanOn() && valve.IsOn() {
			comp1.Start()
		}
		return
	}

	// nothing available, behave as off-with-fans
	c.enactOff()
}

func (c *Controller) enactHighHeat(now int64) {
	valve := c.item(model.ItemReversingValve)

	if c.usable(model.ItemCoachHeatHigh) {
		c.item(model.ItemComp2).Stop()
		c.item(model.ItemComp1).Stop()
		valve.Stop()
		c.item(model.ItemGasHeat).Stop()
		c.item(model.ItemCoachHeatLow).Stop()
		c.item(model.ItemCoachHeatHigh).Start()
		c.selectFan(fanUser)
		return
	}

	if c.usable(model.ItemReversingValve) {
		c.stopHeatSources()
		if !valve.IsOn() {
			c.item(model.ItemComp1).Stop()
			c.item(model.ItemComp2).Stop()
			if c.compressorsOff() {
				valve.Start()
			}
			return
		}
		if !c.selectFan(fanPreferHigh) {
			c.item(model.ItemComp1).Stop()
			c.item(model.ItemComp2).Stop()
			return
		}
		if !c.fanDelayMet(now) {
			return
		}
		comp1 := c.item(model.ItemComp1)
		comp2 := c.item(model.ItemComp2)
		if !comp1.IsOn() && c.usable(model.ItemComp1) && c.fanOn() && valve.IsOn() {
			comp1.Start()
		}
		if !comp1.IsOn() || comp1.StartTime()+c.compStagger > now {
			return
		}
		if !comp2.IsOn() && c.usable(model.ItemComp2) && c.fanOn() && valve.IsOn() {
			comp2.Start()
		}
		return
	}

	if c.usable(model.ItemGasHeat) {
		c.item(model.ItemComp2).Stop()
		c.item(model.ItemComp1).Stop()
		valve.Stop()
		c.item(model.ItemCoachHeatLow).Stop()
		c.item(model.ItemCoachHeatHigh).Stop()
		c.item(model.ItemGasHeat).Start()
		c.selectFan(fanUser)
		return
	}

	c.enactOff()
}

// enactMaxHeat runs every usable heat source in parallel: coach heat, gas,
// and the heat pump. Compressors only run with the valve settled in the
// heat position.
func (c *Controller) enactMaxHeat(now int64) {
	valve := c.item(model.ItemReversingValve)
	comp1 := c.item(model.ItemComp1)
	comp2 := c.item(model.ItemComp2)

	if !valve.IsOn() {
		comp2.Stop()
		comp1.Stop()
	}

	// coach heat: high if usable, else low, but never low underneath a
	// still-energized high stage
	if c.usable(model.ItemCoachHeatHigh) {
		c.item(model.ItemCoachHeatLow).Stop()
		c.item(model.ItemCoachHeatHigh).Start()
	} else if c.usable(model.ItemCoachHeatLow) && !c.item(model.ItemCoachHeatHigh).IsOn() {
		c.item(model.ItemCoachHeatHigh).Stop()
		c.item(model.ItemCoachHeatLow).Start()
	} else {
		c.item(model.ItemCoachHeatLow).Stop()
		c.item(model.ItemCoachHeatHigh).Stop()
	}

	if c.usable(model.ItemGasHeat) {
		c.item(model.ItemGasHeat).Start()
	} else {
		c.item(model.ItemGasHeat).Stop()
	}

	if c.usable(model.ItemReversingValve) {
		if !valve.IsOn() {
			comp2.Stop()
			comp1.Stop()
			if c.compressorsOff() {
				valve.Start()
			}
			return
		}
	} else if valve.IsOn() {
		comp2.Stop()
		comp1.Stop()
		valve.Stop()
	}

	// heat-pump stage needs a usable fan AND the valve settled on
	if (!c.usable(model.ItemFanLow) && !c.usable(model.ItemFanHigh)) || !valve.IsOn() {
		comp1.Stop()
		comp2.Stop()
		c.item(model.ItemFanLow).Stop()
		c.item(model.ItemFanHigh).Stop()
		return
	}
	c.selectFan(fanPreferHigh)
	if !c.fanDelayMet(now) {
		return
	}
	if !comp1.IsOn() && c.usable(model.ItemComp1) && c.fanOn() && valve.IsOn() {
		comp1.Start()
	}
	if !comp1.IsOn() || comp1.StartTime()+c.compStagger > now {
		return
	}
	if !comp2.IsOn() && c.usable(model.ItemComp2) && c.fanOn() && valve.IsOn() {
		comp2.Start()
	}
}

// enactFanOnly serves the fan-only goal modes: everything that heats or
// cools is driven off, then the requested stage runs.
func (c *Controller) enactFanOnly(req fanRequest) {
	c.stopHeatSources()
	c.item(model.ItemComp2).Stop()
	c.item(model.ItemComp1).Stop()
	if c.retireValve() {
		return
	}
	c.selectFan(req)
}

// --- goal derivation -------------------------------------------------------

// deriveGoal re-derives the goal hardware mode from temperature on the
// decide schedule. Effects are observed starting from the next tick's
// sequencing phase.
func (c *Controller) deriveGoal(now int64) {
	if now < c.nextDecideAt {
		return
	}
	c.nextDecideAt += c.decidePeriod
	if c.temp == TempNoSample {
		c.log.Warn().Msg("no valid temperature sample yet, keeping goal")
		return
	}

	switch c.systemMode {
	case model.ModeCool:
		c.setGoal(c.coolGoal())
	case model.ModeHeat:
		c.setGoal(c.heatGoal())
	case model.ModeAuto:
		if g := c.coolGoal(); g != model.HWOff {
			c.setGoal(g)
		} else if g := c.heatGoal(); g != model.HWOff {
			c.setGoal(g)
		} else {
			c.setGoal(model.HWOff)
		}
	case model.ModeOff:
		c.setGoal(model.HWOff)
	}
}

func (c *Controller) coolGoal() model.HardwareMode {
	switch {
	case c.temp > c.coolSetpoint+1:
		return model.HWHighCool
	case c.temp > c.coolSetpoint:
		return model.HWLowCool
	default:
		return model.HWOff
	}
}

func (c *Controller) heatGoal() model.HardwareMode {
	switch {
	case c.temp >= c.heatSetpoint:
		return model.HWOff
	case c.temp >= c.heatSetpoint-1:
		return model.HWLowHeat
	case c.temp >= c.heatSetpoint-4:
		return model.HWHighHeat
	default:
		return model.HWMaxHeat
	}
}
