package model

import (
	"fmt"
	"time"
)

// SystemMode is the user-selected operating mode.
type SystemMode int

const (
	ModeOff SystemMode = iota
	ModeCool
	ModeHeat
	ModeAuto
)

var systemModeNames = [...]string{"off", "cool", "heat", "auto"}

func (m SystemMode) String() string {
	if m < ModeOff || m > ModeAuto {
		return "unknown"
	}
	return systemModeNames[m]
}

func (m SystemMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func ParseSystemMode(s string) (SystemMode, error) {
	for i, name := range systemModeNames {
		if s == name {
			return SystemMode(i), nil
		}
	}
	return ModeOff, fmt.Errorf("invalid system mode %q", s)
}

// FanMode is the user-selected fan behavior. Circulate currently behaves as
// low; continuous airflow while the system is otherwise idle is a future
// feature.
type FanMode int

const (
	FanAuto FanMode = iota
	FanLow
	FanHigh
	FanCirculate
)

var fanModeNames = [...]string{"auto", "low", "high", "circulate"}

func (m FanMode) String() string {
	if m < FanAuto || m > FanCirculate {
		return "unknown"
	}
	return fanModeNames[m]
}

func (m FanMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func ParseFanMode(s string) (FanMode, error) {
	for i, name := range fanModeNames {
		if s == name {
			return FanMode(i), nil
		}
	}
	return FanAuto, fmt.Errorf("invalid fan mode %q", s)
}

// HardwareMode is the operating target the supervisor derives from
// temperature and setpoints. Distinct from the user-visible SystemMode.
type HardwareMode int

const (
	HWOff HardwareMode = iota
	HWLowCool
	HWHighCool
	HWLowHeat
	HWHighHeat
	HWMaxHeat
	HWLowFan
	HWHighFan
)

var hardwareModeNames = [...]string{
	"off", "low_cool", "high_cool", "low_heat", "high_heat", "max_heat", "low_fan", "high_fan",
}

func (m HardwareMode) String() string {
	if m < HWOff || m > HWHighFan {
		return "unknown"
	}
	return hardwareModeNames[m]
}

func (m HardwareMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// HardwareItem identifies one physical actuator. The set is closed;
// availability and enabled flags are keyed by it.
type HardwareItem int

const (
	ItemComp1 HardwareItem = iota
	ItemComp2
	ItemGasHeat
	ItemReversingValve
	ItemFanLow
	ItemFanHigh
	ItemCoachHeatLow
	ItemCoachHeatHigh
	ItemCount
)

// NumItems is the size of every per-item array in the system.
const NumItems = int(ItemCount)

var hardwareItemNames = [NumItems]string{
	"compressor_1",
	"compressor_2",
	"gas_heat",
	"reversing_valve",
	"fan_low",
	"fan_high",
	"coach_heat_low",
	"coach_heat_high",
}

func (i HardwareItem) String() string {
	if i < ItemComp1 || i >= ItemCount {
		return "unknown"
	}
	return hardwareItemNames[i]
}

func (i HardwareItem) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func ParseHardwareItem(s string) (HardwareItem, error) {
	for i, name := range hardwareItemNames {
		if s == name {
			return HardwareItem(i), nil
		}
	}
	return ItemComp1, fmt.Errorf("invalid hardware item %q", s)
}

// Items lists every hardware item in array order.
func Items() []HardwareItem {
	items := make([]HardwareItem, NumItems)
	for i := range items {
		items[i] = HardwareItem(i)
	}
	return items
}

// GPIOPin describes one output line on the relay board.
type GPIOPin struct {
	Number     int
	ActiveHigh bool
}

// Timings holds the electromechanical protection delays. Defaults suit a
// residential RV rooftop unit; all are overridable from config.
type Timings struct {
	// DecidePeriod throttles goal-mode re-derivation.
	DecidePeriod time.Duration
	// FanToCompDelay is how long a fan stage must run before a compressor may start.
	FanToCompDelay time.Duration
	// CompStagger is the minimum interval between the two compressor starts.
	CompStagger time.Duration
	// CompRestartDelay is the minimum compressor off-time between runs.
	CompRestartDelay time.Duration
	// ValveSettle is the refrigerant settling time on both valve transitions.
	ValveSettle time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		DecidePeriod:     30 * time.Second,
		FanToCompDelay:   15 * time.Second,
		CompStagger:      15 * time.Second,
		CompRestartDelay: 120 * time.Second,
		ValveSettle:      60 * time.Second,
	}
}
