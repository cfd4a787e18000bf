package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jahartley/rv-hvac-controller/internal/model"
)

// Outputs maps every hardware item to its relay board output. Pointers so
// a missing assignment is detectable, not silently pin 0.
type Outputs struct {
	Compressor1    *int `json:"compressor_1"`
	Compressor2    *int `json:"compressor_2"`
	GasHeat        *int `json:"gas_heat"`
	ReversingValve *int `json:"reversing_valve"`
	FanLow         *int `json:"fan_low"`
	FanHigh        *int `json:"fan_high"`
	CoachHeatLow   *int `json:"coach_heat_low"`
	CoachHeatHigh  *int `json:"coach_heat_high"`
}

// Timing carries millisecond overrides for the protection delays. Zero
// means keep the default.
type Timing struct {
	DecidePeriodMS     int64 `json:"decide_period_ms"`
	FanToCompDelayMS   int64 `json:"fan_to_comp_delay_ms"`
	CompStaggerMS      int64 `json:"comp_stagger_ms"`
	CompRestartDelayMS int64 `json:"comp_restart_delay_ms"`
	ValveSettleMS      int64 `json:"valve_settle_ms"`
}

type Config struct {
	ConfigFile string
	DBFile     string
	LogFile    string
	LogLevel   zerolog.Level

	ListenPort      int   `json:"listen_port"`
	TickIntervalMS  int64 `json:"tick_interval_ms"`
	RelayActiveHigh bool  `json:"relay_active_high"`
	SafeMode        bool  `json:"safe_mode"`

	NtfyTopic string `json:"ntfy_topic"`

	DDAgentAddr   string   `json:"dd_agent_addr"`
	DDNamespace   string   `json:"dd_namespace"`
	DDTags        []string `json:"dd_tags"`
	EnableDatadog bool     `json:"enable_datadog"`

	Outputs Outputs `json:"outputs"`
	Timing  Timing  `json:"timing"`
}

func Load() Config {
	var cfg Config
	var logLevel string

	flag.StringVar(&cfg.ConfigFile, "config-file", "config.json", "Path to controller config file")
	flag.StringVar(&cfg.DBFile, "db-file", "data/hvac.db", "Path to settings database")
	flag.StringVar(&cfg.LogFile, "log-file", "/var/log/rv-hvac-controller.log", "Log file path, empty for console")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)

	file, err := os.Open(cfg.ConfigFile)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		panic("Failed to parse config file: " + err.Error())
	}

	if cfg.TickIntervalMS == 0 {
		cfg.TickIntervalMS = 1000
	}
	if cfg.ListenPort == 0 {
		cfg.ListenPort = 8080
	}

	if err := cfg.Validate(); err != nil {
		panic(err.Error())
	}
	return cfg
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Validate checks that every output is assigned and that no two outputs
// share a pin.
func (cfg *Config) Validate() error {
	var (
		missingFields []string
		usedPins      = map[int]string{}
		conflicts     []string
	)

	v := reflect.ValueOf(cfg.Outputs)
	t := reflect.TypeOf(cfg.Outputs)

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldName := t.Field(i).Tag.Get("json")

		if field.IsNil() {
			missingFields = append(missingFields, "outputs."+fieldName)
			continue
		}

		pin := int(field.Elem().Int())
		if other, exists := usedPins[pin]; exists {
			conflicts = append(conflicts, fmt.Sprintf("outputs.%s and outputs.%s both use pin %d", fieldName, other, pin))
		} else {
			usedPins[pin] = fieldName
		}
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required output config fields: %s", strings.Join(missingFields, ", "))
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("conflicting output pins: %s", strings.Join(conflicts, ", "))
	}
	return nil
}

// Pins returns the output assignments in hardware-item order. Call only
// after Validate.
func (cfg *Config) Pins() [model.NumItems]int {
	return [model.NumItems]int{
		model.ItemComp1:          *cfg.Outputs.Compressor1,
		model.ItemComp2:          *cfg.Outputs.Compressor2,
		model.ItemGasHeat:        *cfg.Outputs.GasHeat,
		model.ItemReversingValve: *cfg.Outputs.ReversingValve,
		model.ItemFanLow:         *cfg.Outputs.FanLow,
		model.ItemFanHigh:        *cfg.Outputs.FanHigh,
		model.ItemCoachHeatLow:   *cfg.Outputs.CoachHeatLow,
		model.ItemCoachHeatHigh:  *cfg.Outputs.CoachHeatHigh,
	}
}

// Timings folds the millisecond overrides onto the defaults.
func (cfg *Config) Timings() model.Timings {
	t := model.DefaultTimings()
	if ms := cfg.Timing.DecidePeriodMS; ms > 0 {
		t.DecidePeriod = time.Duration(ms) * time.Millisecond
	}
	if ms := cfg.Timing.FanToCompDelayMS; ms > 0 {
		t.FanToCompDelay = time.Duration(ms) * time.Millisecond
	}
	if ms := cfg.Timing.CompStaggerMS; ms > 0 {
		t.CompStagger = time.Duration(ms) * time.Millisecond
	}
	if ms := cfg.Timing.CompRestartDelayMS; ms > 0 {
		t.CompRestartDelay = time.Duration(ms) * time.Millisecond
	}
	if ms := cfg.Timing.ValveSettleMS; ms > 0 {
		t.ValveSettle = time.Duration(ms) * time.Millisecond
	}
	return t
}
