package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jahartley/rv-hvac-controller/internal/api"
	"github.com/jahartley/rv-hvac-controller/internal/config"
	"github.com/jahartley/rv-hvac-controller/internal/controller"
	"github.com/jahartley/rv-hvac-controller/internal/datadog"
	"github.com/jahartley/rv-hvac-controller/internal/gpio"
	"github.com/jahartley/rv-hvac-controller/internal/logging"
	"github.com/jahartley/rv-hvac-controller/internal/model"
	"github.com/jahartley/rv-hvac-controller/internal/notifications"
	"github.com/jahartley/rv-hvac-controller/internal/store"
	"github.com/jahartley/rv-hvac-controller/system/shutdown"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("config_file", cfg.ConfigFile).
		Str("db_file", cfg.DBFile).
		Msg("Starting RV HVAC controller")

	if cfg.SafeMode {
		log.Warn().Msg("SAFE MODE ENABLED — pin writes are suppressed system-wide")
	}

	if cfg.EnableDatadog {
		datadog.InitMetrics(cfg.DDAgentAddr, cfg.DDNamespace, cfg.DDTags, true)
	}
	notifications.Init(cfg.NtfyTopic)

	board, err := gpio.Open(cfg.RelayActiveHigh, cfg.SafeMode)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open GPIO")
	}
	defer board.Close()

	pins := cfg.Pins()
	pinList := pins[:]

	db, err := store.Open(cfg.DBFile)
	if err != nil {
		shutdown.ShutdownWithError(err, "Failed to open settings database", board, pinList)
	}
	defer db.Close()

	clock := controller.NewSystemClock()
	timings := cfg.Timings()
	items := controller.BuildItems(pins, timings, board, clock, log.Logger)
	ctrl := controller.New(controller.Config{
		Items:   items,
		Clock:   clock,
		Timings: timings,
		Logger:  log.Logger,
	})

	restoreState(ctrl, db)

	server := api.NewServer(ctrl, db)
	go func() {
		if err := server.Start(cfg.ListenPort); err != nil {
			shutdown.ShutdownWithError(err, "API server failed", board, pinList)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(cfg.TickIntervalMS) * time.Millisecond)
	defer ticker.Stop()

	metricsEvery := 15
	tickCount := 0
	noHeatNotified := false

	for {
		select {
		case <-ticker.C:
			ctrl.Tick()
			tickCount++
			if tickCount%metricsEvery == 0 {
				snap := ctrl.Status()
				publishMetrics(snap)
				persistRunTimes(db, snap)
				noHeatNotified = checkHeatAvailability(snap, noHeatNotified)
			}
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("Shutting down")
			shutdown.Shutdown(board, pinList)
		}
	}
}

// restoreState applies persisted settings and device flags to a freshly
// constructed controller.
func restoreState(ctrl *controller.Controller, db *store.Store) {
	settings, err := db.LoadSettings()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load settings, starting with defaults")
	} else if settings != nil {
		if settings.HeatSetpoint+2 <= settings.CoolSetpoint {
			// either order can trip the deadband check against the
			// defaults, so retry heat-first when cool-first is rejected
			if ctrl.SetCoolSetpoint(settings.CoolSetpoint) {
				ctrl.SetHeatSetpoint(settings.HeatSetpoint)
			} else {
				ctrl.SetHeatSetpoint(settings.HeatSetpoint)
				ctrl.SetCoolSetpoint(settings.CoolSetpoint)
			}
		}
		ctrl.SetFanMode(settings.FanMode)
		ctrl.SetSystemMode(settings.SystemMode)
		log.Info().
			Stringer("mode", settings.SystemMode).
			Int("heat_setpoint", settings.HeatSetpoint).
			Int("cool_setpoint", settings.CoolSetpoint).
			Msg("Restored persisted settings")
	}

	devices, err := db.LoadDevices()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load device state")
		return
	}
	for _, hi := range model.Items() {
		if st, ok := devices[hi.String()]; ok && !st.Enabled {
			ctrl.SetEnabled(hi, false)
		}
	}
}

func publishMetrics(snap controller.Snapshot) {
	datadog.Gauge("temperature", float64(snap.Temperature))
	datadog.Gauge("setpoint.heat", float64(snap.HeatSetpoint))
	datadog.Gauge("setpoint.cool", float64(snap.CoolSetpoint))
	datadog.Gauge("goal_mode", float64(snap.GoalMode))
	for _, d := range snap.Devices {
		on := 0.0
		if d.On {
			on = 1.0
		}
		datadog.Gauge("device.on", on, "device:"+d.Name)
		datadog.Gauge("device.run_seconds", float64(d.RunSeconds), "device:"+d.Name)
	}
}

func persistRunTimes(db *store.Store, snap controller.Snapshot) {
	for _, d := range snap.Devices {
		if err := db.SaveDevice(d.Name, store.DeviceState{
			Enabled:    d.Enabled,
			RunSeconds: d.RunSeconds,
		}); err != nil {
			log.Error().Err(err).Str("device", d.Name).Msg("Failed to persist device run time")
		}
	}
}

// checkHeatAvailability pushes a one-shot notification when heat is
// demanded but no heat source is usable. Returns the new latch value.
func checkHeatAvailability(snap controller.Snapshot, notified bool) bool {
	heating := snap.GoalMode == model.HWLowHeat ||
		snap.GoalMode == model.HWHighHeat ||
		snap.GoalMode == model.HWMaxHeat

	anyHeat := false
	for _, d := range snap.Devices {
		switch d.Name {
		case model.ItemGasHeat.String(), model.ItemReversingValve.String(),
			model.ItemCoachHeatLow.String(), model.ItemCoachHeatHigh.String():
			if d.Available && d.Enabled {
				anyHeat = true
			}
		}
	}

	if heating && !anyHeat {
		if !notified {
			if err := notifications.Send("RV HVAC", "Heat demanded but no heat source is available"); err != nil {
				log.Warn().Err(err).Msg("Failed to send notification")
			}
		}
		return true
	}
	return false
}
