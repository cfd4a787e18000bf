// Host simulator: runs the supervisor against a mock output sink with a
// scripted temperature ramp and compressed protection delays, printing
// actuator transitions. Useful on a workstation with no relay board.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jahartley/rv-hvac-controller/internal/controller"
	"github.com/jahartley/rv-hvac-controller/internal/gpio"
	"github.com/jahartley/rv-hvac-controller/internal/model"
)

func main() {
	var (
		mode    = flag.String("mode", "cool", "system mode to simulate (off, cool, heat, auto)")
		start   = flag.Int("start-temp", 78, "starting temperature °F")
		drift   = flag.Float64("drift", -0.02, "temperature drift per tick °F")
		seconds = flag.Int("seconds", 300, "how long to run")
	)
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.DebugLevel).With().Timestamp().Logger()

	systemMode, err := model.ParseSystemMode(*mode)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -mode")
	}

	// compressed delays so a full cool or heat cycle fits a short run
	timings := model.Timings{
		DecidePeriod:     3 * time.Second,
		FanToCompDelay:   2 * time.Second,
		CompStagger:      2 * time.Second,
		CompRestartDelay: 10 * time.Second,
		ValveSettle:      5 * time.Second,
	}

	var pins [model.NumItems]int
	for i := range pins {
		pins[i] = i + 1
	}

	sink := gpio.NewMockSink()
	clock := controller.NewSystemClock()
	items := controller.BuildItems(pins, timings, sink, clock, log.Logger)
	ctrl := controller.New(controller.Config{
		Items:   items,
		Clock:   clock,
		Timings: timings,
		Logger:  log.Logger,
	})

	ctrl.SetSystemMode(systemMode)
	temp := float64(*start)
	ctrl.SetTemperature(*start)

	last := ctrl.Status()
	for i := 0; i < *seconds; i++ {
		time.Sleep(time.Second)
		ctrl.Tick()

		temp += *drift
		ctrl.SetTemperature(int(temp))

		snap := ctrl.Status()
		for j, d := range snap.Devices {
			if d.On != last.Devices[j].On {
				log.Info().
					Str("device", d.Name).
					Bool("on", d.On).
					Stringer("goal", snap.GoalMode).
					Float64("temp", temp).
					Msg("transition")
			}
		}
		last = snap
	}
}
