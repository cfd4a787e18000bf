package shutdown

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/jahartley/rv-hvac-controller/internal/controller"
)

// ExitFunc is overridable so tests can observe shutdown without the
// process dying.
var ExitFunc = os.Exit

// Shutdown drives every actuator output to the de-energized level and
// exits. Last line of defense; normal stops go through the controller.
func Shutdown(sink controller.OutputSink, pins []int) {
	for _, pin := range pins {
		sink.Set(pin, false)
	}
	log.Info().Msg("All actuator outputs de-energized")
	ExitFunc(0)
}

func ShutdownWithError(err error, msg string, sink controller.OutputSink, pins []int) {
	log.Error().Err(err).Msg(msg)
	Shutdown(sink, pins)
}
