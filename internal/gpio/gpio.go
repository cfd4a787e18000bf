package gpio

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/stianeikeland/go-rpio"
)

// RelayBoard drives actuator outputs through the Raspberry Pi GPIO memory
// range. Relay polarity is a property of the board, not of any one output.
type RelayBoard struct {
	activeHigh bool
	safeMode   bool
}

// Open maps the GPIO memory range. With safeMode set, every Set call is a
// no-op so the controller can run against live state without switching
// relays.
func Open(activeHigh, safeMode bool) (*RelayBoard, error) {
	if !safeMode {
		if err := rpio.Open(); err != nil {
			return nil, fmt.Errorf("opening gpio memory range: %w", err)
		}
	}
	return &RelayBoard{activeHigh: activeHigh, safeMode: safeMode}, nil
}

func (b *RelayBoard) Set(pin int, on bool) {
	if b.safeMode {
		log.Debug().Int("pin", pin).Bool("on", on).Msg("safe mode, suppressing pin write")
		return
	}
	p := rpio.Pin(pin)
	p.Output()
	if on == b.activeHigh {
		p.High()
	} else {
		p.Low()
	}
}

// AllOff forces every listed output to the de-energized level. Used by
// shutdown paths.
func (b *RelayBoard) AllOff(pins []int) {
	for _, pin := range pins {
		b.Set(pin, false)
	}
}

func (b *RelayBoard) Close() error {
	if b.safeMode {
		return nil
	}
	return rpio.Close()
}

// MockSink records pin levels in memory for tests and the debug simulator.
type MockSink struct {
	mu     sync.Mutex
	levels map[int]bool
}

func NewMockSink() *MockSink {
	return &MockSink{levels: make(map[int]bool)}
}

func (m *MockSink) Set(pin int, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[pin] = on
}

func (m *MockSink) On(pin int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels[pin]
}
