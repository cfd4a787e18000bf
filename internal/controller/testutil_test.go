package controller

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jahartley/rv-hvac-controller/internal/model"
)

type fakeClock struct {
	ms int64
}

func (f *fakeClock) NowMillis() int64 { return f.ms }

func (f *fakeClock) advance(d time.Duration) { f.ms += d.Milliseconds() }

type pinWrite struct {
	pin int
	on  bool
}

// recordingSink keeps current pin levels plus the full write sequence so
// tests can assert ordering.
type recordingSink struct {
	mu     sync.Mutex
	levels map[int]bool
	writes []pinWrite
}

func newRecordingSink() *recordingSink {
	return &recordingSink{levels: make(map[int]bool)}
}

func (s *recordingSink) Set(pin int, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels[pin] = on
	s.writes = append(s.writes, pinWrite{pin: pin, on: on})
}

func (s *recordingSink) on(pin int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels[pin]
}

var testPins = [model.NumItems]int{1, 2, 3, 4, 5, 6, 7, 8}

type harness struct {
	clk  *fakeClock
	sink *recordingSink
	ctrl *Controller
}

func newHarness(tm model.Timings) *harness {
	clk := &fakeClock{}
	sink := newRecordingSink()
	items := BuildItems(testPins, tm, sink, clk, zerolog.Nop())
	ctrl := New(Config{
		Items:   items,
		Clock:   clk,
		Timings: tm,
		Logger:  zerolog.Nop(),
	})
	return &harness{clk: clk, sink: sink, ctrl: ctrl}
}

// tick advances the clock one second and runs one supervision pass, the
// cadence the host is expected to run at.
func (h *harness) tick() {
	h.clk.advance(time.Second)
	h.ctrl.Tick()
}

func (h *harness) runUntil(ms int64) {
	for h.clk.ms < ms {
		h.tick()
	}
}

func (h *harness) on(hi model.HardwareItem) bool {
	return h.ctrl.items[hi].IsOn()
}
