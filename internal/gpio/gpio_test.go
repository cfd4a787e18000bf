package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMockSink(t *testing.T) {
	sink := NewMockSink()

	assert.False(t, sink.On(17), "unwritten pin reads off")

	sink.Set(17, true)
	sink.Set(27, false)
	assert.True(t, sink.On(17))
	assert.False(t, sink.On(27))

	sink.Set(17, false)
	assert.False(t, sink.On(17))
}

func TestRelayBoardSafeMode(t *testing.T) {
	// safe mode never touches the GPIO memory range, so this is runnable
	// on any workstation
	board, err := Open(true, true)
	assert.NoError(t, err)
	board.Set(17, true)
	board.AllOff([]int{17, 27})
	assert.NoError(t, board.Close())
}
