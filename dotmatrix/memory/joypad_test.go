package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoypadIdle(t *testing.T) {
	j := NewJoypad()

	j.WriteJoypad(0x30) // nothing selected
	assert.Equal(t, uint8(0xFF), j.ReadJoypad())
}

func TestJoypadSelection(t *testing.T) {
	j := NewJoypad()

	// Hold RIGHT (bit 0, active low) and A (bit 4, active low).
	j.Update(0xFF &^ (1 << 0) &^ (1 << 4))

	j.WriteJoypad(0x20) // select d-pad (P14 low)
	assert.Equal(t, uint8(0xEE), j.ReadJoypad(), "RIGHT reads low on the d-pad line")

	j.WriteJoypad(0x10) // select buttons (P15 low)
	assert.Equal(t, uint8(0xDE), j.ReadJoypad(), "A reads low on the button line")

	j.WriteJoypad(0x00) // both selected: lines AND together
	assert.Equal(t, uint8(0xCE), j.ReadJoypad())
}

func TestJoypadInterruptEdge(t *testing.T) {
	j := NewJoypad()

	j.WriteJoypad(0x20) // d-pad selected
	assert.False(t, j.InterruptTriggered())

	j.Update(0xFF &^ (1 << 1)) // press LEFT
	assert.True(t, j.InterruptTriggered())
	assert.False(t, j.InterruptTriggered(), "the edge is consumed")

	// Releasing does not trigger.
	j.Update(0xFF)
	assert.False(t, j.InterruptTriggered())

	// Edges on an unselected group stay silent.
	j.Update(0xFF &^ (1 << 7)) // press START while d-pad is selected
	assert.False(t, j.InterruptTriggered())
}
