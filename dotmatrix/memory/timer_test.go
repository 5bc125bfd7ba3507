package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marcellod/dotmatrix/dotmatrix/addr"
)

func TestTimerDIV(t *testing.T) {
	tm := NewTimer()

	tm.Step(255)
	assert.Equal(t, uint8(0x00), tm.ReadDiv(), "DIV is the counter's upper byte")
	tm.Step(1)
	assert.Equal(t, uint8(0x01), tm.ReadDiv())

	tm.WriteIO(addr.DIV, 0x55)
	assert.Equal(t, uint8(0x00), tm.ReadDiv(), "any DIV write resets it")

	tm.SetSeed(0xAB00)
	assert.Equal(t, uint8(0xAB), tm.ReadDiv())
	tm.ResetDiv()
	assert.Equal(t, uint8(0x00), tm.ReadDiv())
}

func TestTimerTIMAIncrement(t *testing.T) {
	tm := NewTimer()
	tm.WriteIO(addr.TAC, 0x05) // enabled, bit 3 (every 16 cycles)

	tm.Step(16)
	assert.Equal(t, uint8(1), tm.ReadIO(addr.TIMA))

	tm.Step(16 * 9)
	assert.Equal(t, uint8(10), tm.ReadIO(addr.TIMA))
}

func TestTimerDisabled(t *testing.T) {
	tm := NewTimer()
	tm.WriteIO(addr.TAC, 0x01) // fast clock selected but not enabled

	tm.Step(1024)
	assert.Equal(t, uint8(0), tm.ReadIO(addr.TIMA))
}

func TestTimerOverflow(t *testing.T) {
	tm := NewTimer()
	tm.WriteIO(addr.TMA, 0x23)
	tm.WriteIO(addr.TIMA, 0xFF)
	tm.WriteIO(addr.TAC, 0x05)

	overflowed := tm.Step(16)
	assert.False(t, overflowed, "reload is delayed by 4 cycles")
	assert.Equal(t, uint8(0x00), tm.ReadIO(addr.TIMA), "TIMA reads zero during the reload window")

	overflowed = tm.Step(4)
	assert.True(t, overflowed)
	assert.Equal(t, uint8(0x23), tm.ReadIO(addr.TIMA), "TIMA reloads from TMA")
}

func TestTimerOverflowCancelledByWrite(t *testing.T) {
	tm := NewTimer()
	tm.WriteIO(addr.TMA, 0x23)
	tm.WriteIO(addr.TIMA, 0xFF)
	tm.WriteIO(addr.TAC, 0x05)

	tm.Step(16)
	tm.WriteIO(addr.TIMA, 0x42) // cancels the pending reload

	overflowed := tm.Step(8)
	assert.False(t, overflowed)
	assert.Equal(t, uint8(0x42), tm.ReadIO(addr.TIMA))
}

func TestTimerTACReadback(t *testing.T) {
	tm := NewTimer()
	tm.WriteIO(addr.TAC, 0xFF)
	assert.Equal(t, uint8(0xFF), tm.ReadIO(addr.TAC), "upper TAC bits read as 1")
	tm.WriteIO(addr.TAC, 0x02)
	assert.Equal(t, uint8(0xFA), tm.ReadIO(addr.TAC))
}
