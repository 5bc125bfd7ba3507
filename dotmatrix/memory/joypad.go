package memory

// Joypad models the P1 button matrix. The host pushes the full button state
// as one active-low byte (START, SELECT, B, A, DOWN, UP, LEFT, RIGHT from
// bit 7 to bit 0); the select bits written to P1 pick which nibble the CPU
// sees. A falling edge on a selected line latches an interrupt request that
// the bus collects at the end of the instruction.
type Joypad struct {
	buttons uint8 // Start/Select/B/A, active low, low nibble
	dpad    uint8 // Down/Up/Left/Right, active low, low nibble
	line    uint8 // P1 bits 4-5 as last written
	irq     bool
}

// NewJoypad returns a joypad with every button released.
func NewJoypad() *Joypad {
	return &Joypad{
		buttons: 0x0F,
		dpad:    0x0F,
	}
}

// ReadJoypad returns the P1 register value for the current selection.
func (j *Joypad) ReadJoypad() uint8 {
	result := uint8(0xC0) | j.line | 0x0F

	if j.line&0x10 == 0 {
		result &= 0xF0 | j.dpad
	}
	if j.line&0x20 == 0 {
		result &= 0xF0 | j.buttons
	}

	return result
}

// WriteJoypad stores the selection bits (4-5); the rest is read-only.
func (j *Joypad) WriteJoypad(value uint8) {
	j.line = value & 0x30
}

// Update pushes the host's button state. Bit layout, active low:
// START, SELECT, B, A, DOWN, UP, LEFT, RIGHT from bit 7 down to bit 0.
// Both nibbles already share the P1 line order (bit 0 = RIGHT / A).
func (j *Joypad) Update(status uint8) {
	newDpad := status & 0x0F
	newButtons := status >> 4

	if j.line&0x10 == 0 && j.dpad & ^newDpad != 0 {
		j.irq = true
	}
	if j.line&0x20 == 0 && j.buttons & ^newButtons != 0 {
		j.irq = true
	}

	j.dpad = newDpad
	j.buttons = newButtons
}

// InterruptTriggered reports and consumes a pending joypad edge.
func (j *Joypad) InterruptTriggered() bool {
	triggered := j.irq
	j.irq = false
	return triggered
}
