package cpu

import (
	"github.com/marcellod/dotmatrix/dotmatrix/addr"
	"github.com/marcellod/dotmatrix/dotmatrix/bit"
	"github.com/marcellod/dotmatrix/dotmatrix/bus"
)

// Flag is one of the 4 flags in the F register.
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// CPU is the SM83 core. Every memory access goes through the bus and charges
// a partial tick of 4 T-cycles, so peripheral side effects land in
// memory-access order; the instruction's total is settled with one post tick.
type CPU struct {
	bus *bus.Bus

	a, f    uint8
	b, c    uint8
	d, e    uint8
	h, l    uint8
	sp, pc  uint16

	ime         bool
	scheduledEI bool
	halted      bool
	haltBug     bool

	cycles uint32 // T-cycles charged so far in the current instruction
}

// New returns a CPU wired to the given bus, with zeroed registers (boot ROM
// entry state). Use SeedPostBoot to skip the boot ROM.
func New(b *bus.Bus) *CPU {
	return &CPU{bus: b}
}

// SeedPostBoot loads the register state the boot ROM leaves behind.
// The CGB boot ROM identifies itself with A=0x11.
func (c *CPU) SeedPostBoot(cgb bool) {
	c.a, c.f = 0x01, 0xB0
	if cgb {
		c.a = 0x11
	}
	c.b, c.c = 0x00, 0x13
	c.d, c.e = 0x00, 0xD8
	c.h, c.l = 0x01, 0x4D
	c.sp = 0xFFFE
	c.pc = 0x0100
}

// PC returns the current program counter, for tracing.
func (c *CPU) PC() uint16 { return c.pc }

// Step executes one instruction (or a halted idle cycle), services at most
// one pending interrupt, and settles the bus post tick. Returns the
// T-cycles consumed.
func (c *CPU) Step() uint32 {
	c.cycles = 0

	// EI takes effect after the following instruction.
	enableIME := c.scheduledEI
	c.scheduledEI = false

	if c.halted {
		c.tick(4)
		if c.bus.PendingInterrupts() != 0 {
			c.halted = false
		}
	} else {
		c.execute(c.fetch())
	}

	if enableIME {
		c.ime = true
	}

	if pending := c.bus.PendingInterrupts(); pending != 0 {
		c.halted = false
		if c.ime {
			c.service(pending)
		}
	}

	total := c.cycles
	c.bus.PostTick(total)
	return total
}

// service dispatches the highest-priority pending interrupt: 2 idle
// M-cycles, push PC, jump to the vector. 20 T-cycles in total.
func (c *CPU) service(pending uint8) {
	c.ime = false

	var index uint8
	for index = 0; index < 5; index++ {
		if pending&(1<<index) != 0 {
			break
		}
	}

	// Acknowledge: clear the IF bit through the bus, preserving the rest.
	flags := c.bus.ReadByte(addr.IF)
	c.bus.WriteByte(addr.IF, bit.Clear(index, flags))

	c.tick(12)
	c.pushStack(c.pc)
	c.pc = 0x0040 + uint16(index)*8
}

// tick charges T-cycles to the in-flight instruction via the bus partial
// tick, keeping timer/DMA side effects in access order.
func (c *CPU) tick(tCycles uint32) {
	c.cycles += tCycles
	c.bus.PartialTick(tCycles)
}

func (c *CPU) read(address uint16) uint8 {
	value := c.bus.ReadByte(address)
	c.tick(4)
	return value
}

func (c *CPU) write(address uint16, value uint8) {
	c.bus.WriteByte(address, value)
	c.tick(4)
}

// fetch reads the next opcode byte. A pending halt bug makes the fetch skip
// the PC increment once.
func (c *CPU) fetch() uint8 {
	value := c.read(c.pc)
	if c.haltBug {
		c.haltBug = false
	} else {
		c.pc++
	}
	return value
}

func (c *CPU) fetchWord() uint16 {
	low := c.fetch()
	high := c.fetch()
	return bit.Combine(high, low)
}

func (c *CPU) pushStack(value uint16) {
	c.sp--
	c.write(c.sp, bit.High(value))
	c.sp--
	c.write(c.sp, bit.Low(value))
}

func (c *CPU) popStack() uint16 {
	low := c.read(c.sp)
	c.sp++
	high := c.read(c.sp)
	c.sp++
	return bit.Combine(high, low)
}

// 16-bit register pair accessors.

func (c *CPU) af() uint16 { return bit.Combine(c.a, c.f) }
func (c *CPU) bc() uint16 { return bit.Combine(c.b, c.c) }
func (c *CPU) de() uint16 { return bit.Combine(c.d, c.e) }
func (c *CPU) hl() uint16 { return bit.Combine(c.h, c.l) }

func (c *CPU) setAF(value uint16) { c.a = bit.High(value); c.f = bit.Low(value) & 0xF0 }
func (c *CPU) setBC(value uint16) { c.b = bit.High(value); c.c = bit.Low(value) }
func (c *CPU) setDE(value uint16) { c.d = bit.High(value); c.e = bit.Low(value) }
func (c *CPU) setHL(value uint16) { c.h = bit.High(value); c.l = bit.Low(value) }

// flag helpers

func (c *CPU) setFlag(flag Flag)   { c.f |= uint8(flag) }
func (c *CPU) resetFlag(flag Flag) { c.f &^= uint8(flag) }

func (c *CPU) isSetFlag(flag Flag) bool { return c.f&uint8(flag) != 0 }

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
	} else {
		c.resetFlag(flag)
	}
}

func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}
