package cpu

// Register index order used by the opcode encoding:
// 0=B 1=C 2=D 3=E 4=H 5=L 6=(HL) 7=A.

func (c *CPU) getReg8(index uint8) uint8 {
	switch index {
	case 0:
		return c.b
	case 1:
		return c.c
	case 2:
		return c.d
	case 3:
		return c.e
	case 4:
		return c.h
	case 5:
		return c.l
	case 6:
		return c.read(c.hl())
	default:
		return c.a
	}
}

func (c *CPU) setReg8(index uint8, value uint8) {
	switch index {
	case 0:
		c.b = value
	case 1:
		c.c = value
	case 2:
		c.d = value
	case 3:
		c.e = value
	case 4:
		c.h = value
	case 5:
		c.l = value
	case 6:
		c.write(c.hl(), value)
	default:
		c.a = value
	}
}

// getPair/setPair follow the rp table: 0=BC 1=DE 2=HL 3=SP.

func (c *CPU) getPair(index uint8) uint16 {
	switch index {
	case 0:
		return c.bc()
	case 1:
		return c.de()
	case 2:
		return c.hl()
	default:
		return c.sp
	}
}

func (c *CPU) setPair(index uint8, value uint16) {
	switch index {
	case 0:
		c.setBC(value)
	case 1:
		c.setDE(value)
	case 2:
		c.setHL(value)
	default:
		c.sp = value
	}
}

// condition resolves the cc table: 0=NZ 1=Z 2=NC 3=C.
func (c *CPU) condition(index uint8) bool {
	switch index {
	case 0:
		return !c.isSetFlag(zeroFlag)
	case 1:
		return c.isSetFlag(zeroFlag)
	case 2:
		return !c.isSetFlag(carryFlag)
	default:
		return c.isSetFlag(carryFlag)
	}
}

// alu dispatches the 8-entry accumulator operation table.
func (c *CPU) alu(index uint8, value uint8) {
	switch index {
	case 0:
		c.addToA(value)
	case 1:
		c.adcToA(value)
	case 2:
		c.sub(value)
	case 3:
		c.sbc(value)
	case 4:
		c.and(value)
	case 5:
		c.xor(value)
	case 6:
		c.or(value)
	default:
		c.cp(value)
	}
}

// execute runs a single fetched opcode. The encoding is regular enough that
// the three main quadrants decode algorithmically; the rest is a flat switch.
func (c *CPU) execute(op uint8) {
	switch {
	case op == 0x76: // HALT
		if !c.ime && c.bus.PendingInterrupts() != 0 {
			c.haltBug = true
		} else {
			c.halted = true
		}
		return
	case op >= 0x40 && op <= 0x7F: // LD r, r'
		c.setReg8((op>>3)&0x07, c.getReg8(op&0x07))
		return
	case op >= 0x80 && op <= 0xBF: // ALU A, r
		c.alu((op>>3)&0x07, c.getReg8(op&0x07))
		return
	}

	switch op {
	case 0x00: // NOP
	case 0x10: // STOP
		c.pc++ // the pad byte is skipped
		c.bus.SpeedSwitch()

	case 0x01, 0x11, 0x21, 0x31: // LD rp, d16
		c.setPair(op>>4, c.fetchWord())
	case 0x09, 0x19, 0x29, 0x39: // ADD HL, rp
		c.addToHL(c.getPair(op >> 4))
		c.tick(4)
	case 0x03, 0x13, 0x23, 0x33: // INC rp
		c.setPair(op>>4, c.getPair(op>>4)+1)
		c.tick(4)
	case 0x0B, 0x1B, 0x2B, 0x3B: // DEC rp
		c.setPair(op>>4, c.getPair(op>>4)-1)
		c.tick(4)

	case 0x02: // LD (BC), A
		c.write(c.bc(), c.a)
	case 0x12: // LD (DE), A
		c.write(c.de(), c.a)
	case 0x22: // LD (HL+), A
		c.write(c.hl(), c.a)
		c.setHL(c.hl() + 1)
	case 0x32: // LD (HL-), A
		c.write(c.hl(), c.a)
		c.setHL(c.hl() - 1)
	case 0x0A: // LD A, (BC)
		c.a = c.read(c.bc())
	case 0x1A: // LD A, (DE)
		c.a = c.read(c.de())
	case 0x2A: // LD A, (HL+)
		c.a = c.read(c.hl())
		c.setHL(c.hl() + 1)
	case 0x3A: // LD A, (HL-)
		c.a = c.read(c.hl())
		c.setHL(c.hl() - 1)

	case 0x04, 0x0C, 0x14, 0x1C, 0x24, 0x2C, 0x34, 0x3C: // INC r
		index := (op >> 3) & 0x07
		c.setReg8(index, c.inc(c.getReg8(index)))
	case 0x05, 0x0D, 0x15, 0x1D, 0x25, 0x2D, 0x35, 0x3D: // DEC r
		index := (op >> 3) & 0x07
		c.setReg8(index, c.dec(c.getReg8(index)))
	case 0x06, 0x0E, 0x16, 0x1E, 0x26, 0x2E, 0x36, 0x3E: // LD r, d8
		c.setReg8((op>>3)&0x07, c.fetch())

	case 0x07: // RLCA
		c.a = c.rlc(c.a)
		c.resetFlag(zeroFlag)
	case 0x0F: // RRCA
		c.a = c.rrc(c.a)
		c.resetFlag(zeroFlag)
	case 0x17: // RLA
		c.a = c.rl(c.a)
		c.resetFlag(zeroFlag)
	case 0x1F: // RRA
		c.a = c.rr(c.a)
		c.resetFlag(zeroFlag)
	case 0x27: // DAA
		c.daa()
	case 0x2F: // CPL
		c.a = ^c.a
		c.setFlag(subFlag)
		c.setFlag(halfCarryFlag)
	case 0x37: // SCF
		c.resetFlag(subFlag)
		c.resetFlag(halfCarryFlag)
		c.setFlag(carryFlag)
	case 0x3F: // CCF
		c.resetFlag(subFlag)
		c.resetFlag(halfCarryFlag)
		c.setFlagToCondition(carryFlag, !c.isSetFlag(carryFlag))

	case 0x08: // LD (a16), SP
		address := c.fetchWord()
		c.write(address, uint8(c.sp))
		c.write(address+1, uint8(c.sp>>8))

	case 0x18: // JR r8
		offset := int8(c.fetch())
		c.tick(4)
		c.pc = uint16(int32(c.pc) + int32(offset))
	case 0x20, 0x28, 0x30, 0x38: // JR cc, r8
		offset := int8(c.fetch())
		if c.condition((op >> 3) & 0x03) {
			c.tick(4)
			c.pc = uint16(int32(c.pc) + int32(offset))
		}

	case 0xC3: // JP a16
		address := c.fetchWord()
		c.tick(4)
		c.pc = address
	case 0xC2, 0xCA, 0xD2, 0xDA: // JP cc, a16
		address := c.fetchWord()
		if c.condition((op >> 3) & 0x03) {
			c.tick(4)
			c.pc = address
		}
	case 0xE9: // JP HL
		c.pc = c.hl()

	case 0xCD: // CALL a16
		address := c.fetchWord()
		c.tick(4)
		c.pushStack(c.pc)
		c.pc = address
	case 0xC4, 0xCC, 0xD4, 0xDC: // CALL cc, a16
		address := c.fetchWord()
		if c.condition((op >> 3) & 0x03) {
			c.tick(4)
			c.pushStack(c.pc)
			c.pc = address
		}

	case 0xC9: // RET
		c.pc = c.popStack()
		c.tick(4)
	case 0xD9: // RETI
		c.pc = c.popStack()
		c.tick(4)
		c.ime = true
	case 0xC0, 0xC8, 0xD0, 0xD8: // RET cc
		c.tick(4)
		if c.condition((op >> 3) & 0x03) {
			c.pc = c.popStack()
			c.tick(4)
		}

	case 0xC7, 0xCF, 0xD7, 0xDF, 0xE7, 0xEF, 0xF7, 0xFF: // RST n
		c.tick(4)
		c.pushStack(c.pc)
		c.pc = uint16(op & 0x38)

	case 0xC5: // PUSH BC
		c.tick(4)
		c.pushStack(c.bc())
	case 0xD5: // PUSH DE
		c.tick(4)
		c.pushStack(c.de())
	case 0xE5: // PUSH HL
		c.tick(4)
		c.pushStack(c.hl())
	case 0xF5: // PUSH AF
		c.tick(4)
		c.pushStack(c.af())

	case 0xC1: // POP BC
		c.setBC(c.popStack())
	case 0xD1: // POP DE
		c.setDE(c.popStack())
	case 0xE1: // POP HL
		c.setHL(c.popStack())
	case 0xF1: // POP AF
		c.setAF(c.popStack())

	case 0xC6, 0xCE, 0xD6, 0xDE, 0xE6, 0xEE, 0xF6, 0xFE: // ALU A, d8
		c.alu((op>>3)&0x07, c.fetch())

	case 0xE0: // LDH (a8), A
		c.write(0xFF00+uint16(c.fetch()), c.a)
	case 0xF0: // LDH A, (a8)
		c.a = c.read(0xFF00 + uint16(c.fetch()))
	case 0xE2: // LD (C), A
		c.write(0xFF00+uint16(c.c), c.a)
	case 0xF2: // LD A, (C)
		c.a = c.read(0xFF00 + uint16(c.c))
	case 0xEA: // LD (a16), A
		c.write(c.fetchWord(), c.a)
	case 0xFA: // LD A, (a16)
		c.a = c.read(c.fetchWord())

	case 0xE8: // ADD SP, r8
		c.sp = c.addSPSigned(c.fetch())
		c.tick(8)
	case 0xF8: // LD HL, SP+r8
		c.setHL(c.addSPSigned(c.fetch()))
		c.tick(4)
	case 0xF9: // LD SP, HL
		c.sp = c.hl()
		c.tick(4)

	case 0xF3: // DI
		c.ime = false
		c.scheduledEI = false
	case 0xFB: // EI
		c.scheduledEI = true

	case 0xCB:
		c.executeCB(c.fetch())

	default:
		// 0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD
		// lock up real hardware; treat as NOP.
	}
}

// executeCB runs a CB-prefixed opcode: rotates/shifts, BIT, RES, SET.
func (c *CPU) executeCB(op uint8) {
	index := op & 0x07
	which := (op >> 3) & 0x07

	switch op >> 6 {
	case 0: // rotate/shift group
		value := c.getReg8(index)
		switch which {
		case 0:
			value = c.rlc(value)
		case 1:
			value = c.rrc(value)
		case 2:
			value = c.rl(value)
		case 3:
			value = c.rr(value)
		case 4:
			value = c.sla(value)
		case 5:
			value = c.sra(value)
		case 6:
			value = c.swap(value)
		default:
			value = c.srl(value)
		}
		c.setReg8(index, value)
	case 1: // BIT b, r
		value := c.getReg8(index)
		c.setFlagToCondition(zeroFlag, value&(1<<which) == 0)
		c.resetFlag(subFlag)
		c.setFlag(halfCarryFlag)
	case 2: // RES b, r
		c.setReg8(index, c.getReg8(index)&^(1<<which))
	default: // SET b, r
		c.setReg8(index, c.getReg8(index)|1<<which)
	}
}
