package bus

import (
	"log/slog"

	"github.com/marcellod/dotmatrix/dotmatrix/addr"
	"github.com/marcellod/dotmatrix/dotmatrix/audio"
	"github.com/marcellod/dotmatrix/dotmatrix/memory"
	"github.com/marcellod/dotmatrix/dotmatrix/video"
)

const (
	wramBankSize  = 0x1000
	wramBankCount = 8
	hramSize      = 0x7F

	dmaMCycles    = 160
	hdmaBlockSize = 0x10
	// hdmaBlockCost is the T-cycle price of one 16-byte block, charged to the
	// instruction's post-tick budget.
	hdmaBlockCost = 32
)

// hdmaMode is the VRAM DMA engine state.
type hdmaMode uint8

const (
	hdmaIdle hdmaMode = iota
	hdmaGeneralPurpose
	hdmaHBlankPaced
)

// Bus is the system's memory map and timing orchestrator. It exclusively
// owns every peripheral; cross-peripheral effects (DMA, interrupt requests,
// the APU's DIV-derived frame sequencer clock) are routed here and nowhere
// else. The CPU drives it through ReadByte/WriteByte plus the two tick entry
// points.
type Bus struct {
	model       memory.Model
	doubleSpeed bool
	serial      serialLog

	cart   *memory.Cartridge
	joypad *memory.Joypad
	apu    *audio.APU
	ppu    *video.PPU
	timer  *memory.Timer

	wram [wramBankCount][wramBankSize]uint8
	hram [hramSize]uint8

	interruptEnable uint8
	interruptFlag   uint8

	// OAM DMA: source page base and M-cycle progress; dmaTicks == 160 is idle.
	dmaStart uint16
	dmaTicks uint16

	// CGB only
	key1Armed  bool
	key1Active bool
	hdma1      uint8
	hdma2      uint8
	hdma3      uint8
	hdma4      uint8
	rp         uint8
	svbk       uint8

	hdmaState     hdmaMode
	hdmaBlocks    int // total 16-byte blocks of the running transfer
	hdmaBytes     int // bytes copied so far, always a multiple of 16
	hdmaRemaining uint8
	// T-cycles owed to the next post tick for blocks copied outside it (GDMA).
	hdmaOwedCycles uint32
}

// New wires a bus around the given cartridge for the given model.
func New(cart *memory.Cartridge, model memory.Model) *Bus {
	b := &Bus{
		model:         model,
		cart:          cart,
		joypad:        memory.NewJoypad(),
		apu:           audio.New(),
		ppu:           video.New(model),
		timer:         memory.NewTimer(),
		interruptFlag: 0xE0,
		dmaTicks:      dmaMCycles,
		hdmaRemaining: 0x7F,
	}

	slog.Debug("bus constructed", "model", model.String())
	return b
}

func (b *Bus) isCGB() bool {
	return b.model == memory.CGB
}

// DoubleSpeed reports whether the CGB double-speed clock is active.
func (b *Bus) DoubleSpeed() bool {
	return b.doubleSpeed
}

// PartialTick advances the peripherals that need M-cycle accuracy. The CPU
// calls it after every memory access with the T-cycles just consumed; the
// timer and OAM DMA therefore run at the doubled clock in double-speed mode.
func (b *Bus) PartialTick(tCycles uint32) {
	b.stepOAMDMA(tCycles / 4)

	oldDiv := b.timer.ReadDiv()
	if b.timer.Step(tCycles) {
		b.RequestInterrupt(addr.TimerInterrupt)
	}

	// The APU frame sequencer is clocked by a falling edge of DIV bit 4
	// (bit 5 in double-speed), keeping it at 512 Hz in both speeds.
	edgeBit := uint8(0x10)
	if b.doubleSpeed {
		edgeBit = 0x20
	}
	if oldDiv&edgeBit != 0 && b.timer.ReadDiv()&edgeBit == 0 {
		b.apu.FrameSequencerStep()
	}
}

// PostTick runs once per completed instruction with the total T-cycles the
// CPU consumed. It drains the VRAM DMA engine, steps APU and PPU at base
// speed, and collects peripheral interrupt edges into IF.
func (b *Bus) PostTick(tCycles uint32) {
	if b.doubleSpeed {
		tCycles /= 2
	}

	tCycles += b.stepVRAMDMA()

	b.apu.Step(tCycles)
	b.ppu.Step(tCycles)

	if b.ppu.EnteredVBlank() {
		b.RequestInterrupt(addr.VBlankInterrupt)
	}
	if b.ppu.StatTriggered() {
		b.RequestInterrupt(addr.LCDSTATInterrupt)
	}
	if b.joypad.InterruptTriggered() {
		b.RequestInterrupt(addr.JoypadInterrupt)
	}
}

// ReadByte returns the byte at the given address; unused addresses read 0xFF.
func (b *Bus) ReadByte(address uint16) uint8 {
	switch {
	case address <= 0x7FFF:
		return b.cart.ReadROM(address)
	case address <= 0x9FFF:
		return b.ppu.ReadVRAM(address)
	case address <= 0xBFFF:
		return b.cart.ReadRAM(address)
	case address <= 0xDFFF:
		return b.readWRAM(address)
	case address <= 0xFDFF:
		// Echo RAM mirrors 0xC000-0xDDFF.
		return b.readWRAM(address - 0x2000)
	case address <= 0xFE9F:
		return b.ppu.ReadOAM(address)
	case address <= 0xFEFF:
		return 0xFF
	case address >= 0xFF80 && address <= 0xFFFE:
		return b.hram[address-0xFF80]
	}

	switch {
	case address == addr.P1:
		return b.joypad.ReadJoypad()
	case address >= addr.DIV && address <= addr.TAC:
		return b.timer.ReadIO(address)
	case address == addr.IF:
		return b.interruptFlag | 0xE0
	case address >= addr.AudioStart && address <= addr.AudioEnd,
		address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd:
		return b.apu.ReadIO(address)
	case address >= addr.LCDC && address <= addr.WX:
		return b.ppu.ReadIO(address)
	case address == addr.BANK:
		return b.cart.ReadBank()
	case address == addr.IE:
		return b.interruptEnable
	}

	if b.isCGB() {
		switch {
		case address == addr.KEY1:
			return b.readKEY1()
		case address == addr.VBK:
			return b.ppu.ReadIO(address)
		case address == addr.HDMA5:
			return b.readHDMA5()
		case address == addr.RP:
			return b.rp
		case address >= addr.BCPS && address <= addr.OPRI:
			return b.ppu.ReadIO(address)
		case address == addr.SVBK:
			return b.svbk
		}
	}

	return 0xFF
}

// WriteByte stores a byte at the given address if it is writable. A write to
// the DMA register starts an OAM transfer, one to HDMA5 starts or stops a
// VRAM transfer.
func (b *Bus) WriteByte(address uint16, value uint8) {
	switch {
	case address <= 0x7FFF:
		b.cart.WriteROM(address, value)
		return
	case address <= 0x9FFF:
		b.ppu.WriteVRAM(address, value)
		return
	case address <= 0xBFFF:
		b.cart.WriteRAM(address, value)
		return
	case address <= 0xDFFF:
		b.writeWRAM(address, value)
		return
	case address <= 0xFDFF:
		b.writeWRAM(address-0x2000, value)
		return
	case address <= 0xFE9F:
		b.ppu.WriteOAM(address, value)
		return
	case address <= 0xFEFF:
		return
	case address >= 0xFF80 && address <= 0xFFFE:
		b.hram[address-0xFF80] = value
		return
	}

	switch {
	case address == addr.P1:
		b.joypad.WriteJoypad(value)
		return
	case address == addr.SB:
		b.serial.push(value)
		return
	case address >= addr.DIV && address <= addr.TAC:
		b.timer.WriteIO(address, value)
		return
	case address == addr.IF:
		b.interruptFlag = 0xE0 | value
		return
	case address >= addr.AudioStart && address <= addr.AudioEnd,
		address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd:
		b.apu.WriteIO(address, value)
		return
	case address == addr.DMA:
		b.writeDMA(value)
		return
	case address >= addr.LCDC && address <= addr.WX:
		b.ppu.WriteIO(address, value)
		return
	case address == addr.BANK:
		b.cart.WriteBank(value)
		return
	case address == addr.IE:
		b.interruptEnable = value
		return
	}

	if !b.isCGB() {
		return
	}

	switch {
	case address == addr.KEY1:
		b.key1Armed = value&0x01 != 0
	case address == addr.VBK:
		b.ppu.WriteIO(address, value)
	case address == addr.HDMA1:
		b.hdma1 = value
	case address == addr.HDMA2:
		b.hdma2 = value
	case address == addr.HDMA3:
		b.hdma3 = value
	case address == addr.HDMA4:
		b.hdma4 = value
	case address == addr.HDMA5:
		b.writeHDMA5(value)
	case address == addr.RP:
		b.rp = value & 0xFD
	case address >= addr.BCPS && address <= addr.OPRI:
		b.ppu.WriteIO(address, value)
	case address == addr.SVBK:
		b.svbk = value
	}
}

// readWRAM resolves 0xC000-0xDFFF: the lower half is always bank 0, the
// upper half the switched bank (bank 1 on DMG, SVBK on CGB with 0 as 1).
func (b *Bus) readWRAM(address uint16) uint8 {
	if address < 0xD000 {
		return b.wram[0][address-0xC000]
	}
	return b.wram[b.wramBank()][address-0xD000]
}

func (b *Bus) writeWRAM(address uint16, value uint8) {
	if address < 0xD000 {
		b.wram[0][address-0xC000] = value
		return
	}
	b.wram[b.wramBank()][address-0xD000] = value
}

func (b *Bus) wramBank() int {
	if !b.isCGB() {
		return 1
	}
	bank := int(b.svbk & 0x07)
	if bank == 0 {
		bank = 1
	}
	return bank
}

// writeDMA starts an OAM DMA from page value. The first byte transfers
// immediately, before the next M-cycle boundary.
func (b *Bus) writeDMA(value uint8) {
	b.ppu.WriteDMA(value)
	b.dmaStart = uint16(value) << 8
	b.dmaTicks = 0
	b.stepOAMDMA(1)
}

// stepOAMDMA copies one byte per elapsed M-cycle from the latched source
// page into OAM, reading through the full dispatcher.
func (b *Bus) stepOAMDMA(mCycles uint32) {
	for mCycles > 0 && b.dmaTicks < dmaMCycles {
		value := b.ReadByte(b.dmaStart | b.dmaTicks)
		b.ppu.WriteOAM(0xFE00|b.dmaTicks, value)

		mCycles--
		b.dmaTicks++
	}
}

// OAMDMAActive reports whether an OAM transfer is still in flight.
func (b *Bus) OAMDMAActive() bool {
	return b.dmaTicks < dmaMCycles
}

// writeHDMA5 starts, restarts or cancels a VRAM DMA. Bit 7 picks the mode;
// the low 7 bits hold blocks-minus-one.
func (b *Bus) writeHDMA5(value uint8) {
	blocks := int(value&0x7F) + 1

	if value&0x80 == 0 {
		if b.hdmaState == hdmaHBlankPaced {
			// Cancel; the remaining count stays latched for readback.
			b.hdmaState = hdmaIdle
			return
		}
		// General purpose: the whole transfer completes right now, its
		// T-cost is charged to the next post tick.
		b.hdmaState = hdmaGeneralPurpose
		b.hdmaBlocks = blocks
		b.hdmaBytes = 0
		for i := 0; i < blocks; i++ {
			b.hdmaOwedCycles += b.transferHDMABlock()
		}
		b.hdmaState = hdmaIdle
		b.hdmaRemaining = 0x7F
		return
	}

	b.hdmaState = hdmaHBlankPaced
	b.hdmaBlocks = blocks
	b.hdmaBytes = 0
	b.hdmaRemaining = value & 0x7F
}

// stepVRAMDMA runs the HBlank-paced engine and returns the T-cycles the
// engine consumed on behalf of this instruction.
func (b *Bus) stepVRAMDMA() uint32 {
	if !b.isCGB() {
		return 0
	}

	cycles := b.hdmaOwedCycles
	b.hdmaOwedCycles = 0

	if b.hdmaState != hdmaHBlankPaced || !b.ppu.EnteredHBlank() {
		return cycles
	}

	cycles += b.transferHDMABlock()

	if b.hdmaBytes == b.hdmaBlocks*hdmaBlockSize {
		b.hdmaState = hdmaIdle
		b.hdmaRemaining = 0x7F
	} else {
		b.hdmaRemaining--
		b.hdmaRemaining &= 0x7F
	}

	return cycles
}

// transferHDMABlock copies one 16-byte block from the latched source to
// VRAM and returns its T-cost.
func (b *Bus) transferHDMABlock() uint32 {
	source := b.hdmaSource() + uint16(b.hdmaBytes)
	dest := b.hdmaDest() + uint16(b.hdmaBytes)

	for i := uint16(0); i < hdmaBlockSize; i++ {
		value := b.ReadByte(source + i)
		b.ppu.WriteVRAM(0x8000|((dest+i)&0x1FFF), value)
	}
	b.hdmaBytes += hdmaBlockSize

	return hdmaBlockCost
}

func (b *Bus) hdmaSource() uint16 {
	return (uint16(b.hdma1)<<8 | uint16(b.hdma2)) & 0xFFF0
}

func (b *Bus) hdmaDest() uint16 {
	return 0x8000 | ((uint16(b.hdma3)<<8 | uint16(b.hdma4)) & 0x1FF0)
}

func (b *Bus) readHDMA5() uint8 {
	status := uint8(0x80)
	if b.hdmaState == hdmaHBlankPaced {
		status = 0x00
	}
	return status | b.hdmaRemaining
}

func (b *Bus) readKEY1() uint8 {
	value := uint8(0)
	if b.key1Active {
		value |= 0x80
	}
	if b.key1Armed {
		value |= 0x01
	}
	return value
}

// RequestInterrupt sets the given interrupt's bit in IF. It never clears;
// only CPU servicing or a CPU-visible write to IF does.
func (b *Bus) RequestInterrupt(interrupt addr.Interrupt) {
	b.interruptFlag |= uint8(interrupt)
}

// PendingInterrupts returns the enabled-and-requested bitmask the CPU checks
// at dispatch time.
func (b *Bus) PendingInterrupts() uint8 {
	return b.interruptEnable & b.interruptFlag & 0x1F
}

// SpeedSwitch toggles double-speed mode if KEY1 has been armed, resetting
// DIV as hardware does. The CPU invokes it while executing STOP. Returns
// whether a switch happened.
func (b *Bus) SpeedSwitch() bool {
	if !b.isCGB() || !b.key1Armed {
		return false
	}
	b.key1Armed = false
	b.key1Active = !b.key1Active
	b.doubleSpeed = b.key1Active
	b.timer.ResetDiv()
	return true
}

// SetTimerSeed initializes the timer's internal divider, used when skipping
// the boot ROM.
func (b *Bus) SetTimerSeed(seed uint16) {
	b.timer.SetSeed(seed)
}

// UpdateJoypad pushes the host's button state (active low, START..RIGHT from
// bit 7 down) through the joypad matrix.
func (b *Bus) UpdateJoypad(status uint8) {
	b.joypad.Update(status)
}

// GetDisplayOutput returns a completed frame, or nil between frames.
func (b *Bus) GetDisplayOutput() *video.FrameBuffer {
	return b.ppu.GetDisplayOutput()
}

// GetAudioOutput returns a completed audio buffer, or nil while one fills.
func (b *Bus) GetAudioOutput() *[audio.Samples][2]float32 {
	return b.apu.GetAudioOutput()
}

// SerialOutput returns everything written to the serial data register so
// far. Test ROMs report their results here.
func (b *Bus) SerialOutput() string {
	return b.serial.String()
}

// Persist flushes battery-backed cartridge RAM.
func (b *Bus) Persist() {
	b.cart.Persist()
}
