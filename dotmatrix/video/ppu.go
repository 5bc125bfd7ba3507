package video

import (
	"github.com/marcellod/dotmatrix/dotmatrix/addr"
	"github.com/marcellod/dotmatrix/dotmatrix/bit"
	"github.com/marcellod/dotmatrix/dotmatrix/memory"
)

// Mode is the PPU's current rendering stage, matching STAT bits 1-0.
type Mode uint8

const (
	// HBlankMode (mode 0): horizontal blank, VRAM/OAM accessible.
	HBlankMode Mode = 0
	// VBlankMode (mode 1): vertical blank between frames.
	VBlankMode Mode = 1
	// OAMScanMode (mode 2): sprite evaluation for the next scanline.
	OAMScanMode Mode = 2
	// PixelTransferMode (mode 3): pixels are pushed to the LCD.
	PixelTransferMode Mode = 3
)

const (
	oamScanCycles       = 80
	pixelTransferCycles = 172
	hblankCycles        = 204
	scanlineCycles      = 456
	linesPerFrame       = 154
)

const vramBankSize = 0x2000

// PPU owns video RAM, OAM and the LCD register file. It exposes edge flags
// (entered VBlank/HBlank, STAT line rise) that the bus polls once per
// instruction; every cross-peripheral effect (DMA, interrupts) is routed by
// the bus, never initiated here.
type PPU struct {
	model memory.Model

	vram     [2][vramBankSize]uint8
	vramBank uint8
	oam      [0xA0]uint8

	lcdc, stat, scy, scx uint8
	ly, lyc              uint8
	bgp, obp0, obp1      uint8
	wy, wx, dma          uint8
	opri                 uint8

	bcps, ocps     uint8
	bgPal, objPal  [64]uint8

	mode       Mode
	dots       int
	windowLine int

	statLine      bool
	enteredVBlank bool
	enteredHBlank bool
	statRaised    bool

	// per-line sprite priority scratch
	bgIndex  [FramebufferWidth]uint8
	bgAbove  [FramebufferWidth]bool
	objOwner [FramebufferWidth]int

	fb       *FrameBuffer
	out      *FrameBuffer
	outReady bool
}

// New builds a PPU for the given model, idle in VBlank like hardware after
// the boot ROM hands over.
func New(model memory.Model) *PPU {
	color := model == memory.CGB
	return &PPU{
		model: model,
		mode:  VBlankMode,
		ly:    144,
		fb:    NewFrameBuffer(color),
		out:   NewFrameBuffer(color),
	}
}

// Step advances the PPU by t T-cycles at base speed. Edge flags reflect
// transitions that happened during this call and stay observable until the
// next Step.
func (p *PPU) Step(tCycles uint32) {
	p.enteredVBlank = false
	p.enteredHBlank = false

	if !bit.IsSet(7, p.lcdc) {
		// LCD off: LY pinned to 0 in HBlank, no timing advances.
		return
	}

	p.dots += int(tCycles)

	for {
		switch p.mode {
		case OAMScanMode:
			if p.dots < oamScanCycles {
				return
			}
			p.dots -= oamScanCycles
			p.setMode(PixelTransferMode)
		case PixelTransferMode:
			if p.dots < pixelTransferCycles {
				return
			}
			p.dots -= pixelTransferCycles
			p.renderScanline()
			p.setMode(HBlankMode)
			p.enteredHBlank = true
		case HBlankMode:
			if p.dots < hblankCycles {
				return
			}
			p.dots -= hblankCycles
			p.setLY(p.ly + 1)
			if p.ly == FramebufferHeight {
				p.setMode(VBlankMode)
				p.enteredVBlank = true
				p.fb.CopyInto(p.out)
				p.outReady = true
			} else {
				p.setMode(OAMScanMode)
			}
		case VBlankMode:
			if p.dots < scanlineCycles {
				return
			}
			p.dots -= scanlineCycles
			p.setLY(p.ly + 1)
			if p.ly == linesPerFrame {
				p.setLY(0)
				p.windowLine = 0
				p.setMode(OAMScanMode)
			}
		}
	}
}

// EnteredVBlank reports whether the last Step crossed into VBlank.
func (p *PPU) EnteredVBlank() bool { return p.enteredVBlank }

// EnteredHBlank reports whether the last Step crossed into HBlank.
func (p *PPU) EnteredHBlank() bool { return p.enteredHBlank }

// StatTriggered reports whether the STAT interrupt line rose, in a Step or a
// register write, since the previous call. Step does not clear the flag; the
// call consumes it.
func (p *PPU) StatTriggered() bool {
	raised := p.statRaised
	p.statRaised = false
	return raised
}

// GetDisplayOutput returns the last completed frame, or nil if no frame
// finished since the previous call.
func (p *PPU) GetDisplayOutput() *FrameBuffer {
	if !p.outReady {
		return nil
	}
	p.outReady = false
	return p.out
}

// WriteDMA latches the page written to the DMA register; the transfer itself
// is driven by the bus.
func (p *PPU) WriteDMA(value uint8) {
	p.dma = value
}

func (p *PPU) setMode(m Mode) {
	p.mode = m
	p.stat = (p.stat & 0xFC) | uint8(m)
	p.updateStatLine()
}

func (p *PPU) setLY(line uint8) {
	p.ly = line
	if p.ly == p.lyc {
		p.stat |= 0x04
	} else {
		p.stat &^= 0x04
	}
	p.updateStatLine()
}

// updateStatLine recomputes the shared STAT interrupt line; a low-to-high
// transition latches statRaised.
func (p *PPU) updateStatLine() {
	line := false
	switch {
	case p.mode == HBlankMode && bit.IsSet(3, p.stat):
		line = true
	case p.mode == VBlankMode && bit.IsSet(4, p.stat):
		line = true
	case p.mode == OAMScanMode && bit.IsSet(5, p.stat):
		line = true
	}
	if p.stat&0x04 != 0 && bit.IsSet(6, p.stat) {
		line = true
	}

	if line && !p.statLine {
		p.statRaised = true
	}
	p.statLine = line
}

// ReadVRAM handles bus reads in 0x8000-0x9FFF through the active bank.
func (p *PPU) ReadVRAM(address uint16) uint8 {
	return p.vram[p.vramBank][address-0x8000]
}

// WriteVRAM handles bus (and HDMA) writes in 0x8000-0x9FFF.
func (p *PPU) WriteVRAM(address uint16, value uint8) {
	p.vram[p.vramBank][address-0x8000] = value
}

// ReadOAM handles bus reads in 0xFE00-0xFE9F.
func (p *PPU) ReadOAM(address uint16) uint8 {
	return p.oam[address-0xFE00]
}

// WriteOAM handles bus (and OAM DMA) writes in 0xFE00-0xFE9F.
func (p *PPU) WriteOAM(address uint16, value uint8) {
	p.oam[address-0xFE00] = value
}

// ReadIO handles LCD register reads, including the CGB bank/palette set.
func (p *PPU) ReadIO(address uint16) uint8 {
	switch address {
	case addr.LCDC:
		return p.lcdc
	case addr.STAT:
		return 0x80 | p.stat
	case addr.SCY:
		return p.scy
	case addr.SCX:
		return p.scx
	case addr.LY:
		return p.ly
	case addr.LYC:
		return p.lyc
	case addr.DMA:
		return p.dma
	case addr.BGP:
		return p.bgp
	case addr.OBP0:
		return p.obp0
	case addr.OBP1:
		return p.obp1
	case addr.WY:
		return p.wy
	case addr.WX:
		return p.wx
	case addr.VBK:
		return 0xFE | p.vramBank
	case addr.BCPS:
		return p.bcps
	case addr.BCPD:
		return p.bgPal[p.bcps&0x3F]
	case addr.OCPS:
		return p.ocps
	case addr.OCPD:
		return p.objPal[p.ocps&0x3F]
	case addr.OPRI:
		return p.opri
	default:
		return 0xFF
	}
}

// WriteIO handles LCD register writes.
func (p *PPU) WriteIO(address uint16, value uint8) {
	switch address {
	case addr.LCDC:
		wasOn := bit.IsSet(7, p.lcdc)
		p.lcdc = value
		if wasOn && !bit.IsSet(7, value) {
			// Turning the LCD off resets the scan position.
			p.setLY(0)
			p.dots = 0
			p.setMode(HBlankMode)
		} else if !wasOn && bit.IsSet(7, value) {
			p.dots = 0
			p.setLY(0)
			p.setMode(OAMScanMode)
		}
	case addr.STAT:
		// Bits 2-0 are read-only status.
		p.stat = (value & 0x78) | (p.stat & 0x07)
		p.updateStatLine()
	case addr.SCY:
		p.scy = value
	case addr.SCX:
		p.scx = value
	case addr.LY:
		// read-only
	case addr.LYC:
		p.lyc = value
		p.setLY(p.ly)
	case addr.DMA:
		p.dma = value
	case addr.BGP:
		p.bgp = value
	case addr.OBP0:
		p.obp0 = value
	case addr.OBP1:
		p.obp1 = value
	case addr.WY:
		p.wy = value
	case addr.WX:
		p.wx = value
	case addr.VBK:
		p.vramBank = value & 0x01
	case addr.BCPS:
		p.bcps = value & 0xBF
	case addr.BCPD:
		p.bgPal[p.bcps&0x3F] = value
		if bit.IsSet(7, p.bcps) {
			p.bcps = (p.bcps & 0x80) | ((p.bcps + 1) & 0x3F)
		}
	case addr.OCPS:
		p.ocps = value & 0xBF
	case addr.OCPD:
		p.objPal[p.ocps&0x3F] = value
		if bit.IsSet(7, p.ocps) {
			p.ocps = (p.ocps & 0x80) | ((p.ocps + 1) & 0x3F)
		}
	case addr.OPRI:
		p.opri = value & 0x01
	}
}
