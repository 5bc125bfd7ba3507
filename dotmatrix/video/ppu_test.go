package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marcellod/dotmatrix/dotmatrix/addr"
	"github.com/marcellod/dotmatrix/dotmatrix/memory"
	"github.com/marcellod/dotmatrix/dotmatrix/timing"
)

func newRunningPPU(model memory.Model) *PPU {
	p := New(model)
	p.WriteIO(addr.LCDC, 0x91)
	return p
}

func TestModeSequence(t *testing.T) {
	p := newRunningPPU(memory.DMG)

	assert.Equal(t, OAMScanMode, p.mode, "a fresh line starts in OAM scan")

	p.Step(oamScanCycles)
	assert.Equal(t, PixelTransferMode, p.mode)

	p.Step(pixelTransferCycles)
	assert.Equal(t, HBlankMode, p.mode)
	assert.True(t, p.EnteredHBlank())
	assert.False(t, p.EnteredVBlank())

	p.Step(hblankCycles)
	assert.Equal(t, OAMScanMode, p.mode)
	assert.Equal(t, uint8(1), p.ReadIO(addr.LY))
	assert.False(t, p.EnteredHBlank(), "the edge only covers the step it happened in")
}

func TestVBlankEntry(t *testing.T) {
	p := newRunningPPU(memory.DMG)

	p.Step(scanlineCycles * 143)
	assert.False(t, p.EnteredVBlank())

	p.Step(scanlineCycles)
	assert.True(t, p.EnteredVBlank())
	assert.Equal(t, VBlankMode, p.mode)
	assert.Equal(t, uint8(144), p.ReadIO(addr.LY))

	fb := p.GetDisplayOutput()
	assert.NotNil(t, fb, "a frame completes on VBlank entry")
	assert.Nil(t, p.GetDisplayOutput(), "the frame is consumed")
}

func TestFrameWrapsToLineZero(t *testing.T) {
	p := newRunningPPU(memory.DMG)

	p.Step(timing.CyclesPerFrame)
	assert.Equal(t, uint8(0), p.ReadIO(addr.LY))
	assert.Equal(t, OAMScanMode, p.mode)
}

func TestSTATModeAndLYC(t *testing.T) {
	t.Run("mode bits track the state machine", func(t *testing.T) {
		p := newRunningPPU(memory.DMG)
		assert.Equal(t, uint8(2), p.ReadIO(addr.STAT)&0x03)
		p.Step(oamScanCycles)
		assert.Equal(t, uint8(3), p.ReadIO(addr.STAT)&0x03)
	})

	t.Run("LYC compare raises the STAT line", func(t *testing.T) {
		p := newRunningPPU(memory.DMG)
		p.WriteIO(addr.STAT, 0x40) // LYC interrupt source
		p.WriteIO(addr.LYC, 2)
		p.StatTriggered() // drain anything from setup

		p.Step(scanlineCycles)
		assert.False(t, p.StatTriggered(), "LY=1 does not match")

		p.Step(scanlineCycles)
		assert.NotZero(t, p.ReadIO(addr.STAT)&0x04, "coincidence bit set")
		assert.True(t, p.StatTriggered())
		assert.False(t, p.StatTriggered(), "the edge is consumed")
	})

	t.Run("HBlank interrupt source", func(t *testing.T) {
		p := newRunningPPU(memory.DMG)
		p.WriteIO(addr.STAT, 0x08)
		p.StatTriggered()

		p.Step(oamScanCycles + pixelTransferCycles)
		assert.True(t, p.StatTriggered())
	})

	t.Run("STAT upper bit reads set", func(t *testing.T) {
		p := New(memory.DMG)
		assert.NotZero(t, p.ReadIO(addr.STAT)&0x80)
	})
}

func TestLCDDisabled(t *testing.T) {
	p := newRunningPPU(memory.DMG)
	p.WriteIO(addr.LCDC, 0x11) // LCD off

	p.Step(timing.CyclesPerFrame)
	assert.False(t, p.EnteredVBlank())
	assert.Nil(t, p.GetDisplayOutput())
	assert.Equal(t, uint8(0), p.ReadIO(addr.LY))
}

func TestVRAMBanking(t *testing.T) {
	p := New(memory.CGB)

	p.WriteVRAM(0x8000, 0x11)
	p.WriteIO(addr.VBK, 0x01)
	assert.Equal(t, uint8(0xFF), p.ReadIO(addr.VBK))
	assert.Equal(t, uint8(0x00), p.ReadVRAM(0x8000), "bank 1 is separate")

	p.WriteVRAM(0x8000, 0x22)
	p.WriteIO(addr.VBK, 0x00)
	assert.Equal(t, uint8(0xFE), p.ReadIO(addr.VBK))
	assert.Equal(t, uint8(0x11), p.ReadVRAM(0x8000))
}

func TestPaletteRAMAutoIncrement(t *testing.T) {
	p := New(memory.CGB)

	p.WriteIO(addr.BCPS, 0x80) // index 0, auto-increment
	for i := uint8(0); i < 8; i++ {
		p.WriteIO(addr.BCPD, i)
	}
	assert.Equal(t, uint8(0x88), p.ReadIO(addr.BCPS), "index advanced by the writes")

	for i := uint8(0); i < 8; i++ {
		p.WriteIO(addr.BCPS, i) // no auto-increment on reads
		assert.Equal(t, i, p.ReadIO(addr.BCPD))
	}

	// Object palettes are independent.
	p.WriteIO(addr.OCPS, 0x00)
	p.WriteIO(addr.OCPD, 0x5A)
	p.WriteIO(addr.BCPS, 0x00)
	assert.Equal(t, uint8(0x5A), p.ReadIO(addr.OCPD))
	assert.Equal(t, uint8(0x00), p.ReadIO(addr.BCPD))
}

func TestOAMAccess(t *testing.T) {
	p := New(memory.DMG)

	p.WriteOAM(0xFE17, 0x42)
	assert.Equal(t, uint8(0x42), p.ReadOAM(0xFE17))

	p.WriteDMA(0xC0)
	assert.Equal(t, uint8(0xC0), p.ReadIO(addr.DMA))
}

// solidTile fills a tile's 16 bytes so every pixel has the given 2-bit color.
func solidTile(p *PPU, bank int, tile int, color uint8) {
	for row := 0; row < 8; row++ {
		var low, high uint8
		if color&1 != 0 {
			low = 0xFF
		}
		if color&2 != 0 {
			high = 0xFF
		}
		p.vram[bank][tile*16+row*2] = low
		p.vram[bank][tile*16+row*2+1] = high
	}
}

func TestBackgroundRendering(t *testing.T) {
	p := newRunningPPU(memory.DMG)
	p.WriteIO(addr.BGP, 0xE4) // identity palette

	solidTile(p, 0, 0, 3)
	// Tile map already points every entry at tile 0.

	p.Step(timing.CyclesPerFrame)
	fb := p.GetDisplayOutput()
	assert.NotNil(t, fb)

	for _, x := range []int{0, 80, 159} {
		assert.Equal(t, uint16(3), fb.At(x, 0), "x=%d", x)
		assert.Equal(t, uint16(3), fb.At(x, 143), "x=%d", x)
	}
}

func TestSpriteRendering(t *testing.T) {
	p := newRunningPPU(memory.DMG)
	p.WriteIO(addr.LCDC, 0x93) // enable sprites too
	p.WriteIO(addr.BGP, 0xE4)
	p.WriteIO(addr.OBP0, 0xE4)

	solidTile(p, 0, 1, 1)

	// Sprite at screen origin using tile 1.
	p.WriteOAM(0xFE00, 16)
	p.WriteOAM(0xFE01, 8)
	p.WriteOAM(0xFE02, 1)
	p.WriteOAM(0xFE03, 0x00)

	p.Step(timing.CyclesPerFrame)
	fb := p.GetDisplayOutput()
	assert.NotNil(t, fb)

	assert.Equal(t, uint16(1), fb.At(0, 0), "sprite pixel over transparent background")
	assert.Equal(t, uint16(1), fb.At(7, 7))
	assert.Equal(t, uint16(0), fb.At(8, 0), "outside the sprite")
}

func TestCGBBackgroundUsesPaletteRAM(t *testing.T) {
	p := newRunningPPU(memory.CGB)

	solidTile(p, 0, 0, 1)

	// Palette 0, color 1 = bright red (RGB555 0x001F, little endian).
	p.WriteIO(addr.BCPS, 0x02)
	p.WriteIO(addr.BCPD, 0x1F)
	p.WriteIO(addr.BCPS, 0x03)
	p.WriteIO(addr.BCPD, 0x00)

	p.Step(timing.CyclesPerFrame)
	fb := p.GetDisplayOutput()
	assert.NotNil(t, fb)

	assert.Equal(t, uint16(0x001F), fb.At(0, 0))
	assert.Equal(t, uint32(0xF80000FF), fb.RGBA(0, 0))
}
