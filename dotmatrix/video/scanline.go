package video

import (
	"github.com/marcellod/dotmatrix/dotmatrix/bit"
	"github.com/marcellod/dotmatrix/dotmatrix/memory"
)

// tile attribute bits (CGB background map bank 1, and OAM byte 3)
const (
	attrPalette = 0x07
	attrBank    = 0x08
	attrXFlip   = 0x20
	attrYFlip   = 0x40
	attrAbove   = 0x80
)

// renderScanline draws BG, window and sprites for the current LY into the
// working frame buffer. Called once per line on the mode 3 -> 0 transition.
func (p *PPU) renderScanline() {
	if int(p.ly) >= FramebufferHeight {
		return
	}

	for x := 0; x < FramebufferWidth; x++ {
		p.bgIndex[x] = 0
		p.bgAbove[x] = false
		p.objOwner[x] = -1
	}

	p.drawBackground()
	p.drawWindow()
	p.drawSprites()
}

// bgEnabled reports whether the background draws at all. On CGB, LCDC bit 0
// is a priority master instead and the background always draws.
func (p *PPU) bgEnabled() bool {
	return p.model == memory.CGB || bit.IsSet(0, p.lcdc)
}

func (p *PPU) drawBackground() {
	y := int(p.ly)

	if !p.bgEnabled() {
		for x := 0; x < FramebufferWidth; x++ {
			p.fb.SetPixel(x, y, p.bgColor(0, 0))
		}
		return
	}

	mapBase := uint16(0x9800)
	if bit.IsSet(3, p.lcdc) {
		mapBase = 0x9C00
	}

	bgY := (y + int(p.scy)) & 0xFF
	for x := 0; x < FramebufferWidth; x++ {
		bgX := (x + int(p.scx)) & 0xFF
		p.drawTilePixel(x, y, mapBase, bgX, bgY)
	}
}

func (p *PPU) drawWindow() {
	if !bit.IsSet(5, p.lcdc) || !p.bgEnabled() {
		return
	}

	y := int(p.ly)
	if int(p.wy) > y || p.wx > 166 {
		return
	}

	mapBase := uint16(0x9800)
	if bit.IsSet(6, p.lcdc) {
		mapBase = 0x9C00
	}

	startX := int(p.wx) - 7
	drawn := false
	for x := startX; x < FramebufferWidth; x++ {
		if x < 0 {
			continue
		}
		p.drawTilePixel(x, y, mapBase, x-startX, p.windowLine)
		drawn = true
	}
	if drawn {
		p.windowLine++
	}
}

// drawTilePixel renders one BG/window pixel from the tile map at mapBase,
// sampling map coordinates (mx, my).
func (p *PPU) drawTilePixel(x, y int, mapBase uint16, mx, my int) {
	mapIndex := uint16(my/8)*32 + uint16(mx/8)
	tileID := p.vram[0][mapBase-0x8000+mapIndex]

	var attrs uint8
	if p.model == memory.CGB {
		attrs = p.vram[1][mapBase-0x8000+mapIndex]
	}

	line := my % 8
	if attrs&attrYFlip != 0 {
		line = 7 - line
	}

	tileAddr := p.tileDataAddress(tileID) + uint16(line)*2
	bank := 0
	if attrs&attrBank != 0 {
		bank = 1
	}
	low := p.vram[bank][tileAddr]
	high := p.vram[bank][tileAddr+1]

	bitIndex := uint8(7 - mx%8)
	if attrs&attrXFlip != 0 {
		bitIndex = uint8(mx % 8)
	}

	colorIndex := ((high>>bitIndex)&1)<<1 | (low >> bitIndex & 1)

	p.bgIndex[x] = colorIndex
	p.bgAbove[x] = attrs&attrAbove != 0
	p.fb.SetPixel(x, y, p.bgColor(attrs&attrPalette, colorIndex))
}

// tileDataAddress resolves a tile ID through the LCDC addressing mode,
// returning a bank-relative offset.
func (p *PPU) tileDataAddress(tileID uint8) uint16 {
	if bit.IsSet(4, p.lcdc) {
		return uint16(tileID) * 16
	}
	return uint16(0x1000 + int(int8(tileID))*16)
}

// bgColor maps a background palette/color pair to a raw framebuffer pixel.
func (p *PPU) bgColor(palette, colorIndex uint8) uint16 {
	if p.model == memory.CGB {
		i := palette*8 + colorIndex*2
		return uint16(p.bgPal[i]) | uint16(p.bgPal[i+1])<<8
	}
	return uint16((p.bgp >> (colorIndex * 2)) & 0x03)
}

// objColor maps an object palette/color pair to a raw framebuffer pixel.
func (p *PPU) objColor(attrs, colorIndex uint8) uint16 {
	if p.model == memory.CGB {
		i := (attrs&attrPalette)*8 + colorIndex*2
		return uint16(p.objPal[i]) | uint16(p.objPal[i+1])<<8
	}
	pal := p.obp0
	if attrs&0x10 != 0 {
		pal = p.obp1
	}
	return uint16((pal >> (colorIndex * 2)) & 0x03)
}

func (p *PPU) drawSprites() {
	if !bit.IsSet(1, p.lcdc) {
		return
	}

	y := int(p.ly)
	height := 8
	if bit.IsSet(2, p.lcdc) {
		height = 16
	}

	rendered := 0
	for i := 0; i < 40 && rendered < 10; i++ {
		base := i * 4
		spriteY := int(p.oam[base]) - 16
		spriteX := int(p.oam[base+1]) - 8
		tileID := p.oam[base+2]
		attrs := p.oam[base+3]

		if y < spriteY || y >= spriteY+height {
			continue
		}
		rendered++

		line := y - spriteY
		if attrs&attrYFlip != 0 {
			line = height - 1 - line
		}
		if height == 16 {
			tileID &= 0xFE
		}

		bank := 0
		if p.model == memory.CGB && attrs&attrBank != 0 {
			bank = 1
		}
		tileAddr := uint16(tileID)*16 + uint16(line)*2
		low := p.vram[bank][tileAddr]
		high := p.vram[bank][tileAddr+1]

		for px := 0; px < 8; px++ {
			x := spriteX + px
			if x < 0 || x >= FramebufferWidth {
				continue
			}

			bitIndex := uint8(7 - px)
			if attrs&attrXFlip != 0 {
				bitIndex = uint8(px)
			}
			colorIndex := ((high>>bitIndex)&1)<<1 | (low >> bitIndex & 1)
			if colorIndex == 0 {
				continue
			}
			if !p.spriteWins(x, attrs) {
				continue
			}

			p.objOwner[x] = i
			p.fb.SetPixel(x, y, p.objColor(attrs, colorIndex))
		}
	}
}

// spriteWins decides whether a sprite pixel beats the background and any
// sprite already drawn at x. Earlier OAM entries keep the pixel; BG colors
// 1-3 win when either priority flag asks for it (unless the CGB master
// priority bit is off).
func (p *PPU) spriteWins(x int, attrs uint8) bool {
	if p.objOwner[x] >= 0 {
		return false
	}
	if p.bgIndex[x] == 0 {
		return true
	}
	if p.model == memory.CGB && !bit.IsSet(0, p.lcdc) {
		return true
	}
	if attrs&attrAbove != 0 {
		return false
	}
	if p.model == memory.CGB && p.bgAbove[x] {
		return false
	}
	return true
}
