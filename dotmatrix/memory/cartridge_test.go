package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func headerROM(typ uint8, cgbFlag uint8) []byte {
	rom := make([]byte, 0x8000)
	copy(rom[titleAddress:], "TESTCART")
	rom[cgbFlagAddress] = cgbFlag
	rom[cartridgeTypeAddress] = typ
	rom[ramSizeAddress] = 0x02
	return rom
}

func TestCartridgeConstruction(t *testing.T) {
	t.Run("known types", func(t *testing.T) {
		for _, typ := range []uint8{0x00, 0x01, 0x03, 0x05, 0x11, 0x13, 0x19, 0x1B, 0x1E} {
			_, err := NewCartridge(headerROM(typ, 0))
			assert.NoError(t, err, "type 0x%02X", typ)
		}
	})

	t.Run("unknown type fails construction", func(t *testing.T) {
		_, err := NewCartridge(headerROM(0x20, 0))
		assert.Error(t, err)
	})

	t.Run("truncated ROM fails construction", func(t *testing.T) {
		_, err := NewCartridge(make([]byte, 0x100))
		assert.Error(t, err)
	})
}

func TestCartridgeModelDetection(t *testing.T) {
	cart, err := NewCartridge(headerROM(0x00, 0x00))
	assert.NoError(t, err)
	assert.Equal(t, DMG, cart.Model())

	cart, err = NewCartridge(headerROM(0x00, 0x80))
	assert.NoError(t, err)
	assert.Equal(t, CGB, cart.Model(), "CGB-compatible flag")

	cart, err = NewCartridge(headerROM(0x00, 0xC0))
	assert.NoError(t, err)
	assert.Equal(t, CGB, cart.Model(), "CGB-only flag")
}

func TestCartridgeTitle(t *testing.T) {
	cart, err := NewCartridge(headerROM(0x00, 0))
	assert.NoError(t, err)
	assert.Equal(t, "TESTCART", cart.Title())
}

func TestBootROMOverlay(t *testing.T) {
	rom := headerROM(0x00, 0)
	rom[0x0000] = 0xAA

	cart, err := NewCartridge(rom)
	assert.NoError(t, err)

	boot := make([]byte, 0x100)
	boot[0x0000] = 0xBB
	cart.SetBootROM(boot)

	assert.Equal(t, uint8(0xBB), cart.ReadROM(0x0000), "boot ROM overlays low addresses")
	assert.Equal(t, uint8(0xFE), cart.ReadBank())

	cart.WriteBank(0x00)
	assert.Equal(t, uint8(0xBB), cart.ReadROM(0x0000), "writing zero keeps the overlay")

	cart.WriteBank(0x01)
	assert.Equal(t, uint8(0xAA), cart.ReadROM(0x0000), "non-zero write unmaps the boot ROM")
	assert.Equal(t, uint8(0xFF), cart.ReadBank())

	cart.WriteBank(0x00)
	assert.Equal(t, uint8(0xAA), cart.ReadROM(0x0000), "the overlay never comes back")
}
