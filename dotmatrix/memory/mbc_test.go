package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// bankedROM builds a ROM where every byte holds its bank number.
func bankedROM(banks int) []uint8 {
	rom := make([]uint8, banks*romBankSize)
	for i := range rom {
		rom[i] = uint8(i / romBankSize)
	}
	return rom
}

func TestMBC1(t *testing.T) {
	t.Run("bank 0 is fixed", func(t *testing.T) {
		mbc := newMBC1(bankedROM(4), 0, nil)
		for a := uint16(0x0000); a < 0x4000; a += 0x100 {
			assert.Equal(t, uint8(0), mbc.ReadROM(a))
		}
	})

	t.Run("ROM bank switching", func(t *testing.T) {
		mbc := newMBC1(bankedROM(4), 0, nil)

		assert.Equal(t, uint8(1), mbc.ReadROM(0x4000), "bank 1 mapped by default")

		mbc.WriteROM(0x2000, 2)
		assert.Equal(t, uint8(2), mbc.ReadROM(0x4000))

		mbc.WriteROM(0x2000, 0)
		assert.Equal(t, uint8(1), mbc.ReadROM(0x4000), "bank 0 translates to 1")
	})

	t.Run("bank wraps past ROM end", func(t *testing.T) {
		mbc := newMBC1(bankedROM(8), 0, nil)
		mbc.WriteROM(0x2000, 5)
		mbc.WriteROM(0x4000, 1) // upper bits select bank 37; 37 % 8 = 5
		assert.Equal(t, uint8(5), mbc.ReadROM(0x4000))
	})

	t.Run("RAM enable and banking", func(t *testing.T) {
		mbc := newMBC1(bankedROM(2), 4, nil)

		assert.Equal(t, uint8(0xFF), mbc.ReadRAM(0xA000), "RAM disabled by default")
		mbc.WriteRAM(0xA000, 0x42)
		assert.Equal(t, uint8(0xFF), mbc.ReadRAM(0xA000), "writes while disabled are dropped")

		mbc.WriteROM(0x0000, 0x0A) // enable
		mbc.WriteROM(0x6000, 1)    // RAM banking mode

		for bank := uint8(0); bank < 4; bank++ {
			mbc.WriteROM(0x4000, bank)
			mbc.WriteRAM(0xA000, 0x40+bank)
		}
		for bank := uint8(0); bank < 4; bank++ {
			mbc.WriteROM(0x4000, bank)
			assert.Equal(t, uint8(0x40+bank), mbc.ReadRAM(0xA000), "bank %d", bank)
		}

		mbc.WriteROM(0x0000, 0x00) // disable again
		assert.Equal(t, uint8(0xFF), mbc.ReadRAM(0xA000))
	})
}

func TestMBC2(t *testing.T) {
	mbc := newMBC2(bankedROM(4), nil)

	t.Run("address bit 8 splits the control registers", func(t *testing.T) {
		mbc.WriteROM(0x0100, 3) // bit 8 set: ROM bank select
		assert.Equal(t, uint8(3), mbc.ReadROM(0x4000))

		mbc.WriteROM(0x0000, 0x0A) // bit 8 clear: RAM enable
		mbc.WriteRAM(0xA000, 0x5A)
		assert.Equal(t, uint8(0xFA), mbc.ReadRAM(0xA000), "only the low nibble is stored")
	})

	t.Run("built-in RAM echoes every 512 bytes", func(t *testing.T) {
		mbc.WriteRAM(0xA000, 0x07)
		assert.Equal(t, uint8(0xF7), mbc.ReadRAM(0xA200))
	})
}

func TestMBC3(t *testing.T) {
	mbc := newMBC3(bankedROM(8), 4, nil, true)
	mbc.WriteROM(0x0000, 0x0A)

	t.Run("7-bit ROM bank", func(t *testing.T) {
		mbc.WriteROM(0x2000, 5)
		assert.Equal(t, uint8(5), mbc.ReadROM(0x4000))
		mbc.WriteROM(0x2000, 0)
		assert.Equal(t, uint8(1), mbc.ReadROM(0x4000))
	})

	t.Run("RTC registers map over the RAM window", func(t *testing.T) {
		mbc.WriteROM(0x4000, 0x08) // RTC seconds
		mbc.WriteRAM(0xA000, 42)
		assert.Equal(t, uint8(42), mbc.ReadRAM(0xA000))

		mbc.WriteROM(0x4000, 0x00) // back to RAM bank 0
		mbc.WriteRAM(0xA000, 0x11)
		assert.Equal(t, uint8(0x11), mbc.ReadRAM(0xA000))

		mbc.WriteROM(0x4000, 0x08)
		assert.Equal(t, uint8(42), mbc.ReadRAM(0xA000), "RTC state is separate from RAM")
	})
}

func TestMBC5(t *testing.T) {
	mbc := newMBC5(bankedROM(8), 2, nil, false)

	t.Run("9-bit ROM bank with direct bank 0", func(t *testing.T) {
		mbc.WriteROM(0x2000, 0)
		assert.Equal(t, uint8(0), mbc.ReadROM(0x4000), "MBC5 maps bank 0 directly")

		mbc.WriteROM(0x2000, 3)
		assert.Equal(t, uint8(3), mbc.ReadROM(0x4000))

		mbc.WriteROM(0x3000, 1) // ninth bit: bank 259 wraps over 8 banks
		assert.Equal(t, uint8(3), mbc.ReadROM(0x4000))
	})

	t.Run("RAM banking", func(t *testing.T) {
		mbc.WriteROM(0x0000, 0x0A)
		mbc.WriteROM(0x4000, 0)
		mbc.WriteRAM(0xA000, 0x10)
		mbc.WriteROM(0x4000, 1)
		mbc.WriteRAM(0xA000, 0x20)

		mbc.WriteROM(0x4000, 0)
		assert.Equal(t, uint8(0x10), mbc.ReadRAM(0xA000))
		mbc.WriteROM(0x4000, 1)
		assert.Equal(t, uint8(0x20), mbc.ReadRAM(0xA000))
	})
}
