package memory

import (
	"fmt"
	"log/slog"
	"strings"
)

// Model identifies which console revision is being emulated. It is fixed at
// construction time and gates every CGB-only register on the bus.
type Model uint8

const (
	// DMG is the original monochrome Game Boy.
	DMG Model = iota
	// CGB is the Game Boy Color.
	CGB
)

func (m Model) String() string {
	if m == CGB {
		return "CGB"
	}
	return "DMG"
}

const titleLength = 11

const (
	titleAddress          = 0x134
	cgbFlagAddress        = 0x143
	cartridgeTypeAddress  = 0x147
	romSizeAddress        = 0x148
	ramSizeAddress        = 0x149
	versionNumberAddress  = 0x14C
	headerChecksumAddress = 0x14D
)

const romBankSize = 0x4000

// Cartridge couples the parsed header with the MBC variant picked for it and
// the optional boot ROM overlay. All bus accesses to 0x0000-0x7FFF and
// 0xA000-0xBFFF land here.
type Cartridge struct {
	mbc     MBC
	title   string
	typ     uint8
	version uint8
	model   Model

	bootROM     []byte
	bootEnabled bool
}

// NewCartridge builds a cartridge from raw ROM bytes. The MBC variant is
// picked from the header type byte; an unknown type is a construction
// failure surfaced to the host before any bus exists.
func NewCartridge(rom []byte) (*Cartridge, error) {
	if len(rom) < 0x150 {
		return nil, fmt.Errorf("cartridge: ROM too small (%d bytes)", len(rom))
	}

	title := strings.TrimRight(string(rom[titleAddress:titleAddress+titleLength]), "\x00")
	typ := rom[cartridgeTypeAddress]
	ramBanks := ramBankCount(rom[ramSizeAddress])

	model := DMG
	if rom[cgbFlagAddress]&0x80 != 0 {
		model = CGB
	}

	battery := newBattery(title, rom[headerChecksumAddress])

	var mbc MBC
	switch typ {
	case 0x00:
		mbc = newNoMBC(rom)
	case 0x01:
		mbc = newMBC1(rom, 0, nil)
	case 0x02:
		mbc = newMBC1(rom, ramBanks, nil)
	case 0x03:
		mbc = newMBC1(rom, ramBanks, battery)
	case 0x05:
		mbc = newMBC2(rom, nil)
	case 0x06:
		mbc = newMBC2(rom, battery)
	case 0x0F:
		mbc = newMBC3(rom, 0, battery, true)
	case 0x10:
		mbc = newMBC3(rom, ramBanks, battery, true)
	case 0x11:
		mbc = newMBC3(rom, 0, nil, false)
	case 0x12:
		mbc = newMBC3(rom, ramBanks, nil, false)
	case 0x13:
		mbc = newMBC3(rom, ramBanks, battery, false)
	case 0x19:
		mbc = newMBC5(rom, 0, nil, false)
	case 0x1A:
		mbc = newMBC5(rom, ramBanks, nil, false)
	case 0x1B:
		mbc = newMBC5(rom, ramBanks, battery, false)
	case 0x1C:
		mbc = newMBC5(rom, 0, nil, true)
	case 0x1D:
		mbc = newMBC5(rom, ramBanks, nil, true)
	case 0x1E:
		mbc = newMBC5(rom, ramBanks, battery, true)
	default:
		return nil, fmt.Errorf("cartridge: unsupported type byte 0x%02X", typ)
	}

	c := &Cartridge{
		mbc:     mbc,
		title:   title,
		typ:     typ,
		version: rom[versionNumberAddress],
		model:   model,
	}

	slog.Debug("cartridge loaded",
		"title", c.title,
		"type", fmt.Sprintf("0x%02X", typ),
		"rom_banks", 2<<rom[romSizeAddress],
		"ram_banks", ramBanks,
		"model", model.String())

	return c, nil
}

// ramBankCount translates the header RAM size code into 8 KiB bank count.
func ramBankCount(code uint8) int {
	switch code {
	case 0x02:
		return 1
	case 0x03:
		return 4
	case 0x04:
		return 16
	case 0x05:
		return 8
	default:
		return 0
	}
}

// Title returns the header title string.
func (c *Cartridge) Title() string { return c.title }

// Model returns the console model the header asks for.
func (c *Cartridge) Model() Model { return c.model }

// SetBootROM installs a boot ROM overlay mapped at 0x0000 until a non-zero
// write to the BANK register unmaps it.
func (c *Cartridge) SetBootROM(data []byte) {
	c.bootROM = data
	c.bootEnabled = len(data) > 0
}

// HasBootROM reports whether an overlay is installed (mapped or not).
func (c *Cartridge) HasBootROM() bool { return len(c.bootROM) > 0 }

// ReadROM handles bus reads in 0x0000-0x7FFF.
func (c *Cartridge) ReadROM(address uint16) uint8 {
	if c.bootEnabled && int(address) < len(c.bootROM) && address < 0x100 {
		return c.bootROM[address]
	}
	return c.mbc.ReadROM(address)
}

// WriteROM handles bus writes in 0x0000-0x7FFF (bank select registers).
func (c *Cartridge) WriteROM(address uint16, value uint8) {
	c.mbc.WriteROM(address, value)
}

// ReadRAM handles bus reads in 0xA000-0xBFFF.
func (c *Cartridge) ReadRAM(address uint16) uint8 {
	return c.mbc.ReadRAM(address)
}

// WriteRAM handles bus writes in 0xA000-0xBFFF.
func (c *Cartridge) WriteRAM(address uint16, value uint8) {
	c.mbc.WriteRAM(address, value)
}

// ReadBank reads the boot-bank register at 0xFF50.
func (c *Cartridge) ReadBank() uint8 {
	if c.bootEnabled {
		return 0xFE
	}
	return 0xFF
}

// WriteBank writes the boot-bank register; any non-zero value unmaps the
// boot ROM for good.
func (c *Cartridge) WriteBank(value uint8) {
	if value != 0 {
		c.bootEnabled = false
	}
}

// Persist flushes battery-backed RAM through the MBC, if any.
func (c *Cartridge) Persist() {
	c.mbc.Persist()
}
