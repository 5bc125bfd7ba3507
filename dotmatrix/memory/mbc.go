package memory

// MBC is the contract every memory bank controller variant implements.
// ReadROM/WriteROM cover bus traffic in 0x0000-0x7FFF, ReadRAM/WriteRAM in
// 0xA000-0xBFFF, and Persist flushes battery-backed RAM if the variant
// carries a battery.
type MBC interface {
	ReadROM(address uint16) uint8
	WriteROM(address uint16, value uint8)
	ReadRAM(address uint16) uint8
	WriteRAM(address uint16, value uint8)
	Persist()
}

// NoMBC represents cartridges with no banking hardware at all: 32KB of ROM
// mapped flat at 0x0000-0x7FFF and no external RAM.
type NoMBC struct {
	rom []uint8
}

func newNoMBC(rom []uint8) *NoMBC {
	return &NoMBC{rom: rom}
}

func (m *NoMBC) ReadROM(address uint16) uint8 {
	if int(address) >= len(m.rom) {
		return 0xFF
	}
	return m.rom[address]
}

func (m *NoMBC) WriteROM(address uint16, value uint8) {}

func (m *NoMBC) ReadRAM(address uint16) uint8 { return 0xFF }

func (m *NoMBC) WriteRAM(address uint16, value uint8) {}

func (m *NoMBC) Persist() {}

// MBC1 supports up to 2MB ROM and 32KB RAM with two banking modes:
// mode 0 routes the 2-bit secondary register to the ROM bank's upper bits,
// mode 1 routes it to the RAM bank select instead.
type MBC1 struct {
	rom         []uint8
	ram         []uint8
	romBank     uint8
	ramBank     uint8
	ramEnabled  bool
	bankingMode uint8
	battery     *Battery
}

func newMBC1(rom []uint8, ramBanks int, battery *Battery) *MBC1 {
	m := &MBC1{
		rom:     rom,
		ram:     make([]uint8, ramBanks*0x2000),
		romBank: 1,
		battery: battery,
	}
	m.battery.Load(m.ram)
	return m
}

func (m *MBC1) ReadROM(address uint16) uint8 {
	if address <= 0x3FFF {
		return m.rom[address]
	}
	offset := uint32(m.romBank) * romBankSize
	if offset >= uint32(len(m.rom)) {
		offset %= uint32(len(m.rom))
	}
	return m.rom[offset+uint32(address-0x4000)]
}

func (m *MBC1) WriteROM(address uint16, value uint8) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case address <= 0x3FFF:
		bank := value & 0x1F
		if bank == 0 {
			bank = 1
		}
		m.romBank = (m.romBank & 0x60) | bank
	case address <= 0x5FFF:
		if m.bankingMode == 0 {
			m.romBank = (m.romBank & 0x1F) | ((value & 0x03) << 5)
		} else {
			m.ramBank = value & 0x03
		}
	default:
		m.bankingMode = value & 0x01
		if m.bankingMode == 1 {
			m.romBank &= 0x1F
		}
	}
}

func (m *MBC1) ReadRAM(address uint16) uint8 {
	if !m.ramEnabled || len(m.ram) == 0 {
		return 0xFF
	}
	offset := uint32(m.ramBank) * 0x2000
	if offset >= uint32(len(m.ram)) {
		offset %= uint32(len(m.ram))
	}
	return m.ram[offset+uint32(address-0xA000)]
}

func (m *MBC1) WriteRAM(address uint16, value uint8) {
	if !m.ramEnabled || len(m.ram) == 0 {
		return
	}
	offset := uint32(m.ramBank) * 0x2000
	if offset >= uint32(len(m.ram)) {
		offset %= uint32(len(m.ram))
	}
	m.ram[offset+uint32(address-0xA000)] = value
}

func (m *MBC1) Persist() {
	m.battery.Save(m.ram)
}

// MBC2 has a built-in 512x4-bit RAM and a single 4-bit ROM bank register.
// Bit 8 of the address selects between RAM-enable and ROM-bank writes.
type MBC2 struct {
	rom        []uint8
	ram        []uint8
	romBank    uint8
	ramEnabled bool
	battery    *Battery
}

func newMBC2(rom []uint8, battery *Battery) *MBC2 {
	m := &MBC2{
		rom:     rom,
		ram:     make([]uint8, 512),
		romBank: 1,
		battery: battery,
	}
	m.battery.Load(m.ram)
	return m
}

func (m *MBC2) ReadROM(address uint16) uint8 {
	if address <= 0x3FFF {
		return m.rom[address]
	}
	offset := uint32(m.romBank) * romBankSize
	if offset >= uint32(len(m.rom)) {
		offset %= uint32(len(m.rom))
	}
	return m.rom[offset+uint32(address-0x4000)]
}

func (m *MBC2) WriteROM(address uint16, value uint8) {
	if address > 0x3FFF {
		return
	}
	if address&0x100 == 0 {
		m.ramEnabled = (value & 0x0F) == 0x0A
	} else {
		bank := value & 0x0F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	}
}

func (m *MBC2) ReadRAM(address uint16) uint8 {
	if !m.ramEnabled {
		return 0xFF
	}
	// Only 512 half-bytes exist; the region echoes and the upper nibble is open.
	return 0xF0 | (m.ram[(address-0xA000)&0x1FF] & 0x0F)
}

func (m *MBC2) WriteRAM(address uint16, value uint8) {
	if !m.ramEnabled {
		return
	}
	m.ram[(address-0xA000)&0x1FF] = value & 0x0F
}

func (m *MBC2) Persist() {
	m.battery.Save(m.ram)
}

// MBC3 adds a real-time clock next to MBC1-style banking. RAM bank values
// 0x08-0x0C map the RTC registers into the external RAM window.
type MBC3 struct {
	rom        []uint8
	ram        []uint8
	rtc        [5]uint8
	romBank    uint8
	ramBank    uint8
	ramEnabled bool
	hasRTC     bool
	battery    *Battery
}

func newMBC3(rom []uint8, ramBanks int, battery *Battery, hasRTC bool) *MBC3 {
	m := &MBC3{
		rom:     rom,
		ram:     make([]uint8, ramBanks*0x2000),
		romBank: 1,
		hasRTC:  hasRTC,
		battery: battery,
	}
	m.battery.Load(m.ram)
	return m
}

func (m *MBC3) ReadROM(address uint16) uint8 {
	if address <= 0x3FFF {
		return m.rom[address]
	}
	offset := uint32(m.romBank) * romBankSize
	if offset >= uint32(len(m.rom)) {
		offset %= uint32(len(m.rom))
	}
	return m.rom[offset+uint32(address-0x4000)]
}

func (m *MBC3) WriteROM(address uint16, value uint8) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case address <= 0x3FFF:
		bank := value & 0x7F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	case address <= 0x5FFF:
		m.ramBank = value & 0x0F
	default:
		// Latch clock data; a 0x00->0x01 sequence snapshots the RTC. The
		// counters here don't advance, so latching is a no-op.
	}
}

func (m *MBC3) ReadRAM(address uint16) uint8 {
	if !m.ramEnabled {
		return 0xFF
	}
	if m.ramBank >= 0x08 && m.ramBank <= 0x0C {
		if !m.hasRTC {
			return 0xFF
		}
		return m.rtc[m.ramBank-0x08]
	}
	if len(m.ram) == 0 {
		return 0xFF
	}
	offset := uint32(m.ramBank&0x03) * 0x2000
	if offset >= uint32(len(m.ram)) {
		offset %= uint32(len(m.ram))
	}
	return m.ram[offset+uint32(address-0xA000)]
}

func (m *MBC3) WriteRAM(address uint16, value uint8) {
	if !m.ramEnabled {
		return
	}
	if m.ramBank >= 0x08 && m.ramBank <= 0x0C {
		if m.hasRTC {
			m.rtc[m.ramBank-0x08] = value
		}
		return
	}
	if len(m.ram) == 0 {
		return
	}
	offset := uint32(m.ramBank&0x03) * 0x2000
	if offset >= uint32(len(m.ram)) {
		offset %= uint32(len(m.ram))
	}
	m.ram[offset+uint32(address-0xA000)] = value
}

func (m *MBC3) Persist() {
	m.battery.Save(m.ram)
}

// MBC5 carries a 9-bit ROM bank register (bank 0 is directly selectable) and
// up to 16 RAM banks. The rumble variant repurposes RAM-bank bit 3 for the
// motor, so it is masked off bank selection.
type MBC5 struct {
	rom        []uint8
	ram        []uint8
	romBank    uint16
	ramBank    uint8
	ramEnabled bool
	hasRumble  bool
	battery    *Battery
}

func newMBC5(rom []uint8, ramBanks int, battery *Battery, hasRumble bool) *MBC5 {
	m := &MBC5{
		rom:       rom,
		ram:       make([]uint8, ramBanks*0x2000),
		romBank:   1,
		hasRumble: hasRumble,
		battery:   battery,
	}
	m.battery.Load(m.ram)
	return m
}

func (m *MBC5) ReadROM(address uint16) uint8 {
	if address <= 0x3FFF {
		return m.rom[address]
	}
	offset := uint32(m.romBank) * romBankSize
	if offset >= uint32(len(m.rom)) {
		offset %= uint32(len(m.rom))
	}
	return m.rom[offset+uint32(address-0x4000)]
}

func (m *MBC5) WriteROM(address uint16, value uint8) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case address <= 0x2FFF:
		m.romBank = (m.romBank & 0x100) | uint16(value)
	case address <= 0x3FFF:
		m.romBank = (m.romBank & 0xFF) | (uint16(value&0x01) << 8)
	case address <= 0x5FFF:
		bank := value
		if m.hasRumble {
			bank &= 0x07
		} else {
			bank &= 0x0F
		}
		m.ramBank = bank
	}
}

func (m *MBC5) ReadRAM(address uint16) uint8 {
	if !m.ramEnabled || len(m.ram) == 0 {
		return 0xFF
	}
	offset := uint32(m.ramBank) * 0x2000
	if offset >= uint32(len(m.ram)) {
		offset %= uint32(len(m.ram))
	}
	return m.ram[offset+uint32(address-0xA000)]
}

func (m *MBC5) WriteRAM(address uint16, value uint8) {
	if !m.ramEnabled || len(m.ram) == 0 {
		return
	}
	offset := uint32(m.ramBank) * 0x2000
	if offset >= uint32(len(m.ram)) {
		offset %= uint32(len(m.ram))
	}
	m.ram[offset+uint32(address-0xA000)] = value
}

func (m *MBC5) Persist() {
	m.battery.Save(m.ram)
}
