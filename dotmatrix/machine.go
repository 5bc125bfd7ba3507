package dotmatrix

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/marcellod/dotmatrix/dotmatrix/addr"
	"github.com/marcellod/dotmatrix/dotmatrix/bus"
	"github.com/marcellod/dotmatrix/dotmatrix/cpu"
	"github.com/marcellod/dotmatrix/dotmatrix/memory"
	"github.com/marcellod/dotmatrix/dotmatrix/timing"
	"github.com/marcellod/dotmatrix/dotmatrix/video"
)

// Machine is the assembled console: a CPU driving the bus, which owns every
// other component. It is the entry point hosts embed.
type Machine struct {
	cpu   *cpu.CPU
	bus   *bus.Bus
	model memory.Model

	frameCount       uint64
	instructionCount uint64
}

// Option configures machine construction.
type Option func(*config)

type config struct {
	model   memory.Model
	forced  bool
	bootROM []byte
}

// WithModel forces the console model instead of following the cartridge
// header's CGB flag.
func WithModel(model memory.Model) Option {
	return func(c *config) {
		c.model = model
		c.forced = true
	}
}

// WithBootROM installs a boot ROM; without one the machine boots directly
// into the cartridge with post-boot register state.
func WithBootROM(data []byte) Option {
	return func(c *config) {
		c.bootROM = data
	}
}

// New assembles a machine around raw cartridge ROM bytes.
func New(rom []byte, opts ...Option) (*Machine, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	cart, err := memory.NewCartridge(rom)
	if err != nil {
		return nil, err
	}

	model := cart.Model()
	if cfg.forced {
		model = cfg.model
	}

	m := &Machine{
		bus:   bus.New(cart, model),
		model: model,
	}
	m.cpu = cpu.New(m.bus)

	if len(cfg.bootROM) > 0 {
		cart.SetBootROM(cfg.bootROM)
	} else {
		m.seedPostBoot()
	}

	slog.Debug("machine assembled", "title", cart.Title(), "model", model.String())
	return m, nil
}

// NewWithFile loads a ROM file and assembles a machine for it. Battery
// saves land next to the ROM.
func NewWithFile(path string, opts ...Option) (*Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading ROM: %w", err)
	}

	memory.SetSaveDir(filepath.Dir(path))
	return New(data, opts...)
}

// seedPostBoot puts registers where the boot ROM would leave them.
func (m *Machine) seedPostBoot() {
	m.cpu.SeedPostBoot(m.model == memory.CGB)
	m.bus.SetTimerSeed(0xABCC)
	m.bus.WriteByte(addr.LCDC, 0x91)
	m.bus.WriteByte(addr.STAT, 0x81)
	m.bus.WriteByte(addr.BGP, 0xFC)
	m.bus.WriteByte(addr.IF, 0x01)
}

// Step executes a single instruction and returns its T-cycle cost.
func (m *Machine) Step() uint32 {
	m.instructionCount++
	return m.cpu.Step()
}

// RunUntilFrame executes instructions until the PPU completes a frame, and
// returns it. With the LCD disabled it gives up after four frames' worth of
// CPU cycles (two frames of base-clock time in double-speed mode) and
// returns nil.
func (m *Machine) RunUntilFrame() *video.FrameBuffer {
	// Double-speed mode spends twice the CPU cycles per frame.
	budget := uint32(timing.CyclesPerFrame * 4)

	var total uint32
	for total < budget {
		total += m.Step()
		if fb := m.bus.GetDisplayOutput(); fb != nil {
			m.frameCount++
			return fb
		}
	}
	return nil
}

// UpdateJoypad pushes the host's active-low button byte
// (START, SELECT, B, A, DOWN, UP, LEFT, RIGHT from bit 7 down).
func (m *Machine) UpdateJoypad(status uint8) {
	m.bus.UpdateJoypad(status)
}

// SerialOutput returns everything the program wrote to the serial port.
func (m *Machine) SerialOutput() string {
	return m.bus.SerialOutput()
}

// Bus exposes the system bus for debugging and tests.
func (m *Machine) Bus() *bus.Bus {
	return m.bus
}

// Model returns the emulated console model.
func (m *Machine) Model() memory.Model {
	return m.model
}

// FrameCount returns how many frames completed so far.
func (m *Machine) FrameCount() uint64 {
	return m.frameCount
}

// InstructionCount returns how many instructions executed so far.
func (m *Machine) InstructionCount() uint64 {
	return m.instructionCount
}

// Persist flushes battery-backed cartridge RAM to disk.
func (m *Machine) Persist() {
	m.bus.Persist()
}
