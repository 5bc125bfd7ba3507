package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/urfave/cli"

	"github.com/marcellod/dotmatrix/dotmatrix"
	"github.com/marcellod/dotmatrix/dotmatrix/memory"
	"github.com/marcellod/dotmatrix/dotmatrix/timing"
	"github.com/marcellod/dotmatrix/dotmatrix/video"
)

const (
	// Terminal characters are taller than wide; double the width to keep the
	// aspect ratio roughly right.
	scaleX = 2

	// How many frames a key stays pressed after its event, since terminals
	// deliver no key-up.
	keyHoldFrames = 6
)

// Shades from darkest to lightest for the monochrome renderer.
var shadeChars = []rune{'█', '▓', '▒', '░'}

// joypad bit indices in the machine's active-low status byte
const (
	keyRight = iota
	keyLeft
	keyUp
	keyDown
	keyA
	keyB
	keySelect
	keyStart
)

func main() {
	app := cli.NewApp()
	app.Name = "dotmatrix"
	app.Description = "A Game Boy and Game Boy Color emulator for the terminal"
	app.Usage = "dotmatrix [options] <ROM file>"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.StringFlag{
			Name:  "model",
			Usage: "Console model: auto, dmg or cgb",
			Value: "auto",
		},
		cli.StringFlag{
			Name:  "bootrom",
			Usage: "Optional boot ROM to run before the cartridge",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run without a display and dump the serial log",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Frame count for headless runs",
			Value: 600,
		},
	}
	app.Action = runEmulator

	if err := app.Run(os.Args); err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	var opts []dotmatrix.Option
	switch strings.ToLower(c.String("model")) {
	case "auto":
	case "dmg":
		opts = append(opts, dotmatrix.WithModel(memory.DMG))
	case "cgb":
		opts = append(opts, dotmatrix.WithModel(memory.CGB))
	default:
		return fmt.Errorf("unknown model %q", c.String("model"))
	}

	if path := c.String("bootrom"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("loading boot ROM: %w", err)
		}
		opts = append(opts, dotmatrix.WithBootROM(data))
	}

	machine, err := dotmatrix.NewWithFile(romPath, opts...)
	if err != nil {
		return err
	}
	defer machine.Persist()

	if c.Bool("headless") {
		return runHeadless(machine, c.Int("frames"))
	}

	renderer, err := newTerminalRenderer(machine)
	if err != nil {
		return err
	}
	return renderer.run()
}

// runHeadless executes a fixed number of frames and prints whatever the
// program wrote to the serial port. Handy for test ROMs.
func runHeadless(machine *dotmatrix.Machine, frames int) error {
	for i := 0; i < frames; i++ {
		machine.RunUntilFrame()
	}

	if out := machine.SerialOutput(); out != "" {
		fmt.Print(out)
	}
	slog.Info("headless run finished",
		"frames", machine.FrameCount(),
		"instructions", machine.InstructionCount())
	return nil
}

type terminalRenderer struct {
	screen  tcell.Screen
	machine *dotmatrix.Machine
	running bool

	mu      sync.Mutex
	keyHold [8]int
}

func newTerminalRenderer(machine *dotmatrix.Machine) (*terminalRenderer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}

	return &terminalRenderer{
		screen:  screen,
		machine: machine,
		running: true,
	}, nil
}

func (t *terminalRenderer) run() error {
	defer func() {
		slog.Info("Finishing terminal")
		t.screen.Fini()
	}()

	t.screen.SetStyle(tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite))
	t.screen.Clear()

	go t.handleInput()

	ticker := time.NewTicker(timing.FrameDuration())
	defer ticker.Stop()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	for t.running {
		select {
		case <-ticker.C:
			t.machine.UpdateJoypad(t.joypadStatus())
			fb := t.machine.RunUntilFrame()
			if fb != nil {
				t.render(fb)
				t.screen.Show()
			}
		case <-signals:
			t.running = false
			slog.Info("Received signal to stop")
			return nil
		}
	}

	return nil
}

// joypadStatus derives the active-low button byte and decays held keys.
func (t *terminalRenderer) joypadStatus() uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := uint8(0xFF)
	for i := range t.keyHold {
		if t.keyHold[i] > 0 {
			t.keyHold[i]--
			status &^= 1 << i
		}
	}
	return status
}

func (t *terminalRenderer) press(key int) {
	t.mu.Lock()
	t.keyHold[key] = keyHoldFrames
	t.mu.Unlock()
}

func (t *terminalRenderer) handleInput() {
	for t.running {
		ev := t.screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEscape:
				t.running = false
				return
			case tcell.KeyUp:
				t.press(keyUp)
			case tcell.KeyDown:
				t.press(keyDown)
			case tcell.KeyLeft:
				t.press(keyLeft)
			case tcell.KeyRight:
				t.press(keyRight)
			case tcell.KeyEnter:
				t.press(keyStart)
			case tcell.KeyTab:
				t.press(keySelect)
			case tcell.KeyRune:
				switch ev.Rune() {
				case 'z', 'Z':
					t.press(keyA)
				case 'x', 'X':
					t.press(keyB)
				}
			}
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

func (t *terminalRenderer) render(fb *video.FrameBuffer) {
	t.screen.Clear()

	color := t.machine.Model() == memory.CGB

	for y := 0; y < video.FramebufferHeight; y++ {
		for x := 0; x < video.FramebufferWidth; x++ {
			var char rune
			style := tcell.StyleDefault

			if color {
				rgba := fb.RGBA(x, y)
				style = style.Foreground(tcell.NewRGBColor(
					int32(rgba>>24&0xFF), int32(rgba>>16&0xFF), int32(rgba>>8&0xFF)))
				char = '█'
			} else {
				// Pixel values are shade indices, 0 = lightest.
				shade := 3 - int(fb.At(x, y)&0x03)
				char = shadeChars[shade]
				style = style.Foreground(tcell.ColorWhite)
			}

			for sx := 0; sx < scaleX; sx++ {
				t.screen.SetContent(x*scaleX+sx, y, char, nil, style)
			}
		}
	}
}
