package memory

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Battery persists external RAM to a sidecar file so games keep their saves
// across runs. MBC variants without a battery get a nil *Battery and skip
// persistence entirely.
type Battery struct {
	path string
}

var saveDir = "."

// SetSaveDir changes where battery files are written. The host shell points
// this at the ROM's directory.
func SetSaveDir(dir string) {
	if dir != "" {
		saveDir = dir
	}
}

// newBattery derives a save file name from the cartridge title and header
// checksum, so two carts with the same title don't clobber each other.
func newBattery(title string, checksum uint8) *Battery {
	name := fmt.Sprintf("%s-%02x.sav", sanitize(title), checksum)
	return &Battery{path: filepath.Join(saveDir, name)}
}

func sanitize(title string) string {
	if title == "" {
		return "cart"
	}
	out := make([]byte, 0, len(title))
	for i := 0; i < len(title); i++ {
		c := title[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// Load reads the save file into ram. Missing files are fine: first run.
func (b *Battery) Load(ram []uint8) {
	if b == nil {
		return
	}
	data, err := os.ReadFile(b.path)
	if err != nil {
		return
	}
	copy(ram, data)
	slog.Debug("battery RAM loaded", "path", b.path, "size", len(data))
}

// Save writes ram to the save file.
func (b *Battery) Save(ram []uint8) {
	if b == nil || len(ram) == 0 {
		return
	}
	if err := os.WriteFile(b.path, ram, 0o644); err != nil {
		slog.Warn("failed to persist battery RAM", "path", b.path, "error", err)
	}
}
