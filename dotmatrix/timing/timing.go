package timing

import "time"

const (
	// CyclesPerFrame is the number of T-cycles in one full LCD frame at base speed.
	CyclesPerFrame = 70224
	// CPUFrequency is the base clock in Hz. Double-speed mode doubles the CPU
	// and timer clocks but leaves the PPU/APU at this rate.
	CPUFrequency = 4194304
)

// FramesPerSecond returns the hardware refresh rate (~59.7 Hz).
func FramesPerSecond() float64 {
	return float64(CPUFrequency) / float64(CyclesPerFrame)
}

// FrameDuration returns the target duration of a single frame.
func FrameDuration() time.Duration {
	return time.Duration(float64(time.Second) / FramesPerSecond())
}
