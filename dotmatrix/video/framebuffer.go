package video

const (
	// FramebufferWidth is the LCD width in pixels.
	FramebufferWidth = 160
	// FramebufferHeight is the LCD height in pixels.
	FramebufferHeight = 144
	// FramebufferSize is the pixel count of one full frame.
	FramebufferSize = FramebufferWidth * FramebufferHeight
)

// dmgShades maps the four monochrome shade indices to RGBA, lightest first.
var dmgShades = [4]uint32{0xFFFFFFFF, 0x989898FF, 0x4C4C4CFF, 0x000000FF}

// FrameBuffer holds one rendered frame. On DMG each pixel is a 2-bit shade
// index (0 = lightest); on CGB each pixel is a packed RGB555 color.
type FrameBuffer struct {
	color  bool
	pixels []uint16
}

// NewFrameBuffer allocates a cleared frame buffer.
func NewFrameBuffer(color bool) *FrameBuffer {
	return &FrameBuffer{
		color:  color,
		pixels: make([]uint16, FramebufferSize),
	}
}

// At returns the raw pixel value at (x, y).
func (fb *FrameBuffer) At(x, y int) uint16 {
	return fb.pixels[y*FramebufferWidth+x]
}

// SetPixel stores a raw pixel value at (x, y).
func (fb *FrameBuffer) SetPixel(x, y int, value uint16) {
	fb.pixels[y*FramebufferWidth+x] = value
}

// RGBA expands the pixel at (x, y) to 0xRRGGBBAA for host rendering.
func (fb *FrameBuffer) RGBA(x, y int) uint32 {
	v := fb.At(x, y)
	if !fb.color {
		return dmgShades[v&0x03]
	}

	r := uint32(v&0x1F) << 3
	g := uint32((v>>5)&0x1F) << 3
	b := uint32((v>>10)&0x1F) << 3
	return r<<24 | g<<16 | b<<8 | 0xFF
}

// ToSlice exposes the raw pixel storage.
func (fb *FrameBuffer) ToSlice() []uint16 {
	return fb.pixels
}

// CopyInto duplicates the frame into dst.
func (fb *FrameBuffer) CopyInto(dst *FrameBuffer) {
	copy(dst.pixels, fb.pixels)
	dst.color = fb.color
}
