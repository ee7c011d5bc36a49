package monitor

import (
	"image/color"

	"ember/hal"

	"tinygo.org/x/drivers"
)

var _ drivers.Displayer = (*Screen)(nil)

// Screen adapts a horizontal band of an RGB565 framebuffer to
// drivers.Displayer. Coordinates are relative to the band.
type Screen struct {
	fb     hal.Framebuffer
	top    int16
	height int16
}

// NewScreen returns a screen covering all of fb.
func NewScreen(fb hal.Framebuffer) *Screen {
	if fb == nil {
		return &Screen{}
	}
	return &Screen{fb: fb, height: int16(fb.Height())}
}

// Band returns a screen for rows [top, top+height) of d, clipped to d.
func (d *Screen) Band(top, height int16) *Screen {
	top = min(max(top, 0), d.height)
	height = min(max(height, 0), d.height-top)
	return &Screen{fb: d.fb, top: d.top + top, height: height}
}

func (d *Screen) Size() (x, y int16) {
	if d.fb == nil {
		return 0, 0
	}
	return int16(d.fb.Width()), d.height
}

func (d *Screen) SetPixel(x, y int16, c color.RGBA) {
	d.setRGB565(x, y, hal.RGB565(c.R, c.G, c.B))
}

func (d *Screen) setRGB565(x, y int16, pixel uint16) {
	if d.fb == nil || d.fb.Format() != hal.PixelFormatRGB565 {
		return
	}
	buf := d.fb.Buffer()
	if buf == nil {
		return
	}

	if x < 0 || int(x) >= d.fb.Width() || y < 0 || y >= d.height {
		return
	}
	off := int(d.top+y)*d.fb.StrideBytes() + int(x)*2
	if off < 0 || off+1 >= len(buf) {
		return
	}
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

// FillRectangle paints a clipped rectangle without presenting it.
func (d *Screen) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	if d.fb == nil {
		return nil
	}
	w, h := d.Size()
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+width, w), min(y+height, h)
	pixel := hal.RGB565(c.R, c.G, c.B)
	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			d.setRGB565(px, py, pixel)
		}
	}
	return nil
}

// Display presents the framebuffer.
func (d *Screen) Display() error {
	if d.fb == nil {
		return nil
	}
	return d.fb.Present()
}

// Clear fills the band with c without presenting it.
func (d *Screen) Clear(c color.RGBA) {
	if d.fb == nil {
		return
	}
	if d.top == 0 && int(d.height) == d.fb.Height() {
		d.fb.ClearRGB(c.R, c.G, c.B)
		return
	}
	w, h := d.Size()
	_ = d.FillRectangle(0, 0, w, h, c)
}
