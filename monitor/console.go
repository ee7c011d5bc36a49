package monitor

import (
	"image/color"

	"ember/hal"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyterm"
)

// Console mirrors a byte stream, typically the shell output, in a text pane.
// A Console without room for one line of text discards what it is given.
type Console struct {
	buf  *scrollBuffer
	term *tinyterm.Terminal
}

func newConsole(band *Screen, font *tinyfont.Font, lineHeight, ascent int16) *Console {
	w, h := band.Size()
	if w <= 0 || lineHeight <= 0 || h < lineHeight {
		return &Console{}
	}
	h -= h % lineHeight
	buf := &scrollBuffer{band: band.Band(0, h), w: w, h: h, mem: make([]uint16, int(w)*int(h))}
	term := tinyterm.NewTerminal(buf)
	term.Configure(&tinyterm.Config{
		Font:       font,
		FontHeight: lineHeight,
		FontOffset: ascent,
	})
	return &Console{buf: buf, term: term}
}

// Write draws p and presents the pane. Backspaces move the cursor left.
func (c *Console) Write(p []byte) (int, error) {
	if c.term == nil {
		return len(p), nil
	}
	start := 0
	for i, b := range p {
		if b != '\b' {
			continue
		}
		_, _ = c.term.Write(p[start:i])
		_, _ = c.term.Write([]byte("\x1b[D"))
		start = i + 1
	}
	_, _ = c.term.Write(p[start:])
	if err := c.buf.Display(); err != nil {
		return len(p), err
	}
	return len(p), nil
}

// scrollBuffer gives the terminal a display with hardware scrolling: rows
// are drawn into mem and shown starting at row scroll.
type scrollBuffer struct {
	band   *Screen
	w, h   int16
	scroll int16
	mem    []uint16
}

var _ tinyterm.Displayer = (*scrollBuffer)(nil)

func (s *scrollBuffer) Size() (x, y int16) { return s.w, s.h }

func (s *scrollBuffer) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || x >= s.w || y < 0 || y >= s.h {
		return
	}
	s.mem[int(y)*int(s.w)+int(x)] = hal.RGB565(c.R, c.G, c.B)
}

func (s *scrollBuffer) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+width, s.w), min(y+height, s.h)
	pixel := hal.RGB565(c.R, c.G, c.B)
	for py := y0; py < y1; py++ {
		row := s.mem[int(py)*int(s.w):]
		for px := x0; px < x1; px++ {
			row[px] = pixel
		}
	}
	return nil
}

func (s *scrollBuffer) SetScroll(line int16) {
	if s.h > 0 {
		s.scroll = (line%s.h + s.h) % s.h
	}
}

func (s *scrollBuffer) SetRotation(drivers.Rotation) error { return nil }

// Display copies mem into the band, oldest row first, and presents it.
func (s *scrollBuffer) Display() error {
	for y := int16(0); y < s.h; y++ {
		src := s.mem[int((y+s.scroll)%s.h)*int(s.w):]
		for x := int16(0); x < s.w; x++ {
			s.band.setRGB565(x, y, src[x])
		}
	}
	return s.band.Display()
}
