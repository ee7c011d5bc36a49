package monitor

import (
	"image/color"
	"testing"

	"ember/hal"
)

func TestSplitKeepsPanesApart(t *testing.T) {
	lh := lineHeight()
	fb := newMemFB(64, int(6*lh))
	mon, con := Split(fb, 2)

	if got := mon.Rows(); got != 4 {
		t.Fatalf("Rows() = %d, want 4", got)
	}
	if err := mon.Draw(nil, 0); err != nil {
		t.Fatalf("Draw() = %v", err)
	}
	bg := hal.RGB565(colorBG.R, colorBG.G, colorBG.B)
	for y := int(4 * lh); y < fb.h; y++ {
		for x := 0; x < fb.w; x++ {
			if fb.pixel(x, y) == bg {
				t.Fatalf("Draw() painted console row %d", y)
			}
		}
	}

	before := fb.presents
	if n, err := con.Write([]byte("ps\n")); n != 3 || err != nil {
		t.Fatalf("Write() = %d, %v, want 3, nil", n, err)
	}
	if fb.presents != before+1 {
		t.Fatalf("presents = %d, want %d", fb.presents, before+1)
	}
	lit := 0
	for y := int(4 * lh); y < fb.h; y++ {
		for x := 0; x < fb.w; x++ {
			if p := fb.pixel(x, y); p != 0 && p != bg {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Fatalf("Write() drew nothing in the console pane")
	}
	if fb.count(bg) == 0 {
		t.Fatalf("Write() overwrote the monitor pane")
	}
}

func TestScrollBufferShowsFromScrollRow(t *testing.T) {
	fb := newMemFB(2, 6)
	band := NewScreen(fb).Band(2, 4)
	s := &scrollBuffer{band: band, w: 2, h: 4, mem: make([]uint16, 8)}

	colors := []color.RGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{B: 255, A: 255},
		{R: 255, G: 255, A: 255},
	}
	for y, c := range colors {
		if err := s.FillRectangle(-1, int16(y), 5, 1, c); err != nil {
			t.Fatalf("FillRectangle() = %v", err)
		}
	}
	s.SetScroll(5)
	if err := s.Display(); err != nil {
		t.Fatalf("Display() = %v", err)
	}

	for row := 0; row < 4; row++ {
		c := colors[(row+1)%4]
		want := hal.RGB565(c.R, c.G, c.B)
		for x := 0; x < 2; x++ {
			if got := fb.pixel(x, row+2); got != want {
				t.Fatalf("pixel(%d,%d) = %#04x, want %#04x", x, row+2, got, want)
			}
		}
	}
	for y := 0; y < 2; y++ {
		if got := fb.pixel(0, y); got != 0 {
			t.Fatalf("pixel(0,%d) = %#04x, want untouched", y, got)
		}
	}
}

func TestConsoleWithoutRoom(t *testing.T) {
	for _, fb := range []hal.Framebuffer{nil, newMemFB(64, int(lineHeight())-1)} {
		_, con := Split(fb, 4)
		if n, err := con.Write([]byte("hello\n")); n != 6 || err != nil {
			t.Fatalf("Write() = %d, %v, want 6, nil", n, err)
		}
	}
}

func TestScreenBandClips(t *testing.T) {
	fb := newMemFB(4, 4)
	band := NewScreen(fb).Band(1, 10)
	if _, h := band.Size(); h != 3 {
		t.Fatalf("Band(1, 10) height = %d, want 3", h)
	}
	band.Clear(color.RGBA{R: 255, A: 255})
	red := hal.RGB565(255, 0, 0)
	if n := fb.count(red); n != 12 {
		t.Fatalf("Clear() painted %d pixels, want 12", n)
	}
	if got := fb.pixel(0, 0); got != 0 {
		t.Fatalf("pixel(0,0) = %#04x, want untouched", got)
	}
}
