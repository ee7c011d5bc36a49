// Package monitor draws kernel diagnostics into a framebuffer: a ps-style
// thread table refreshed from a kernel thread, and a panic screen.
package monitor

import (
	"fmt"
	"image/color"
	"strings"
	"unicode/utf8"

	"ember/hal"
	"ember/internal/buildinfo"
	"ember/kernel"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

var (
	colorBG      = color.RGBA{R: 0x10, G: 0x18, B: 0x20, A: 255}
	colorFG      = color.RGBA{R: 0xD0, G: 0xE0, B: 0xD0, A: 255}
	colorTitle   = color.RGBA{R: 0xFF, G: 0xC0, B: 0x40, A: 255}
	colorPanicBG = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorPanicFG = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// Monitor renders text lines with a fixed-width font.
type Monitor struct {
	// screen holds the thread table; full is the whole framebuffer, used
	// by the panic screen.
	screen *Screen
	full   *Screen
	font   *tinyfont.Font

	lineHeight int16
	ascent     int16
	charWidth  int16
}

// New returns a monitor drawing into fb. fb may be nil, in which case every
// draw is a no-op.
func New(fb hal.Framebuffer) *Monitor {
	full := NewScreen(fb)
	return newMonitor(full, full)
}

// Split divides fb between a monitor on top and a console of consoleRows
// text lines below it.
func Split(fb hal.Framebuffer, consoleRows int16) (*Monitor, *Console) {
	full := NewScreen(fb)
	lh := lineHeight()
	_, h := full.Size()
	ch := min(consoleRows*lh, h)
	mon := newMonitor(full.Band(0, h-ch), full)
	return mon, newConsole(full.Band(h-ch, ch), mon.font, lh, mon.ascent)
}

func lineHeight() int16 {
	if lh := int16(proggy.TinySZ8pt7b.YAdvance); lh > 0 {
		return lh
	}
	return 12
}

func newMonitor(screen, full *Screen) *Monitor {
	font := &proggy.TinySZ8pt7b
	lh := lineHeight()
	_, outbox := tinyfont.LineWidth(font, "0")
	cw := int16(outbox)
	if cw <= 0 {
		cw = 6
	}

	return &Monitor{
		screen:     screen,
		full:       full,
		font:       font,
		lineHeight: lh,
		ascent:     lh - lh/4,
		charWidth:  cw,
	}
}

// Columns returns how many characters fit on one line.
func (m *Monitor) Columns() int16 {
	w, _ := m.screen.Size()
	return max(w/m.charWidth, 1)
}

// Rows returns how many lines fit on the screen.
func (m *Monitor) Rows() int16 {
	_, h := m.screen.Size()
	return h / m.lineHeight
}

// Draw renders the thread table and presents it.
func (m *Monitor) Draw(threads []kernel.ThreadInfo, ticks uint64) error {
	if m.screen.fb == nil {
		return nil
	}
	m.screen.Clear(colorBG)

	y := int16(0)
	y = m.line(0, y, "ember "+buildinfo.Short(), colorTitle)
	y = m.line(0, y, Summary(threads, ticks), colorFG)
	for _, s := range FormatThreads(threads) {
		if y+m.lineHeight > m.screen.height {
			break
		}
		y = m.line(0, y, s, colorFG)
	}
	return m.screen.Display()
}

// DrawPanic renders info as black on white, wrapping long lines, and
// presents the result.
func (m *Monitor) DrawPanic(info kernel.PanicInfo) error {
	if m.full.fb == nil {
		return nil
	}
	m.full.Clear(colorPanicBG)

	lines := PanicLines(info)
	cols := m.Columns()
	_, maxH := m.full.Size()

	y := int16(0)
	for _, line := range lines {
		for len(line) > 0 {
			if y+m.lineHeight > maxH {
				return m.full.Display()
			}
			chunk, rest := takeRunes(line, cols)
			y = m.lineOn(m.full, 0, y, chunk, colorPanicFG)
			line = strings.TrimLeft(rest, " ")
		}
	}
	return m.full.Display()
}

// PanicLines is the text of the panic screen, also written to the log.
func PanicLines(info kernel.PanicInfo) []string {
	lines := []string{
		"ember panic:",
		fmt.Sprintf("kind: %s", info.Kind),
		fmt.Sprintf("op: %s", info.Op),
		fmt.Sprintf("msg: %s", info.Message),
		fmt.Sprintf("active pid: %d", info.ActivePID),
	}
	if len(info.Stack) == 0 {
		return append(lines, "stack: unavailable")
	}
	lines = append(lines, "stack:")
	for _, line := range strings.Split(string(info.Stack), "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// line draws s with its top edge at y and returns the top of the next line.
func (m *Monitor) line(x, y int16, s string, c color.RGBA) int16 {
	return m.lineOn(m.screen, x, y, s, c)
}

func (m *Monitor) lineOn(d *Screen, x, y int16, s string, c color.RGBA) int16 {
	tinyfont.WriteLine(d, m.font, x, y+m.ascent, s, c)
	return y + m.lineHeight
}

func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if int64(len(s)) <= int64(n) {
		return s, ""
	}
	var i int
	var count int16
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			break
		}
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
