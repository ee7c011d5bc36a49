//go:build tinygo && !baremetal

package hal

import (
	"os"
	"time"
)

type tinyGoHostHAL struct {
	logger *tinyGoHostLogger
	irq    *SoftIRQ
	pm     *tinyGoHostPower
	fb     *tinyGoHostFramebuffer
	t      *tinyGoHostTime
	serial Serial
}

// New returns a TinyGo-on-host HAL implementation.
//
// This is used by `tinygo run` targets like linux/wasm where there is no MCU pin mapping.
func New() HAL {
	l := &tinyGoHostLogger{}
	irq := NewSoftIRQ()
	return &tinyGoHostHAL{
		logger: l,
		irq:    irq,
		pm:     &tinyGoHostPower{irq: irq, logger: l},
		fb:     newTinyGoHostFramebuffer(320, 320),
		t:      newTinyGoHostTime(),
		serial: tinyGoHostSerial{},
	}
}

func (h *tinyGoHostHAL) Logger() Logger     { return h.logger }
func (h *tinyGoHostHAL) IRQ() IRQController { return h.irq }
func (h *tinyGoHostHAL) Power() Power       { return h.pm }
func (h *tinyGoHostHAL) Display() Display   { return tinyGoHostDisplay{fb: h.fb} }
func (h *tinyGoHostHAL) Time() Time         { return h.t }
func (h *tinyGoHostHAL) Serial() Serial     { return h.serial }

type tinyGoHostDisplay struct {
	fb Framebuffer
}

func (d tinyGoHostDisplay) Framebuffer() Framebuffer { return d.fb }

type tinyGoHostTime struct {
	ch  chan uint64
	seq uint64
}

func newTinyGoHostTime() *tinyGoHostTime {
	t := &tinyGoHostTime{ch: make(chan uint64, 16)}
	go func() {
		ticker := time.NewTicker(1 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			t.seq++
			select {
			case t.ch <- t.seq:
			default:
			}
		}
	}()
	return t
}

func (t *tinyGoHostTime) Ticks() <-chan uint64 { return t.ch }

type tinyGoHostLogger struct{}

func (l *tinyGoHostLogger) WriteLineString(s string) {
	println(s)
}

func (l *tinyGoHostLogger) WriteLineBytes(b []byte) {
	println(string(b))
}

type tinyGoHostPower struct {
	irq    *SoftIRQ
	logger Logger
}

func (p *tinyGoHostPower) SetLowestIdle() { p.irq.WaitPending() }

func (p *tinyGoHostPower) Halt() {
	p.logger.WriteLineString("cpu: halted")
	select {}
}

func (p *tinyGoHostPower) Reboot() {
	p.logger.WriteLineString("cpu: reboot")
	os.Exit(3)
}

type tinyGoHostSerial struct{}

func (tinyGoHostSerial) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (tinyGoHostSerial) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
