//go:build tinygo && baremetal

package hal

import (
	"device/arm"
	"machine"
	"time"
)

type tinyGoDisplay struct {
	fb Framebuffer
}

func (d tinyGoDisplay) Framebuffer() Framebuffer { return d.fb }

type tinyGoTime struct {
	ch  chan uint64
	seq uint64
}

func newTinyGoTime() *tinyGoTime {
	t := &tinyGoTime{ch: make(chan uint64, 16)}
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

func (t *tinyGoTime) Ticks() <-chan uint64 { return t.ch }

// tinyGoPower idles by parking the CPU goroutine; the TinyGo scheduler then
// sleeps the core until the next hardware interrupt.
type tinyGoPower struct {
	irq    *SoftIRQ
	logger Logger
}

func (p *tinyGoPower) SetLowestIdle() { p.irq.WaitPending() }

func (p *tinyGoPower) Halt() {
	p.logger.WriteLineString("cpu: halted")
	select {}
}

func (p *tinyGoPower) Reboot() {
	p.logger.WriteLineString("cpu: reboot")
	arm.SystemReset()
}

type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		l.uart.WriteByte(b[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

type uartSerial struct {
	uart *machine.UART
}

func (s *uartSerial) Read(p []byte) (int, error) {
	if s.uart == nil {
		return 0, ErrNotImplemented
	}
	// machine.UART.Read does not block; poll so callers see io.Reader
	// semantics.
	for s.uart.Buffered() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	return s.uart.Read(p)
}

func (s *uartSerial) Write(p []byte) (int, error) {
	if s.uart == nil {
		return 0, ErrNotImplemented
	}
	return s.uart.Write(p)
}

func configureUART0() *machine.UART {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})
	return uart
}
