//go:build tinygo && baremetal && !picocalc

package hal

type tinyGoHAL struct {
	logger *uartLogger
	irq    *SoftIRQ
	pm     *tinyGoPower
	fb     Framebuffer
	t      *tinyGoTime
	serial Serial
}

// New returns a Pico 2 (RP2350) HAL implementation.
//
// UART: UART0 on GP0 (TX) / GP1 (RX), 115200 8N1. No display.
func New() HAL {
	uart := configureUART0()
	logger := &uartLogger{uart: uart}
	irq := NewSoftIRQ()
	return &tinyGoHAL{
		logger: logger,
		irq:    irq,
		pm:     &tinyGoPower{irq: irq, logger: logger},
		fb:     &stubFramebuffer{w: 320, h: 320, format: PixelFormatRGB565},
		t:      newTinyGoTime(),
		serial: &uartSerial{uart: uart},
	}
}

func (h *tinyGoHAL) Logger() Logger     { return h.logger }
func (h *tinyGoHAL) IRQ() IRQController { return h.irq }
func (h *tinyGoHAL) Power() Power       { return h.pm }
func (h *tinyGoHAL) Display() Display   { return tinyGoDisplay{fb: h.fb} }
func (h *tinyGoHAL) Time() Time         { return h.t }
func (h *tinyGoHAL) Serial() Serial     { return h.serial }
