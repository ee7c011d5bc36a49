//go:build tinygo && baremetal && picocalc

package hal

type picoCalcHAL struct {
	logger *uartLogger
	irq    *SoftIRQ
	pm     *tinyGoPower
	fb     Framebuffer
	t      *tinyGoTime
	serial Serial
}

// New returns a PicoCalc HAL implementation (Pico/Pico2 on the PicoCalc carrier).
//
// UART: UART0 on GP0 (TX) / GP1 (RX), 115200 8N1. The LCD shows the monitor.
func New() HAL {
	uart := configureUART0()
	logger := &uartLogger{uart: uart}

	disp, err := newPicoCalcDisplay()
	if err != nil {
		logger.WriteLineString("hal: lcd unavailable: " + err.Error())
		disp = newPicoCalcDisplayStub()
	}

	irq := NewSoftIRQ()
	return &picoCalcHAL{
		logger: logger,
		irq:    irq,
		pm:     &tinyGoPower{irq: irq, logger: logger},
		fb:     disp,
		t:      newTinyGoTime(),
		serial: &uartSerial{uart: uart},
	}
}

func (h *picoCalcHAL) Logger() Logger     { return h.logger }
func (h *picoCalcHAL) IRQ() IRQController { return h.irq }
func (h *picoCalcHAL) Power() Power       { return h.pm }
func (h *picoCalcHAL) Display() Display   { return tinyGoDisplay{fb: h.fb} }
func (h *picoCalcHAL) Time() Time         { return h.t }
func (h *picoCalcHAL) Serial() Serial     { return h.serial }

type picoCalcFramebuffer struct {
	w      int
	h      int
	stride int
	buf    []byte

	lcd *ili9488
}

func (f *picoCalcFramebuffer) Width() int          { return f.w }
func (f *picoCalcFramebuffer) Height() int         { return f.h }
func (f *picoCalcFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *picoCalcFramebuffer) StrideBytes() int    { return f.stride }
func (f *picoCalcFramebuffer) Buffer() []byte      { return f.buf }

func (f *picoCalcFramebuffer) ClearRGB(r, g, b uint8) {
	fillRGB565(f.buf, RGB565(r, g, b))
}

func (f *picoCalcFramebuffer) Present() error {
	if f.lcd == nil {
		return ErrNotImplemented
	}
	return f.lcd.blitRGB565LittleEndian(f.buf, f.w, f.h)
}

const picoCalcSide = 320

func newPicoCalcDisplay() (*picoCalcFramebuffer, error) {
	lcd, err := initILI9488()
	if err != nil {
		return nil, err
	}
	fb := newPicoCalcDisplayStub()
	fb.lcd = lcd
	return fb, nil
}

func newPicoCalcDisplayStub() *picoCalcFramebuffer {
	return &picoCalcFramebuffer{
		w:      picoCalcSide,
		h:      picoCalcSide,
		stride: picoCalcSide * 2,
		buf:    make([]byte, picoCalcSide*picoCalcSide*2),
	}
}
