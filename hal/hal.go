package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

var ErrNotImplemented = errors.New("not implemented")

// IRQState is the opaque interrupt mask returned by Disable and Enable.
type IRQState uintptr

// IRQ is the interrupt gate the kernel uses for its critical sections.
type IRQ interface {
	// Disable masks interrupts and returns the previous state.
	Disable() IRQState
	// Enable unmasks interrupts and returns the previous state.
	Enable() IRQState
	// Restore puts back a state returned by Disable or Enable.
	Restore(state IRQState)
	// InISR reports whether the caller runs in interrupt context.
	InISR() bool
}

// IRQController is an interrupt gate that can also trigger a handler in
// interrupt context. Device emulation and soft timers use Raise.
type IRQController interface {
	IRQ
	Raise(handler func())
	// SetReturnHook installs the function run in thread context each time
	// interrupt handlers have drained.
	SetReturnHook(fn func())
}

// Power is the power-management collaborator of the scheduler.
type Power interface {
	// SetLowestIdle idles the CPU until an interrupt is pending. It is
	// called with interrupts disabled.
	SetLowestIdle()
	// Halt stops the CPU for good.
	Halt()
	// Reboot resets the system.
	Reboot()
}

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Time provides a base tick stream.
//
// The tick duration is platform-defined (1ms on the stock boards).
type Time interface {
	Ticks() <-chan uint64
}

// Serial is the console byte stream.
type Serial interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// HAL provides the only contact point between the kernel and the outside world.
type HAL interface {
	Logger() Logger
	IRQ() IRQController
	Power() Power
	Display() Display
	Time() Time
	Serial() Serial
}
