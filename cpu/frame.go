package cpu

import (
	"encoding/binary"
	"unsafe"
)

// Words of the Cortex-M initial context, from the lowest address: the
// callee-saved r4-r11 pushed by the switch handler, then the frame the
// exception return unstacks.
const (
	frameR4 = iota
	frameR5
	frameR6
	frameR7
	frameR8
	frameR9
	frameR10
	frameR11
	frameR0
	frameR1
	frameR2
	frameR3
	frameR12
	frameLR
	framePC
	framePSR
	frameWords
)

const (
	frameSize = frameWords * 4

	// psrThumb must be set in every initial xPSR.
	psrThumb = 0x01000000
	// lrThreadExit marks the initial frame: returning past entry faults
	// into the exit handler.
	lrThreadExit = 0xFFFFFFFD
)

// writeInitialFrame lays out the context a new thread is first resumed from
// at the top of stack and returns the resulting stack pointer. The stack
// pointer is kept 8-byte aligned.
//
// Goroutine threads never unstack it; it keeps StackPointer and the stack
// usage figures meaningful.
func writeInitialFrame(stack []byte, tag uint32) uintptr {
	top := len(stack) &^ 7
	off := top - frameSize
	if off < 0 {
		return 0
	}
	frame := stack[off:top]
	for i := range frame {
		frame[i] = 0
	}
	put := func(word int, v uint32) {
		binary.LittleEndian.PutUint32(frame[word*4:], v)
	}
	put(frameR0, tag)
	put(frameLR, lrThreadExit)
	put(framePC, tag)
	put(framePSR, psrThumb)

	return uintptr(unsafe.Pointer(unsafe.SliceData(stack))) + uintptr(off)
}
