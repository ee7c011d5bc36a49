package cpu

import (
	"encoding/binary"
	"testing"
	"unsafe"
)

func TestWriteInitialFrame(t *testing.T) {
	stack := make([]byte, 256+5)
	sp := writeInitialFrame(stack, 7)

	base := uintptr(unsafe.Pointer(&stack[0]))
	off := int(sp - base)
	if want := 256 - frameSize; off != want {
		t.Fatalf("frame offset = %d, want %d", off, want)
	}
	if sp%8 != base%8 {
		t.Fatalf("sp %#x not 8-byte aligned relative to stack base %#x", sp, base)
	}

	word := func(i int) uint32 { return binary.LittleEndian.Uint32(stack[off+i*4:]) }
	if got := word(framePSR); got != psrThumb {
		t.Fatalf("xPSR = %#x, want %#x", got, psrThumb)
	}
	if got := word(framePC); got != 7 {
		t.Fatalf("PC = %d, want tag 7", got)
	}
	if got := word(frameLR); got != lrThreadExit {
		t.Fatalf("LR = %#x, want %#x", got, uint32(lrThreadExit))
	}
}

func TestWriteInitialFrameTooSmall(t *testing.T) {
	if sp := writeInitialFrame(make([]byte, frameSize-1), 1); sp != 0 {
		t.Fatalf("writeInitialFrame() = %#x on a tiny stack, want 0", sp)
	}
}
