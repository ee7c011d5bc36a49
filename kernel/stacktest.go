package kernel

import (
	"encoding/binary"
	"fmt"
)

// stackCanary fills unused stack words. Stacks grow down, so the untouched
// words are at the low end of the buffer.
const stackCanary uint32 = 0xe7c0ffee

func fillStackCanary(stack []byte) {
	for i := 0; i+4 <= len(stack); i += 4 {
		binary.LittleEndian.PutUint32(stack[i:], stackCanary)
	}
}

func markStackBottom(stack []byte) {
	binary.LittleEndian.PutUint32(stack, stackCanary)
}

func stackIntact(stack []byte) bool {
	return len(stack) >= 4 && binary.LittleEndian.Uint32(stack) == stackCanary
}

func (t *thread) stackFree() int {
	if !t.stackTest {
		return -1
	}
	n := 0
	for n+4 <= len(t.stack) && binary.LittleEndian.Uint32(t.stack[n:]) == stackCanary {
		n += 4
	}
	return n
}

// checkStack panics if the bottom word of t's stack was overwritten.
func (k *Kernel) checkStack(t *thread) {
	if !stackIntact(t.stack) {
		k.corePanic(PanicStackOverflow, "sched", fmt.Sprintf("pid %d (%s) overflowed its stack", t.pid, t.name))
	}
}
