//go:build !tinygo

package hal

import (
	"testing"
	"time"
)

func TestHostTimeAccumulates(t *testing.T) {
	clock := time.Unix(100, 0)
	ht := newHostTime()
	ht.now = func() time.Time { return clock }

	ht.step(1)
	clock = clock.Add(2500 * time.Microsecond)
	ht.step(1)
	clock = clock.Add(600 * time.Microsecond)
	ht.step(1)

	var got []uint64
	for len(ht.ch) > 0 {
		got = append(got, <-ht.ch)
	}
	// 1 initial tick, 2 for 2.5ms, 1 more once the carried 0.5ms reaches 1ms.
	if len(got) != 4 || got[3] != 4 {
		t.Fatalf("ticks = %v, want [1 2 3 4]", got)
	}
}
