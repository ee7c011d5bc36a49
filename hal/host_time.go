//go:build !tinygo

package hal

import "time"

const hostTickDuration = time.Millisecond

// hostTime converts wall time elapsed between runner steps into a stream of
// fixed-length ticks. Ticks the consumer does not drain in time are dropped.
type hostTime struct {
	ch  chan uint64
	seq uint64
	now func() time.Time

	last time.Time
	acc  time.Duration
}

func newHostTime() *hostTime {
	return &hostTime{ch: make(chan uint64, 1024), now: time.Now}
}

func (t *hostTime) Ticks() <-chan uint64 { return t.ch }

// step emits the ticks that elapsed since the previous step; the first step
// emits n.
func (t *hostTime) step(n uint64) {
	now := t.now()
	if t.last.IsZero() {
		t.last = now
		t.emit(n)
		return
	}

	t.acc += now.Sub(t.last)
	t.last = now

	ticks := uint64(t.acc / hostTickDuration)
	if ticks == 0 {
		return
	}
	t.acc %= hostTickDuration
	t.emit(ticks)
}

func (t *hostTime) emit(n uint64) {
	for i := uint64(0); i < n; i++ {
		t.seq++
		select {
		case t.ch <- t.seq:
		default:
		}
	}
}
