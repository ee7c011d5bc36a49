package hal

import "sync"

const (
	irqEnabled IRQState = iota
	irqDisabled
)

const maxPendingIRQs = 64

// SoftIRQ is an interrupt gate for targets where interrupts are emulated by
// goroutines (host builds, TinyGo on an OS).
//
// Raised handlers queue up and run on the goroutine that currently owns the
// CPU: as soon as it unmasks interrupts, or while it idles in WaitPending.
// Mask state and ISR nesting are only touched by that goroutine; the queue
// is the one thing shared with raisers.
type SoftIRQ struct {
	disabled bool
	inISR    bool
	onReturn func()

	mu      sync.Mutex
	pending []func()
	kick    chan struct{}
	dropped uint64
}

// NewSoftIRQ returns an unmasked gate with nothing pending.
func NewSoftIRQ() *SoftIRQ {
	return &SoftIRQ{kick: make(chan struct{}, 1)}
}

func (g *SoftIRQ) Disable() IRQState {
	prev := g.state()
	g.disabled = true
	return prev
}

func (g *SoftIRQ) Enable() IRQState {
	prev := g.state()
	g.disabled = false
	g.service()
	return prev
}

func (g *SoftIRQ) Restore(state IRQState) {
	g.disabled = state == irqDisabled
	if !g.disabled {
		g.service()
	}
}

func (g *SoftIRQ) InISR() bool { return g.inISR }

func (g *SoftIRQ) state() IRQState {
	if g.disabled {
		return irqDisabled
	}
	return irqEnabled
}

// SetReturnHook installs the function run after pending handlers drain,
// in thread context. Trampolines use it to switch on interrupt return.
func (g *SoftIRQ) SetReturnHook(fn func()) { g.onReturn = fn }

// Raise queues handler to run in interrupt context. It may be called from
// any goroutine. When the queue is full the handler is dropped.
func (g *SoftIRQ) Raise(handler func()) {
	g.mu.Lock()
	if len(g.pending) >= maxPendingIRQs {
		g.dropped++
		g.mu.Unlock()
		return
	}
	g.pending = append(g.pending, handler)
	g.mu.Unlock()

	select {
	case g.kick <- struct{}{}:
	default:
	}
}

// Dropped returns how many raised handlers were lost to a full queue.
func (g *SoftIRQ) Dropped() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dropped
}

// WaitPending blocks until at least one handler is queued. It is the idle
// instruction of this gate: the handler itself runs on the next unmask.
func (g *SoftIRQ) WaitPending() {
	for {
		g.mu.Lock()
		n := len(g.pending)
		g.mu.Unlock()
		if n > 0 {
			return
		}
		<-g.kick
	}
}

func (g *SoftIRQ) pop() func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.pending) == 0 {
		return nil
	}
	fn := g.pending[0]
	g.pending[0] = nil
	g.pending = g.pending[1:]
	return fn
}

func (g *SoftIRQ) service() {
	if g.inISR || g.disabled {
		return
	}
	ran := false
	for fn := g.pop(); fn != nil; fn = g.pop() {
		ran = true
		g.inISR = true
		g.disabled = true
		fn()
		g.inISR = false
		g.disabled = false
	}
	if ran && g.onReturn != nil {
		g.onReturn()
	}
}
