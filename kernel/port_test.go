package kernel

import (
	"testing"

	"ember/hal"
)

type powerSignal string

const (
	haltSignal   powerSignal = "halt"
	rebootSignal powerSignal = "reboot"
	idleSignal   powerSignal = "idle without wake source"
)

// testPower stands in for the power manager. Halt and Reboot unwind with a
// sentinel panic so tests can observe them.
type testPower struct {
	idle   func()
	idles  int
	halts  int
	reboot int
}

func (p *testPower) SetLowestIdle() {
	p.idles++
	if p.idle == nil {
		panic(idleSignal)
	}
	p.idle()
}

func (p *testPower) Halt() {
	p.halts++
	panic(haltSignal)
}

func (p *testPower) Reboot() {
	p.reboot++
	panic(rebootSignal)
}

// testTrampoline performs switches without stacks: the test plays the role
// of whichever thread is active.
type testTrampoline struct {
	k        *Kernel
	entries  map[PID]func()
	switches []PID
	exits    int
}

func (tr *testTrampoline) Init(pid PID, stack []byte, entry func()) uintptr {
	tr.entries[pid] = entry
	return uintptr(len(stack))
}

func (tr *testTrampoline) YieldHigher() {
	prev := tr.k.ActivePID()
	next := tr.k.Schedule()
	if next != prev {
		tr.switches = append(tr.switches, next)
	}
}

func (tr *testTrampoline) SwitchExit() {
	tr.exits++
	tr.switches = append(tr.switches, tr.k.Schedule())
}

type testPort struct {
	k   *Kernel
	irq *hal.SoftIRQ
	pm  *testPower
	tr  *testTrampoline
}

func newTestPort(t *testing.T, cfg Config) *testPort {
	t.Helper()

	irq := hal.NewSoftIRQ()
	pm := &testPower{}
	k := New(cfg, irq, pm)
	tr := &testTrampoline{k: k, entries: make(map[PID]func())}
	k.SetTrampoline(tr)
	irq.SetReturnHook(func() {
		if k.SwitchPending() {
			tr.YieldHigher()
		}
	})
	return &testPort{k: k, irq: irq, pm: pm, tr: tr}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxThreads = 8
	return cfg
}

// isr runs fn as an interrupt handler and returns once it and any switch it
// requested are done.
func (p *testPort) isr(fn func()) {
	p.irq.Raise(fn)
	s := p.irq.Disable()
	p.irq.Enable()
	p.irq.Restore(s)
}

func (p *testPort) spawn(t *testing.T, prio Priority, flags CreateFlags, name string) PID {
	t.Helper()
	pid, err := p.k.Create(make([]byte, 256), prio, flags, func(any) {}, nil, name)
	if err != nil {
		t.Fatalf("Create(%q) error = %v", name, err)
	}
	return pid
}

// boot creates the main thread and starts the kernel.
func (p *testPort) boot(t *testing.T) PID {
	t.Helper()
	main := p.spawn(t, p.k.cfg.PriorityMain(), 0, "main")
	p.k.Start()
	if got := p.k.ActivePID(); got != main {
		t.Fatalf("ActivePID() after Start = %d, want %d", got, main)
	}
	return main
}

func (p *testPort) wantActive(t *testing.T, want PID) {
	t.Helper()
	if got := p.k.ActivePID(); got != want {
		t.Fatalf("ActivePID() = %d, want %d", got, want)
	}
	checkPriorityOrder(t, p.k)
}

func (p *testPort) wantStatus(t *testing.T, pid PID, want Status) {
	t.Helper()
	if got := p.k.Status(pid); got != want {
		t.Fatalf("Status(%d) = %v, want %v", pid, got, want)
	}
}

// checkPriorityOrder asserts that no runnable thread is more urgent than the
// active one.
func checkPriorityOrder(t *testing.T, k *Kernel) {
	t.Helper()
	active := k.ActivePID()
	if active == PIDUndef {
		return
	}
	ap, _ := k.Priority(active)
	for _, info := range k.Threads() {
		if info.Status == StatusRunnable && info.Priority < ap {
			t.Fatalf("pid %d runnable at priority %d while pid %d runs at %d", info.PID, info.Priority, active, ap)
		}
	}
}

func expectPower(t *testing.T, want powerSignal, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		if r := recover(); r != want {
			t.Fatalf("recover() = %v, want %v", r, want)
		}
	}()
	fn()
}
