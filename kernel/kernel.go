// Package kernel is the concurrency core of ember: the thread table, the
// priority scheduler, mutexes and message passing.
//
// All shared state lives in one Kernel value. Every mutation happens inside
// a critical section entered through the interrupt gate; exported methods
// enter it once and call unexported helpers that assume it is held. The
// actual stack switch is delegated to a Trampoline.
package kernel

import (
	"fmt"

	"ember/hal"
)

const (
	maxPrioLevels = 32
	maxThreads    = 254
)

// Config selects the static shape of the kernel. It is fixed at boot.
type Config struct {
	// MaxThreads is the capacity of the thread table.
	MaxThreads int
	// PrioLevels is the number of priority levels (at most 32).
	PrioLevels int
	// DevelHelp enables stack overflow checks on every switch and makes a
	// kernel panic halt instead of reboot.
	DevelHelp bool
	// RoundRobin rotates equal-priority threads on every Tick.
	RoundRobin bool
	// Logger receives boot and panic lines. Optional.
	Logger hal.Logger
}

// DefaultConfig returns the configuration used by the stock boards.
func DefaultConfig() Config {
	return Config{
		MaxThreads: 32,
		PrioLevels: 16,
		DevelHelp:  true,
	}
}

// PriorityMain is the conventional priority of the main thread.
func (c Config) PriorityMain() Priority { return Priority(c.PrioLevels / 2) }

// PriorityIdle is the least urgent priority level.
func (c Config) PriorityIdle() Priority { return Priority(c.PrioLevels - 1) }

// Trampoline is the architecture context-switch collaborator.
//
// The kernel only flips thread state and queue membership. The trampoline
// saves and restores register files and decides how a suspended thread is
// parked.
type Trampoline interface {
	// Init builds the initial context of a new thread on its stack and
	// returns the saved stack pointer. The thread starts running entry the
	// first time it is resumed.
	Init(pid PID, stack []byte, entry func()) uintptr
	// YieldHigher switches to the thread chosen by Kernel.Schedule if it
	// differs from the active one. From interrupt context it only leaves the
	// switch pending until the interrupt returns.
	YieldHigher()
	// SwitchExit abandons the current context and resumes the thread chosen
	// by Kernel.Schedule. On hardware it never returns.
	SwitchExit()
}

// Kernel holds the thread table and the scheduler state.
type Kernel struct {
	cfg Config
	irq hal.IRQ
	pm  hal.Power
	tr  Trampoline

	threads    []thread
	numThreads int

	runqueue      []list
	runqueueBits  uint32
	active        PID
	switchPending bool
	scheduling    bool
	started       bool
	ticks         uint64

	panic panicState
}

// New creates a kernel. The trampoline is attached with SetTrampoline before
// Start.
func New(cfg Config, irq hal.IRQ, pm hal.Power) *Kernel {
	if cfg.MaxThreads <= 0 || cfg.MaxThreads > maxThreads {
		panic(fmt.Sprintf("kernel: MaxThreads %d out of range 1..%d", cfg.MaxThreads, maxThreads))
	}
	if cfg.PrioLevels <= 0 || cfg.PrioLevels > maxPrioLevels {
		panic(fmt.Sprintf("kernel: PrioLevels %d out of range 1..%d", cfg.PrioLevels, maxPrioLevels))
	}
	if irq == nil || pm == nil {
		panic("kernel: nil interrupt gate or power manager")
	}
	return &Kernel{
		cfg:      cfg,
		irq:      irq,
		pm:       pm,
		threads:  make([]thread, cfg.MaxThreads),
		runqueue: make([]list, cfg.PrioLevels),
	}
}

// SetTrampoline attaches the context-switch trampoline.
func (k *Kernel) SetTrampoline(tr Trampoline) { k.tr = tr }

// Config returns the boot configuration.
func (k *Kernel) Config() Config { return k.cfg }

// Start hands the CPU to the most urgent runnable thread.
//
// On hardware Start never returns. On the goroutine trampoline it returns
// once the first thread owns the CPU; the caller must not touch the kernel
// afterwards except by raising interrupts.
func (k *Kernel) Start() {
	if k.tr == nil {
		panic("kernel: Start without a trampoline")
	}
	k.boot()
	k.tr.SwitchExit()
}

func (k *Kernel) boot() {
	cs := k.enter()
	defer cs.exit()

	k.started = true
	k.logf("kernel: starting, %d threads, %d priority levels", k.numThreads, k.cfg.PrioLevels)
}

// Started reports whether Start has been called.
func (k *Kernel) Started() bool {
	cs := k.enter()
	defer cs.exit()
	return k.started
}

// Ticks returns the number of Tick interrupts seen.
func (k *Kernel) Ticks() uint64 {
	cs := k.enter()
	defer cs.exit()
	return k.ticks
}

func (k *Kernel) logf(format string, args ...any) {
	if k.cfg.Logger == nil {
		return
	}
	k.cfg.Logger.WriteLineString(fmt.Sprintf(format, args...))
}

// critical is an interrupt-disabled region. Leave it with exit, normally
// deferred right after enter so every return path restores the gate.
type critical struct {
	irq   hal.IRQ
	state hal.IRQState
}

func (k *Kernel) enter() critical {
	return critical{irq: k.irq, state: k.irq.Disable()}
}

func (c critical) exit() {
	c.irq.Restore(c.state)
}

// resched is what a caller must do after leaving a critical section.
type resched uint8

const (
	reschedNone resched = iota
	reschedYield
)

func (k *Kernel) apply(r resched) {
	if r == reschedYield {
		k.yieldHigher()
	}
}

func (k *Kernel) yieldHigher() {
	if k.irq.InISR() {
		// Performed by the trampoline when the interrupt returns.
		k.switchPending = true
		return
	}
	k.tr.YieldHigher()
}
