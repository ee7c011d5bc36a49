// Package cpu provides a context-switch trampoline that runs kernel threads
// as goroutines.
//
// Exactly one thread goroutine owns the CPU at a time. A switch hands a baton
// to the next goroutine and parks the current one on its own baton, so kernel
// state is only ever touched by the owner. Interrupts are emulated by the
// hal.SoftIRQ gate: raised handlers run on the owner when it unmasks, and the
// gate's return hook performs the switch an interrupt made pending.
package cpu

import (
	"ember/hal"
	"ember/kernel"
)

// Trampoline implements kernel.Trampoline on goroutines.
//
// A zombie keeps its goroutine parked forever; freeing the slot does not
// release it.
type Trampoline struct {
	k      *kernel.Kernel
	irq    hal.IRQController
	batons []chan struct{}
}

// New creates the trampoline for k, attaches it and installs the interrupt
// return hook on irq.
func New(k *kernel.Kernel, irq hal.IRQController) *Trampoline {
	tr := &Trampoline{
		k:      k,
		irq:    irq,
		batons: make([]chan struct{}, k.Config().MaxThreads+1),
	}
	irq.SetReturnHook(tr.irqReturn)
	k.SetTrampoline(tr)
	return tr
}

// Init starts the goroutine of pid parked on a fresh baton.
func (tr *Trampoline) Init(pid kernel.PID, stack []byte, entry func()) uintptr {
	baton := make(chan struct{}, 1)
	tr.batons[pid] = baton
	go func() {
		<-baton
		// A new context starts with interrupts unmasked.
		tr.irq.Enable()
		entry()
	}()
	return writeInitialFrame(stack, uint32(pid))
}

// YieldHigher lets the scheduler pick a thread and, if it is not the caller,
// parks the caller until it is picked again.
func (tr *Trampoline) YieldHigher() {
	if tr.irq.InISR() {
		return
	}
	state := tr.irq.Disable()
	prev := tr.k.ActivePID()
	next := tr.k.Schedule()
	if next != prev {
		wait := tr.batons[prev]
		tr.batons[next] <- struct{}{}
		<-wait
	}
	tr.irq.Restore(state)
}

// SwitchExit hands the CPU to the scheduled thread and returns without
// parking; the caller's goroutine must end or stop touching the kernel.
func (tr *Trampoline) SwitchExit() {
	tr.irq.Disable()
	next := tr.k.Schedule()
	tr.batons[next] <- struct{}{}
}

func (tr *Trampoline) irqReturn() {
	if tr.k.SwitchPending() {
		tr.YieldHigher()
	}
}
