package kernel

import "math/bits"

// setStatus is the only writer of thread status. It moves the thread on or
// off its run queue when the new status requires it.
func (k *Kernel) setStatus(t *thread, s Status) {
	if s.onRunqueue() {
		if !t.status.onRunqueue() {
			k.listPush(&k.runqueue[t.priority], t.pid)
			k.runqueueBits |= 1 << t.priority
		}
	} else if t.status.onRunqueue() {
		rq := &k.runqueue[t.priority]
		k.listRemove(rq, t.pid)
		if rq.empty() {
			k.runqueueBits &^= 1 << t.priority
		}
	}
	t.status = s
}

// switchReq decides what waking a thread of priority prio means for the
// caller. Must be called inside a critical section.
func (k *Kernel) switchReq(prio Priority) resched {
	a := k.lookup(k.active)
	if a == nil {
		// Not started yet, or idling: the scheduler loop picks it up.
		return reschedNone
	}
	if a.status.onRunqueue() && a.priority <= prio {
		return reschedNone
	}
	if k.irq.InISR() {
		k.switchPending = true
		return reschedNone
	}
	return reschedYield
}

// SwitchPending reports whether an interrupt made a more urgent thread
// runnable and the trampoline should switch on interrupt return.
func (k *Kernel) SwitchPending() bool {
	cs := k.enter()
	defer cs.exit()
	return k.switchPending && !k.scheduling && k.active != PIDUndef
}

// Schedule selects the most urgent runnable thread, makes it the active one
// and returns its PID. Only trampolines call it.
//
// When nothing is runnable it asks the power manager to idle the CPU and
// lets interrupts in until some thread becomes runnable.
func (k *Kernel) Schedule() PID {
	cs := k.enter()
	defer cs.exit()

	k.scheduling = true
	defer func() { k.scheduling = false }()

	prev := k.lookup(k.active)
	if prev != nil && k.cfg.DevelHelp {
		k.checkStack(prev)
	}
	if k.runqueueBits == 0 {
		if prev != nil {
			unschedule(prev)
			k.active = PIDUndef
			prev = nil
		}
		for k.runqueueBits == 0 {
			k.pm.SetLowestIdle()
			k.irq.Enable()
			k.irq.Disable()
		}
	}
	k.switchPending = false

	prio := bits.TrailingZeros32(k.runqueueBits)
	next := k.slot(k.runqueue[prio].head)
	if next == prev {
		// An interrupt may have woken the caller before it could switch away.
		next.status = StatusRunning
		return next.pid
	}
	if prev != nil {
		unschedule(prev)
	}
	next.status = StatusRunning
	next.switches++
	k.active = next.pid
	return next.pid
}

func unschedule(t *thread) {
	if t.status == StatusRunning {
		t.status = StatusRunnable
	}
}

// Yield moves the calling thread behind the other runnable threads of its
// priority and lets the scheduler run.
func (k *Kernel) Yield() {
	k.rotateActive()
	k.yieldHigher()
}

func (k *Kernel) rotateActive() bool {
	cs := k.enter()
	defer cs.exit()

	t := k.activeThread("thread yield")
	if !t.status.onRunqueue() {
		return false
	}
	rq := &k.runqueue[t.priority]
	if rq.n < 2 {
		return false
	}
	// The running thread may sit behind a woken thread; pull it out
	// explicitly rather than rotating the head.
	k.listRemove(rq, t.pid)
	k.listPush(rq, t.pid)
	return true
}

// Tick is the periodic timer interrupt handler. It accounts run time to the
// active thread and, with Config.RoundRobin, rotates its priority level.
func (k *Kernel) Tick() {
	cs := k.enter()
	defer cs.exit()

	k.ticks++
	t := k.lookup(k.active)
	if t == nil {
		return
	}
	t.runtimeTicks++
	if k.cfg.RoundRobin {
		k.roundRobin(t)
	}
}

// RoundRobin rotates the active thread's priority level if another thread
// of the same priority is runnable. It is meant for timer interrupts.
func (k *Kernel) RoundRobin() {
	cs := k.enter()
	defer cs.exit()

	if t := k.lookup(k.active); t != nil {
		k.roundRobin(t)
	}
}

func (k *Kernel) roundRobin(t *thread) {
	if t.status != StatusRunning {
		return
	}
	rq := &k.runqueue[t.priority]
	if rq.n < 2 {
		return
	}
	k.listRemove(rq, t.pid)
	k.listPush(rq, t.pid)
	if k.irq.InISR() {
		k.switchPending = true
	}
}

// ChangePriority moves pid to another priority level. It reports false for
// unknown threads or priorities out of range.
//
// Threads waiting in a mutex or on a receiver are re-sorted in that queue.
func (k *Kernel) ChangePriority(pid PID, prio Priority) bool {
	ok, r := k.changePriority(pid, prio)
	k.apply(r)
	return ok
}

func (k *Kernel) changePriority(pid PID, prio Priority) (bool, resched) {
	cs := k.enter()
	defer cs.exit()

	if int(prio) >= k.cfg.PrioLevels {
		return false, reschedNone
	}
	t := k.lookup(pid)
	if t == nil {
		return false, reschedNone
	}
	if t.priority == prio {
		return true, reschedNone
	}
	if !t.status.onRunqueue() {
		wq := t.node.on
		if wq != nil {
			k.listRemove(wq, t.pid)
		}
		t.priority = prio
		if wq != nil {
			k.listInsert(wq, t.pid)
		}
		return true, reschedNone
	}

	old := &k.runqueue[t.priority]
	k.listRemove(old, t.pid)
	if old.empty() {
		k.runqueueBits &^= 1 << t.priority
	}
	t.priority = prio
	k.listPush(&k.runqueue[prio], t.pid)
	k.runqueueBits |= 1 << prio

	if t.pid == k.active {
		// Demoted below another runnable thread: let the scheduler decide.
		if k.irq.InISR() {
			k.switchPending = true
			return true, reschedNone
		}
		return true, reschedYield
	}
	return true, k.switchReq(prio)
}
