package kernel

// Mutex is a binary lock with a priority-ordered wait queue. Waiters of
// equal priority are served in arrival order.
//
// There is no priority inheritance: a less urgent holder delays a more
// urgent waiter for as long as it holds the lock.
//
// A Mutex must be initialized with Init and must not be copied afterwards.
type Mutex struct {
	k       *Kernel
	locked  bool
	owner   PID
	waiters list
}

// NewMutex returns an initialized, unlocked mutex.
func NewMutex(k *Kernel) *Mutex {
	m := &Mutex{}
	m.Init(k)
	return m
}

// Init resets m to unlocked. It must not be called while threads wait on m.
func (m *Mutex) Init(k *Kernel) {
	*m = Mutex{k: k}
}

// Lock blocks the calling thread until it owns m.
func (m *Mutex) Lock() {
	if m.k.irq.InISR() {
		m.k.corePanic(PanicAssert, "mutex lock", "blocking call in interrupt context")
	}
	if m.lock() {
		// Unlock hands m over before making us runnable again.
		m.k.yieldHigher()
	}
}

func (m *Mutex) lock() (blocked bool) {
	cs := m.k.enter()
	defer cs.exit()

	me := m.k.activeThread("mutex lock")
	if !m.locked {
		m.locked = true
		m.owner = me.pid
		return false
	}
	if m.owner == me.pid && m.k.cfg.DevelHelp {
		m.k.corePanic(PanicAssert, "mutex lock", "recursive lock")
	}
	m.k.setStatus(me, StatusMutexBlocked)
	m.k.listInsert(&m.waiters, me.pid)
	return true
}

// TryLock takes m if it is free and reports whether it did. It never blocks
// and may be used from interrupt context.
func (m *Mutex) TryLock() bool {
	cs := m.k.enter()
	defer cs.exit()

	if m.locked {
		return false
	}
	m.locked = true
	m.owner = m.k.active
	if m.k.irq.InISR() {
		m.owner = PIDISR
	}
	return true
}

// Unlock releases m. If threads are waiting the most urgent one becomes the
// owner and m stays locked. Unlocking a free mutex does nothing.
func (m *Mutex) Unlock() {
	m.k.apply(m.unlock())
}

func (m *Mutex) unlock() resched {
	cs := m.k.enter()
	defer cs.exit()

	next, ok := m.handOver()
	if !ok {
		return reschedNone
	}
	return m.k.switchReq(next.priority)
}

// handOver passes ownership to the first waiter. It reports false if no
// thread was woken.
func (m *Mutex) handOver() (*thread, bool) {
	if !m.locked {
		return nil, false
	}
	pid := m.k.listPop(&m.waiters)
	if pid == PIDUndef {
		m.locked = false
		m.owner = PIDUndef
		return nil, false
	}
	t := m.k.slot(pid)
	m.k.setStatus(t, StatusRunnable)
	m.owner = pid
	return t, true
}

// UnlockAndSleep releases m and puts the calling thread to sleep in one
// step, so a waiter cannot run in between.
func (m *Mutex) UnlockAndSleep() {
	if m.k.irq.InISR() {
		m.k.corePanic(PanicAssert, "mutex unlock and sleep", "blocking call in interrupt context")
	}
	m.unlockAndSleep()
	m.k.yieldHigher()
}

func (m *Mutex) unlockAndSleep() {
	cs := m.k.enter()
	defer cs.exit()

	me := m.k.activeThread("mutex unlock and sleep")
	m.handOver()
	m.k.setStatus(me, StatusSleeping)
}

// Locked reports whether m is held.
func (m *Mutex) Locked() bool {
	cs := m.k.enter()
	defer cs.exit()
	return m.locked
}

// Owner returns the thread holding m, PIDISR if an interrupt took it, or
// PIDUndef when it is free.
func (m *Mutex) Owner() PID {
	cs := m.k.enter()
	defer cs.exit()
	return m.owner
}

// Waiters returns the blocked threads in wake-up order.
func (m *Mutex) Waiters() []PID {
	cs := m.k.enter()
	defer cs.exit()
	return m.k.listPIDs(&m.waiters)
}
