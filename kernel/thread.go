package kernel

import (
	"errors"
	"fmt"
)

// PID identifies a thread while it is alive. Valid PIDs are
// 1..Config.MaxThreads; a PID is reused only after its slot is freed.
type PID int16

const (
	// PIDUndef is no thread: the scheduler is idle or nothing was found.
	PIDUndef PID = 0
	// PIDISR is the sender of messages posted from interrupt context.
	PIDISR PID = -1
)

// Priority is a scheduling priority. Lower values are more urgent.
type Priority uint8

// Status is the lifecycle state of a thread. Statuses from StatusRunning
// upwards are on a run queue.
type Status uint8

const (
	StatusStopped Status = iota
	StatusZombie
	StatusSleeping
	StatusMutexBlocked
	StatusReceiveBlocked
	StatusSendBlocked
	StatusReplyBlocked
	StatusRunning
	StatusRunnable
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusZombie:
		return "zombie"
	case StatusSleeping:
		return "sleeping"
	case StatusMutexBlocked:
		return "bl mutex"
	case StatusReceiveBlocked:
		return "bl rx"
	case StatusSendBlocked:
		return "bl send"
	case StatusReplyBlocked:
		return "bl reply"
	case StatusRunning:
		return "running"
	case StatusRunnable:
		return "pending"
	default:
		return "unknown"
	}
}

func (s Status) onRunqueue() bool { return s >= StatusRunning }

// CreateFlags modify Create.
type CreateFlags uint8

const (
	// CreateSleeping leaves the new thread sleeping until Wakeup.
	CreateSleeping CreateFlags = 1 << iota
	// CreateWithoutYield keeps the creator running even if the new thread is
	// more urgent.
	CreateWithoutYield
	// CreateStackTest fills the stack with a canary so MeasureStackFree
	// reports the high-water mark.
	CreateStackTest
)

// MinStackSize is the smallest stack Create accepts.
const MinStackSize = 128

var (
	ErrTableFull     = errors.New("kernel: thread table full")
	ErrBadPriority   = errors.New("kernel: bad priority")
	ErrStackTooSmall = errors.New("kernel: stack too small")
	ErrNilEntry      = errors.New("kernel: nil entry function")
)

// KillResult is the outcome of KillZombie.
type KillResult uint8

const (
	KillOK KillResult = iota
	KillNotFound
	KillNotZombie
)

func (r KillResult) String() string {
	switch r {
	case KillOK:
		return "ok"
	case KillNotFound:
		return "not found"
	case KillNotZombie:
		return "not a zombie"
	default:
		return "unknown"
	}
}

// thread is a thread control block. Slots with pid == PIDUndef are free.
type thread struct {
	pid       PID
	priority  Priority
	status    Status
	sp        uintptr
	node      node
	name      string
	stack     []byte
	stackTest bool

	msgQueue   cib
	msgArray   []Msg
	msgWaiters list
	waitData   *Msg
	req        request

	switches     uint32
	runtimeTicks uint64
}

// slot returns the table entry for pid without validation.
func (k *Kernel) slot(pid PID) *thread { return &k.threads[pid-1] }

// lookup returns the live thread for pid, or nil.
func (k *Kernel) lookup(pid PID) *thread {
	if pid <= PIDUndef || int(pid) > len(k.threads) {
		return nil
	}
	t := &k.threads[pid-1]
	if t.pid == PIDUndef {
		return nil
	}
	return t
}

// activeThread returns the running thread. Calling a thread-context API with
// no active thread is an invariant violation.
func (k *Kernel) activeThread(op string) *thread {
	t := k.lookup(k.active)
	if t == nil {
		k.corePanic(PanicAssert, op, "no active thread")
	}
	return t
}

// Create adds a thread running entry(arg) on stack.
//
// The new thread is runnable (or sleeping with CreateSleeping). If it is more
// urgent than the creator it runs before Create returns, unless
// CreateWithoutYield is set or the kernel has not started yet.
func (k *Kernel) Create(stack []byte, prio Priority, flags CreateFlags, entry func(arg any), arg any, name string) (PID, error) {
	if int(prio) >= k.cfg.PrioLevels {
		return PIDUndef, ErrBadPriority
	}
	if len(stack) < MinStackSize {
		return PIDUndef, ErrStackTooSmall
	}
	if entry == nil {
		return PIDUndef, ErrNilEntry
	}
	if flags&CreateStackTest != 0 {
		fillStackCanary(stack)
	} else if k.cfg.DevelHelp {
		markStackBottom(stack)
	}

	pid, r, err := k.create(stack, prio, flags, func() {
		entry(arg)
		k.exit()
	}, name)
	if err != nil {
		return PIDUndef, err
	}
	k.apply(r)
	return pid, nil
}

func (k *Kernel) create(stack []byte, prio Priority, flags CreateFlags, entry func(), name string) (PID, resched, error) {
	cs := k.enter()
	defer cs.exit()

	pid := PIDUndef
	for i := range k.threads {
		if k.threads[i].pid == PIDUndef {
			pid = PID(i + 1)
			break
		}
	}
	if pid == PIDUndef {
		return PIDUndef, reschedNone, ErrTableFull
	}

	t := k.slot(pid)
	*t = thread{
		pid:       pid,
		priority:  prio,
		status:    StatusStopped,
		name:      name,
		stack:     stack,
		stackTest: flags&CreateStackTest != 0,
	}
	t.sp = k.tr.Init(pid, stack, entry)
	k.numThreads++

	if flags&CreateSleeping != 0 {
		k.setStatus(t, StatusSleeping)
		return pid, reschedNone, nil
	}
	k.setStatus(t, StatusRunnable)
	if flags&CreateWithoutYield != 0 {
		return pid, reschedNone, nil
	}
	return pid, k.switchReq(prio), nil
}

// exit runs when an entry function returns: the slot is freed at once and
// the CPU goes to the next thread.
func (k *Kernel) exit() {
	k.release()
	k.tr.SwitchExit()
}

func (k *Kernel) release() {
	cs := k.enter()
	defer cs.exit()

	t := k.activeThread("thread exit")
	k.setStatus(t, StatusStopped)
	k.free(t)
	k.active = PIDUndef
}

// free clears a slot. Senders still queued on it stay blocked.
func (k *Kernel) free(t *thread) {
	if t.node.on != nil {
		k.corePanic(PanicAssert, "thread free", fmt.Sprintf("pid %d still queued", t.pid))
	}
	for k.listPop(&t.msgWaiters) != PIDUndef {
	}
	*t = thread{}
	k.numThreads--
}

// Sleep suspends the calling thread until Wakeup names it. It does nothing
// in interrupt context.
func (k *Kernel) Sleep() {
	if k.irq.InISR() {
		return
	}
	k.block(StatusSleeping, "thread sleep")
	k.yieldHigher()
}

func (k *Kernel) block(s Status, op string) {
	cs := k.enter()
	defer cs.exit()
	k.setStatus(k.activeThread(op), s)
}

// Wakeup makes a sleeping thread runnable. It reports false if pid does not
// name a sleeping thread.
func (k *Kernel) Wakeup(pid PID) bool {
	ok, r := k.wakeup(pid)
	k.apply(r)
	return ok
}

func (k *Kernel) wakeup(pid PID) (bool, resched) {
	cs := k.enter()
	defer cs.exit()

	t := k.lookup(pid)
	if t == nil || t.status != StatusSleeping {
		return false, reschedNone
	}
	k.setStatus(t, StatusRunnable)
	return true, k.switchReq(t.priority)
}

// Zombify terminates the calling thread without freeing its slot. It never
// returns except in interrupt context, where it does nothing.
func (k *Kernel) Zombify() {
	if k.irq.InISR() {
		return
	}
	k.block(StatusZombie, "thread zombify")
	k.yieldHigher()
}

// KillZombie frees the slot of a zombie thread.
func (k *Kernel) KillZombie(pid PID) KillResult {
	cs := k.enter()
	defer cs.exit()

	t := k.lookup(pid)
	if t == nil {
		return KillNotFound
	}
	if t.status != StatusZombie {
		return KillNotZombie
	}
	k.setStatus(t, StatusStopped)
	k.free(t)
	return KillOK
}

// ActivePID returns the running thread, or PIDUndef while idle.
func (k *Kernel) ActivePID() PID {
	cs := k.enter()
	defer cs.exit()
	return k.active
}

// IsValidPID reports whether pid names a live thread.
func (k *Kernel) IsValidPID(pid PID) bool {
	cs := k.enter()
	defer cs.exit()
	return k.lookup(pid) != nil
}

// Status returns the status of pid. Free slots report StatusStopped.
func (k *Kernel) Status(pid PID) Status {
	cs := k.enter()
	defer cs.exit()
	if t := k.lookup(pid); t != nil {
		return t.status
	}
	return StatusStopped
}

// Name returns the name given at creation.
func (k *Kernel) Name(pid PID) string {
	cs := k.enter()
	defer cs.exit()
	if t := k.lookup(pid); t != nil {
		return t.name
	}
	return ""
}

// Priority returns the current priority of pid.
func (k *Kernel) Priority(pid PID) (Priority, bool) {
	cs := k.enter()
	defer cs.exit()
	if t := k.lookup(pid); t != nil {
		return t.priority, true
	}
	return 0, false
}

// NumThreads returns the number of occupied slots.
func (k *Kernel) NumThreads() int {
	cs := k.enter()
	defer cs.exit()
	return k.numThreads
}

// StackPointer returns the saved context cursor of pid.
func (k *Kernel) StackPointer(pid PID) uintptr {
	cs := k.enter()
	defer cs.exit()
	if t := k.lookup(pid); t != nil {
		return t.sp
	}
	return 0
}

// SaveContext records the stack pointer of a suspended thread. Only the
// trampoline calls it.
func (k *Kernel) SaveContext(pid PID, sp uintptr) {
	cs := k.enter()
	defer cs.exit()
	if t := k.lookup(pid); t != nil {
		t.sp = sp
	}
}

// ThreadInfo is a snapshot of one thread for diagnostics.
type ThreadInfo struct {
	PID       PID
	Name      string
	Status    Status
	Priority  Priority
	Active    bool
	StackSize int
	// StackFree is -1 unless the thread was created with CreateStackTest.
	StackFree    int
	MsgQueued    int
	MsgCap       int
	Switches     uint32
	RuntimeTicks uint64
}

// Threads returns a snapshot of every live thread, ordered by PID.
func (k *Kernel) Threads() []ThreadInfo {
	cs := k.enter()
	defer cs.exit()

	out := make([]ThreadInfo, 0, k.numThreads)
	for i := range k.threads {
		t := &k.threads[i]
		if t.pid == PIDUndef {
			continue
		}
		out = append(out, ThreadInfo{
			PID:          t.pid,
			Name:         t.name,
			Status:       t.status,
			Priority:     t.priority,
			Active:       t.pid == k.active,
			StackSize:    len(t.stack),
			StackFree:    t.stackFree(),
			MsgQueued:    t.msgQueue.avail(),
			MsgCap:       t.msgQueue.capacity(),
			Switches:     t.switches,
			RuntimeTicks: t.runtimeTicks,
		})
	}
	return out
}

// MeasureStackFree returns the number of never-used bytes at the bottom of
// the stack of pid. Only threads created with CreateStackTest are measured.
func (k *Kernel) MeasureStackFree(pid PID) (int, bool) {
	cs := k.enter()
	defer cs.exit()
	t := k.lookup(pid)
	if t == nil || !t.stackTest {
		return 0, false
	}
	return t.stackFree(), true
}
