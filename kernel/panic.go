package kernel

import "fmt"

// PanicKind classifies a fatal kernel error.
type PanicKind uint8

const (
	PanicGeneral PanicKind = iota
	PanicAssert
	PanicStackOverflow
)

func (p PanicKind) String() string {
	switch p {
	case PanicGeneral:
		return "general error"
	case PanicAssert:
		return "assertion failed"
	case PanicStackOverflow:
		return "stack overflow"
	default:
		return "unknown"
	}
}

// PanicInfo is the state preserved when the kernel panics.
type PanicInfo struct {
	Kind      PanicKind
	Op        string
	Message   string
	ActivePID PID
	Stack     []byte
}

func (p PanicInfo) String() string {
	return fmt.Sprintf("%s in %s: %s (active pid %d)", p.Kind, p.Op, p.Message, p.ActivePID)
}

type panicState struct {
	active  bool
	info    PanicInfo
	handler func(PanicInfo)
}

// SetPanicHandler installs the function called on the first kernel panic.
// It runs with interrupts disabled and must not call back into the kernel.
func (k *Kernel) SetPanicHandler(fn func(PanicInfo)) {
	cs := k.enter()
	defer cs.exit()
	k.panic.handler = fn
}

// InPanicMode reports whether the kernel has panicked.
func (k *Kernel) InPanicMode() bool {
	cs := k.enter()
	defer cs.exit()
	return k.panic.active
}

// LastPanic returns the preserved state of the kernel panic, if any.
func (k *Kernel) LastPanic() (PanicInfo, bool) {
	cs := k.enter()
	defer cs.exit()
	return k.panic.info, k.panic.active
}

// corePanic stops the system after an invariant violation. Interrupts stay
// disabled. With DevelHelp the CPU halts so the state can be inspected;
// otherwise it reboots.
func (k *Kernel) corePanic(kind PanicKind, op, msg string) {
	k.irq.Disable()

	if !k.panic.active {
		k.panic.active = true
		k.panic.info = PanicInfo{
			Kind:      kind,
			Op:        op,
			Message:   msg,
			ActivePID: k.active,
			Stack:     captureStack(),
		}
		k.logf("kernel panic: %s", k.panic.info)
		if k.panic.handler != nil {
			k.panic.handler(k.panic.info)
		}
	}

	if k.cfg.DevelHelp {
		k.pm.Halt()
	} else {
		k.pm.Reboot()
	}
	panic("kernel: power manager returned after " + kind.String())
}
