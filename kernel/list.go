package kernel

import "fmt"

// node links a thread into at most one list. Links are PIDs into the
// thread table, never pointers.
type node struct {
	prev, next PID
	on         *list
}

// list is a doubly linked FIFO of threads threaded through their nodes.
type list struct {
	head, tail PID
	n          int
}

func (l *list) empty() bool { return l.head == PIDUndef }

func (k *Kernel) linked(pid PID) bool { return k.slot(pid).node.on != nil }

// listPush appends pid at the tail of l.
func (k *Kernel) listPush(l *list, pid PID) {
	t := k.slot(pid)
	if t.node.on != nil {
		k.corePanic(PanicAssert, "list push", fmt.Sprintf("pid %d already queued", pid))
	}
	t.node = node{prev: l.tail, on: l}
	if l.tail != PIDUndef {
		k.slot(l.tail).node.next = pid
	} else {
		l.head = pid
	}
	l.tail = pid
	l.n++
}

// listInsert places pid after every thread of the same or more urgent
// priority, so equal priorities stay FIFO.
func (k *Kernel) listInsert(l *list, pid PID) {
	t := k.slot(pid)
	if t.node.on != nil {
		k.corePanic(PanicAssert, "list insert", fmt.Sprintf("pid %d already queued", pid))
	}
	at := l.head
	for at != PIDUndef && k.slot(at).priority <= t.priority {
		at = k.slot(at).node.next
	}
	if at == PIDUndef {
		k.listPush(l, pid)
		return
	}
	before := k.slot(at)
	t.node = node{prev: before.node.prev, next: at, on: l}
	if before.node.prev != PIDUndef {
		k.slot(before.node.prev).node.next = pid
	} else {
		l.head = pid
	}
	before.node.prev = pid
	l.n++
}

// listRemove unlinks pid from l in O(1).
func (k *Kernel) listRemove(l *list, pid PID) {
	t := k.slot(pid)
	if t.node.on != l {
		k.corePanic(PanicAssert, "list remove", fmt.Sprintf("pid %d not on this list", pid))
	}
	if t.node.prev != PIDUndef {
		k.slot(t.node.prev).node.next = t.node.next
	} else {
		l.head = t.node.next
	}
	if t.node.next != PIDUndef {
		k.slot(t.node.next).node.prev = t.node.prev
	} else {
		l.tail = t.node.prev
	}
	t.node = node{}
	l.n--
}

// listPop removes and returns the head of l, or PIDUndef.
func (k *Kernel) listPop(l *list) PID {
	pid := l.head
	if pid == PIDUndef {
		return PIDUndef
	}
	k.listRemove(l, pid)
	return pid
}

// listRotate moves the head of l to its tail.
func (k *Kernel) listRotate(l *list) {
	if l.n < 2 {
		return
	}
	k.listPush(l, k.listPop(l))
}

// listPIDs returns the members of l in order.
func (k *Kernel) listPIDs(l *list) []PID {
	out := make([]PID, 0, l.n)
	for at := l.head; at != PIDUndef; at = k.slot(at).node.next {
		out = append(out, at)
	}
	return out
}
