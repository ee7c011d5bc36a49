package kernel

import "fmt"

// Msg is a fixed-size message. It is copied by value; the kernel never
// allocates for payloads.
type Msg struct {
	// Sender is stamped by the kernel: the sending thread, or PIDISR.
	Sender PID
	Type   uint16
	Value  uint32
	Ptr    any
}

// SendResult is the outcome of a send.
type SendResult uint8

const (
	SendDelivered SendResult = iota
	SendNotDelivered
	SendInvalidPID
)

func (r SendResult) String() string {
	switch r {
	case SendDelivered:
		return "delivered"
	case SendNotDelivered:
		return "not delivered"
	case SendInvalidPID:
		return "invalid pid"
	default:
		return "unknown"
	}
}

// MsgInitQueue gives the calling thread a message queue backed by buf.
// len(buf) must be a power of two.
func (k *Kernel) MsgInitQueue(buf []Msg) {
	if !isPowerOfTwo(len(buf)) {
		k.corePanic(PanicAssert, "msg init queue", fmt.Sprintf("queue length %d is not a power of two", len(buf)))
	}
	cs := k.enter()
	defer cs.exit()

	me := k.activeThread("msg init queue")
	me.msgArray = buf
	me.msgQueue.init(len(buf))
}

// request follows a SendReceive until it is answered. While the request
// sits in the target's ring, seq is its position there.
type request struct {
	to     PID
	seq    uint32
	queued bool
	taken  bool
}

// takeRequest marks the request of from as received by me if the message
// just taken from ring position seq is that request.
func (k *Kernel) takeRequest(me *thread, from PID, seq uint32) {
	t := k.lookup(from)
	if t == nil || t.status != StatusReplyBlocked {
		return
	}
	if t.req.to == me.pid && t.req.queued && t.req.seq == seq {
		t.req.queued = false
		t.req.taken = true
	}
}

func (k *Kernel) queueMsg(t *thread, m *Msg) bool {
	idx := t.msgQueue.put()
	if idx < 0 {
		return false
	}
	t.msgArray[idx] = *m
	return true
}

// Send delivers m to the thread to, blocking while the target's queue is
// full and the target is not waiting in Receive. From interrupt context it
// behaves like SendInt.
func (k *Kernel) Send(m *Msg, to PID) SendResult {
	if k.irq.InISR() {
		return k.SendInt(m, to)
	}
	res, r := k.send(m, to, true)
	k.apply(r)
	return res
}

// TrySend is Send without blocking: it reports SendNotDelivered when the
// message can be neither handed over nor queued.
func (k *Kernel) TrySend(m *Msg, to PID) SendResult {
	if k.irq.InISR() {
		return k.SendInt(m, to)
	}
	res, r := k.send(m, to, false)
	k.apply(r)
	return res
}

func (k *Kernel) send(m *Msg, to PID, block bool) (SendResult, resched) {
	cs := k.enter()
	defer cs.exit()

	target := k.lookup(to)
	if target == nil {
		return SendInvalidPID, reschedNone
	}
	me := k.activeThread("msg send")
	if target == me {
		// Sending to ourselves can only ever be queued.
		m.Sender = me.pid
		if k.queueMsg(me, m) {
			return SendDelivered, reschedNone
		}
		return SendNotDelivered, reschedNone
	}
	return k.deliver(me, target, m, block)
}

// deliver hands m from me to target. A caller in StatusReplyBlocked keeps
// that status and always ends up parked until the reply arrives.
func (k *Kernel) deliver(me, target *thread, m *Msg, block bool) (SendResult, resched) {
	m.Sender = me.pid
	rpc := me.status == StatusReplyBlocked

	if target.status == StatusReceiveBlocked {
		*target.waitData = *m
		target.waitData = nil
		k.setStatus(target, StatusRunnable)
		if rpc {
			me.req.taken = true
			return SendDelivered, reschedYield
		}
		return SendDelivered, k.switchReq(target.priority)
	}

	seq := target.msgQueue.write
	if k.queueMsg(target, m) {
		if rpc {
			me.req.seq = seq
			me.req.queued = true
			return SendDelivered, reschedYield
		}
		return SendDelivered, reschedNone
	}

	if !block {
		return SendNotDelivered, reschedNone
	}
	if !rpc {
		me.waitData = m
		k.setStatus(me, StatusSendBlocked)
	}
	k.listInsert(&target.msgWaiters, me.pid)
	return SendDelivered, reschedYield
}

// SendInt is the interrupt-context send: it never blocks and stamps the
// message with PIDISR. A switch it makes necessary is left pending.
func (k *Kernel) SendInt(m *Msg, to PID) SendResult {
	cs := k.enter()
	defer cs.exit()

	target := k.lookup(to)
	if target == nil {
		return SendInvalidPID
	}
	m.Sender = PIDISR
	if target.status == StatusReceiveBlocked {
		*target.waitData = *m
		target.waitData = nil
		k.setStatus(target, StatusRunnable)
		k.switchPending = true
		return SendDelivered
	}
	if k.queueMsg(target, m) {
		return SendDelivered
	}
	return SendNotDelivered
}

// SendToSelf queues m for the calling thread. It reports false if the queue
// is full or absent.
func (k *Kernel) SendToSelf(m *Msg) bool {
	cs := k.enter()
	defer cs.exit()

	me := k.activeThread("msg send to self")
	m.Sender = me.pid
	return k.queueMsg(me, m)
}

// Receive stores the oldest pending message in m, blocking until one
// arrives. Queued messages go before blocked senders.
func (k *Kernel) Receive(m *Msg) {
	if k.irq.InISR() {
		k.corePanic(PanicAssert, "msg receive", "blocking call in interrupt context")
	}
	_, r := k.receive(m, true)
	k.apply(r)
}

// TryReceive is Receive without blocking. It reports whether m was filled.
func (k *Kernel) TryReceive(m *Msg) bool {
	ok, r := k.receive(m, false)
	k.apply(r)
	return ok
}

func (k *Kernel) receive(m *Msg, block bool) (bool, resched) {
	cs := k.enter()
	defer cs.exit()

	me := k.activeThread("msg receive")
	idx := -1
	seq := me.msgQueue.read
	if me.msgQueue.capacity() > 0 {
		idx = me.msgQueue.get()
	}
	if !block && idx < 0 && me.msgWaiters.empty() {
		return false, reschedNone
	}

	if idx >= 0 {
		*m = me.msgArray[idx]
		k.takeRequest(me, m.Sender, seq)
	}

	senderPID := k.listPop(&me.msgWaiters)
	if senderPID == PIDUndef {
		if idx < 0 {
			me.waitData = m
			k.setStatus(me, StatusReceiveBlocked)
			return true, reschedYield
		}
		return true, reschedNone
	}

	// A sender was waiting: its message goes into the slot just freed, or
	// straight to the caller when there is no queue.
	sender := k.slot(senderPID)
	rpc := sender.status == StatusReplyBlocked
	dst := m
	if idx >= 0 {
		if rpc {
			sender.req.seq = me.msgQueue.write
			sender.req.queued = true
		}
		dst = &me.msgArray[me.msgQueue.put()]
	} else if rpc {
		sender.req.taken = true
	}
	*dst = *sender.waitData

	if rpc {
		return true, reschedNone
	}
	sender.waitData = nil
	k.setStatus(sender, StatusRunnable)
	return true, k.switchReq(sender.priority)
}

// SendReceive sends m to to and blocks until to replies; the reply is
// stored in reply. m and reply may be the same message.
func (k *Kernel) SendReceive(m, reply *Msg, to PID) SendResult {
	if k.irq.InISR() {
		k.corePanic(PanicAssert, "msg send receive", "blocking call in interrupt context")
	}
	res, r := k.sendReceive(m, reply, to)
	k.apply(r)
	return res
}

func (k *Kernel) sendReceive(m, reply *Msg, to PID) (SendResult, resched) {
	cs := k.enter()
	defer cs.exit()

	target := k.lookup(to)
	if target == nil {
		return SendInvalidPID, reschedNone
	}
	me := k.activeThread("msg send receive")
	if target == me {
		k.corePanic(PanicAssert, "msg send receive", "request to self")
	}
	// reply carries the request until the target takes it, then receives
	// the answer in place.
	*reply = *m
	me.waitData = reply
	me.req = request{to: target.pid}
	k.setStatus(me, StatusReplyBlocked)
	return k.deliver(me, target, reply, true)
}

// Reply answers the request m with reply. It reports false unless the
// sender of m waits in SendReceive on a request the caller has received.
func (k *Kernel) Reply(m, reply *Msg) bool {
	ok, r := k.reply(m, reply)
	k.apply(r)
	return ok
}

// ReplyInt is Reply for interrupt context: a switch it makes necessary is
// left pending.
func (k *Kernel) ReplyInt(m, reply *Msg) bool {
	cs := k.enter()
	defer cs.exit()

	ok, target := k.answer(m, reply)
	if ok && (k.active == PIDUndef || target.priority < k.slot(k.active).priority) {
		k.switchPending = true
	}
	return ok
}

func (k *Kernel) reply(m, reply *Msg) (bool, resched) {
	cs := k.enter()
	defer cs.exit()

	ok, target := k.answer(m, reply)
	if !ok {
		return false, reschedNone
	}
	return true, k.switchReq(target.priority)
}

func (k *Kernel) answer(m, reply *Msg) (bool, *thread) {
	target := k.lookup(m.Sender)
	if target == nil || target.status != StatusReplyBlocked || !target.req.taken {
		return false, nil
	}
	// Only the thread the request went to may answer it. An interrupt
	// answers on behalf of that thread.
	inISR := k.irq.InISR()
	if !inISR && target.req.to != k.active {
		return false, nil
	}

	reply.Sender = k.active
	if inISR {
		reply.Sender = PIDISR
	}
	*target.waitData = *reply
	target.waitData = nil
	target.req = request{}
	k.setStatus(target, StatusRunnable)
	return true, target
}

// Avail returns the number of messages queued for the calling thread.
func (k *Kernel) Avail() int {
	cs := k.enter()
	defer cs.exit()
	return k.activeThread("msg avail").msgQueue.avail()
}

// QueueCap returns the capacity of the calling thread's queue.
func (k *Kernel) QueueCap() int {
	cs := k.enter()
	defer cs.exit()
	return k.activeThread("msg queue cap").msgQueue.capacity()
}

// PendingMsgs returns a copy of the messages queued for pid, oldest first.
func (k *Kernel) PendingMsgs(pid PID) []Msg {
	cs := k.enter()
	defer cs.exit()

	t := k.lookup(pid)
	if t == nil {
		return nil
	}
	out := make([]Msg, 0, t.msgQueue.avail())
	for i := 0; i < t.msgQueue.avail(); i++ {
		out = append(out, t.msgArray[t.msgQueue.peek(i)])
	}
	return out
}
