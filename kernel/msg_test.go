package kernel

import (
	"reflect"
	"testing"
)

func TestMsgQueueOrder(t *testing.T) {
	p := newTestPort(t, testConfig())
	main := p.boot(t)
	p.k.MsgInitQueue(make([]Msg, 4))

	if got := p.k.QueueCap(); got != 4 {
		t.Fatalf("QueueCap() = %d, want 4", got)
	}

	var results []SendResult
	p.isr(func() {
		for i := 0; i < 5; i++ {
			results = append(results, p.k.SendInt(&Msg{Type: uint16(i)}, main))
		}
	})
	want := []SendResult{SendDelivered, SendDelivered, SendDelivered, SendDelivered, SendNotDelivered}
	if !reflect.DeepEqual(results, want) {
		t.Fatalf("SendInt() results = %v, want %v", results, want)
	}
	if got := p.k.Avail(); got != 4 {
		t.Fatalf("Avail() = %d, want 4", got)
	}

	var types []uint16
	for _, m := range p.k.PendingMsgs(main) {
		types = append(types, m.Type)
	}
	if want := []uint16{0, 1, 2, 3}; !reflect.DeepEqual(types, want) {
		t.Fatalf("PendingMsgs() types = %v, want %v", types, want)
	}

	for i := 0; i < 4; i++ {
		var m Msg
		p.k.Receive(&m)
		if m.Type != uint16(i) || m.Sender != PIDISR {
			t.Fatalf("Receive() #%d = %+v, want type %d from ISR", i, m, i)
		}
		if got := p.k.Avail(); got != 3-i {
			t.Fatalf("Avail() = %d, want %d", got, 3-i)
		}
	}

	var m Msg
	if p.k.TryReceive(&m) {
		t.Fatalf("TryReceive() = true on empty queue, want false")
	}
	p.wantActive(t, main)
}

func TestMsgInitQueueNotPowerOfTwo(t *testing.T) {
	p := newTestPort(t, testConfig())
	p.boot(t)

	expectPower(t, haltSignal, func() { p.k.MsgInitQueue(make([]Msg, 3)) })
}

func TestSendFromISRRoutesToSendInt(t *testing.T) {
	p := newTestPort(t, testConfig())
	main := p.boot(t)
	p.k.MsgInitQueue(make([]Msg, 2))

	var res SendResult
	p.isr(func() { res = p.k.Send(&Msg{Value: 5}, main) })
	if res != SendDelivered {
		t.Fatalf("Send() in ISR = %v, want %v", res, SendDelivered)
	}

	var m Msg
	if !p.k.TryReceive(&m) || m.Sender != PIDISR || m.Value != 5 {
		t.Fatalf("TryReceive() = %+v, want value 5 from ISR", m)
	}
}

func TestMsgRendezvous(t *testing.T) {
	p := newTestPort(t, testConfig())
	main := p.boot(t)

	receiver := p.spawn(t, 4, 0, "receiver")
	var got Msg
	p.k.Receive(&got)
	p.wantActive(t, main)
	p.wantStatus(t, receiver, StatusReceiveBlocked)

	if res := p.k.Send(&Msg{Type: 7, Value: 42}, receiver); res != SendDelivered {
		t.Fatalf("Send() = %v, want %v", res, SendDelivered)
	}
	p.wantActive(t, receiver)
	if got.Type != 7 || got.Value != 42 || got.Sender != main {
		t.Fatalf("received %+v, want type 7 value 42 from %d", got, main)
	}
}

func TestSendBlocksUntilReceived(t *testing.T) {
	p := newTestPort(t, testConfig())
	main := p.boot(t)
	target := p.spawn(t, 12, 0, "target")

	if res := p.k.Send(&Msg{Value: 1}, target); res != SendDelivered {
		t.Fatalf("Send() = %v, want %v", res, SendDelivered)
	}
	p.wantStatus(t, main, StatusSendBlocked)
	p.wantActive(t, target)

	var got Msg
	p.k.Receive(&got)
	if got.Value != 1 || got.Sender != main {
		t.Fatalf("Receive() = %+v, want value 1 from %d", got, main)
	}
	p.wantActive(t, main)
	p.wantStatus(t, target, StatusRunnable)
}

func TestTrySendAndInvalidTargets(t *testing.T) {
	p := newTestPort(t, testConfig())
	main := p.boot(t)
	target := p.spawn(t, 12, 0, "target")

	tests := []struct {
		name string
		send func() SendResult
		want SendResult
	}{
		{"busy target", func() SendResult { return p.k.TrySend(&Msg{}, target) }, SendNotDelivered},
		{"unknown pid", func() SendResult { return p.k.Send(&Msg{}, 42) }, SendInvalidPID},
		{"undef pid", func() SendResult { return p.k.TrySend(&Msg{}, PIDUndef) }, SendInvalidPID},
		{"self without queue", func() SendResult { return p.k.Send(&Msg{}, main) }, SendNotDelivered},
	}
	for _, tt := range tests {
		if got := tt.send(); got != tt.want {
			t.Fatalf("%s: result = %v, want %v", tt.name, got, tt.want)
		}
		p.wantActive(t, main)
	}
}

func TestSendToSelf(t *testing.T) {
	p := newTestPort(t, testConfig())
	main := p.boot(t)

	if p.k.SendToSelf(&Msg{}) {
		t.Fatalf("SendToSelf() = true without a queue, want false")
	}

	p.k.MsgInitQueue(make([]Msg, 2))
	if res := p.k.Send(&Msg{Value: 1}, main); res != SendDelivered {
		t.Fatalf("Send(self) = %v, want %v", res, SendDelivered)
	}
	if !p.k.SendToSelf(&Msg{Value: 2}) {
		t.Fatalf("SendToSelf() = false with room, want true")
	}
	if p.k.SendToSelf(&Msg{Value: 3}) {
		t.Fatalf("SendToSelf() = true on full queue, want false")
	}

	var m Msg
	p.k.Receive(&m)
	if m.Value != 1 || m.Sender != main {
		t.Fatalf("Receive() = %+v, want value 1 from self", m)
	}
}

func TestSendReceiveReply(t *testing.T) {
	p := newTestPort(t, testConfig())
	main := p.boot(t)

	server := p.spawn(t, 4, 0, "server")
	var req Msg
	p.k.Receive(&req)
	p.wantActive(t, main)

	var reply Msg
	if res := p.k.SendReceive(&Msg{Type: 1, Value: 10}, &reply, server); res != SendDelivered {
		t.Fatalf("SendReceive() = %v, want %v", res, SendDelivered)
	}
	p.wantActive(t, server)
	p.wantStatus(t, main, StatusReplyBlocked)
	if req.Type != 1 || req.Value != 10 || req.Sender != main {
		t.Fatalf("server got %+v, want type 1 value 10 from %d", req, main)
	}

	if !p.k.Reply(&req, &Msg{Type: 2, Value: 11}) {
		t.Fatalf("Reply() = false, want true")
	}
	// The client is less urgent: the server keeps the CPU.
	p.wantActive(t, server)
	p.wantStatus(t, main, StatusRunnable)

	if p.k.Reply(&req, &Msg{}) {
		t.Fatalf("second Reply() = true, want false")
	}

	p.k.Receive(&req)
	p.wantActive(t, main)
	if reply.Type != 2 || reply.Value != 11 || reply.Sender != server {
		t.Fatalf("reply = %+v, want type 2 value 11 from %d", reply, server)
	}
}

func TestSendReceiveWaitsForReceiver(t *testing.T) {
	p := newTestPort(t, testConfig())
	main := p.boot(t)
	server := p.spawn(t, 12, 0, "server")

	msg := Msg{Value: 3}
	if res := p.k.SendReceive(&msg, &msg, server); res != SendDelivered {
		t.Fatalf("SendReceive() = %v, want %v", res, SendDelivered)
	}
	p.wantActive(t, server)
	p.wantStatus(t, main, StatusReplyBlocked)

	// Not received yet: nothing to answer.
	if p.k.Reply(&Msg{Sender: main}, &Msg{}) {
		t.Fatalf("Reply() before Receive = true, want false")
	}

	var req Msg
	p.k.Receive(&req)
	if req.Value != 3 || req.Sender != main {
		t.Fatalf("Receive() = %+v, want value 3 from %d", req, main)
	}
	p.wantStatus(t, main, StatusReplyBlocked)
	p.wantActive(t, server)

	if !p.k.Reply(&req, &Msg{Value: req.Value * 2}) {
		t.Fatalf("Reply() = false, want true")
	}
	p.wantActive(t, main)
	if msg.Value != 6 || msg.Sender != server {
		t.Fatalf("reply = %+v, want value 6 from %d", msg, server)
	}
}

func TestSendReceiveToQueue(t *testing.T) {
	p := newTestPort(t, testConfig())
	main := p.boot(t)

	server := p.spawn(t, 2, 0, "server")
	p.k.MsgInitQueue(make([]Msg, 4))
	p.k.ChangePriority(server, 12)
	p.wantActive(t, main)

	var reply Msg
	p.k.SendReceive(&Msg{Type: 9}, &reply, server)
	p.wantActive(t, server)
	if got := p.k.Avail(); got != 1 {
		t.Fatalf("Avail() = %d, want 1", got)
	}

	var req Msg
	p.k.Receive(&req)
	p.k.Reply(&req, &Msg{Type: 10})
	p.wantActive(t, main)
	if reply.Type != 10 {
		t.Fatalf("reply.Type = %d, want 10", reply.Type)
	}
}

func TestSendReceiveToSelfPanics(t *testing.T) {
	p := newTestPort(t, testConfig())
	main := p.boot(t)

	var reply Msg
	expectPower(t, haltSignal, func() { p.k.SendReceive(&Msg{}, &reply, main) })
}

func TestSendReceiveInvalidPID(t *testing.T) {
	p := newTestPort(t, testConfig())
	main := p.boot(t)

	var reply Msg
	if res := p.k.SendReceive(&Msg{}, &reply, 42); res != SendInvalidPID {
		t.Fatalf("SendReceive(42) = %v, want %v", res, SendInvalidPID)
	}
	p.wantActive(t, main)
	p.wantStatus(t, main, StatusRunning)
}

func TestBlockedSendersByPriority(t *testing.T) {
	p := newTestPort(t, testConfig())
	main := p.boot(t)
	target := p.spawn(t, 12, 0, "target")

	a := p.spawn(t, 6, 0, "a")
	p.k.Send(&Msg{Value: 'a'}, target)
	b := p.spawn(t, 4, 0, "b")
	p.k.Send(&Msg{Value: 'b'}, target)
	p.wantActive(t, main)
	p.wantStatus(t, a, StatusSendBlocked)
	p.wantStatus(t, b, StatusSendBlocked)

	p.k.Sleep()
	p.wantActive(t, target)

	var got Msg
	p.k.Receive(&got)
	if got.Value != 'b' {
		t.Fatalf("first Receive() value = %q, want 'b'", rune(got.Value))
	}
	p.wantActive(t, b)

	p.k.Sleep()
	p.wantActive(t, target)
	p.k.Receive(&got)
	if got.Value != 'a' {
		t.Fatalf("second Receive() value = %q, want 'a'", rune(got.Value))
	}
	p.wantActive(t, a)
}

func TestQueuedMessagesBeforeBlockedSenders(t *testing.T) {
	p := newTestPort(t, testConfig())
	main := p.boot(t)

	target := p.spawn(t, 2, 0, "target")
	p.k.MsgInitQueue(make([]Msg, 2))
	p.k.ChangePriority(target, 12)
	p.wantActive(t, main)

	for v := uint32(1); v <= 3; v++ {
		if res := p.k.Send(&Msg{Value: v}, target); res != SendDelivered {
			t.Fatalf("Send(%d) = %v, want %v", v, res, SendDelivered)
		}
	}
	// The third send blocked main.
	p.wantActive(t, target)
	if got := p.k.Avail(); got != 2 {
		t.Fatalf("Avail() = %d, want 2", got)
	}

	var m Msg
	p.k.Receive(&m)
	if m.Value != 1 {
		t.Fatalf("Receive() value = %d, want 1", m.Value)
	}
	// main's message took the freed slot and main runs again.
	p.wantActive(t, main)

	p.k.Sleep()
	p.wantActive(t, target)
	var values []uint32
	for _, pm := range p.k.PendingMsgs(target) {
		values = append(values, pm.Value)
	}
	if want := []uint32{2, 3}; !reflect.DeepEqual(values, want) {
		t.Fatalf("PendingMsgs() values = %v, want %v", values, want)
	}
}

func TestReceiverExitLeavesSendersBlocked(t *testing.T) {
	p := newTestPort(t, testConfig())
	main := p.boot(t)
	target := p.spawn(t, 12, 0, "target")
	p.spawn(t, 14, 0, "spare")

	p.k.Send(&Msg{}, target)
	p.wantActive(t, target)

	p.tr.entries[target]()
	p.wantStatus(t, main, StatusSendBlocked)
	if p.k.linked(main) {
		t.Fatalf("main still linked after its target exited")
	}
	if p.k.IsValidPID(target) {
		t.Fatalf("IsValidPID(target) = true after exit")
	}
}

func TestReplyIntWakesIdleClient(t *testing.T) {
	p := newTestPort(t, testConfig())
	main := p.boot(t)

	server := p.spawn(t, 4, 0, "server")
	var req Msg
	p.k.Receive(&req)

	var reply Msg
	p.k.SendReceive(&Msg{Value: 1}, &reply, server)
	p.wantActive(t, server)

	// The server leaves the answer to an interrupt and sleeps.
	var ok bool
	p.pm.idle = func() {
		p.irq.Raise(func() { ok = p.k.ReplyInt(&req, &Msg{Value: 99}) })
	}
	p.k.Sleep()

	if !ok {
		t.Fatalf("ReplyInt() = false, want true")
	}
	p.wantActive(t, main)
	if reply.Value != 99 || reply.Sender != PIDISR {
		t.Fatalf("reply = %+v, want value 99 from ISR", reply)
	}
}

func TestReplyOnlyFromRequestTarget(t *testing.T) {
	p := newTestPort(t, testConfig())
	main := p.boot(t)

	server := p.spawn(t, 4, 0, "server")
	var req Msg
	p.k.Receive(&req)
	p.wantActive(t, main)

	bystander := p.spawn(t, 2, 0, "bystander")
	p.k.MsgInitQueue(make([]Msg, 4))
	p.k.Sleep()
	p.wantActive(t, main)

	// The bystander holds an older message from main.
	if res := p.k.TrySend(&Msg{Type: 1}, bystander); res != SendDelivered {
		t.Fatalf("TrySend() = %v, want %v", res, SendDelivered)
	}
	var reply Msg
	p.k.SendReceive(&Msg{Type: 2}, &reply, server)
	p.wantActive(t, server)
	if req.Type != 2 || req.Sender != main {
		t.Fatalf("Receive() = %+v, want type 2 from %d", req, main)
	}

	p.k.Wakeup(bystander)
	p.wantActive(t, bystander)
	var old Msg
	p.k.Receive(&old)
	if old.Type != 1 || old.Sender != main {
		t.Fatalf("Receive() = %+v, want type 1 from %d", old, main)
	}
	if p.k.Reply(&old, &Msg{Type: 66}) {
		t.Fatalf("Reply() from bystander = true, want false")
	}
	p.wantStatus(t, main, StatusReplyBlocked)

	p.k.Sleep()
	p.wantActive(t, server)
	if !p.k.Reply(&req, &Msg{Type: 3}) {
		t.Fatalf("Reply() from server = false, want true")
	}
	p.wantStatus(t, main, StatusRunnable)
	if reply.Type != 3 || reply.Sender != server {
		t.Fatalf("reply = %+v, want type 3 from %d", reply, server)
	}
}

func TestReplyRefusedWhileRequestQueued(t *testing.T) {
	p := newTestPort(t, testConfig())
	main := p.boot(t)

	server := p.spawn(t, 2, 0, "server")
	p.k.MsgInitQueue(make([]Msg, 4))
	p.k.ChangePriority(server, 12)
	p.wantActive(t, main)

	p.k.TrySend(&Msg{Type: 1}, server)
	var reply Msg
	p.k.SendReceive(&Msg{Type: 9}, &reply, server)
	p.wantActive(t, server)

	if p.k.Reply(&Msg{Sender: main}, &Msg{Type: 77}) {
		t.Fatalf("Reply() before Receive = true, want false")
	}

	// The async message from the same client is not the request.
	var first Msg
	p.k.Receive(&first)
	if first.Type != 1 {
		t.Fatalf("Receive() type = %d, want 1", first.Type)
	}
	if p.k.Reply(&first, &Msg{Type: 77}) {
		t.Fatalf("Reply() to the async message = true, want false")
	}
	p.wantStatus(t, main, StatusReplyBlocked)

	var req Msg
	p.k.Receive(&req)
	if req.Type != 9 {
		t.Fatalf("Receive() type = %d, want 9", req.Type)
	}
	if !p.k.Reply(&req, &Msg{Type: 10}) {
		t.Fatalf("Reply() = false, want true")
	}
	p.wantActive(t, main)
	if reply.Type != 10 || reply.Sender != server {
		t.Fatalf("reply = %+v, want type 10 from %d", reply, server)
	}
}

func TestReplyToRequestRefilledIntoQueue(t *testing.T) {
	p := newTestPort(t, testConfig())
	main := p.boot(t)

	server := p.spawn(t, 2, 0, "server")
	p.k.MsgInitQueue(make([]Msg, 1))
	p.k.ChangePriority(server, 12)
	p.wantActive(t, main)

	// The queue is full, so the request waits on the server.
	p.k.TrySend(&Msg{Type: 1}, server)
	var reply Msg
	p.k.SendReceive(&Msg{Type: 9}, &reply, server)
	p.wantActive(t, server)

	var first Msg
	p.k.Receive(&first)
	if p.k.Reply(&first, &Msg{}) {
		t.Fatalf("Reply() while the request moved into the queue = true, want false")
	}
	var req Msg
	p.k.Receive(&req)
	if req.Type != 9 || !p.k.Reply(&req, &Msg{Type: 10}) {
		t.Fatalf("Receive() = %+v and Reply() failed, want type 9 answered", req)
	}
	p.wantActive(t, main)
	if reply.Type != 10 {
		t.Fatalf("reply.Type = %d, want 10", reply.Type)
	}
}
