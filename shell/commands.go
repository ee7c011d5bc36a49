package shell

import (
	"errors"
	"fmt"
	"strconv"

	"ember/internal/buildinfo"
	"ember/kernel"
	"ember/monitor"
)

func registerCommands(r *registry) error {
	for _, c := range []command{
		{name: "help", synopsis: "[command]", summary: "Show available commands.", run: cmdHelp},
		{name: "ps", summary: "List threads.", run: cmdPS},
		{name: "wakeup", synopsis: "<pid>", summary: "Wake a sleeping thread.", run: cmdWakeup},
		{name: "prio", synopsis: "<pid> <priority>", summary: "Change the priority of a thread.", run: cmdPrio},
		{name: "kill", synopsis: "<pid>", summary: "Free the slot of a zombie thread.", run: cmdKill},
		{name: "msgq", synopsis: "[pid]", summary: "Dump the queued messages of a thread.", run: cmdMsgq},
		{name: "send", synopsis: "<pid> <type> <value>", summary: "Send a message without blocking.", run: cmdSend},
		{name: "ping", synopsis: "[count]", summary: "Round-trip messages through the echo thread.", run: cmdPing},
		{name: "yield", summary: "Let equal-priority threads run.", run: cmdYield},
		{name: "ticks", summary: "Show the kernel tick count.", run: cmdTicks},
		{name: "version", summary: "Show build information.", run: cmdVersion},
	} {
		if err := r.add(c); err != nil {
			return err
		}
	}
	return nil
}

func cmdHelp(s *Shell, args []string) error {
	if len(args) == 0 {
		for _, c := range s.reg.cmds {
			s.printf("%-10s %s\n", c.name, c.summary)
		}
		return nil
	}
	c, ok := s.reg.find(args[0])
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownCommand, args[0])
	}
	s.printf("usage: %s\n%s\n", c.usage(), c.summary)
	return nil
}

func cmdPS(s *Shell, _ []string) error {
	threads := s.k.Threads()
	s.printf("%s\n", monitor.Summary(threads, s.k.Ticks()))
	for _, line := range monitor.FormatThreads(threads) {
		s.printf("%s\n", line)
	}
	return nil
}

func cmdWakeup(s *Shell, args []string) error {
	pid, err := parsePID(args[0])
	if err != nil {
		return err
	}
	if !s.k.Wakeup(pid) {
		return fmt.Errorf("wakeup: pid %d is not sleeping", pid)
	}
	s.printf("woke %d\n", pid)
	return nil
}

func cmdPrio(s *Shell, args []string) error {
	pid, err := parsePID(args[0])
	if err != nil {
		return err
	}
	v, err := strconv.ParseUint(args[1], 10, 8)
	if err != nil {
		return fmt.Errorf("prio: bad priority %q: %w", args[1], err)
	}
	if !s.k.ChangePriority(pid, kernel.Priority(v)) {
		return fmt.Errorf("prio: cannot set pid %d to %d", pid, v)
	}
	return nil
}

func cmdKill(s *Shell, args []string) error {
	pid, err := parsePID(args[0])
	if err != nil {
		return err
	}
	if res := s.k.KillZombie(pid); res != kernel.KillOK {
		return fmt.Errorf("kill %d: %s", pid, res)
	}
	s.printf("killed %d\n", pid)
	return nil
}

func cmdMsgq(s *Shell, args []string) error {
	pid := s.k.ActivePID()
	if len(args) == 1 {
		var err error
		if pid, err = parsePID(args[0]); err != nil {
			return err
		}
	}
	if !s.k.IsValidPID(pid) {
		return fmt.Errorf("msgq: no thread %d", pid)
	}

	msgs := s.k.PendingMsgs(pid)
	s.printf("pid %d (%s): %d queued\n", pid, s.k.Name(pid), len(msgs))
	for i, m := range msgs {
		s.printf("%3d from %-4d type %#06x value %d\n", i, m.Sender, m.Type, m.Value)
	}
	return nil
}

func cmdSend(s *Shell, args []string) error {
	pid, err := parsePID(args[0])
	if err != nil {
		return err
	}
	typ, err := strconv.ParseUint(args[1], 0, 16)
	if err != nil {
		return fmt.Errorf("send: bad type %q: %w", args[1], err)
	}
	val, err := strconv.ParseUint(args[2], 0, 32)
	if err != nil {
		return fmt.Errorf("send: bad value %q: %w", args[2], err)
	}

	res := s.k.TrySend(&kernel.Msg{Type: uint16(typ), Value: uint32(val)}, pid)
	if res != kernel.SendDelivered {
		return fmt.Errorf("send %d: %s", pid, res)
	}
	s.printf("sent\n")
	return nil
}

func cmdPing(s *Shell, args []string) error {
	count := 1
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("ping: bad count %q", args[0])
		}
		count = n
	}
	if s.cfg.PingTarget == kernel.PIDUndef {
		return errors.New("ping: no echo thread")
	}

	start := s.k.Ticks()
	for i := 0; i < count; i++ {
		var reply kernel.Msg
		res := s.k.SendReceive(&kernel.Msg{Type: MsgPing, Value: uint32(i)}, &reply, s.cfg.PingTarget)
		if res != kernel.SendDelivered {
			return fmt.Errorf("ping %d: %s", s.cfg.PingTarget, res)
		}
		s.printf("reply from %d: seq=%d value=%d\n", reply.Sender, i, reply.Value)
	}
	s.printf("%d round trips in %d ticks\n", count, s.k.Ticks()-start)
	return nil
}

func cmdYield(s *Shell, _ []string) error {
	s.k.Yield()
	return nil
}

func cmdTicks(s *Shell, _ []string) error {
	s.printf("%d\n", s.k.Ticks())
	return nil
}

func cmdVersion(s *Shell, _ []string) error {
	s.printf("ember %s (commit %s, built %s)\n", buildinfo.Short(), buildinfo.Commit, buildinfo.Date)
	return nil
}

func parsePID(arg string) (kernel.PID, error) {
	v, err := strconv.ParseInt(arg, 10, 16)
	if err != nil {
		return kernel.PIDUndef, fmt.Errorf("bad pid %q", arg)
	}
	return kernel.PID(v), nil
}
