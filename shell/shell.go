// Package shell is a line-oriented console that runs as a kernel thread.
//
// Received bytes arrive as messages, normally sent with SendInt from the
// serial RX interrupt. Commands inspect and poke the kernel: list threads,
// wake, reprioritize and reap them, dump queues and ping an echo server.
package shell

import (
	"errors"
	"fmt"
	"io"

	"ember/hal"
	"ember/kernel"

	"github.com/google/shlex"
)

// Message types understood by the shell thread and its ping target.
const (
	// MsgRX carries one received byte in Value.
	MsgRX uint16 = 0x5200 + iota
	// MsgPing is answered by the echo server with Value+1.
	MsgPing
)

const (
	maxLine   = 128
	queueSize = 32
	prompt    = "ember> "
)

var errUnknownCommand = errors.New("unknown command")

// Config wires a shell to its surroundings.
type Config struct {
	Out    io.Writer
	Logger hal.Logger
	// LocalEcho writes received bytes back; off when the terminal echoes.
	LocalEcho bool
	// PingTarget is the echo server used by the ping command.
	PingTarget kernel.PID
}

type Shell struct {
	k   *kernel.Kernel
	cfg Config
	reg *registry

	line   []byte
	lastCR bool
	queue  [queueSize]kernel.Msg
}

// New returns a shell bound to k with every builtin registered.
func New(k *kernel.Kernel, cfg Config) (*Shell, error) {
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	s := &Shell{
		k:    k,
		cfg:  cfg,
		reg:  &registry{},
		line: make([]byte, 0, maxLine),
	}
	if err := registerCommands(s.reg); err != nil {
		return nil, err
	}
	return s, nil
}

// RXMsg builds the message the RX interrupt sends for byte b.
func RXMsg(b byte) kernel.Msg {
	return kernel.Msg{Type: MsgRX, Value: uint32(b)}
}

// Run is the body of the shell thread. It never returns.
func (s *Shell) Run() {
	s.k.MsgInitQueue(s.queue[:])
	s.logf("shell: ready on pid %d", s.k.ActivePID())
	s.printf("%s", prompt)

	var m kernel.Msg
	for {
		s.k.Receive(&m)
		switch m.Type {
		case MsgRX:
			s.HandleByte(byte(m.Value))
		default:
			s.logf("shell: dropped message type %#x from %d", m.Type, m.Sender)
		}
	}
}

// HandleByte feeds one input byte to the line editor. A completed line is
// executed and the prompt printed again.
func (s *Shell) HandleByte(b byte) {
	cr := s.lastCR
	s.lastCR = b == '\r'

	switch {
	case b == '\n' && cr:
	case b == '\r' || b == '\n':
		if s.cfg.LocalEcho {
			s.printf("\r\n")
		}
		line := string(s.line)
		s.line = s.line[:0]
		if err := s.Execute(line); err != nil {
			s.printf("error: %v\n", err)
		}
		s.printf("%s", prompt)
	case b == 0x08 || b == 0x7f:
		if len(s.line) == 0 {
			return
		}
		s.line = s.line[:len(s.line)-1]
		if s.cfg.LocalEcho {
			s.printf("\b \b")
		}
	case b == '\t':
		s.complete()
	case b >= 0x20 && b < 0x7f:
		if len(s.line) >= maxLine {
			return
		}
		s.line = append(s.line, b)
		if s.cfg.LocalEcho {
			s.printf("%c", b)
		}
	}
}

// complete extends a lone command word to its unique match.
func (s *Shell) complete() {
	for _, c := range s.line {
		if c == ' ' {
			return
		}
	}
	matches := s.reg.withPrefix(string(s.line))
	if len(matches) != 1 {
		return
	}
	rest := matches[0][len(s.line):] + " "
	s.line = append(s.line, rest...)
	if s.cfg.LocalEcho {
		s.printf("%s", rest)
	}
}

// Execute runs one command line.
func (s *Shell) Execute(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if len(args) == 0 {
		return nil
	}

	cmd, ok := s.reg.find(args[0])
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownCommand, args[0])
	}
	if err := cmd.checkArgs(args[1:]); err != nil {
		return err
	}
	return cmd.run(s, args[1:])
}

func (s *Shell) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.cfg.Out, format, args...)
}

func (s *Shell) logf(format string, args ...any) {
	if s.cfg.Logger == nil {
		return
	}
	s.cfg.Logger.WriteLineString(fmt.Sprintf(format, args...))
}
