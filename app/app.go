// Package app boots the kernel on a HAL and starts the stock threads: the
// serial shell, an echo server for ping and the framebuffer monitor.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"ember/cpu"
	"ember/hal"
	"ember/kernel"
	"ember/monitor"
	"ember/shell"
)

const (
	shellStackSize   = 4096
	echoStackSize    = 1024
	monitorStackSize = 4096
)

// Config selects the kernel shape and the behaviour of the stock threads.
type Config struct {
	Kernel kernel.Config
	// MonitorEvery is the number of ticks between monitor redraws. Zero
	// disables the periodic redraw.
	MonitorEvery uint64
	// LocalEcho makes the shell echo typed bytes.
	LocalEcho bool
	// ConsoleRows is the height, in text lines, of the pane under the
	// monitor that mirrors the shell output. Zero gives the monitor the
	// whole framebuffer.
	ConsoleRows int16
}

func DefaultConfig() Config {
	return Config{
		Kernel:       kernel.DefaultConfig(),
		MonitorEvery: 250,
		ConsoleRows:  8,
	}
}

// App is a booted system.
type App struct {
	h   hal.HAL
	irq hal.IRQController
	cfg Config

	k   *kernel.Kernel
	mon *monitor.Monitor
	con *monitor.Console
	sh  *shell.Shell

	shellPID   kernel.PID
	echoPID    kernel.PID
	monitorPID kernel.PID

	// ticks is owned by the goroutine calling Step.
	ticks uint64
}

// New creates the kernel and its threads. Nothing runs until Start.
func New(h hal.HAL, cfg Config) (*App, error) {
	if h == nil {
		return nil, errors.New("app: nil HAL")
	}
	irq := h.IRQ()
	if irq == nil || h.Power() == nil {
		return nil, errors.New("app: HAL has no interrupt controller or power manager")
	}
	if cfg.Kernel.Logger == nil {
		cfg.Kernel.Logger = h.Logger()
	}

	bootStep(h, "kernel")
	k := kernel.New(cfg.Kernel, irq, h.Power())
	cpu.New(k, irq)

	var fb hal.Framebuffer
	if d := h.Display(); d != nil {
		fb = d.Framebuffer()
	}
	mon, con := monitor.Split(fb, max(cfg.ConsoleRows, 0))
	a := &App{
		h:   h,
		irq: irq,
		cfg: cfg,
		k:   k,
		mon: mon,
		con: con,
	}
	a.installPanicHandler()

	bootStep(h, "threads")
	if err := a.createThreads(); err != nil {
		return nil, err
	}
	bootStep(h, "ready")
	return a, nil
}

func (a *App) createThreads() error {
	main := a.k.Config().PriorityMain()
	idle := a.k.Config().PriorityIdle()

	var err error
	a.echoPID, err = a.k.Create(make([]byte, echoStackSize), main-1, kernel.CreateStackTest, a.runEcho, nil, "echo")
	if err != nil {
		return fmt.Errorf("app: create echo: %w", err)
	}

	shCfg := shell.Config{
		Logger:     a.h.Logger(),
		LocalEcho:  a.cfg.LocalEcho,
		PingTarget: a.echoPID,
	}
	shCfg.Out = a.con
	if s := a.h.Serial(); s != nil {
		shCfg.Out = io.MultiWriter(a.con, s)
	}
	a.sh, err = shell.New(a.k, shCfg)
	if err != nil {
		return fmt.Errorf("app: shell: %w", err)
	}
	a.shellPID, err = a.k.Create(make([]byte, shellStackSize), main, kernel.CreateStackTest, func(any) { a.sh.Run() }, nil, "shell")
	if err != nil {
		return fmt.Errorf("app: create shell: %w", err)
	}

	// The monitor sleeps until the tick interrupt wakes it.
	monPrio := idle
	if monPrio > 0 {
		monPrio--
	}
	a.monitorPID, err = a.k.Create(make([]byte, monitorStackSize), monPrio, kernel.CreateStackTest, a.runMonitor, nil, "monitor")
	if err != nil {
		return fmt.Errorf("app: create monitor: %w", err)
	}
	return nil
}

// runEcho answers every request with Value+1.
func (a *App) runEcho(any) {
	var m kernel.Msg
	for {
		a.k.Receive(&m)
		a.k.Reply(&m, &kernel.Msg{Type: m.Type, Value: m.Value + 1})
	}
}

func (a *App) runMonitor(any) {
	for {
		if err := a.mon.Draw(a.k.Threads(), a.k.Ticks()); err != nil {
			a.logf("monitor: %v", err)
		}
		a.k.Sleep()
	}
}

// Kernel returns the booted kernel.
func (a *App) Kernel() *kernel.Kernel { return a.k }

// Start hands the CPU to the kernel threads. On the host it returns once the
// first thread runs; the caller then drives the system with Step and
// PumpSerial only.
func (a *App) Start() {
	a.k.Start()
}

// Step forwards the ticks the HAL produced since the last call to the
// kernel as one timer interrupt.
func (a *App) Step() error {
	t := a.h.Time()
	if t == nil {
		return nil
	}
	ch := t.Ticks()
	if ch == nil {
		return nil
	}

	var n uint64
	for drained := false; !drained; {
		select {
		case seq := <-ch:
			a.ticks = seq
			n++
		default:
			drained = true
		}
	}
	if n == 0 {
		return nil
	}

	redraw := a.cfg.MonitorEvery > 0 && a.ticks/a.cfg.MonitorEvery != (a.ticks-n)/a.cfg.MonitorEvery
	a.irq.Raise(func() {
		for i := uint64(0); i < n; i++ {
			a.k.Tick()
		}
		if redraw {
			a.k.Wakeup(a.monitorPID)
		}
	})
	return nil
}

// PumpSerial reads console bytes and delivers each one to the shell from
// interrupt context. It returns when ctx is done or the serial port fails.
func (a *App) PumpSerial(ctx context.Context) error {
	s := a.h.Serial()
	if s == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	type chunk struct {
		b   []byte
		err error
	}
	rx := make(chan chunk)
	go func() {
		for {
			buf := make([]byte, 64)
			n, err := s.Read(buf)
			select {
			case rx <- chunk{b: buf[:n], err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-rx:
			a.deliver(c.b)
			if c.err != nil {
				return fmt.Errorf("app: serial: %w", c.err)
			}
		}
	}
}

// deliver raises one RX interrupt for a burst of bytes.
func (a *App) deliver(b []byte) {
	if len(b) == 0 {
		return
	}
	pid := a.shellPID
	a.irq.Raise(func() {
		for _, c := range b {
			m := shell.RXMsg(c)
			if res := a.k.SendInt(&m, pid); res != kernel.SendDelivered {
				a.logf("serial: byte dropped: %s", res)
			}
		}
	})
}

func (a *App) logf(format string, args ...any) {
	if l := a.h.Logger(); l != nil {
		l.WriteLineString(fmt.Sprintf(format, args...))
	}
}
