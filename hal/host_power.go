//go:build !tinygo

package hal

import (
	"errors"
	"os"
	"sync"
)

// ErrHalted is returned by the host runners once the CPU has halted.
var ErrHalted = errors.New("cpu halted")

// rebootExitCode tells a supervising script to restart the process.
const rebootExitCode = 3

type hostPower struct {
	irq    *SoftIRQ
	logger Logger

	haltOnce sync.Once
	halted   chan struct{}
	exit     func(code int)
}

func newHostPower(irq *SoftIRQ, logger Logger) *hostPower {
	return &hostPower{
		irq:    irq,
		logger: logger,
		halted: make(chan struct{}),
		exit:   os.Exit,
	}
}

// SetLowestIdle parks the CPU goroutine until an interrupt is raised.
func (p *hostPower) SetLowestIdle() {
	p.irq.WaitPending()
}

// Halt parks the CPU goroutine for good and lets the runner stop.
func (p *hostPower) Halt() {
	p.logger.WriteLineString("cpu: halted")
	p.haltOnce.Do(func() { close(p.halted) })
	select {}
}

func (p *hostPower) Reboot() {
	p.logger.WriteLineString("cpu: reboot")
	p.exit(rebootExitCode)
}
