//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"time"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	// Hz is the number of runner steps per second.
	Hz int
	// Ticks stops the runner after that many steps. Zero runs until ctx
	// is done.
	Ticks uint64
}

// RunHeadless drives the host HAL without opening a window: on every step
// it advances the tick source and calls step.
func RunHeadless(ctx context.Context, h HAL, step func() error, cfg HeadlessConfig) error {
	hh, err := asHost(h)
	if err != nil {
		return err
	}
	if cfg.Hz <= 0 {
		cfg.Hz = 100
	}

	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}
	t := time.NewTicker(d)
	defer t.Stop()

	var n uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-hh.pm.halted:
			return ErrHalted
		case <-t.C:
			hh.t.step(1)
			if step != nil {
				if err := step(); err != nil {
					return err
				}
			}
			n++
			if cfg.Ticks > 0 && n >= cfg.Ticks {
				return nil
			}
		}
	}
}
