package app

import (
	"context"
	"time"

	"ember/hal"
)

// Run boots the system on h and drives it forever (TinyGo entrypoint).
func Run(h hal.HAL) {
	cfg := DefaultConfig()
	cfg.LocalEcho = true
	a, err := New(h, cfg)
	if err != nil {
		if l := h.Logger(); l != nil {
			l.WriteLineString(err.Error())
		}
		select {}
	}
	a.Start()

	go func() {
		if err := a.PumpSerial(context.Background()); err != nil {
			a.logf("%v", err)
		}
	}()
	for {
		_ = a.Step()
		time.Sleep(time.Millisecond)
	}
}
