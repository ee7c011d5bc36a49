package app

import (
	"ember/kernel"
	"ember/monitor"
)

// installPanicHandler logs the panic and paints the panic screen. The kernel
// then halts or reboots.
func (a *App) installPanicHandler() {
	a.k.SetPanicHandler(func(info kernel.PanicInfo) {
		if l := a.h.Logger(); l != nil {
			for _, line := range monitor.PanicLines(info) {
				l.WriteLineString(line)
			}
		}
		_ = a.mon.DrawPanic(info)
	})
}
