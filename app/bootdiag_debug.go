//go:build bootdebug

package app

import (
	"fmt"
	"time"

	"ember/hal"
)

var bootStart = time.Now()

// bootStep logs boot progress so a hang can be located without a debugger.
func bootStep(h hal.HAL, msg string) {
	if h == nil {
		return
	}
	if l := h.Logger(); l != nil {
		l.WriteLineString(fmt.Sprintf("boot: %s (+%s)", msg, time.Since(bootStart).Round(time.Millisecond)))
	}
}
