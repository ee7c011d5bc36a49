package monitor

import (
	"fmt"
	"strings"

	"ember/kernel"
)

const psHeader = "  PID NAME       STATE          PRI  STACK     MSGS   SW    TICKS"

// FormatThreads renders a ps-style table, one line per thread plus a header.
// The active thread is marked with '*'.
func FormatThreads(threads []kernel.ThreadInfo) []string {
	lines := make([]string, 0, len(threads)+1)
	lines = append(lines, psHeader)
	for _, ti := range threads {
		lines = append(lines, formatThread(ti))
	}
	return lines
}

func formatThread(ti kernel.ThreadInfo) string {
	mark := ' '
	if ti.Active {
		mark = '*'
	}

	stack := fmt.Sprintf("-/%d", ti.StackSize)
	if ti.StackFree >= 0 {
		stack = fmt.Sprintf("%d/%d", ti.StackSize-ti.StackFree, ti.StackSize)
	}

	msgs := "-"
	if ti.MsgCap > 0 {
		msgs = fmt.Sprintf("%d/%d", ti.MsgQueued, ti.MsgCap)
	}

	return fmt.Sprintf("%c%4d %-10s %-14s %3d  %-9s %-5s %4d %8d",
		mark, ti.PID, clip(ti.Name, 10), ti.Status, ti.Priority,
		stack, msgs, ti.Switches, ti.RuntimeTicks)
}

func clip(s string, n int) string {
	prefix, _ := takeRunes(s, int16(n))
	return prefix
}

// Summary is the one-line status shown above the table.
func Summary(threads []kernel.ThreadInfo, ticks uint64) string {
	var running []string
	for _, ti := range threads {
		if ti.Active {
			running = append(running, ti.Name)
		}
	}
	return fmt.Sprintf("threads: %d  ticks: %d  active: %s", len(threads), ticks, strings.Join(running, ","))
}
