//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"ember/app"
	"ember/hal"

	"golang.org/x/sync/errgroup"
)

func main() {
	var hcfg hal.HeadlessConfig
	var headless bool
	cfg := app.DefaultConfig()
	flag.BoolVar(&headless, "headless", false, "Run without a window.")
	flag.IntVar(&hcfg.Hz, "hz", 100, "Runner steps per second in headless mode.")
	flag.Uint64Var(&hcfg.Ticks, "ticks", 0, "Stop after N steps in headless mode (0 = run forever).")
	flag.BoolVar(&cfg.Kernel.RoundRobin, "rr", false, "Rotate equal-priority threads on every tick.")
	flag.BoolVar(&cfg.Kernel.DevelHelp, "develhelp", cfg.Kernel.DevelHelp, "Check stacks on every switch and halt on kernel panic.")
	flag.IntVar(&cfg.Kernel.MaxThreads, "threads", cfg.Kernel.MaxThreads, "Capacity of the thread table.")
	flag.Uint64Var(&cfg.MonitorEvery, "monitor", cfg.MonitorEvery, "Ticks between monitor redraws (0 = never).")
	flag.Parse()

	h := hal.New()
	a, err := app.New(h, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	a.Start()

	if !headless {
		go func() { _ = a.PumpSerial(context.Background()) }()
		if err := hal.RunWindow(h, a.Step); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(ctx)
	g.Go(func() error {
		defer cancel()
		return hal.RunHeadless(runCtx, h, a.Step, hcfg)
	})
	g.Go(func() error { return a.PumpSerial(runCtx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
