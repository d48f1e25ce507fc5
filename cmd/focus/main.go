// Package main starts the focus service process lifecycle.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	platformcmd "github.com/louisbranch/focus.space/internal/platform/cmd"
	"github.com/louisbranch/focus.space/internal/services/timer/app"
)

func main() {
	var cfg app.RuntimeConfig
	fs := flag.NewFlagSet("focus", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "gRPC health port")
	fs.StringVar(&cfg.StatsDBPath, "stats-db", cfg.StatsDBPath, "stats sqlite path, :memory: for process-lifetime storage")
	fs.IntVar(&cfg.MinSessionMinutes, "min-minutes", cfg.MinSessionMinutes, "minimum session length in minutes")
	fs.IntVar(&cfg.MaxSessionMinutes, "max-minutes", cfg.MaxSessionMinutes, "maximum session length in minutes")
	fs.DurationVar(&cfg.TickInterval, "tick-interval", cfg.TickInterval, "progress render cadence")
	fs.DurationVar(&cfg.BreakReminderDelay, "break-delay", cfg.BreakReminderDelay, "delay before the break-over reminder")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "scheduler reconciliation cadence")

	if err := platformcmd.ParseConfigFromArgs(&cfg, fs, os.Args[1:]); err != nil {
		log.Fatalf("parse config: %v", err)
	}
	log.SetPrefix("[FOCUS] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceFocus, func(ctx context.Context) error {
		return app.Run(ctx, cfg)
	})
	if err != nil && ctx.Err() == nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
