package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"streakbot/internal/app"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", app.DefaultConfigPath, "path to config file (json or yaml)")
	flag.Parse()

	token := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if token == "" {
		fmt.Println("fatal: TELEGRAM_BOT_TOKEN is not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// NotifyContext doesn't report which signal fired; keep a side channel
	// so the stop reason in the logs matches reality.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	a, err := app.New(cfgPath, token)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	if err := a.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		os.Exit(1)
	}

	reason := app.StopUnknown
	select {
	case <-ctx.Done():
		reason = app.StopSIGINT
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGTERM {
				reason = app.StopSIGTERM
			}
		default:
		}
	case <-a.Done():
		reason = app.StopAppStop
		if a.Err() != nil {
			reason = app.StopFatalError
		}
	}

	// Restore default signal handling so a second Ctrl-C kills a stuck shutdown.
	stop()
	signal.Stop(sigCh)

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.Stop(stopCtx, reason)

	if err := a.Err(); err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}
