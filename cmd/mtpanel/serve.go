package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mtpanel/internal/cycle"
	"mtpanel/internal/diag"
	appLog "mtpanel/internal/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Bring the panel up and serve the diagnostics API",
	Long: `Attach the configured panel, run prepare and enable, then keep running until
SIGINT or SIGTERM. The diagnostics API is served when diagnostics.listen is set
and the power-cycle soak runs on cycle.cron when that is set.

On shutdown the panel is disabled and unprepared before the board is released.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	appLog.Info("mtpanel starting", "version", version, "config_path", configPath)

	a, err := attach(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	appLog.Info("effective config",
		"name", a.panel.Name(),
		"variant", cfg.Variant,
		"bridge", cfg.Bridge.Kind,
		"power", cfg.Power.Kind,
		"listen", cfg.Diagnostics.Listen,
		"cycle_cron", cfg.Cycle.Cron,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	// A failed bring-up is not fatal: the diagnostics API stays available
	// so the panel can be inspected and retried.
	if err := a.pl.Up(ctx, a.panel.Name()); err != nil {
		appLog.Error("panel bring-up failed", err, "panel", a.panel.Name())
	}

	runner := cycle.NewRunner(a.pl, a.panel.Name(), cfg.Cycle.Hold, cfg.Cycle.History)

	var sched *cycle.Scheduler
	if cfg.Cycle.Cron != "" {
		sched, err = cycle.NewScheduler(cfg.Cycle.Cron, runner)
		if err != nil {
			return err
		}
		sched.Start()
	}

	errCh := make(chan error, 1)
	if cfg.Diagnostics.Listen != "" {
		srv := diag.NewServer(cfg.Diagnostics, a.pl, runner)
		go func() { errCh <- srv.Run(ctx) }()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		if runErr != nil {
			appLog.Error("diagnostics server stopped", runErr)
		}
		cancel()
	}

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	a.pl.Shutdown(shutdownCtx)

	appLog.Info("mtpanel exiting")
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
