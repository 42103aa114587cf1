package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mtpanel/internal/cycle"
	"mtpanel/internal/model"
)

var (
	cycleCount int
	cycleHold  time.Duration
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run power-cycle soaks and report each outcome",
	Long: `Attach the configured panel and run it through prepare, enable, hold,
disable and unprepare --count times. Each run is printed as it completes.

The command fails when any run fails.`,
	Args: cobra.NoArgs,
	RunE: runCycle,
}

func init() {
	cycleCmd.Flags().IntVarP(&cycleCount, "count", "n", 1, "Number of cycles to run")
	cycleCmd.Flags().DurationVar(&cycleHold, "hold", 0, "Time to stay enabled per cycle (default from config)")
	rootCmd.AddCommand(cycleCmd)
}

func runCycle(cmd *cobra.Command, args []string) error {
	if cycleCount < 1 {
		return fmt.Errorf("--count must be at least 1, got %d", cycleCount)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	hold := cfg.Cycle.Hold
	if cmd.Flags().Changed("hold") {
		hold = cycleHold
	}

	a, err := attach(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := cycle.NewRunner(a.pl, a.panel.Name(), hold, cycleCount)
	failed := 0
	for i := 1; i <= cycleCount && ctx.Err() == nil; i++ {
		rep := runner.RunOnce(ctx)
		printReport(cmd, i, rep)
		if !rep.OK() {
			failed++
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d/%d cycles ok\n", len(runner.History())-failed, len(runner.History()))
	if failed > 0 {
		return fmt.Errorf("%d of %d cycles failed", failed, len(runner.History()))
	}
	return ctx.Err()
}

func printReport(cmd *cobra.Command, i int, rep model.CycleReport) {
	out := cmd.OutOrStdout()
	if rep.OK() {
		fmt.Fprintf(out, "#%d ok    %s retries=%d latched=%v\n", i, rep.Duration.Round(time.Millisecond), rep.Retries, rep.Latched)
		return
	}
	fmt.Fprintf(out, "#%d FAIL  %s at %s: %s retries=%d latched=%v\n",
		i, rep.Duration.Round(time.Millisecond), rep.FailedOp, rep.Error, rep.Retries, rep.Latched)
}
