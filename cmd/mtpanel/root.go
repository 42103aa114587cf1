package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mtpanel/internal/board"
	"mtpanel/internal/config"
	appLog "mtpanel/internal/log"
	"mtpanel/internal/panel"
	"mtpanel/internal/pipeline"
)

const version = "0.3.0"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "mtpanel",
	Short: "MT1280800 MIPI-DSI panel controller",
	Long: `mtpanel brings up Motivo MT1280800 (ILI9881C) panels over a DSI bridge
and keeps them in a known state.

The board wiring (bridge, reset line, power rail) and the panel variant come
from the YAML config file. A "sim" bridge runs everything against a simulated
link, which is useful for soak testing the lifecycle without hardware.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/mtpanel/config.yaml", "Path to config.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		appLog.Error("mtpanel failed", err)
	}
	return err
}

// loadConfig reads the config file and applies the log level, with the
// --log-level flag taking precedence over the file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	lvl, err := appLog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	appLog.SetLevel(lvl)
	return cfg, nil
}

// attached is an opened board with its panel registered in a pipeline.
type attached struct {
	cfg   *config.Config
	board *board.Board
	pl    *pipeline.Pipeline
	panel *panel.Panel
}

// attach opens the board described by cfg and attaches the configured panel.
func attach(cfg *config.Config) (*attached, error) {
	b, err := board.Open(cfg)
	if err != nil {
		return nil, err
	}
	pl := pipeline.New()
	p, err := panel.Attach(cfg.Name, cfg.Variant, b.Resources(cfg.Rotation), pl)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("attach %s: %w", cfg.Variant, err)
	}
	return &attached{cfg: cfg, board: b, pl: pl, panel: p}, nil
}

// close detaches the panel and releases the board.
func (a *attached) close() {
	panel.Detach(a.panel, a.pl)
	if err := a.board.Close(); err != nil {
		appLog.Warn("board close failed", "error", err)
	}
}
