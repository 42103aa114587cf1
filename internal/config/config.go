package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	appLog "mtpanel/internal/log"
	"mtpanel/internal/panel"
)

// Bridge kinds.
const (
	BridgeSSD2828 = "ssd2828"
	BridgeSim     = "sim"
)

// Power kinds.
const (
	PowerGPIO = "gpio"
	PowerI2C  = "i2c"
)

// BridgeConfig selects the command transport to the panel.
type BridgeConfig struct {
	// Kind is "ssd2828" for an SPI attached bridge or "sim" for a dry run.
	Kind string `yaml:"kind" json:"kind"`
	// SPI is the periph.io SPI port name ("" for the default port).
	SPI string `yaml:"spi" json:"spi"`
	// MaxHz is the SPI clock.
	MaxHz int64 `yaml:"max_hz" json:"max_hz"`
	// ResetPin is the optional bridge reset GPIO.
	ResetPin string `yaml:"reset_pin,omitempty" json:"reset_pin,omitempty"`
	// SimFailRate is the probability that a simulated transfer fails.
	SimFailRate float64 `yaml:"sim_fail_rate" json:"sim_fail_rate"`
}

// ResetConfig describes the panel reset GPIO. An empty Pin means the board
// has no reset line.
type ResetConfig struct {
	Pin       string `yaml:"pin" json:"pin"`
	ActiveLow bool   `yaml:"active_low" json:"active_low"`
}

// PowerConfig describes the panel power rail.
type PowerConfig struct {
	// Kind is "gpio" for an enable pin or "i2c" for a power controller register.
	Kind string `yaml:"kind" json:"kind"`
	Pin  string `yaml:"pin,omitempty" json:"pin,omitempty"`

	I2CBus  string `yaml:"i2c_bus,omitempty" json:"i2c_bus,omitempty"`
	I2CAddr uint16 `yaml:"i2c_addr,omitempty" json:"i2c_addr,omitempty"`
	I2CReg  uint8  `yaml:"i2c_reg,omitempty" json:"i2c_reg,omitempty"`
	I2COn   uint8  `yaml:"i2c_on,omitempty" json:"i2c_on,omitempty"`
	I2COff  uint8  `yaml:"i2c_off,omitempty" json:"i2c_off,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the diagnostics API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// DiagnosticsConfig configures the HTTP diagnostics server.
type DiagnosticsConfig struct {
	// Listen is the HTTP listen address. Empty disables the server.
	Listen string `yaml:"listen" json:"listen"`
	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// CycleConfig configures the scheduled power-cycle soak.
type CycleConfig struct {
	// Cron is a standard 5-field cron spec. Empty disables the soak.
	Cron string `yaml:"cron" json:"cron"`
	// Hold is how long the panel stays enabled in each cycle.
	Hold time.Duration `yaml:"hold" json:"hold"`
	// History is how many cycle reports are kept.
	History int `yaml:"history" json:"history"`
}

// Config is the top-level application configuration.
type Config struct {
	// Name is the panel name used by the pipeline and the API.
	Name string `yaml:"name" json:"name"`
	// Variant is a built-in panel id or compatible string.
	Variant string `yaml:"variant" json:"variant"`
	// Rotation is the board mounting rotation in degrees, if known.
	Rotation *int `yaml:"rotation,omitempty" json:"rotation,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Bridge      BridgeConfig      `yaml:"bridge" json:"bridge"`
	Reset       ResetConfig       `yaml:"reset" json:"reset"`
	Power       PowerConfig       `yaml:"power" json:"power"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics" json:"diagnostics"`
	Cycle       CycleConfig       `yaml:"cycle" json:"cycle"`
}

// DefaultConfig returns an in-memory default configuration that runs
// against the simulated bridge.
func DefaultConfig() *Config {
	return &Config{
		Name:     "dsi0",
		Variant:  "mt1280800a",
		LogLevel: "info",
		Bridge: BridgeConfig{
			Kind:  BridgeSim,
			MaxHz: 1_000_000,
		},
		Reset: ResetConfig{
			Pin:       "GPIO23",
			ActiveLow: true,
		},
		Power: PowerConfig{
			Kind: PowerGPIO,
			Pin:  "GPIO24",
		},
		Diagnostics: DiagnosticsConfig{
			Listen: "127.0.0.1:8080",
		},
		Cycle: CycleConfig{
			Hold:    5 * time.Second,
			History: 32,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	c.Variant = strings.TrimSpace(c.Variant)
	if c.Variant == "" {
		c.Variant = "mt1280800a"
	}
	if c.Name == "" {
		c.Name = "dsi0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.Bridge.Kind = strings.ToLower(strings.TrimSpace(c.Bridge.Kind))
	if c.Bridge.Kind == "" {
		c.Bridge.Kind = BridgeSim
	}
	if c.Bridge.MaxHz <= 0 {
		c.Bridge.MaxHz = 1_000_000
	}
	c.Power.Kind = strings.ToLower(strings.TrimSpace(c.Power.Kind))
	if c.Power.Kind == "" {
		c.Power.Kind = PowerGPIO
	}
	if c.Power.Kind == PowerI2C && c.Power.I2COn == c.Power.I2COff {
		c.Power.I2COn = 1
		c.Power.I2COff = 0
	}
	if c.Cycle.Hold <= 0 {
		c.Cycle.Hold = 5 * time.Second
	}
	if c.Cycle.History <= 0 {
		c.Cycle.History = 32
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if _, err := panel.Lookup(c.Variant); err != nil {
		return fmt.Errorf("config: variant: %w", err)
	}
	if _, err := panel.OrientationFromRotation(c.Rotation); err != nil {
		return fmt.Errorf("config: rotation: %w", err)
	}
	if _, err := appLog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	switch c.Bridge.Kind {
	case BridgeSSD2828, BridgeSim:
	default:
		return fmt.Errorf("config: unknown bridge kind %q", c.Bridge.Kind)
	}
	if c.Bridge.SimFailRate < 0 || c.Bridge.SimFailRate > 1 {
		return fmt.Errorf("config: sim_fail_rate %v outside [0, 1]", c.Bridge.SimFailRate)
	}
	switch c.Power.Kind {
	case PowerGPIO:
		if c.Power.Pin == "" {
			return errors.New("config: gpio power needs a pin")
		}
	case PowerI2C:
		if c.Power.I2CAddr == 0 || c.Power.I2CAddr > 0x7F {
			return fmt.Errorf("config: i2c_addr 0x%X is not a 7-bit address", c.Power.I2CAddr)
		}
	default:
		return fmt.Errorf("config: unknown power kind %q", c.Power.Kind)
	}
	if c.Cycle.Cron != "" {
		if _, err := cron.ParseStandard(c.Cycle.Cron); err != nil {
			return fmt.Errorf("config: cycle cron %q: %w", c.Cycle.Cron, err)
		}
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is read, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			appLog.Info("wrote default config", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path atomically via a temp file + rename, creating the
// parent directory (0700) and leaving the file at 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".mtpanel-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
