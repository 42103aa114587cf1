package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appLog "mtpanel/internal/log"
	"mtpanel/internal/panel"
)

func TestMain(m *testing.M) {
	appLog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestLoadWritesDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "mtpanel.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mtpanel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
variant: " motivo,mt1280800b "
rotation: 270
bridge:
  kind: SSD2828
  spi: SPI0.0
reset:
  pin: GPIO23
  active_low: true
power:
  kind: i2c
  i2c_bus: "1"
  i2c_addr: 0x45
  i2c_reg: 0x86
diagnostics:
  listen: ":9000"
  basic_auth:
    username: admin
    password: secret
cycle:
  cron: "*/10 * * * *"
  hold: 30s
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "motivo,mt1280800b", cfg.Variant)
	require.NotNil(t, cfg.Rotation)
	assert.Equal(t, 270, *cfg.Rotation)
	assert.Equal(t, BridgeSSD2828, cfg.Bridge.Kind)
	assert.Equal(t, int64(1_000_000), cfg.Bridge.MaxHz)
	assert.Equal(t, uint16(0x45), cfg.Power.I2CAddr)
	assert.Equal(t, uint8(1), cfg.Power.I2COn, "on/off default when left equal")
	assert.Equal(t, uint8(0), cfg.Power.I2COff)
	assert.Equal(t, 30*time.Second, cfg.Cycle.Hold)
	assert.Equal(t, 32, cfg.Cycle.History)
	require.NotNil(t, cfg.Diagnostics.BasicAuth)
	assert.Equal(t, "admin", cfg.Diagnostics.BasicAuth.Username)
	assert.Equal(t, "dsi0", cfg.Name)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown variant", "variant: mt9999\n"},
		{"bad rotation", "rotation: 45\n"},
		{"bad bridge", "bridge: {kind: usb}\n"},
		{"bad power", "power: {kind: pmic}\n"},
		{"gpio power without pin", "power: {kind: gpio}\n"},
		{"i2c power without addr", "power: {kind: i2c}\n"},
		{"bad cron", "power: {pin: GPIO1}\ncycle: {cron: \"every tuesday\"}\n"},
		{"bad log level", "power: {pin: GPIO1}\nlog_level: loud\n"},
		{"bad fail rate", "power: {pin: GPIO1}\nbridge: {sim_fail_rate: 1.5}\n"},
		{"not yaml", "variant: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestUnknownVariantWrapsSentinel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Variant = "mt1"
	assert.ErrorIs(t, cfg.Validate(), panel.ErrUnknownVariant)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mtpanel.yaml")
	cfg := DefaultConfig()
	rot := 90
	cfg.Rotation = &rot
	cfg.Cycle.Cron = "@hourly"
	cfg.Diagnostics.BasicAuth = &BasicAuthConfig{Username: "u", Password: "p"}

	require.NoError(t, cfg.Save(path))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".mtpanel-config-*"))
	assert.Empty(t, matches, "temp file removed")
}

func TestSaveErrors(t *testing.T) {
	assert.Error(t, Save("", DefaultConfig()))
	assert.Error(t, Save(filepath.Join(t.TempDir(), "x.yaml"), nil))
	_, err := Load("")
	assert.Error(t, err)
}
