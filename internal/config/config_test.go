package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	Testing = true
	os.Exit(m.Run())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "System", cfg.Registration.Object)
	assert.Equal(t, "register", cfg.Registration.Property)
	assert.Equal(t, "Register", cfg.Registration.SymbolPrefix)
	assert.Equal(t, "js", cfg.Registration.Extension)
	assert.True(t, cfg.Passes.Extract.Enabled)
	assert.True(t, cfg.Passes.FoldConditions.Enabled)
	assert.True(t, cfg.Passes.ReorderSwitches.Enabled)
	assert.False(t, cfg.Silent)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unbundle.yaml")
	yaml := `silent: true
output_dir: out
registration:
  object: Loader
  property: add
  symbol_prefix: Load
  extension: mjs
passes:
  reorder_switches:
    enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Silent)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, "Loader", cfg.Registration.Object)
	assert.Equal(t, "add", cfg.Registration.Property)
	assert.Equal(t, "Load", cfg.Registration.SymbolPrefix)
	assert.Equal(t, "mjs", cfg.Registration.Extension)
	assert.False(t, cfg.Passes.ReorderSwitches.Enabled)
}

func TestLoadConfigMissingDefaultPathUsesDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() { _ = os.Chdir(wd) }()

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "System", cfg.Registration.Object)
}

func TestLoadConfigMissingExplicitPathFails(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigRejectsEmptyMarker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unbundle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("registration:\n  object: \"\"\n"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "unbundle.yaml")
	require.NoError(t, SaveConfig(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
