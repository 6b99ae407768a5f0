package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Loader:
// - Load() returns defaults when no .sqldraw/config.yml exists
// - Load() reads .sqldraw/config.yml when present
// - Load() merges a partial config file with defaults
// - Load() lets SQLDRAW_* environment variables override the config file
// - Load() lets SQLDRAW_* environment variables override defaults alone
// - Load() returns an error for malformed YAML
// - Load() returns an error when the merged configuration fails validation

func TestLoad_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	expected := Default()
	assert.Equal(t, expected.Sandbox.Seed, cfg.Sandbox.Seed)
	assert.Equal(t, expected.Sandbox.MaxRowsPerTable, cfg.Sandbox.MaxRowsPerTable)
	assert.Equal(t, expected.Live.StatementTimeout, cfg.Live.StatementTimeout)
	assert.Equal(t, expected.Live.SystemDatabases, cfg.Live.SystemDatabases)
}

func TestLoad_ReadsConfigFile(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	sqldrawDir := filepath.Join(tempDir, ".sqldraw")
	require.NoError(t, os.MkdirAll(sqldrawDir, 0755))

	configContent := `
sandbox:
  seed: 7
  max_rows_per_table: 20

live:
  statement_timeout: 1m
  system_databases: ["master"]
`
	configPath := filepath.Join(sqldrawDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Sandbox.Seed)
	assert.Equal(t, 20, cfg.Sandbox.MaxRowsPerTable)
	assert.Equal(t, []string{"master"}, cfg.Live.SystemDatabases)
}

func TestLoad_MergesPartialConfigWithDefaults(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	sqldrawDir := filepath.Join(tempDir, ".sqldraw")
	require.NoError(t, os.MkdirAll(sqldrawDir, 0755))

	// Only override the seed; everything else should fall back to defaults.
	configContent := `
sandbox:
  seed: 99
`
	configPath := filepath.Join(sqldrawDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	assert.Equal(t, int64(99), cfg.Sandbox.Seed)
	assert.Equal(t, Default().Sandbox.MaxRowsPerTable, cfg.Sandbox.MaxRowsPerTable)
	assert.Equal(t, Default().Live.StatementTimeout, cfg.Live.StatementTimeout)
}

func TestLoad_EnvironmentVariablesOverrideConfigFile(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()

	tempDir := t.TempDir()
	sqldrawDir := filepath.Join(tempDir, ".sqldraw")
	require.NoError(t, os.MkdirAll(sqldrawDir, 0755))

	configContent := `
sandbox:
  seed: 7
  max_rows_per_table: 20
`
	configPath := filepath.Join(sqldrawDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	t.Setenv("SQLDRAW_SANDBOX_SEED", "123")

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	assert.Equal(t, int64(123), cfg.Sandbox.Seed)
	// Not overridden by env, should still come from the file.
	assert.Equal(t, 20, cfg.Sandbox.MaxRowsPerTable)
}

func TestLoad_EnvironmentVariablesOverrideDefaults(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()

	tempDir := t.TempDir()

	t.Setenv("SQLDRAW_SANDBOX_MAX_ROWS_PER_TABLE", "3")

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Sandbox.MaxRowsPerTable)
	assert.Equal(t, Default().Sandbox.Seed, cfg.Sandbox.Seed)
}

func TestLoad_MalformedYamlIsError(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	sqldrawDir := filepath.Join(tempDir, ".sqldraw")
	require.NoError(t, os.MkdirAll(sqldrawDir, 0755))

	configPath := filepath.Join(sqldrawDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("sandbox: [this is not valid: yaml"), 0644))

	_, err := NewLoader(tempDir).Load()
	assert.Error(t, err)
}

func TestLoad_InvalidConfigurationIsError(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	sqldrawDir := filepath.Join(tempDir, ".sqldraw")
	require.NoError(t, os.MkdirAll(sqldrawDir, 0755))

	configContent := `
sandbox:
  max_rows_per_table: 0
`
	configPath := filepath.Join(sqldrawDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	_, err := NewLoader(tempDir).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRowCap)
}

func TestLoadConfigFromDir_DelegatesToLoader(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	cfg, err := LoadConfigFromDir(tempDir)
	require.NoError(t, err)
	assert.Equal(t, Default().Sandbox.Seed, cfg.Sandbox.Seed)
}
