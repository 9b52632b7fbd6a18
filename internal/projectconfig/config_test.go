package projectconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644))
}

func TestNew_ReturnsAllDefaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, DefaultModel, cfg.Defaults.Model)
	assert.Equal(t, DefaultGradingModel, cfg.Defaults.GradingModel)
	assert.Equal(t, DefaultRuns, cfg.Defaults.Runs)

	assert.False(t, cfg.CacheEnabled())
	assert.Equal(t, DefaultCacheDir, cfg.Cache.Dir)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultServerResultsDir, cfg.Server.ResultsDir)

	assert.Equal(t, DefaultUploadContainer, cfg.Upload.Container)
	assert.Empty(t, cfg.Upload.Prefix)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, New(), cfg)
}

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
defaults:
  model: gemini-3-pro-preview
  grading_model: gpt-5
  runs: 3
cache:
  enabled: true
  dir: .gen-cache
server:
  port: 8080
  results_dir: results/
upload:
  container: team-evals
  prefix: nightly
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "gemini-3-pro-preview", cfg.Defaults.Model)
	assert.Equal(t, "gpt-5", cfg.Defaults.GradingModel)
	assert.Equal(t, 3, cfg.Defaults.Runs)
	assert.True(t, cfg.CacheEnabled())
	assert.Equal(t, ".gen-cache", cfg.Cache.Dir)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "results/", cfg.Server.ResultsDir)
	assert.Equal(t, "team-evals", cfg.Upload.Container)
	assert.Equal(t, "nightly", cfg.Upload.Prefix)
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "defaults:\n  model: gpt-5\n")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "gpt-5", cfg.Defaults.Model)
	assert.Equal(t, DefaultGradingModel, cfg.Defaults.GradingModel)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.False(t, cfg.CacheEnabled())
}

func TestLoad_ExplicitFalseOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "cache:\n  enabled: false\n  dir: .gen-cache\n")

	cfg, err := Load(dir)
	require.NoError(t, err)

	// A written false is distinguishable from an absent field.
	require.NotNil(t, cfg.Cache.Enabled)
	assert.False(t, cfg.CacheEnabled())
	assert.Equal(t, ".gen-cache", cfg.Cache.Dir)
}

func TestLoad_FindsConfigInParent(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "defaults:\n  model: gpt-5\n")

	nested := filepath.Join(dir, "evals", "coding")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, err := Load(nested)
	require.NoError(t, err)
	assert.Equal(t, "gpt-5", cfg.Defaults.Model)
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "defaults: [broken\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}
