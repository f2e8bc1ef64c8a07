package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultExportTemplate, cfg.ExportTemplate)
	assert.False(t, cfg.IncludeRaw)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "tmpl.md")
	require.NoError(t, os.WriteFile(tmpl, []byte("{{id}}"), 0o644))

	path := filepath.Join(dir, "config.toml")
	content := `
log_level = "debug"
include_raw = true
disabled_providers = ["kimi"]
index_path = "/tmp/agentrider-test.db"
export_template = "` + tmpl + `"

[roots]
claude = "/data/claude"
codex = "~/codex"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.IncludeRaw)
	assert.Equal(t, []string{"kimi"}, cfg.DisabledProviders)
	assert.Equal(t, "/data/claude", cfg.ClaudeRoot)
	assert.Equal(t, ExpandHome("~/codex"), cfg.CodexRoot)
	assert.Equal(t, "/tmp/agentrider-test.db", cfg.IndexPath)
	assert.Equal(t, "{{id}}", cfg.ExportTemplate)

	opts := cfg.ProviderOptions()
	assert.Equal(t, "/data/claude", opts.ClaudeRoot)
	assert.Equal(t, []string{"kimi"}, opts.Disabled)
}

func TestLoadTemplateBesideConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "export_template.md"), []byte("custom"), 0o644))

	cfg, err := Load(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.ExportTemplate)
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = "), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x"), ExpandHome("~/x"))
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, "/abs", ExpandHome("/abs"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}
