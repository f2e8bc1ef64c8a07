package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/neilberkman/agentrider/pkg/agentsessions/providers"
)

// DefaultExportTemplate renders a session as Markdown. Values are inserted
// unescaped.
const DefaultExportTemplate = `# Session {{{id}}}

- Provider: {{{provider}}}
{{#working_dir}}- Working directory: {{{working_dir}}}
{{/working_dir}}{{#last_activity}}- Last activity: {{{last_activity}}}
{{/last_activity}}
{{#instructions}}
## Instructions

{{{instructions}}}
{{/instructions}}

## Transcript
{{#events}}

### {{{label}}}{{#timestamp}} ({{{timestamp}}}){{/timestamp}}

{{{text}}}
{{/events}}
`

// Config holds the settings read from config.toml, with defaults filled in.
type Config struct {
	LogLevel          string
	IncludeRaw        bool
	DisabledProviders []string
	ClaudeRoot        string
	CodexRoot         string
	KimiRoot          string
	KimiConfig        string
	IndexPath         string
	ExportTemplate    string
}

type tomlConfig struct {
	LogLevel          string    `toml:"log_level"`
	IncludeRaw        bool      `toml:"include_raw"`
	DisabledProviders []string  `toml:"disabled_providers"`
	Roots             rootsConf `toml:"roots"`
	IndexPath         string    `toml:"index_path"`
	ExportTemplate    string    `toml:"export_template"`
}

type rootsConf struct {
	Claude     string `toml:"claude"`
	Codex      string `toml:"codex"`
	Kimi       string `toml:"kimi"`
	KimiConfig string `toml:"kimi_config"`
}

// Dir returns ~/.config/agentrider.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "agentrider")
}

// DefaultPath returns the default config.toml location.
func DefaultPath() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.toml")
}

// DefaultIndexPath returns the default SQLite index location.
func DefaultIndexPath() string {
	dir := Dir()
	if dir == "" {
		return "agentrider.db"
	}
	return filepath.Join(dir, "index.db")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		LogLevel:       "info",
		IndexPath:      DefaultIndexPath(),
		ExportTemplate: DefaultExportTemplate,
	}
}

// Load reads config from path, or from ~/.config/agentrider/config.toml when
// path is empty. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, nil // Use defaults
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, loadTemplateFile(cfg, filepath.Dir(path))
		}
		return nil, fmt.Errorf("failed to stat config: %w", err)
	}

	var tc tomlConfig
	if _, err := toml.DecodeFile(path, &tc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if tc.LogLevel != "" {
		cfg.LogLevel = tc.LogLevel
	}
	cfg.IncludeRaw = tc.IncludeRaw
	cfg.DisabledProviders = tc.DisabledProviders
	cfg.ClaudeRoot = ExpandHome(tc.Roots.Claude)
	cfg.CodexRoot = ExpandHome(tc.Roots.Codex)
	cfg.KimiRoot = ExpandHome(tc.Roots.Kimi)
	cfg.KimiConfig = ExpandHome(tc.Roots.KimiConfig)
	if tc.IndexPath != "" {
		cfg.IndexPath = ExpandHome(tc.IndexPath)
	}
	if tc.ExportTemplate != "" {
		data, err := os.ReadFile(ExpandHome(tc.ExportTemplate))
		if err != nil {
			return nil, fmt.Errorf("failed to read export template: %w", err)
		}
		cfg.ExportTemplate = string(data)
		return cfg, nil
	}

	return cfg, loadTemplateFile(cfg, filepath.Dir(path))
}

// loadTemplateFile picks up export_template.md next to the config file.
func loadTemplateFile(cfg *Config, dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, "export_template.md"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read export template: %w", err)
	}
	cfg.ExportTemplate = string(data)
	return nil
}

// ProviderOptions returns the provider roots and exclusions.
func (c *Config) ProviderOptions() providers.Options {
	return providers.Options{
		ClaudeRoot: c.ClaudeRoot,
		CodexRoot:  c.CodexRoot,
		KimiRoot:   c.KimiRoot,
		KimiConfig: c.KimiConfig,
		Disabled:   c.DisabledProviders,
	}
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
