// Package projectconfig provides the ProjectConfig struct and loader for
// .apexeval.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the project configuration file searched for by Load.
const ConfigFileName = ".apexeval.yaml"

// Default values for project configuration. These are the single source of
// truth. New() references them and no other code should duplicate them.
const (
	DefaultModel        = "claude-opus-4-5-20251101"
	DefaultGradingModel = "gemini-2.5-flash"
	DefaultRuns         = 1

	DefaultCacheDir = ".apexeval-cache"

	DefaultServerPort       = 3000
	DefaultServerResultsDir = "."

	DefaultUploadContainer = "apexeval-results"
)

// DefaultsConfig holds the stock models used when an eval spec or wizard
// does not name its own.
type DefaultsConfig struct {
	Model        string `yaml:"model,omitempty"`
	GradingModel string `yaml:"grading_model,omitempty"`
	Runs         int    `yaml:"runs,omitempty"`
}

// CacheConfig holds generation cache settings.
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// ServerConfig holds results dashboard settings.
type ServerConfig struct {
	Port       int    `yaml:"port,omitempty"`
	ResultsDir string `yaml:"results_dir,omitempty"`
}

// UploadConfig holds blob upload settings.
type UploadConfig struct {
	Container string `yaml:"container,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .apexeval.yaml.
type ProjectConfig struct {
	Defaults DefaultsConfig `yaml:"defaults,omitempty"`
	Cache    CacheConfig    `yaml:"cache,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`
	Upload   UploadConfig   `yaml:"upload,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Defaults: DefaultsConfig{
			Model:        DefaultModel,
			GradingModel: DefaultGradingModel,
			Runs:         DefaultRuns,
		},
		Cache: CacheConfig{
			Enabled: boolPtr(false),
			Dir:     DefaultCacheDir,
		},
		Server: ServerConfig{
			Port:       DefaultServerPort,
			ResultsDir: DefaultServerResultsDir,
		},
		Upload: UploadConfig{
			Container: DefaultUploadContainer,
		},
	}
}

// CacheEnabled reports whether the generation cache is switched on.
func (c *ProjectConfig) CacheEnabled() bool {
	return c.Cache.Enabled != nil && *c.Cache.Enabled
}

// Load finds .apexeval.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("loading %s: %w", ConfigFileName, err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}

	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// findConfigFile walks up from dir looking for .apexeval.yaml (max 10
// levels). Returns os.ErrNotExist if no config file is found. Propagates
// real I/O errors (e.g. permission denied) instead of silently swallowing
// them.
func findConfigFile(dir string) ([]byte, error) {
	// Convert to absolute path so filepath.Dir(".") walks correctly.
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, ConfigFileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	if src.Defaults.Model != "" {
		dst.Defaults.Model = src.Defaults.Model
	}
	if src.Defaults.GradingModel != "" {
		dst.Defaults.GradingModel = src.Defaults.GradingModel
	}
	if src.Defaults.Runs != 0 {
		dst.Defaults.Runs = src.Defaults.Runs
	}

	if src.Cache.Enabled != nil {
		dst.Cache.Enabled = src.Cache.Enabled
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}

	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}
	if src.Server.ResultsDir != "" {
		dst.Server.ResultsDir = src.Server.ResultsDir
	}

	if src.Upload.Container != "" {
		dst.Upload.Container = src.Upload.Container
	}
	if src.Upload.Prefix != "" {
		dst.Upload.Prefix = src.Upload.Prefix
	}
}

func boolPtr(b bool) *bool {
	return &b
}
