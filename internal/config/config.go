package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the only configuration schema version understood by this release.
const CurrentVersion = "1.0"

// DefaultFileName is looked up when no --config flag is given.
const DefaultFileName = "vaultsite.yaml"

// Config is the full vaultsite configuration surface.
type Config struct {
	Version      string         `yaml:"version"`
	Site         SiteConfig     `yaml:"site"`
	Paths        PathsConfig    `yaml:"paths"`
	Build        BuildConfig    `yaml:"build"`
	Transformers []PluginConfig `yaml:"transformers"`
	Filters      []PluginConfig `yaml:"filters"`
	Emitters     []PluginConfig `yaml:"emitters"`
	Logging      LoggingConfig  `yaml:"logging"`
	Metrics      MetricsConfig  `yaml:"metrics"`
	Events       EventsConfig   `yaml:"events"`

	// baseDir is the directory relative paths were resolved against.
	baseDir string
}

// SiteConfig holds site-wide settings shared by every transformer and emitter.
type SiteConfig struct {
	Title           string            `yaml:"title"`
	Locale          string            `yaml:"locale"`
	BaseURL         string            `yaml:"base_url"`
	IgnorePatterns  []string          `yaml:"ignore_patterns"`
	DefaultDateType DateType          `yaml:"default_date_type"`
	Redirects       map[string]string `yaml:"redirects,omitempty"`
}

// DateType selects which resolved date drives listings and feeds.
type DateType string

const (
	DateCreated   DateType = "created"
	DateModified  DateType = "modified"
	DatePublished DateType = "published"
)

// PathsConfig locates the vault, the output tree and the static directory.
type PathsConfig struct {
	Content string `yaml:"content"`
	Output  string `yaml:"output"`
	Static  string `yaml:"static"`
}

// BuildConfig controls scheduling and strictness of a build.
type BuildConfig struct {
	Workers                int           `yaml:"workers"`
	DocumentTimeout        time.Duration `yaml:"document_timeout"`
	StrictTransformerOrder bool          `yaml:"strict_transformer_order"`
	CacheFile              string        `yaml:"cache_file"`
	ReportFile             string        `yaml:"report_file"`
}

// LoggingConfig selects slog level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig enables the Prometheus recorder and its textfile export.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile"`
}

// EventsConfig configures optional build-summary publication over NATS.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// Load reads, expands, defaults and validates a configuration file.
// Relative paths in the file are resolved against the file's directory.
func Load(configPath string) (*Config, error) {
	loadEnvFiles(filepath.Dir(configPath))

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	absDir, err := filepath.Abs(filepath.Dir(configPath))
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	cfg.resolvePaths(absDir)
	return cfg, nil
}

// Parse decodes configuration bytes, applies defaults and validates the result.
// Paths are left as written.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported configuration version: %s (expected %s)", cfg.Version, CurrentVersion)
	}

	ApplyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) resolvePaths(dir string) {
	c.baseDir = dir
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.Paths.Content = abs(c.Paths.Content)
	c.Paths.Output = abs(c.Paths.Output)
	c.Paths.Static = abs(c.Paths.Static)
	c.Build.CacheFile = abs(c.Build.CacheFile)
	c.Build.ReportFile = abs(c.Build.ReportFile)
	c.Metrics.Textfile = abs(c.Metrics.Textfile)
}

// BaseDir returns the directory the configuration was loaded from, or "" for parsed configs.
func (c *Config) BaseDir() string { return c.baseDir }

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Default()
	example.Site.Title = "My Vault"
	example.Site.BaseURL = "example.com"
	example.Site.Redirects = map[string]string{"old/path": "new/path"}
	example.Build.CacheFile = ".vaultsite-cache.db"
	example.Build.ReportFile = "build-report.json"

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	ApplyDefaults(cfg)
	return cfg
}
