// Package config loads llm-latency-lens's configuration from a TOML or
// YAML file, applies environment variable overrides, and validates the
// result before the orchestrator or CLI commands consume it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ProviderConfig holds the per-provider settings needed to construct a
// provider adapter: credentials, endpoint override, and request
// defaults. It is built directly from config, never through a builder.
type ProviderConfig struct {
	APIKey            string `toml:"api_key" yaml:"api_key"`
	Endpoint          string `toml:"endpoint" yaml:"endpoint"`
	Organization      string `toml:"organization" yaml:"organization"`
	APIVersion        string `toml:"api_version" yaml:"api_version"`
	DefaultModel      string `toml:"default_model" yaml:"default_model"`
	TimeoutSecs       uint64 `toml:"timeout_secs" yaml:"timeout_secs"`
	MaxRetries        uint32 `toml:"max_retries" yaml:"max_retries"`
	ExtendedThinking  bool   `toml:"extended_thinking" yaml:"extended_thinking"`
}

// Timeout returns the provider's configured request timeout.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// DefaultSettings are the fallback values used when a command does not
// specify a provider, model, or sampling parameter explicitly.
type DefaultSettings struct {
	Provider    string   `toml:"provider" yaml:"provider"`
	Model       string   `toml:"model" yaml:"model"`
	MaxTokens   uint32   `toml:"max_tokens" yaml:"max_tokens"`
	Temperature *float32 `toml:"temperature" yaml:"temperature"`
	TopP        *float32 `toml:"top_p" yaml:"top_p"`
	TimeoutSecs uint64   `toml:"timeout_secs" yaml:"timeout_secs"`
}

// RateLimitConfig configures the orchestrator's token-bucket limiter.
type RateLimitConfig struct {
	Enabled           bool   `toml:"enabled" yaml:"enabled"`
	RequestsPerSecond uint32 `toml:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         uint32 `toml:"burst_size" yaml:"burst_size"`
}

// OutputConfig holds exporter and CLI presentation preferences.
type OutputConfig struct {
	Format     string `toml:"format" yaml:"format"`
	Color      bool   `toml:"color" yaml:"color"`
	PrettyJSON bool   `toml:"pretty_json" yaml:"pretty_json"`
	Progress   bool   `toml:"progress" yaml:"progress"`
}

// Config is the root configuration object, loaded from a file and then
// adjusted by environment variables.
type Config struct {
	Providers   map[string]ProviderConfig `toml:"providers" yaml:"providers"`
	Defaults    DefaultSettings           `toml:"defaults" yaml:"defaults"`
	RateLimit   RateLimitConfig           `toml:"rate_limiting" yaml:"rate_limiting"`
	Output      OutputConfig              `toml:"output" yaml:"output"`
}

// Default returns the zero configuration with every default value
// filled in, matching what an absent config file would produce.
func Default() Config {
	return Config{
		Providers: map[string]ProviderConfig{},
		Defaults: DefaultSettings{
			Provider:    "openai",
			MaxTokens:   1024,
			TimeoutSecs: 120,
		},
		RateLimit: RateLimitConfig{
			BurstSize: 10,
		},
		Output: OutputConfig{
			Format:     "json",
			Color:      true,
			PrettyJSON: true,
			Progress:   true,
		},
	}
}

var searchNames = []string{
	"llm-latency-lens.toml",
	"llm-latency-lens.yaml",
	".llm-latency-lens.toml",
	".llm-latency-lens.yaml",
}

// Load resolves the configuration to use: if path is non-empty it is
// read directly, otherwise the three-tier search order (current
// directory, $XDG_CONFIG_HOME/llm-latency-lens/, then
// $HOME/.config/llm-latency-lens/) is probed for the first match.
// Environment variable overrides are applied last, regardless of source.
func Load(path string) (Config, error) {
	var cfg Config
	var err error

	if path != "" {
		cfg, err = FromFile(path)
		if err != nil {
			return Config{}, err
		}
	} else {
		cfg, err = fromDefaultLocations()
		if err != nil {
			return Config{}, err
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// FromFile reads and parses a single config file. The format is chosen
// by extension: .yaml/.yml parses as YAML, anything else as TOML.
func FromFile(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	cfg := Default()
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse YAML config %s: %w", path, err)
		}
	} else {
		if _, err := toml.Decode(string(content), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse TOML config %s: %w", path, err)
		}
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	return cfg, nil
}

func fromDefaultLocations() (Config, error) {
	candidates := make([]string, 0, len(searchNames)*3)
	candidates = append(candidates, searchNames...)

	var configDirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDirs = append(configDirs, xdg)
	}
	if home, ok := os.LookupEnv("HOME"); ok {
		configDirs = append(configDirs, filepath.Join(home, ".config"))
	}
	for _, configDir := range configDirs {
		base := filepath.Join(configDir, "llm-latency-lens")
		for _, name := range searchNames {
			candidates = append(candidates, filepath.Join(base, name))
		}
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return FromFile(candidate)
		}
	}

	return Default(), nil
}

// applyEnvOverrides layers <PROVIDER>_API_KEY, OPENAI_ORGANIZATION, and
// ANTHROPIC_API_VERSION on top of whatever the file produced.
func applyEnvOverrides(cfg *Config) {
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}

	for _, provider := range []string{"openai", "anthropic", "google"} {
		envKey := strings.ToUpper(provider) + "_API_KEY"
		apiKey, ok := os.LookupEnv(envKey)
		if !ok {
			continue
		}
		pc, exists := cfg.Providers[provider]
		if !exists {
			pc = ProviderConfig{
				TimeoutSecs: 120,
				MaxRetries:  3,
			}
		}
		pc.APIKey = apiKey
		cfg.Providers[provider] = pc
	}

	if org, ok := os.LookupEnv("OPENAI_ORGANIZATION"); ok {
		if pc, exists := cfg.Providers["openai"]; exists {
			pc.Organization = org
			cfg.Providers["openai"] = pc
		}
	}

	if version, ok := os.LookupEnv("ANTHROPIC_API_VERSION"); ok {
		if pc, exists := cfg.Providers["anthropic"]; exists {
			pc.APIVersion = version
			cfg.Providers["anthropic"] = pc
		}
	}
}

// GetProvider returns the named provider's configuration.
func (c Config) GetProvider(name string) (ProviderConfig, bool) {
	pc, ok := c.Providers[name]
	return pc, ok
}

// Timeout returns the configured timeout for the named provider,
// falling back to Defaults.TimeoutSecs if the provider is unconfigured.
func (c Config) Timeout(provider string) time.Duration {
	if pc, ok := c.Providers[provider]; ok {
		return pc.Timeout()
	}
	return time.Duration(c.Defaults.TimeoutSecs) * time.Second
}

// Validate checks the config for the invariants the orchestrator
// depends on: at least one provider with credentials, sane numeric
// ranges for temperature/top_p/max_tokens/timeouts.
func (c Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("no providers configured: add at least one provider configuration")
	}

	for name, pc := range c.Providers {
		if pc.APIKey == "" {
			return fmt.Errorf("provider %q is missing an api key: set it via config file or environment variable", name)
		}
		if pc.TimeoutSecs == 0 {
			return fmt.Errorf("provider %q has invalid timeout: must be > 0", name)
		}
	}

	if c.Defaults.MaxTokens == 0 {
		return fmt.Errorf("defaults.max_tokens must be greater than 0")
	}

	if c.Defaults.Temperature != nil {
		if t := *c.Defaults.Temperature; t < 0.0 || t > 2.0 {
			return fmt.Errorf("defaults.temperature must be between 0.0 and 2.0, got %s", strconv.FormatFloat(float64(t), 'f', -1, 32))
		}
	}

	if c.Defaults.TopP != nil {
		if p := *c.Defaults.TopP; p < 0.0 || p > 1.0 {
			return fmt.Errorf("defaults.top_p must be between 0.0 and 1.0, got %s", strconv.FormatFloat(float64(p), 'f', -1, 32))
		}
	}

	return nil
}
