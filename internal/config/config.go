package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/smartapp-gw/internal/lifecycle"
)

// Defaults applied when fields are omitted.
const (
	DefaultListen       = "127.0.0.1:8080"
	DefaultKeyServerURL = "https://key.smartthings.com"
	DefaultClockSkewSec = 300
	DefaultKeyTTLSec    = 3600
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Config is the gateway configuration, loaded from YAML.
type Config struct {
	// Listen is the address the webhook server binds.
	Listen string `yaml:"listen"`

	// LogLevel is one of DEBUG, INFO, WARN, ERROR.
	LogLevel string `yaml:"log_level"`

	// Definition is the path to the app definition document (.json or .yaml).
	Definition string `yaml:"definition"`

	// DefinitionHash optionally pins the definition file to a BLAKE3 hash;
	// loading fails if the file on disk has drifted.
	DefinitionHash string `yaml:"definition_hash,omitempty"`

	// KeyServerURL is where public signing keys are fetched from.
	KeyServerURL string `yaml:"keyserver_url"`

	// CheckSignatures disables the signature gate when false. Local
	// development only; production apps must always verify.
	CheckSignatures *bool `yaml:"check_signatures"`

	// ClockSkewSec bounds how stale a request Date may be. Zero allows any.
	ClockSkewSec *int `yaml:"clock_skew_sec"`

	// StrictEvents rejects unknown sub-event kinds instead of dropping them.
	StrictEvents bool `yaml:"strict_events"`

	// MaxBodySize is the request body limit, e.g. "1MB" or a byte count.
	MaxBodySize string `yaml:"max_body_size,omitempty"`

	// KeyCacheTTLSec bounds how long fetched signing keys are trusted.
	KeyCacheTTLSec int `yaml:"key_cache_ttl_sec"`
}

// Load reads and parses configuration from a YAML file, expanding ${ENV_VAR}
// references and applying defaults.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s", absPath)
	}

	expanded := envVarPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "INFO"
	}
	if cfg.KeyServerURL == "" {
		cfg.KeyServerURL = DefaultKeyServerURL
	}
	if cfg.CheckSignatures == nil {
		enabled := true
		cfg.CheckSignatures = &enabled
	}
	if cfg.ClockSkewSec == nil {
		skew := DefaultClockSkewSec
		cfg.ClockSkewSec = &skew
	}
	if cfg.KeyCacheTTLSec == 0 {
		cfg.KeyCacheTTLSec = DefaultKeyTTLSec
	}
}

func validate(cfg *Config) error {
	if cfg.Definition == "" {
		return fmt.Errorf("definition path is required")
	}
	if *cfg.ClockSkewSec < 0 {
		return fmt.Errorf("clock_skew_sec must not be negative")
	}
	if _, err := ParseMaxBodySize(cfg.MaxBodySize); err != nil {
		return fmt.Errorf("invalid max_body_size %q: %w", cfg.MaxBodySize, err)
	}
	return nil
}

// ClockSkew returns the configured skew as a duration.
func (c *Config) ClockSkew() time.Duration {
	return time.Duration(*c.ClockSkewSec) * time.Second
}

// KeyCacheTTL returns the configured signing key TTL as a duration.
func (c *Config) KeyCacheTTL() time.Duration {
	return time.Duration(c.KeyCacheTTLSec) * time.Second
}

// LoadDefinition reads, optionally integrity-checks, parses and validates the
// app definition document. The format is chosen by file extension.
func (c *Config) LoadDefinition() (*lifecycle.Definition, error) {
	if c.DefinitionHash != "" {
		if err := VerifyFileHash(c.Definition, c.DefinitionHash); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(c.Definition)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}

	switch strings.ToLower(filepath.Ext(c.Definition)) {
	case ".yaml", ".yml":
		return lifecycle.ParseDefinitionYAML(data)
	default:
		return lifecycle.ParseDefinition(data)
	}
}
