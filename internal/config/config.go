// Package config provides configuration loading with hot-reload support.
// Credentials are never stored in the file; the file names the environment
// variables they are read from.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/taskgate-ai/taskgate/pkg/decision"
)

// Config is the complete dispatcher-core configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Governance GovernanceConfig `yaml:"governance"`
	Policy     PolicyConfig     `yaml:"policy"`
	Providers  []ProviderConfig `yaml:"providers"`
}

// ServerConfig contains settings for the administrative HTTP surface.
type ServerConfig struct {
	Port              int           `yaml:"port"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// GovernanceConfig seeds the governance engine.
type GovernanceConfig struct {
	Cost     CostConfig     `yaml:"cost"`
	Rate     RateConfig     `yaml:"rate"`
	Fallback FallbackConfig `yaml:"fallback"`
}

// CostConfig holds the global budget thresholds.
type CostConfig struct {
	GlobalSoftLimitUSD float64 `yaml:"global_soft_limit_usd"`
	GlobalHardLimitUSD float64 `yaml:"global_hard_limit_usd"`
}

// RateConfig holds the global per-minute ceilings.
type RateConfig struct {
	RequestsPerMinute int64 `yaml:"requests_per_minute"`
	TokensPerMinute   int64 `yaml:"tokens_per_minute"`
}

// FallbackConfig holds the fallback policy.
type FallbackConfig struct {
	DefaultProvider  string   `yaml:"default_provider"`
	Order            []string `yaml:"order"`
	OnTimeout        bool     `yaml:"on_timeout"`
	OnAuthError      bool     `yaml:"on_auth_error"`
	OnBudgetExceeded bool     `yaml:"on_budget_exceeded"`
	OnDegraded       bool     `yaml:"on_degraded"`
}

// PolicyConfig toggles the policy gate.
type PolicyConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ProviderConfig names a provider and the environment variable carrying its
// credential. Local providers need no credential entry.
type ProviderConfig struct {
	Name      string `yaml:"name"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// LoadFromFile reads, parses, defaults, and validates a configuration file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}
	if c.Server.RequestsPerMinute == 0 {
		c.Server.RequestsPerMinute = 120
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Governance.Cost.GlobalSoftLimitUSD == 0 {
		c.Governance.Cost.GlobalSoftLimitUSD = 10
	}
	if c.Governance.Cost.GlobalHardLimitUSD == 0 {
		c.Governance.Cost.GlobalHardLimitUSD = 50
	}
	if c.Governance.Rate.RequestsPerMinute == 0 {
		c.Governance.Rate.RequestsPerMinute = 60
	}
	if c.Governance.Rate.TokensPerMinute == 0 {
		c.Governance.Rate.TokensPerMinute = 90000
	}
	if c.Governance.Fallback.DefaultProvider == "" {
		c.Governance.Fallback.DefaultProvider = string(decision.TargetOllama)
	}
	if len(c.Governance.Fallback.Order) == 0 {
		c.Governance.Fallback.Order = decision.SelectFallbackOrder(false, false, 0)
	}
}

// Validate rejects limit combinations the core relies on being impossible:
// soft limits above hard limits and non-positive magnitudes.
func (c *Config) Validate() error {
	cost := c.Governance.Cost
	if cost.GlobalSoftLimitUSD <= 0 || cost.GlobalHardLimitUSD <= 0 {
		return fmt.Errorf("cost limits must be positive (soft=%v hard=%v)", cost.GlobalSoftLimitUSD, cost.GlobalHardLimitUSD)
	}
	if cost.GlobalSoftLimitUSD > cost.GlobalHardLimitUSD {
		return fmt.Errorf("soft cost limit %v exceeds hard limit %v", cost.GlobalSoftLimitUSD, cost.GlobalHardLimitUSD)
	}
	if c.Governance.Rate.RequestsPerMinute <= 0 || c.Governance.Rate.TokensPerMinute <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider entry missing name")
		}
	}
	return nil
}

// EnvCredentialSource resolves provider credentials from the environment
// variables named in the provider list. Presence and non-blankness are the
// only properties ever inspected.
type EnvCredentialSource struct {
	envNames map[string]string
}

// NewEnvCredentialSource builds a credential source from the config's
// provider entries.
func NewEnvCredentialSource(providers []ProviderConfig) *EnvCredentialSource {
	names := make(map[string]string, len(providers))
	for _, p := range providers {
		if p.APIKeyEnv != "" {
			names[p.Name] = p.APIKeyEnv
		}
	}
	return &EnvCredentialSource{envNames: names}
}

// Credential returns the credential for a provider, or an empty string.
func (s *EnvCredentialSource) Credential(provider string) string {
	env, ok := s.envNames[provider]
	if !ok {
		return ""
	}
	return strings.TrimSpace(os.Getenv(env))
}
