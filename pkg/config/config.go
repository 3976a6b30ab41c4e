// Package config loads and persists pilot settings as a YAML file
// under the user's home directory.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied wherever the config file is silent.
const (
	DefaultModel             = "gpt-4o"
	DefaultMaxContextTokens  = 128000
	DefaultHumanInputTimeout = 10 * time.Minute
)

// Config is the full on-disk configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Limits  LimitsConfig  `yaml:"limits"`
	Browser BrowserConfig `yaml:"browser"`

	// HumanInputTimeout bounds how long an execution waits for a
	// human-input response before failing.
	HumanInputTimeout Duration `yaml:"human_input_timeout"`

	// CustomInstructions are prepended to the system prompt.
	CustomInstructions string `yaml:"custom_instructions"`
}

// LLMConfig holds provider settings. The API key may also come from
// the OPENAI_API_KEY environment variable.
type LLMConfig struct {
	Model            string `yaml:"model"`
	BaseURL          string `yaml:"base_url"`
	APIKey           string `yaml:"api_key"`
	MaxContextTokens int    `yaml:"max_context_tokens"`
}

// LimitsConfig caps the orchestration loops. Zero values fall back to
// the engine defaults.
type LimitsConfig struct {
	SimpleMaxAttempts int `yaml:"simple_max_attempts"`
	OuterMaxCycles    int `yaml:"outer_max_cycles"`
	InnerMaxTurns     int `yaml:"inner_max_turns"`
	PlanMaxSteps      int `yaml:"plan_max_steps"`
}

// BrowserConfig holds browser session settings and the navigation
// allowlist. Empty AllowedDomains means every domain is allowed.
type BrowserConfig struct {
	Headless       bool     `yaml:"headless"`
	AllowedDomains []string `yaml:"allowed_domains"`
	DeniedDomains  []string `yaml:"denied_domains"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:            DefaultModel,
			MaxContextTokens: DefaultMaxContextTokens,
		},
		Browser: BrowserConfig{
			Headless: true,
		},
		HumanInputTimeout: Duration(DefaultHumanInputTimeout),
	}
}

// applyDefaults fills zero values after loading a partial file.
func (c *Config) applyDefaults() {
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModel
	}
	if c.LLM.MaxContextTokens <= 0 {
		c.LLM.MaxContextTokens = DefaultMaxContextTokens
	}
	if c.HumanInputTimeout <= 0 {
		c.HumanInputTimeout = Duration(DefaultHumanInputTimeout)
	}
}

// Duration is a time.Duration that round-trips through YAML as a
// string like "10m" or "90s".
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}
