package headless

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	appconfig "github.com/entrhq/pilot/pkg/config"
	"github.com/entrhq/pilot/pkg/types"
)

const defaultTimeout = 15 * time.Minute

// Config drives one unattended run: the task, an optional predefined
// plan, time and domain limits, and where to put the report.
type Config struct {
	// Task is the instruction to execute.
	Task string `yaml:"task"`

	// Plan optionally seeds the first planning cycle.
	Plan *types.PredefinedPlan `yaml:"plan"`

	// Timeout bounds the whole run. Defaults to 15m.
	Timeout appconfig.Duration `yaml:"timeout"`

	// AllowedDomains and DeniedDomains configure navigation policy.
	AllowedDomains []string `yaml:"allowed_domains"`
	DeniedDomains  []string `yaml:"denied_domains"`

	// Artifacts configures report generation.
	Artifacts ArtifactConfig `yaml:"artifacts"`
}

// ArtifactConfig selects which report files a run produces.
type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir"`
	JSON      bool   `yaml:"json"`
	Markdown  bool   `yaml:"markdown"`
}

// LoadConfig reads and validates a run configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing run config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.Task == "" {
		return fmt.Errorf("task is required")
	}
	if c.Plan != nil && len(c.Plan.Steps) == 0 {
		return fmt.Errorf("plan must have at least one step")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if c.Timeout == 0 {
		c.Timeout = appconfig.Duration(defaultTimeout)
	}
	if c.Artifacts.Enabled && c.Artifacts.OutputDir == "" {
		return fmt.Errorf("artifacts.output_dir is required when artifacts are enabled")
	}
	return nil
}

// DefaultConfig returns a configuration with sensible defaults for
// unattended runs.
func DefaultConfig() *Config {
	return &Config{
		Timeout: appconfig.Duration(defaultTimeout),
		Artifacts: ArtifactConfig{
			Enabled:   true,
			OutputDir: ".pilot/artifacts",
			JSON:      true,
			Markdown:  true,
		},
	}
}
