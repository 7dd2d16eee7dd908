// Package config provides configuration loading for knotifier.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all knotifier configuration.
type Config struct {
	AWS       AWSConfig       `yaml:"aws"`
	Queue     QueueConfig     `yaml:"queue"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Replacer  ReplacerConfig  `yaml:"replacer"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// AWSConfig configures the AWS clients.
type AWSConfig struct {
	Region string `yaml:"region"`
}

// QueueConfig configures the termination notification queue.
type QueueConfig struct {
	Name string `yaml:"name"`
}

// PricingConfig configures the price signal engine.
type PricingConfig struct {
	InstanceTypes     []string `yaml:"instanceTypes"`
	AvailabilityZones []string `yaml:"availabilityZones"`

	// RefreshIntervalSeconds is how often weighted prices are
	// recomputed from the history API.
	RefreshIntervalSeconds int `yaml:"refreshIntervalSeconds"`

	// Workers bounds concurrent price history fetches.
	Workers int `yaml:"workers"`

	// EligibilityExpression optionally filters replacement candidates.
	// The expression is evaluated per candidate with the variables
	// price, instance_type, and zone; candidates it rejects are never
	// selected. Example: "price < 0.5 && instance_type != 'm3.large'".
	EligibilityExpression string `yaml:"eligibilityExpression"`
}

// ReplacerConfig configures the replacement controller.
type ReplacerConfig struct {
	ReconcileIntervalSeconds int `yaml:"reconcileIntervalSeconds"`

	// EstimateSavings enables on-demand price lookups to report the
	// estimated hourly savings of each replacement.
	EstimateSavings bool `yaml:"estimateSavings"`
}

// TelemetryConfig configures the metrics endpoint.
type TelemetryConfig struct {
	ListenAddress string `yaml:"listenAddress"`
}

// Load reads configuration from a YAML file, applies defaults, and
// validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate applies defaults for optional fields and checks the
// required ones.
func (c *Config) Validate() error {
	if c.AWS.Region == "" {
		return fmt.Errorf("aws.region is required")
	}
	if len(c.Pricing.InstanceTypes) == 0 {
		return fmt.Errorf("pricing.instanceTypes cannot be empty")
	}
	if len(c.Pricing.AvailabilityZones) == 0 {
		return fmt.Errorf("pricing.availabilityZones cannot be empty")
	}

	if c.Queue.Name == "" {
		c.Queue.Name = "load-balancer-test"
	}
	if c.Pricing.RefreshIntervalSeconds == 0 {
		c.Pricing.RefreshIntervalSeconds = 10
	}
	if c.Pricing.RefreshIntervalSeconds < 0 {
		return fmt.Errorf("pricing.refreshIntervalSeconds must be positive")
	}
	if c.Pricing.Workers < 0 {
		return fmt.Errorf("pricing.workers must be positive")
	}
	if c.Replacer.ReconcileIntervalSeconds == 0 {
		c.Replacer.ReconcileIntervalSeconds = 60
	}
	if c.Replacer.ReconcileIntervalSeconds < 0 {
		return fmt.Errorf("replacer.reconcileIntervalSeconds must be positive")
	}
	if c.Telemetry.ListenAddress == "" {
		c.Telemetry.ListenAddress = ":8080"
	}

	return nil
}

// RefreshInterval returns the price refresh interval as a duration.
func (p *PricingConfig) RefreshInterval() time.Duration {
	return time.Duration(p.RefreshIntervalSeconds) * time.Second
}

// ReconcileInterval returns the reconcile interval as a duration.
func (r *ReplacerConfig) ReconcileInterval() time.Duration {
	return time.Duration(r.ReconcileIntervalSeconds) * time.Second
}
