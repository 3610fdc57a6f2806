package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/walworkspace/pkg/host"
	"github.com/openfroyo/walworkspace/pkg/stores"
	"github.com/openfroyo/walworkspace/pkg/telemetry"
	"github.com/openfroyo/walworkspace/pkg/transports/emrwal"
)

// Config is the walws configuration file.
type Config struct {
	// AWS identifies the account and endpoint workspaces live in.
	AWS AWSConfig `yaml:"aws"`

	// Client tunes the remote client transport.
	Client ClientConfig `yaml:"client"`

	// Host configures the local host driver.
	Host HostConfig `yaml:"host"`

	// Telemetry configures logging, tracing and metrics.
	Telemetry *telemetry.Config `yaml:"telemetry" validate:"required"`

	// Policy configures the preflight policy checks.
	Policy PolicyConfig `yaml:"policy"`
}

// AWSConfig identifies the account, partition and region.
type AWSConfig struct {
	AccountID string `yaml:"account_id" validate:"omitempty,len=12,numeric"`
	Partition string `yaml:"partition" validate:"required,oneof=aws aws-cn aws-us-gov"`
	Region    string `yaml:"region" validate:"required"`

	// Endpoint overrides the resolved service endpoint.
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`

	// Profile selects a shared config profile.
	Profile string `yaml:"profile"`

	// Static credentials. Both or neither of the key fields must be set.
	AccessKeyID     string `yaml:"access_key_id" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `yaml:"secret_access_key" validate:"required_with=AccessKeyID"`
	SessionToken    string `yaml:"session_token"`
}

// ClientConfig tunes the remote client.
type ClientConfig struct {
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxAttempts int           `yaml:"max_attempts" validate:"min=1,max=10"`
	MaxBackoff  time.Duration `yaml:"max_backoff" validate:"gte=0"`
}

// HostConfig configures the host driver.
type HostConfig struct {
	// StorePath is the sqlite database holding callback contexts and the
	// invocation log. ":memory:" keeps nothing across runs.
	StorePath string `yaml:"store_path" validate:"required"`

	// MaxInvocations bounds the invocations of one operation, including the
	// first.
	MaxInvocations int `yaml:"max_invocations" validate:"min=1"`

	// BackoffBase is the first re-invocation delay.
	BackoffBase time.Duration `yaml:"backoff_base" validate:"gt=0"`

	// ThrottledBackoffBase replaces BackoffBase after a throttling failure.
	ThrottledBackoffBase time.Duration `yaml:"throttled_backoff_base" validate:"gt=0"`

	// BackoffMax caps the re-invocation delay.
	BackoffMax time.Duration `yaml:"backoff_max" validate:"gtefield=BackoffBase"`

	// InvocationRetention is how long invocation records are kept.
	InvocationRetention time.Duration `yaml:"invocation_retention" validate:"gte=0"`
}

// PolicyConfig configures the policy preflight.
type PolicyConfig struct {
	Enabled bool `yaml:"enabled"`

	// Paths lists extra .rego/.json policy files or directories.
	Paths []string `yaml:"paths"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		AWS: AWSConfig{
			Partition: "aws",
			Region:    "us-east-1",
		},
		Client: ClientConfig{
			Timeout:     30 * time.Second,
			MaxAttempts: 3,
			MaxBackoff:  20 * time.Second,
		},
		Host: HostConfig{
			StorePath:            "walws.db",
			MaxInvocations:       10,
			BackoffBase:          time.Second,
			ThrottledBackoffBase: 5 * time.Second,
			BackoffMax:           time.Minute,
			InvocationRetention:  7 * 24 * time.Hour,
		},
		Telemetry: telemetry.DefaultConfig(),
		Policy: PolicyConfig{
			Enabled: true,
		},
	}
}

// Load reads a YAML configuration file over the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the standard AWS environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.AWS.Region = v
	} else if v := os.Getenv("AWS_DEFAULT_REGION"); v != "" {
		c.AWS.Region = v
	}
	if v := os.Getenv("AWS_PROFILE"); v != "" {
		c.AWS.Profile = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" && c.Telemetry != nil {
		c.Telemetry.Logging.Level = v
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("invalid telemetry config: %w", err)
	}
	return nil
}

// TransportConfig returns the remote client configuration.
func (c *Config) TransportConfig() *emrwal.Config {
	return &emrwal.Config{
		Region:          c.AWS.Region,
		Partition:       c.AWS.Partition,
		Endpoint:        c.AWS.Endpoint,
		Profile:         c.AWS.Profile,
		AccessKeyID:     c.AWS.AccessKeyID,
		SecretAccessKey: c.AWS.SecretAccessKey,
		SessionToken:    c.AWS.SessionToken,
		Timeout:         c.Client.Timeout,
		MaxAttempts:     c.Client.MaxAttempts,
		MaxBackoff:      c.Client.MaxBackoff,
	}
}

// StoreConfig returns the sqlite store configuration.
func (c *Config) StoreConfig() stores.Config {
	return stores.Config{Path: c.Host.StorePath}
}

// DriverConfig returns the host driver configuration.
func (c *Config) DriverConfig() host.Config {
	return host.Config{
		MaxInvocations:       c.Host.MaxInvocations,
		BackoffBase:          c.Host.BackoffBase,
		ThrottledBackoffBase: c.Host.ThrottledBackoffBase,
		BackoffMax:           c.Host.BackoffMax,
	}
}
