package emrwal

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds the connection configuration of the workspace service client.
type Config struct {
	// Region is the AWS region of the service endpoint.
	Region string

	// Partition is the AWS partition (aws, aws-cn, aws-us-gov). It selects
	// the endpoint domain when Endpoint is empty.
	Partition string

	// Endpoint overrides the resolved service endpoint (e.g. a local stub).
	Endpoint string

	// Profile selects a shared config profile. Ignored when static
	// credentials are set.
	Profile string

	// AccessKeyID, SecretAccessKey and SessionToken are optional static
	// credentials. When empty the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// Timeout bounds a single HTTP round trip.
	Timeout time.Duration

	// MaxAttempts is the number of transport attempts per call, including the
	// first one. Throttling and 5xx responses are retried up to this bound.
	MaxAttempts int

	// MaxBackoff caps the delay between transport attempts.
	MaxBackoff time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(region string) *Config {
	return &Config{
		Region:      region,
		Partition:   "aws",
		Timeout:     30 * time.Second,
		MaxAttempts: 3,
		MaxBackoff:  20 * time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}

	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid endpoint: %q", c.Endpoint)
		}
	}

	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("access key id and secret access key must be set together")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}

	if c.MaxBackoff < 0 {
		return fmt.Errorf("max backoff must not be negative")
	}

	return nil
}

// ResolveEndpoint returns the endpoint URL the client sends requests to.
func (c *Config) ResolveEndpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://%s.%s.%s", SigningName, c.Region, dnsSuffix(c.Partition))
}

func dnsSuffix(partition string) string {
	switch partition {
	case "aws-cn":
		return "amazonaws.com.cn"
	default:
		return "amazonaws.com"
	}
}
