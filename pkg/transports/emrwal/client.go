package emrwal

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/openfroyo/walworkspace/pkg/telemetry"
)

const (
	// SigningName is the SigV4 service name and endpoint prefix.
	SigningName = "emrwal"

	// targetPrefix prefixes the operation name in the X-Amz-Target header.
	targetPrefix = "EMRWAL"

	contentType = "application/x-amz-json-1.1"

	// ThrottlingErrorCode is the service-specific throttling error.
	ThrottlingErrorCode = "WalThrottlingException"
)

// Client calls the workspace service over the AWS JSON 1.1 protocol.
// It is safe for concurrent use.
type Client struct {
	endpoint   string
	region     string
	httpClient aws.HTTPClient
	creds      aws.CredentialsProvider
	signer     *v4.Signer
	retryer    aws.Retryer
	logger     *telemetry.Logger
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *telemetry.Logger) Option {
	return func(c *Client) {
		c.logger = l.NewComponentLogger("emrwal-client")
	}
}

// WithClock overrides the signing clock.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient loads AWS configuration (default credential chain, or the static
// credentials and profile from cfg) and creates a client.
func NewClient(ctx context.Context, cfg *Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(cfg.Timeout)),
		config.WithRetryer(func() aws.Retryer {
			return NewRetryer(cfg.MaxAttempts, cfg.MaxBackoff)
		}),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	} else if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewFromConfig(awsCfg, cfg.ResolveEndpoint(), opts...), nil
}

// NewFromConfig creates a client from an already loaded AWS configuration.
func NewFromConfig(awsCfg aws.Config, endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		region:     awsCfg.Region,
		httpClient: awsCfg.HTTPClient,
		creds:      awsCfg.Credentials,
		signer:     v4.NewSigner(),
		logger:     telemetry.NewNopLogger(),
		now:        time.Now,
	}
	if c.httpClient == nil {
		c.httpClient = awshttp.NewBuildableClient()
	}
	if awsCfg.Retryer != nil {
		c.retryer = awsCfg.Retryer()
	} else {
		c.retryer = NewRetryer(3, 20*time.Second)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRetryer returns the standard AWS retryer with the service throttling
// code added to the retryable set. opts are applied last.
func NewRetryer(maxAttempts int, maxBackoff time.Duration, opts ...func(*retry.StandardOptions)) aws.Retryer {
	base := func(o *retry.StandardOptions) {
		o.MaxAttempts = maxAttempts
		o.MaxBackoff = maxBackoff
		if maxBackoff > 0 {
			o.Backoff = retry.NewExponentialJitterBackoff(maxBackoff)
		} else {
			o.Backoff = retry.BackoffDelayerFunc(func(int, error) (time.Duration, error) {
				return 0, nil
			})
		}
		o.Retryables = append(o.Retryables, retry.RetryableErrorCode{
			Codes: map[string]struct{}{ThrottlingErrorCode: {}},
		})
	}
	return retry.NewStandard(append([]func(*retry.StandardOptions){base}, opts...)...)
}

// Endpoint returns the endpoint the client sends requests to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// do invokes one API operation, retrying transport-retryable failures, and
// maps the final failure into a remote error. Attempts and retries draw on
// the retryer's token bucket as the SDK retry middleware does; once the
// retry quota is exhausted the last failure is returned.
func (c *Client) do(ctx context.Context, api string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", api, err)
	}

	logger := c.logger.WithAPI(api)
	maxAttempts := c.retryer.MaxAttempts()
	releaseRetry := func(error) error { return nil }

	for attempt := 1; ; attempt++ {
		releaseAttempt, terr := c.attemptToken(ctx)
		if terr != nil {
			return mapError(api, terr)
		}

		err = c.send(ctx, api, body, out)
		releaseAttempt(err)
		releaseRetry(err)
		if err == nil {
			return nil
		}

		if attempt >= maxAttempts || ctx.Err() != nil || !c.retryer.IsErrorRetryable(err) {
			return mapError(api, err)
		}

		releaseRetry, terr = c.retryer.GetRetryToken(ctx, err)
		if terr != nil {
			logger.WithError(terr).Debugf("retry quota exhausted after attempt %d", attempt)
			return mapError(api, err)
		}

		delay, derr := c.retryer.RetryDelay(attempt, err)
		if derr != nil {
			return mapError(api, err)
		}

		logger.WithError(err).Debugf("attempt %d failed, retrying in %s", attempt, delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return mapError(api, err)
		case <-timer.C:
		}
	}
}

func (c *Client) attemptToken(ctx context.Context) (func(error) error, error) {
	if r, ok := c.retryer.(aws.RetryerV2); ok {
		return r.GetAttemptToken(ctx)
	}
	return c.retryer.GetInitialToken(), nil
}

// send performs a single signed round trip.
func (c *Client) send(ctx context.Context, api string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Amz-Target", targetPrefix+"."+api)

	creds, err := c.creds.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve credentials: %w", err)
	}

	sum := sha256.Sum256(body)
	if err := c.signer.SignHTTP(ctx, creds, req, hex.EncodeToString(sum[:]), SigningName, c.region, c.now()); err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", api, err)
	}
	return nil
}
