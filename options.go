package mturk

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// WithSandbox selects the sandbox (true) or production (false) endpoint
func WithSandbox(sandbox bool) Option {
	return func(c *Client) {
		c.sandbox = sandbox
	}
}

// WithProduction targets the live production endpoint
func WithProduction() Option {
	return WithSandbox(false)
}

// WithEndpoint overrides the base URI regardless of sandbox mode
func WithEndpoint(baseURL string) Option {
	return func(c *Client) {
		c.endpoint = baseURL
	}
}

// WithServiceName overrides the service identifier used in the query and signature
func WithServiceName(service string) Option {
	return func(c *Client) {
		c.service = service
	}
}

// WithAPIVersion overrides the protocol version
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		c.version = version
	}
}

// WithTimeout sets the request timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
		if hc, ok := c.httpClient.(*http.Client); ok && hc != nil {
			hc.Timeout = d
		}
	}
}

// WithHTTPClient sets a custom HTTP client. If client.Timeout is zero it is
// set to the configured timeout, which mutates the caller's client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client == nil {
			c.httpClient = nil
			return
		}
		c.httpClient = client
		if c.timeout != 0 && client.Timeout == 0 {
			client.Timeout = c.timeout
		}
	}
}

// WithTransport sets the transport capability used to issue requests
func WithTransport(doer Doer) Option {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithMiddleware adds middleware to the client
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithValidator replaces the response validity predicate
func WithValidator(validator Validator) Option {
	return func(c *Client) {
		c.validator = validator
	}
}

// WithClock sets the time source used for the client timestamp
func WithClock(clock Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithFixedTimestamp freezes the client timestamp at t immediately
func WithFixedTimestamp(t time.Time) Option {
	return func(c *Client) {
		c.clock = func() time.Time { return t }
		c.Timestamp()
	}
}

// WithMetrics enables Prometheus metrics on the default registerer. All
// clients built with it share one collector.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger sets a custom logger
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithZapLogger logs through the given zap logger
func WithZapLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = NewZapLogger(logger)
	}
}

// WithSimpleLogger enables debug logging with a console logger
func WithSimpleLogger() Option {
	return func(c *Client) {
		c.logger = NewSimpleLogger()
	}
}

// WithRequestIDGenerator sets a custom function for generating local request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		c.requestIDGen = gen
	}
}

// ValidateConfiguration validates the client configuration and returns an error if invalid
func (c *Client) ValidateConfiguration() error {
	var errors []string

	errors = append(errors, c.validateCredentials()...)
	errors = append(errors, c.validateEndpoint()...)
	errors = append(errors, c.validateCollaborators()...)

	if len(errors) > 0 {
		return &ClientError{
			Type:    ErrorTypeValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", errors),
		}
	}

	return nil
}

func (c *Client) validateCredentials() []string {
	var errors []string

	if c.accessKeyID == "" {
		errors = append(errors, "accessKeyID must be set")
	}
	if c.secretAccessKey == "" {
		errors = append(errors, "secretAccessKey must be set")
	}

	return errors
}

func (c *Client) validateEndpoint() []string {
	var errors []string

	if c.service == "" {
		errors = append(errors, "service name must be set")
	}
	if c.version == "" {
		errors = append(errors, "API version must be set")
	}
	if c.endpoint != "" {
		u, err := url.Parse(c.endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("endpoint %q must be an absolute URL", c.endpoint))
		} else if u.RawQuery != "" {
			errors = append(errors, "endpoint must not carry a query string")
		}
	}

	return errors
}

func (c *Client) validateCollaborators() []string {
	var errors []string

	if c.httpClient == nil {
		errors = append(errors, "HTTP client cannot be nil")
	}
	if c.validator == nil {
		errors = append(errors, "validator cannot be nil")
	}
	if c.clock == nil {
		errors = append(errors, "clock cannot be nil")
	}
	if c.logger == nil {
		errors = append(errors, "logger cannot be nil")
	}
	if c.requestIDGen == nil {
		errors = append(errors, "request ID generator cannot be nil")
	}
	for i, middleware := range c.middleware {
		if middleware == nil {
			errors = append(errors, fmt.Sprintf("middleware[%d] cannot be nil", i))
		}
	}

	return errors
}
