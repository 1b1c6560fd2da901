package mturk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Client signs and dispatches Requester API operations. The timestamp used
// for signing is computed on first use and then frozen for the lifetime of
// the Client. Get performs one blocking round trip and needs no locking, but
// callers should treat a Client as one logical timestamp epoch.
type Client struct {
	httpClient Doer
	timeout    time.Duration

	accessKeyID     string
	secretAccessKey string

	sandbox  bool
	endpoint string
	service  string
	version  string

	clock     Clock
	tsOnce    sync.Once
	timestamp string

	validator    Validator
	middleware   []Middleware
	metrics      *MetricsCollector
	logger       Logger
	requestIDGen func() string

	validationError error
}

// New constructs a Client for the given credentials. Sandbox mode is the
// default. Configuration problems are reported by ValidationError and by
// every call to Get.
func New(accessKeyID, secretAccessKey string, options ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		timeout:         30 * time.Second,
		accessKeyID:     accessKeyID,
		secretAccessKey: secretAccessKey,
		sandbox:         true,
		service:         ServiceName,
		version:         APIVersion,
		clock:           time.Now,
		validator:       DefaultValidator,
		middleware:      []Middleware{},
		logger:          nopLogger{},
		requestIDGen:    uuid.NewString,
	}

	for _, option := range options {
		option(client)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// Get signs and sends operation with params and classifies the answer.
// A *ClientError of type RequestFailure carries the wrapped Response; a
// TransportFailure carries only the transport error as its Cause.
func (c *Client) Get(ctx context.Context, operation string, params Params) (*Response, error) {
	if c.validationError != nil {
		return nil, c.validationError
	}

	start := time.Now()
	requestID := c.requestIDGen()
	endpoint := c.endpointLabel()
	if operation == "" {
		return nil, c.newError(ErrorTypeValidation, "operation name is required", nil, requestID, operation, endpoint, nil, start)
	}

	target, err := url.Parse(c.BaseURL())
	if err != nil {
		return nil, c.newError(ErrorTypeValidation, "invalid base URL", err, requestID, operation, endpoint, nil, start)
	}
	target.RawQuery = c.Query(operation, params).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, c.newError(ErrorTypeValidation, "could not build request", err, requestID, operation, endpoint, nil, start)
	}
	req.Header.Set("User-Agent", UserAgent())

	c.logger.Debug("Sending request", "requestID", requestID, "operation", operation, "endpoint", endpoint, "timestamp", c.Timestamp())

	c.metrics.RecordRequestStart(operation)
	httpResp, err := c.executeMiddleware(req)
	c.metrics.RecordRequestEnd(operation)
	err = redactURLError(err)

	if httpResp == nil {
		if err == nil {
			err = errors.New("transport returned neither response nor error")
		}
		c.metrics.RecordRequest(operation, c.mode(), 0, time.Since(start))
		c.metrics.RecordFailure(ErrorTypeTransport, operation)
		c.logger.Error("Transport failure", "requestID", requestID, "operation", operation, "error", err.Error())
		return nil, c.newError(ErrorTypeTransport, "no response received", err, requestID, operation, endpoint, nil, start)
	}

	resp, readErr := NewResponse(httpResp, c.validator)
	c.metrics.RecordRequest(operation, c.mode(), resp.StatusCode, time.Since(start))

	cause := err
	if cause == nil {
		cause = readErr
	}

	if cause != nil || !resp.IsValid() {
		message := "invalid response"
		if cause != nil {
			message = "response received with error"
		}
		c.metrics.RecordFailure(ErrorTypeRequest, operation)
		c.metrics.RecordAPIErrors(operation, resp)
		c.logger.Warn("Request failure", "requestID", requestID, "operation", operation, "statusCode", resp.StatusCode, "apiErrors", len(resp.Errors))
		return nil, c.newError(ErrorTypeRequest, message, cause, requestID, operation, endpoint, resp, start)
	}

	c.logger.Debug("Request succeeded", "requestID", requestID, "operation", operation, "statusCode", resp.StatusCode, "serviceRequestID", resp.RequestID, "duration", time.Since(start))
	return resp, nil
}

// Query assembles the full query parameter set for operation: the fixed
// protocol fields merged with the flattened params.
func (c *Client) Query(operation string, params Params) url.Values {
	timestamp := c.Timestamp()

	values := url.Values{}
	values.Set(ParamService, c.service)
	values.Set(ParamAccessKeyID, c.accessKeyID)
	values.Set(ParamVersion, c.version)
	values.Set(ParamOperation, operation)
	values.Set(ParamSignature, c.Signature(operation))
	values.Set(ParamTimestamp, timestamp)

	// caller keys are not checked against the fixed names and win on collision
	for key, value := range Flatten(params) {
		values.Set(key, value)
	}

	return values
}

// Signature returns the request signature for operation at the frozen timestamp.
func (c *Client) Signature(operation string) string {
	return Sign(c.secretAccessKey, c.service, operation, c.Timestamp())
}

// Timestamp returns the client timestamp, computing it on first use.
func (c *Client) Timestamp() string {
	c.tsOnce.Do(func() {
		c.timestamp = FormatTimestamp(c.clock())
	})
	return c.timestamp
}

// BaseURL returns the endpoint requests are sent to.
func (c *Client) BaseURL() string {
	if c.endpoint != "" {
		return c.endpoint
	}
	if c.sandbox {
		return SandboxURI
	}
	return ProductionURI
}

// Sandbox reports whether the client targets the sandbox endpoint.
func (c *Client) Sandbox() bool {
	return c.sandbox
}

func (c *Client) mode() string {
	switch {
	case c.endpoint != "":
		return "custom"
	case c.sandbox:
		return "sandbox"
	default:
		return "production"
	}
}

func (c *Client) executeMiddleware(req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return c.httpClient.Do(req)
	}

	current := RoundTripperFunc(c.httpClient.Do)

	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}

	return current.RoundTrip(req)
}

func (c *Client) newError(errorType, message string, cause error, requestID, operation, endpoint string, resp *Response, start time.Time) *ClientError {
	clientErr := &ClientError{
		Type:      errorType,
		Message:   message,
		Cause:     cause,
		Operation: operation,
		RequestID: requestID,
		Endpoint:  endpoint,
		Response:  resp,
		Timestamp: time.Now(),
		Duration:  time.Since(start),
	}
	if resp != nil {
		clientErr.StatusCode = resp.StatusCode
	}
	return clientErr
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// endpointLabel is host+path of the base URL with no query string, so it is
// safe to log.
func (c *Client) endpointLabel() string {
	u, err := url.Parse(c.BaseURL())
	if err != nil || u.Host == "" {
		return "unknown"
	}

	var builder strings.Builder
	builder.WriteString(u.Host)
	if u.Path != "" && u.Path != "/" {
		builder.WriteString(u.Path)
	} else {
		builder.WriteByte('/')
	}
	return builder.String()
}

// redactURLError strips the signed query string from *url.Error values
// produced by net/http so the signature never ends up in logs.
func redactURLError(err error) error {
	urlErr, ok := err.(*url.Error)
	if !ok {
		return err
	}
	redacted := *urlErr
	if u, parseErr := url.Parse(urlErr.URL); parseErr == nil {
		u.RawQuery = ""
		redacted.URL = u.String()
	} else {
		redacted.URL = "<redacted>"
	}
	return &redacted
}

// String hides the secret key.
func (c *Client) String() string {
	return fmt.Sprintf("mturk.Client{accessKeyID: %q, mode: %s}", c.accessKeyID, c.mode())
}
