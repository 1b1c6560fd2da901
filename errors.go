package mturk

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error types carried in ClientError.Type.
const (
	// ErrorTypeRequest means the service answered but the answer is not a valid result.
	ErrorTypeRequest = "RequestFailure"
	// ErrorTypeTransport means no response was obtained at all.
	ErrorTypeTransport = "TransportFailure"
	// ErrorTypeValidation means the client configuration is unusable.
	ErrorTypeValidation = "ValidationError"
)

// Sentinel errors for errors.Is
var (
	// ErrRequestFailed matches every RequestFailure
	ErrRequestFailed = errors.New("mturk: request failed")

	// ErrTransportFailed matches every TransportFailure
	ErrTransportFailed = errors.New("mturk: transport failed")

	// ErrInvalidConfig matches configuration validation failures
	ErrInvalidConfig = errors.New("mturk: invalid configuration")
)

// ClientError is returned by Client.Get for every failure.
type ClientError struct {
	Type    string
	Message string
	Cause   error

	Operation  string
	RequestID  string
	Endpoint   string
	StatusCode int
	// Response is set for RequestFailure and nil otherwise.
	Response *Response

	Timestamp time.Time
	Duration  time.Duration
}

// Error implements error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Operation != "" {
		msg = fmt.Sprintf("%s: %s", e.Operation, msg)
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Response != nil && len(e.Response.Errors) > 0 {
		codes := make([]string, 0, len(e.Response.Errors))
		for _, apiErr := range e.Response.Errors {
			codes = append(codes, apiErr.Code)
		}
		msg = fmt.Sprintf("%s [%s]", msg, strings.Join(codes, ", "))
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches the sentinel for the error type, or another ClientError of the same type.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrRequestFailed:
		return e.Type == ErrorTypeRequest
	case ErrTransportFailed:
		return e.Type == ErrorTypeTransport
	case ErrInvalidConfig:
		return e.Type == ErrorTypeValidation
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *ClientError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Error Type: %s\n", e.Type)
	fmt.Fprintf(&b, "Message: %s\n", e.Message)
	if e.Operation != "" {
		fmt.Fprintf(&b, "Operation: %s\n", e.Operation)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, "Request ID: %s\n", e.RequestID)
	}
	if e.Endpoint != "" {
		fmt.Fprintf(&b, "Endpoint: %s\n", e.Endpoint)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, "Status Code: %d\n", e.StatusCode)
	}
	if e.Response != nil {
		if e.Response.RequestID != "" {
			fmt.Fprintf(&b, "Service Request ID: %s\n", e.Response.RequestID)
		}
		for _, apiErr := range e.Response.Errors {
			fmt.Fprintf(&b, "API Error: %s: %s\n", apiErr.Code, apiErr.Message)
		}
	}
	if !e.Timestamp.IsZero() {
		fmt.Fprintf(&b, "Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		fmt.Fprintf(&b, "Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, "Cause: %v\n", e.Cause)
	}
	return b.String()
}

// AsRequestFailure returns the response carried by a RequestFailure.
func AsRequestFailure(err error) (*Response, bool) {
	var clientErr *ClientError
	if errors.As(err, &clientErr) && clientErr.Type == ErrorTypeRequest {
		return clientErr.Response, true
	}
	return nil, false
}

// IsTransportFailure reports whether err means no response was obtained.
func IsTransportFailure(err error) bool {
	return errors.Is(err, ErrTransportFailed)
}
