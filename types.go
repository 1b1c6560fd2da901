package mturk

import (
	"net/http"
	"time"
)

const (
	// ServiceName identifies the Requester service in both the query and the signature.
	ServiceName = "AWSMechanicalTurkRequester"

	// APIVersion is the protocol version sent with every request.
	APIVersion = "2014-08-15"

	// SandboxURI is the base endpoint used in sandbox mode.
	SandboxURI = "https://mechanicalturk.sandbox.amazonaws.com/"

	// ProductionURI is the base endpoint used for live traffic.
	ProductionURI = "https://mechanicalturk.amazonaws.com/"

	// TimestampFormat is the UTC layout of the Timestamp query field.
	TimestampFormat = "2006-01-02T15:04:05Z"
)

// Fixed query parameter names.
const (
	ParamService     = "Service"
	ParamAccessKeyID = "AWSAccessKeyId"
	ParamVersion     = "Version"
	ParamOperation   = "Operation"
	ParamSignature   = "Signature"
	ParamTimestamp   = "Timestamp"
)

// Doer is the transport capability used by the Client: issue the request and
// return the response or a transport error. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// RoundTripper represents the HTTP transport interface seen by middleware
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc is a helper type for middleware
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Middleware represents a middleware function
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// Validator decides whether a wrapped response is a successful API result.
type Validator func(resp *Response) bool

// Clock returns the current time. It is only consulted once per Client.
type Clock func() time.Time

// Option represents a configuration option
type Option func(*Client)
