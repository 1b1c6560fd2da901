package mturk

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"strings"
)

// APIError is a single Error element reported by the service.
type APIError struct {
	Code    string `xml:"Code"`
	Message string `xml:"Message"`
}

// Response wraps one HTTP round trip. It is immutable once constructed.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// RequestID is the service side OperationRequest/RequestId, when present.
	RequestID string
	// Errors lists every Error element found in the body.
	Errors []APIError

	isValidMarkers []string
	parseErr       error
	valid          bool
}

// NewResponse reads and closes resp.Body and wraps the result.
func NewResponse(resp *http.Response, validator Validator) (*Response, error) {
	var body []byte
	var readErr error
	if resp.Body != nil {
		body, readErr = io.ReadAll(resp.Body)
		resp.Body.Close()
	}

	r := newResponse(resp.StatusCode, resp.Header, body, validator)
	return r, readErr
}

func newResponse(statusCode int, header http.Header, body []byte, validator Validator) *Response {
	if header == nil {
		header = http.Header{}
	}
	r := &Response{
		StatusCode: statusCode,
		Header:     header,
		Body:       body,
	}
	r.scan()

	if validator == nil {
		validator = DefaultValidator
	}
	r.valid = validator(r)
	return r
}

// IsValid reports the validity verdict computed when the response was wrapped.
func (r *Response) IsValid() bool {
	if r == nil {
		return false
	}
	return r.valid
}

// ParseError returns the XML syntax error encountered while scanning the body, if any.
func (r *Response) ParseError() error {
	return r.parseErr
}

// Decode unmarshals the XML body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return errors.New("mturk: empty response body")
	}
	return xml.Unmarshal(r.Body, v)
}

// String returns the raw body.
func (r *Response) String() string {
	return string(r.Body)
}

// DefaultValidator implements the Requester API success convention: a 2xx
// status, a well formed XML body, at least one Request/IsValid marker, every
// marker equal to "True" and no Error elements.
func DefaultValidator(r *Response) bool {
	if r.StatusCode < 200 || r.StatusCode > 299 {
		return false
	}
	if r.parseErr != nil || len(r.Body) == 0 {
		return false
	}
	if len(r.Errors) > 0 || len(r.isValidMarkers) == 0 {
		return false
	}
	for _, marker := range r.isValidMarkers {
		if marker != "True" {
			return false
		}
	}
	return true
}

// StatusValidator accepts any 2xx response regardless of body.
func StatusValidator(r *Response) bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// scan walks the XML body once collecting IsValid markers, Error elements and
// the service request id.
func (r *Response) scan() {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return
	}

	dec := xml.NewDecoder(bytes.NewReader(r.Body))
	var stack []string

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			if len(stack) != 0 {
				r.parseErr = io.ErrUnexpectedEOF
			}
			return
		}
		if err != nil {
			r.parseErr = err
			return
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			parent := ""
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}

			switch {
			case name == "Error":
				var apiErr APIError
				if err := dec.DecodeElement(&apiErr, &t); err != nil {
					r.parseErr = err
					return
				}
				r.Errors = append(r.Errors, apiErr)
				continue
			case name == "IsValid" && parent == "Request":
				var marker string
				if err := dec.DecodeElement(&marker, &t); err != nil {
					r.parseErr = err
					return
				}
				r.isValidMarkers = append(r.isValidMarkers, strings.TrimSpace(marker))
				continue
			case name == "RequestId" && parent == "OperationRequest":
				var id string
				if err := dec.DecodeElement(&id, &t); err != nil {
					r.parseErr = err
					return
				}
				r.RequestID = strings.TrimSpace(id)
				continue
			}

			stack = append(stack, name)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
}
