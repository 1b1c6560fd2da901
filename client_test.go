package mturk

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	testAccessKeyID     = "AKIDEXAMPLE"
	testSecretAccessKey = "secret"
	failedWriteMsg      = "Failed to write response: %v"
)

var fixedTime = time.Date(2014, 1, 2, 3, 4, 5, 0, time.UTC)

// recorder captures what the test server saw.
type recorder struct {
	mu    sync.Mutex
	hits  int
	query url.Values
}

func (r *recorder) record(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits++
	r.query = req.URL.Query()
}

func (r *recorder) snapshot() (int, url.Values) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits, r.query
}

func newTestServer(t *testing.T, status int, body string, rec *recorder) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET method, got %s", r.Method)
		}
		if rec != nil {
			rec.record(r)
		}
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(status)
		if _, err := w.Write([]byte(body)); err != nil {
			t.Errorf(failedWriteMsg, err)
		}
	}))
}

func TestNewDefaults(t *testing.T) {
	client := New(testAccessKeyID, testSecretAccessKey)

	if !client.IsValid() {
		t.Fatalf("Expected valid client, got %v", client.ValidationError())
	}
	if !client.Sandbox() {
		t.Error("Expected sandbox mode by default")
	}
	if client.BaseURL() != SandboxURI {
		t.Errorf("Expected base %s, got %s", SandboxURI, client.BaseURL())
	}
	if hc, ok := client.httpClient.(*http.Client); !ok || hc.Timeout != 30*time.Second {
		t.Error("Expected default http.Client with 30s timeout")
	}
}

func TestProductionBaseURL(t *testing.T) {
	client := New(testAccessKeyID, testSecretAccessKey, WithProduction())
	if client.BaseURL() != ProductionURI {
		t.Errorf("Expected base %s, got %s", ProductionURI, client.BaseURL())
	}

	client = New(testAccessKeyID, testSecretAccessKey, WithSandbox(false), WithSandbox(true))
	if client.BaseURL() != SandboxURI {
		t.Errorf("Expected base %s, got %s", SandboxURI, client.BaseURL())
	}
}

func TestQueryFields(t *testing.T) {
	client := New(testAccessKeyID, testSecretAccessKey, WithFixedTimestamp(fixedTime))

	query := client.Query("ListOperation", Params{"Foo": "bar", "Items": []string{"x", "y"}})

	expected := map[string]string{
		ParamService:     ServiceName,
		ParamAccessKeyID: testAccessKeyID,
		ParamVersion:     APIVersion,
		ParamOperation:   "ListOperation",
		ParamSignature:   "JsaT7yAShP8PQU0RdXWsjBQ0KEU=",
		ParamTimestamp:   "2014-01-02T03:04:05Z",
		"Foo":            "bar",
		"Items.1.0":      "x",
		"Items.2.1":      "y",
	}

	if len(query) != len(expected) {
		t.Fatalf("Expected %d query fields, got %d: %v", len(expected), len(query), query)
	}
	for key, value := range expected {
		if got := query.Get(key); got != value {
			t.Errorf("query[%s] = %q, expected %q", key, got, value)
		}
	}
	if _, ok := query["Items"]; ok {
		t.Error("Sequence key must not be sent unflattened")
	}
}

func TestQueryNeverContainsSecret(t *testing.T) {
	client := New(testAccessKeyID, "very-secret-value", WithFixedTimestamp(fixedTime))
	encoded := client.Query("GetAccountBalance", nil).Encode()

	if strings.Contains(encoded, "very-secret-value") {
		t.Error("Secret key must never be transmitted")
	}
}

func TestQueryCallerOverridesFixedField(t *testing.T) {
	client := New(testAccessKeyID, testSecretAccessKey, WithFixedTimestamp(fixedTime))
	query := client.Query("GetAccountBalance", Params{ParamVersion: "2008-08-02"})

	if got := query.Get(ParamVersion); got != "2008-08-02" {
		t.Errorf("Expected caller Version to win, got %s", got)
	}
}

func TestTimestampFrozenAcrossCalls(t *testing.T) {
	calls := 0
	now := fixedTime
	clock := func() time.Time {
		calls++
		current := now
		now = now.Add(time.Hour)
		return current
	}

	rec := &recorder{}
	server := newTestServer(t, http.StatusOK, validBalanceBody, rec)
	defer server.Close()

	client := New(testAccessKeyID, testSecretAccessKey, WithEndpoint(server.URL), WithClock(clock))

	if _, err := client.Get(context.Background(), "GetAccountBalance", nil); err != nil {
		t.Fatalf("first Get() returned error: %v", err)
	}
	_, query := rec.snapshot()
	firstTimestamp := query.Get(ParamTimestamp)
	firstSignature := query.Get(ParamSignature)

	if _, err := client.Get(context.Background(), "GetAccountBalance", nil); err != nil {
		t.Fatalf("second Get() returned error: %v", err)
	}
	_, query = rec.snapshot()

	if firstTimestamp != "2014-01-02T03:04:05Z" {
		t.Errorf("Unexpected timestamp %s", firstTimestamp)
	}
	if query.Get(ParamTimestamp) != firstTimestamp {
		t.Errorf("Expected frozen timestamp %s, got %s", firstTimestamp, query.Get(ParamTimestamp))
	}
	if query.Get(ParamSignature) != firstSignature {
		t.Error("Expected identical signature for the same operation")
	}
	if calls != 1 {
		t.Errorf("Expected clock to be read once, read %d times", calls)
	}
	if client.Timestamp() != firstTimestamp {
		t.Error("Timestamp() must return the frozen value")
	}
}

func TestTimestampLazy(t *testing.T) {
	called := false
	client := New(testAccessKeyID, testSecretAccessKey, WithClock(func() time.Time {
		called = true
		return fixedTime
	}))

	if called {
		t.Fatal("Clock must not be read at construction")
	}
	client.Timestamp()
	if !called {
		t.Fatal("Clock must be read on first use")
	}
}

func TestGetExampleRequest(t *testing.T) {
	rec := &recorder{}
	server := newTestServer(t, http.StatusOK, validBalanceBody, rec)
	defer server.Close()

	client := New(testAccessKeyID, testSecretAccessKey, WithEndpoint(server.URL), WithFixedTimestamp(fixedTime))

	resp, err := client.Get(context.Background(), "ListOperation", Params{"Foo": "bar", "Items": []string{"x", "y"}})
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}

	hits, query := rec.snapshot()
	if hits != 1 {
		t.Errorf("Expected exactly one request, got %d", hits)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if resp.RequestID != "a1b2c3" {
		t.Errorf("Expected service request id a1b2c3, got %q", resp.RequestID)
	}

	for key, value := range map[string]string{
		"Foo":          "bar",
		"Items.1.0":    "x",
		"Items.2.1":    "y",
		ParamOperation: "ListOperation",
		ParamService:   ServiceName,
	} {
		if query.Get(key) != value {
			t.Errorf("query[%s] = %q, expected %q", key, query.Get(key), value)
		}
	}
	if len(query) != 9 {
		t.Errorf("Expected 9 query fields, got %d", len(query))
	}
}

func TestGetInvalidBodyIsRequestFailure(t *testing.T) {
	server := newTestServer(t, http.StatusOK, invalidRequestBody, nil)
	defer server.Close()

	client := New(testAccessKeyID, testSecretAccessKey, WithEndpoint(server.URL))

	resp, err := client.Get(context.Background(), "SearchHITs", Params{"PageSize": 1000})
	if resp != nil {
		t.Error("Expected nil response on failure")
	}
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("Expected RequestFailure, got %v", err)
	}
	if IsTransportFailure(err) {
		t.Error("RequestFailure must not be a TransportFailure")
	}

	failed, ok := AsRequestFailure(err)
	if !ok || failed == nil {
		t.Fatal("Expected failure to carry the response")
	}
	if failed.StatusCode != http.StatusOK {
		t.Errorf("Expected carried status 200, got %d", failed.StatusCode)
	}
	if failed.String() != invalidRequestBody {
		t.Error("Expected carried body to be the raw body")
	}
	if len(failed.Errors) != 1 {
		t.Errorf("Expected 1 API error, got %d", len(failed.Errors))
	}
}

func TestGetHTTPErrorIsRequestFailure(t *testing.T) {
	server := newTestServer(t, http.StatusServiceUnavailable, notAuthorizedBody, nil)
	defer server.Close()

	client := New(testAccessKeyID, testSecretAccessKey, WithEndpoint(server.URL))

	_, err := client.Get(context.Background(), "GetAccountBalance", nil)

	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("Expected *ClientError, got %T", err)
	}
	if clientErr.Type != ErrorTypeRequest {
		t.Errorf("Expected type %s, got %s", ErrorTypeRequest, clientErr.Type)
	}
	if clientErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", clientErr.StatusCode)
	}
	if clientErr.Response == nil || clientErr.Response.Errors[0].Code != "AWS.NotAuthorized" {
		t.Error("Expected carried response with API error")
	}
	if clientErr.Operation != "GetAccountBalance" {
		t.Errorf("Expected operation in error, got %q", clientErr.Operation)
	}
}

func TestGetNetworkErrorIsTransportFailure(t *testing.T) {
	server := newTestServer(t, http.StatusOK, validBalanceBody, nil)
	endpoint := server.URL
	server.Close()

	client := New(testAccessKeyID, testSecretAccessKey, WithEndpoint(endpoint), WithTimeout(2*time.Second))

	_, err := client.Get(context.Background(), "GetAccountBalance", nil)
	if !IsTransportFailure(err) {
		t.Fatalf("Expected TransportFailure, got %v", err)
	}
	if _, ok := AsRequestFailure(err); ok {
		t.Error("TransportFailure must never be a RequestFailure")
	}
	if strings.Contains(err.Error(), ParamSignature+"=") {
		t.Errorf("Error must not leak the signed query: %v", err)
	}

	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		t.Errorf("Expected cause to be *url.Error, got %v", errors.Unwrap(err))
	}
}

func TestGetTransportDoer(t *testing.T) {
	cause := errors.New("dial tcp: no route to host")
	client := New(testAccessKeyID, testSecretAccessKey, WithTransport(doerFunc(func(*http.Request) (*http.Response, error) {
		return nil, cause
	})))

	_, err := client.Get(context.Background(), "GetAccountBalance", nil)
	if !IsTransportFailure(err) {
		t.Fatalf("Expected TransportFailure, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("Expected transport error to be the cause")
	}
}

func TestGetTransportErrorWithResponse(t *testing.T) {
	cause := errors.New("stopped after redirects")
	client := New(testAccessKeyID, testSecretAccessKey, WithTransport(doerFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusFound,
			Body:       io.NopCloser(strings.NewReader("moved")),
		}, cause
	})))

	_, err := client.Get(context.Background(), "GetAccountBalance", nil)
	resp, ok := AsRequestFailure(err)
	if !ok {
		t.Fatalf("Expected RequestFailure, got %v", err)
	}
	if resp.StatusCode != http.StatusFound || resp.String() != "moved" {
		t.Errorf("Unexpected carried response %d %q", resp.StatusCode, resp.String())
	}
	if !errors.Is(err, cause) {
		t.Error("Expected transport error to be the cause")
	}
}

func TestGetRequestShape(t *testing.T) {
	fixed := []string{ParamService, ParamAccessKeyID, ParamVersion, ParamOperation, ParamSignature, ParamTimestamp}

	tests := []struct {
		name   string
		params Params
		extra  map[string]string
	}{
		{name: "nil params", params: nil},
		{name: "empty params", params: Params{}},
		{name: "with params", params: Params{"PageSize": 10}, extra: map[string]string{"PageSize": "10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *http.Request
			client := New(testAccessKeyID, testSecretAccessKey, WithProduction(), WithFixedTimestamp(fixedTime), WithTransport(doerFunc(func(r *http.Request) (*http.Response, error) {
				seen = r
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(strings.NewReader(validBalanceBody)),
				}, nil
			})))

			if _, err := client.Get(context.Background(), "GetAccountBalance", tt.params); err != nil {
				t.Fatalf("Get() returned error: %v", err)
			}

			if seen.Method != http.MethodGet {
				t.Errorf("Expected GET, got %s", seen.Method)
			}
			if seen.URL.Host != "mechanicalturk.amazonaws.com" {
				t.Errorf("Expected production host, got %s", seen.URL.Host)
			}
			if seen.Header.Get("User-Agent") != UserAgent() {
				t.Errorf("Expected User-Agent %s, got %s", UserAgent(), seen.Header.Get("User-Agent"))
			}

			query := seen.URL.Query()
			if len(query) != len(fixed)+len(tt.extra) {
				t.Errorf("Expected %d query fields, got %d: %v", len(fixed)+len(tt.extra), len(query), query)
			}
			for _, key := range fixed {
				if query.Get(key) == "" {
					t.Errorf("Expected fixed field %s on the wire", key)
				}
			}
			for key, value := range tt.extra {
				if query.Get(key) != value {
					t.Errorf("Expected %s=%s, got %q", key, value, query.Get(key))
				}
			}
		})
	}
}

func TestGetEmptyOperation(t *testing.T) {
	called := false
	client := New(testAccessKeyID, testSecretAccessKey, WithTransport(doerFunc(func(*http.Request) (*http.Response, error) {
		called = true
		return nil, nil
	})))

	_, err := client.Get(context.Background(), "", nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if called {
		t.Error("Transport must not be called without an operation")
	}
}

func TestGetInvalidClient(t *testing.T) {
	client := New("", "")

	_, err := client.Get(context.Background(), "GetAccountBalance", nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestGetNilResponseNilError(t *testing.T) {
	client := New(testAccessKeyID, testSecretAccessKey, WithTransport(doerFunc(func(*http.Request) (*http.Response, error) {
		return nil, nil
	})))

	_, err := client.Get(context.Background(), "GetAccountBalance", nil)
	if !IsTransportFailure(err) {
		t.Errorf("Expected TransportFailure, got %v", err)
	}
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	first := func(req *http.Request, next RoundTripper) (*http.Response, error) {
		order = append(order, "first")
		return next.RoundTrip(req)
	}
	second := func(req *http.Request, next RoundTripper) (*http.Response, error) {
		order = append(order, "second")
		req.Header.Set("X-Test", "1")
		return next.RoundTrip(req)
	}

	client := New(testAccessKeyID, testSecretAccessKey,
		WithMiddleware(first, second),
		WithTransport(doerFunc(func(r *http.Request) (*http.Response, error) {
			order = append(order, "transport")
			if r.Header.Get("X-Test") != "1" {
				t.Error("Expected middleware header")
			}
			return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(validBalanceBody))}, nil
		})),
	)

	if _, err := client.Get(context.Background(), "GetAccountBalance", nil); err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}

	if strings.Join(order, ",") != "first,second,transport" {
		t.Errorf("Unexpected middleware order %v", order)
	}
}

func TestGetContextCanceled(t *testing.T) {
	server := newTestServer(t, http.StatusOK, validBalanceBody, nil)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := New(testAccessKeyID, testSecretAccessKey, WithEndpoint(server.URL))
	_, err := client.Get(ctx, "GetAccountBalance", nil)
	if !IsTransportFailure(err) {
		t.Errorf("Expected TransportFailure for canceled context, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled cause, got %v", err)
	}
}

func TestClientStringHidesSecret(t *testing.T) {
	client := New(testAccessKeyID, "hidden-secret")
	if strings.Contains(client.String(), "hidden-secret") {
		t.Error("String() must not include the secret key")
	}
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }
