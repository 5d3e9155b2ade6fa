package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/i474232898/nws-weather/internal/metrics"
	"github.com/i474232898/nws-weather/internal/weather"
)

type valueBody struct {
	Value int `json:"value"`
}

func newTestClient(attempts int) *Client {
	return NewClient(ClientConfig{
		Retry: RetryConfig{MaxAttempts: attempts, BaseDelay: time.Millisecond},
	}, nil)
}

func TestFetchJSONRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "try again", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"value":42}`)
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	retries := metrics.UpstreamRetries.WithLabelValues(u.Host)
	okAttempts := metrics.UpstreamAttempts.WithLabelValues(u.Host, "ok")
	statusAttempts := metrics.UpstreamAttempts.WithLabelValues(u.Host, "status")
	retriesBefore := testutil.ToFloat64(retries)
	okBefore := testutil.ToFloat64(okAttempts)
	statusBefore := testutil.ToFloat64(statusAttempts)

	got, err := FetchJSON[valueBody](context.Background(), newTestClient(5), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Value != 42 {
		t.Fatalf("expected 42, got %d", got.Value)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("expected 3 calls, got %d", n)
	}

	if d := testutil.ToFloat64(retries) - retriesBefore; d != 2 {
		t.Fatalf("expected 2 retries recorded, got %v", d)
	}
	if d := testutil.ToFloat64(statusAttempts) - statusBefore; d != 2 {
		t.Fatalf("expected 2 failed attempts recorded, got %v", d)
	}
	if d := testutil.ToFloat64(okAttempts) - okBefore; d != 1 {
		t.Fatalf("expected 1 successful attempt recorded, got %v", d)
	}
}

func TestFetchJSONReturnsLastError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprintf(w, "attempt %d", n)
	}))
	defer srv.Close()

	_, err := FetchJSON[valueBody](context.Background(), newTestClient(3), srv.URL)

	var statusErr *weather.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway || statusErr.Body != "attempt 3" {
		t.Fatalf("expected last attempt's error, got %d %q", statusErr.StatusCode, statusErr.Body)
	}
	if !errors.Is(err, weather.ErrUpstreamStatus) {
		t.Fatalf("StatusError must match ErrUpstreamStatus")
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("expected 3 calls, got %d", n)
	}
}

func TestFetchJSONRetriesDecodeErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			fmt.Fprint(w, `{"value":`)
			return
		}
		fmt.Fprint(w, `{"value":7}`)
	}))
	defer srv.Close()

	got, err := FetchJSON[valueBody](context.Background(), newTestClient(2), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Value != 7 {
		t.Fatalf("expected 7, got %d", got.Value)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("expected 2 calls, got %d", n)
	}
}

type requiredBody struct {
	Value *int `json:"value" validate:"required"`
}

func TestFetchJSONRetriesIncompleteBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"value":null}`)
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	decodeAttempts := metrics.UpstreamAttempts.WithLabelValues(u.Host, "decode")
	before := testutil.ToFloat64(decodeAttempts)

	_, err := FetchJSON[requiredBody](context.Background(), newTestClient(3), srv.URL)
	if !errors.Is(err, weather.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("expected 3 calls, got %d", n)
	}
	if d := testutil.ToFloat64(decodeAttempts) - before; d != 3 {
		t.Fatalf("expected 3 decode failures recorded, got %v", d)
	}
}

func TestFetchJSONDecodeErrorKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer srv.Close()

	_, err := FetchJSON[valueBody](context.Background(), newTestClient(2), srv.URL)
	if !errors.Is(err, weather.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestFetchJSONTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := srv.URL
	srv.Close()

	_, err := FetchJSON[valueBody](context.Background(), newTestClient(2), deadURL)
	if !errors.Is(err, weather.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestFetchJSONSendsHeaders(t *testing.T) {
	var ua, accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		accept = r.Header.Get("Accept")
		fmt.Fprint(w, `{"value":1}`)
	}))
	defer srv.Close()

	if _, err := FetchJSON[valueBody](context.Background(), newTestClient(1), srv.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ua != DefaultUserAgent {
		t.Fatalf("expected default User-Agent, got %q", ua)
	}
	if accept != "application/geo+json, application/json" {
		t.Fatalf("unexpected Accept %q", accept)
	}

	custom := NewClient(ClientConfig{UserAgent: "custom/1.0 (ops@example.com)"}, nil)
	if _, err := FetchJSON[valueBody](context.Background(), custom, srv.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ua != "custom/1.0 (ops@example.com)" {
		t.Fatalf("expected custom User-Agent, got %q", ua)
	}
}

func TestFetchJSONCircuitOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		Retry:   RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond},
		Breaker: BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Hour},
	}, nil)

	_, err := FetchJSON[valueBody](context.Background(), client, srv.URL)
	if !errors.Is(err, weather.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("expected the breaker to stop after 2 calls, got %d", n)
	}

	// Still open: no request reaches the host.
	_, err = FetchJSON[valueBody](context.Background(), client, srv.URL)
	if !errors.Is(err, weather.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("expected no further calls, got %d", n)
	}
}

func TestFetchJSONStopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		Retry: RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour},
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := FetchJSON[valueBody](ctx, client, srv.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("backoff did not honor context cancellation")
	}
}

func TestNewClientClampsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{Retry: RetryConfig{MaxAttempts: 0}}, nil)
	if _, err := FetchJSON[valueBody](context.Background(), client, srv.URL); err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected exactly one attempt, got %d", n)
	}
}
