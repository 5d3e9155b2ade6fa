package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/i474232898/nws-weather/internal/output"
)

// newUpstream serves both the geocoder and the NWS endpoints.
// ZIP 10001 maps to a healthy grid; ZIP 99999 maps to a grid that always fails.
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/us/10001", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"places":[{"place name":"Manhattan","latitude":"39.7456","longitude":"-97.0892"}]}`)
	})
	mux.HandleFunc("/us/99999", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"places":[{"place name":"Nowhere","latitude":"1","longitude":"2"}]}`)
	})
	mux.HandleFunc("/points/39.7456,-97.0892", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"properties":{"gridId":"TOP","gridX":32,"gridY":81,"observationStations":"%s/gridpoints/TOP/32,81/stations"}}`, srv.URL)
	})
	mux.HandleFunc("/points/1,2", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusInternalServerError)
	})
	mux.HandleFunc("/gridpoints/TOP/32,81/forecast", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"properties":{"periods":[{"temperature":70,"temperatureUnit":"F","shortForecast":"Sunny"}]}}`)
	})
	mux.HandleFunc("/gridpoints/TOP/32,81/stations", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"features":[{"properties":{"stationIdentifier":"KMHK"}}]}`)
	})
	mux.HandleFunc("/stations/KMHK/observations/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"properties":{"temperature":{"value":19.4},"relativeHumidity":{"value":55},"windSpeed":{"value":null},"windDirection":{"value":null}}}`)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("NWS_WEATHER_GEOCODER_BASE_URL", srv.URL)
	t.Setenv("NWS_WEATHER_NWS_BASE_URL", srv.URL)
	t.Setenv("NWS_WEATHER_STARTUP_DELAY", "0s")
	t.Setenv("NWS_WEATHER_HTTP_MAX_ATTEMPTS", "2")
	t.Setenv("NWS_WEATHER_HTTP_RETRY_BASE_DELAY", "1ms")
	t.Setenv("NWS_WEATHER_LOG_LEVEL", "error")

	return srv
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunZIPPlain(t *testing.T) {
	newUpstream(t)

	code, stdout, stderr := run(t, "--zip", "10001", "--format", "plain", "--icons", "text")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr)
	}
	// observation 19.4°C wins over the 70°F forecast: 19°C -> 66°F
	if stdout != "SUN 66°F  Sunny\n" {
		t.Fatalf("unexpected stdout %q", stdout)
	}
}

func TestRunCoordinatesJSON(t *testing.T) {
	newUpstream(t)

	code, stdout, stderr := run(t, "--lat", "39.7456", "--lon", "-97.0892", "--format", "json", "--unit", "C")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr)
	}

	var p output.JSONPayload
	if err := json.Unmarshal([]byte(stdout), &p); err != nil {
		t.Fatalf("invalid json %q: %v", stdout, err)
	}
	if p.Location != "Coordinates (39.75, -97.09)" || p.Temperature != 19 || p.Unit != "°C" {
		t.Fatalf("unexpected payload %+v", p)
	}
	if p.Humidity == nil || *p.Humidity != 55 || p.WindSpeed != nil {
		t.Fatalf("unexpected observation fields %+v", p)
	}
}

func TestRunWaybarDefault(t *testing.T) {
	newUpstream(t)

	code, stdout, stderr := run(t, "--zip", "10001", "--icons", "text", "--detailed")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr)
	}

	var p output.WaybarPayload
	if err := json.Unmarshal([]byte(stdout), &p); err != nil {
		t.Fatalf("invalid json %q: %v", stdout, err)
	}
	if p.Text != "SUN 66°F" || p.Class != "weather" {
		t.Fatalf("unexpected payload %+v", p)
	}
	if !strings.HasPrefix(p.Tooltip, "Manhattan: Sunny\nTemperature: 66°F\nHumidity: 55%") {
		t.Fatalf("unexpected tooltip %q", p.Tooltip)
	}
}

func TestRunFailuresInWaybarFormat(t *testing.T) {
	newUpstream(t)

	tests := []struct {
		name      string
		args      []string
		wantError string
	}{
		{"invalid zip", []string{"--zip", "1234"}, "invalid ZIP code"},
		{"upstream failure", []string{"--zip", "99999"}, "HTTP 500"},
		{"invalid coordinates", []string{"--lat", "91", "--lon", "0"}, "invalid coordinates"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := run(t, tt.args...)
			if code != 1 {
				t.Fatalf("expected exit 1, got %d", code)
			}
			if !strings.HasPrefix(stderr, "Error: ") || !strings.Contains(stderr, tt.wantError) {
				t.Fatalf("unexpected stderr %q", stderr)
			}

			var p output.WaybarPayload
			if err := json.Unmarshal([]byte(stdout), &p); err != nil {
				t.Fatalf("stdout must carry the fallback object, got %q", stdout)
			}
			if p.Text != "Weather Error" || p.Class != "weather-error" || !strings.Contains(p.Tooltip, tt.wantError) {
				t.Fatalf("unexpected fallback %+v", p)
			}
		})
	}
}

func TestRunUpstreamFailureMessage(t *testing.T) {
	newUpstream(t)

	code, stdout, stderr := run(t, "--zip", "99999")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.HasPrefix(stderr, "Error: grid lookup: ") {
		t.Fatalf("unexpected stderr %q", stderr)
	}

	var p output.WaybarPayload
	if err := json.Unmarshal([]byte(stdout), &p); err != nil {
		t.Fatalf("invalid json %q: %v", stdout, err)
	}
	if !strings.HasPrefix(p.Tooltip, "Failed to get weather data: grid lookup: ") {
		t.Fatalf("tooltip must carry a single prefix, got %q", p.Tooltip)
	}
}

func TestRunFailureInPlainFormatLeavesStdoutEmpty(t *testing.T) {
	newUpstream(t)

	code, stdout, stderr := run(t, "--zip", "1234", "--format", "plain")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if stdout != "" {
		t.Fatalf("expected empty stdout, got %q", stdout)
	}
	if !strings.Contains(stderr, "invalid ZIP code") {
		t.Fatalf("unexpected stderr %q", stderr)
	}
}

func TestRunFlagValidation(t *testing.T) {
	newUpstream(t)

	tests := [][]string{
		{},
		{"--lat", "40"},
		{"--lon", "-74"},
		{"--zip", "10001", "--lat", "40", "--lon", "-74"},
		{"--zip", "10001", "--unit", "K"},
		{"--zip", "10001", "--icons", "ascii"},
		{"--zip", "10001", "--format", "xml"},
	}

	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			code, stdout, stderr := run(t, args...)
			if code != 1 {
				t.Fatalf("expected exit 1, got %d", code)
			}
			if stdout != "" {
				t.Fatalf("expected no stdout for usage errors, got %q", stdout)
			}
			if !strings.HasPrefix(stderr, "Error: ") {
				t.Fatalf("unexpected stderr %q", stderr)
			}
		})
	}
}

func TestRunWaitForNetwork(t *testing.T) {
	srv := newUpstream(t)
	t.Setenv("NWS_WEATHER_PROBE_TARGETS", srv.URL)
	t.Setenv("NWS_WEATHER_PROBE_ROUNDS", "1")

	code, stdout, stderr := run(t, "--zip", "10001", "--format", "plain", "--icons", "text", "--wait-for-network")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr)
	}
	if stdout != "SUN 66°F  Sunny\n" {
		t.Fatalf("unexpected stdout %q", stdout)
	}
}

// cancelOnWrite cancels the run once the first line is printed.
type cancelOnWrite struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	cancel context.CancelFunc
}

func (w *cancelOnWrite) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.buf.Write(p)
	w.cancel()
	return n, err
}

func (w *cancelOnWrite) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestRunWatchMode(t *testing.T) {
	newUpstream(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stdout := &cancelOnWrite{cancel: cancel}
	var stderr bytes.Buffer

	code := Run(ctx, []string{"--zip", "10001", "--format", "plain", "--icons", "text", "--interval", "1h"}, stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr.String())
	}
	if got := stdout.String(); got != "SUN 66°F  Sunny\n" {
		t.Fatalf("unexpected stdout %q", got)
	}
}
