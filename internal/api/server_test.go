package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smazurov/gpioled/internal/api/models"
	"github.com/smazurov/gpioled/internal/led"
	"github.com/smazurov/gpioled/internal/ledclass"
)

// mockLEDSource is a test implementation of LEDSource.
type mockLEDSource struct {
	devices []ledclass.DeviceInfo
}

func (m *mockLEDSource) Devices() []ledclass.DeviceInfo { return m.devices }

func (m *mockLEDSource) Device(name string) (ledclass.DeviceInfo, error) {
	for _, d := range m.devices {
		if d.Name == name {
			return d, nil
		}
	}
	return ledclass.DeviceInfo{}, fmt.Errorf("%q: %w", name, ledclass.ErrNotFound)
}

func (m *mockLEDSource) Triggers() []string {
	return []string{"none", "default-on", "heartbeat", "timer"}
}

func newTestServer(opts *Options) *Server {
	if opts.LEDs == nil {
		opts.LEDs = &mockLEDSource{devices: []ledclass.DeviceInfo{
			{Name: "nuc980::led1", Trigger: "heartbeat", Brightness: led.Full, MaxBrightness: led.Full},
			{Name: "nuc980::led2", Brightness: led.Off, MaxBrightness: led.Full},
		}}
	}
	return NewServer(opts)
}

func doGet(t *testing.T, s *Server, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_ListLEDs(t *testing.T) {
	s := newTestServer(&Options{})

	rec := doGet(t, s, "/api/leds", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body models.LEDListData
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Count != 2 || len(body.LEDs) != 2 {
		t.Fatalf("count = %d, leds = %d, want 2", body.Count, len(body.LEDs))
	}
	if !body.LEDs[0].On || body.LEDs[0].Trigger != "heartbeat" {
		t.Errorf("first LED = %+v, want on with heartbeat", body.LEDs[0])
	}
	if body.LEDs[1].On || body.LEDs[1].Trigger != "none" {
		t.Errorf("second LED = %+v, want off with trigger none", body.LEDs[1])
	}
}

func TestServer_GetLED(t *testing.T) {
	s := newTestServer(&Options{})

	rec := doGet(t, s, "/api/leds/nuc980::led1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var body models.LEDData
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Name != "nuc980::led1" || body.Brightness != 255 {
		t.Errorf("body = %+v", body)
	}

	rec = doGet(t, s, "/api/leds/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status for missing LED = %d, want 404", rec.Code)
	}
}

func TestServer_Triggers(t *testing.T) {
	s := newTestServer(&Options{})

	rec := doGet(t, s, "/api/triggers", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body models.TriggersData
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.Triggers) != 4 || body.Triggers[0] != "none" {
		t.Errorf("triggers = %v", body.Triggers)
	}
}

func TestServer_HealthAndVersion(t *testing.T) {
	s := newTestServer(&Options{AuthUsername: "admin", AuthPassword: "secret"})

	// Neither endpoint requires auth
	for _, path := range []string{"/api/health", "/api/version"} {
		if rec := doGet(t, s, path, nil); rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestServer_BasicAuth(t *testing.T) {
	s := newTestServer(&Options{AuthUsername: "admin", AuthPassword: "secret"})

	basic := func(creds string) http.Header {
		return http.Header{"Authorization": {"Basic " + base64.StdEncoding.EncodeToString([]byte(creds))}}
	}

	tests := []struct {
		name   string
		path   string
		header http.Header
		want   int
	}{
		{name: "no credentials", path: "/api/leds", want: http.StatusUnauthorized},
		{name: "wrong password", path: "/api/leds", header: basic("admin:nope"), want: http.StatusUnauthorized},
		{name: "bearer scheme", path: "/api/leds", header: http.Header{"Authorization": {"Bearer x"}}, want: http.StatusUnauthorized},
		{name: "valid header", path: "/api/leds", header: basic("admin:secret"), want: http.StatusOK},
		{
			name: "valid query",
			path: "/api/leds?auth=" + base64.StdEncoding.EncodeToString([]byte("admin:secret")),
			want: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(t, s, tt.path, tt.header)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestServer_PrometheusHandler(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("gpioled_led_registered 1\n"))
	})
	s := newTestServer(&Options{PrometheusHandler: metrics})

	rec := doGet(t, s, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "gpioled_led_registered 1\n" {
		t.Errorf("body = %q", rec.Body.String())
	}
}
