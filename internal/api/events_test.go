package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/gpioled/internal/events"
)

// readEvents collects SSE data lines until n are read or ctx ends.
func readEvents(ctx context.Context, t *testing.T, url string, n int) []string {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var lines []string
	scanner := bufio.NewScanner(resp.Body)
	for len(lines) < n && scanner.Scan() {
		if data, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
			lines = append(lines, data)
		}
	}
	return lines
}

func TestEventsStream_FiltersByLED(t *testing.T) {
	bus := events.New()
	s := newTestServer(&Options{EventBus: bus})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// Publish until the stream has subscribed and delivered.
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				bus.Publish(events.BrightnessChangedEvent{Name: "nuc980::led2", Brightness: 255, Source: "direct"})
				bus.Publish(events.TriggerChangedEvent{Name: "nuc980::led1", Trigger: "timer", Previous: "heartbeat"})
			}
		}
	}()

	lines := readEvents(ctx, t, ts.URL+"/api/events?led=nuc980::led1", 2)
	if len(lines) != 2 {
		t.Fatalf("got %d events before timeout, want 2", len(lines))
	}
	for _, l := range lines {
		if !strings.Contains(l, `"name":"nuc980::led1"`) || !strings.Contains(l, `"trigger":"timer"`) {
			t.Errorf("unexpected event %s", l)
		}
	}
}

func TestEventsStream_NotRegisteredWithoutBus(t *testing.T) {
	s := newTestServer(&Options{})
	if rec := doGet(t, s, "/api/events", nil); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
