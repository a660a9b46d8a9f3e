package api

import (
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/smazurov/gpioled/internal/api/models"
	"github.com/smazurov/gpioled/internal/logging"
)

func TestLogMatcher(t *testing.T) {
	now := time.Now()
	rb := logging.NewRingBuffer(8)
	for _, e := range []logging.LogEntry{
		{Timestamp: now, Level: "debug", Module: "gpio", Message: "a"},
		{Timestamp: now, Level: "info", Module: "ledclass", Message: "b"},
		{Timestamp: now, Level: "warn", Module: "gpio", Message: "c"},
		{Timestamp: now, Level: "error", Module: "led", Message: "d"},
	} {
		rb.Write(e)
	}

	tests := []struct {
		name  string
		input LogsInput
		want  []string
	}{
		{name: "all", input: LogsInput{}, want: []string{"a", "b", "c", "d"}},
		{name: "module", input: LogsInput{Module: "gpio"}, want: []string{"a", "c"}},
		{name: "min level", input: LogsInput{Level: "warn"}, want: []string{"c", "d"}},
		{name: "limit keeps newest", input: LogsInput{Limit: 2}, want: []string{"c", "d"}},
		{name: "module and limit", input: LogsInput{Module: "gpio", Limit: 1}, want: []string{"c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toLogData(rb.Entries(logMatcher(&tt.input), tt.input.Limit))
			if len(got) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.want))
			}
			for i, e := range got {
				if e.Message != tt.want[i] {
					t.Errorf("entry %d = %q, want %q", i, e.Message, tt.want[i])
				}
			}
		})
	}
}

func TestLogsRoute(t *testing.T) {
	logging.Initialize(logging.Config{Level: "info"})
	logging.GetLogger("ledclass").Info("LED registered", "led", "nuc980::led1")

	_, humaAPI := humatest.New(t)
	s := &Server{
		api:     humaAPI,
		options: &Options{},
		logger:  slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	s.registerLogRoutes()

	resp := humaAPI.Get("/api/logs?module=ledclass&limit=5")
	if resp.Code != 200 {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}

	var body models.LogsData
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Count == 0 || body.Entries[body.Count-1].Message != "LED registered" {
		t.Errorf("entries = %+v", body.Entries)
	}
	if got := body.Entries[body.Count-1].Attributes["led"]; got != "nuc980::led1" {
		t.Errorf("led attribute = %v", got)
	}

	if resp := humaAPI.Get("/api/logs?level=loud"); resp.Code != 422 {
		t.Errorf("invalid level status = %d, want 422", resp.Code)
	}
}
