package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// startWatcher creates config.toml in a temp dir and watches it with LoadRuntime.
func startWatcher(t *testing.T, initial string, opts ...WatcherOption[Runtime]) (string, *Watcher[Runtime]) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, initial)

	opts = append([]WatcherOption[Runtime]{WithDebounce[Runtime](50 * time.Millisecond)}, opts...)
	w := NewConfigWatcher(path, LoadRuntime, newTestLogger(), opts...)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("watcher.Stop failed: %v", err)
		}
	})
	// Let the watch loop start
	time.Sleep(50 * time.Millisecond)
	return path, w
}

func waitReload(t *testing.T, ch <-chan Runtime) Runtime {
	t.Helper()
	select {
	case rt := <-ch:
		return rt
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config reload")
		return Runtime{}
	}
}

func TestConfigWatcher_BasicReload(t *testing.T) {
	path, w := startWatcher(t, "[led]\ndefault_trigger = \"heartbeat\"\n")

	received := make(chan Runtime, 4)
	w.OnReload(func(rt Runtime) { received <- rt })

	writeConfig(t, path, "[led]\ndefault_trigger = \"timer\"\ntimer_delay_on_ms = 100\ntimer_delay_off_ms = 900\n\n[logging]\nlevel = \"debug\"\n")

	rt := waitReload(t, received)
	if rt.LED.Trigger != "timer" {
		t.Errorf("trigger = %q, want timer", rt.LED.Trigger)
	}
	if on, off := rt.LED.TimerDelays(); on != 100*time.Millisecond || off != 900*time.Millisecond {
		t.Errorf("TimerDelays() = %v/%v, want 100ms/900ms", on, off)
	}
	if rt.Logging.Level != "debug" {
		t.Errorf("logging level = %q, want debug", rt.Logging.Level)
	}
}

func TestConfigWatcher_FollowsAtomicReplace(t *testing.T) {
	path, w := startWatcher(t, "[led]\ndefault_trigger = \"heartbeat\"\n")

	received := make(chan Runtime, 4)
	w.OnReload(func(rt Runtime) { received <- rt })

	// Write elsewhere and rename over the watched file, twice
	for _, trigger := range []string{"timer", "default-on"} {
		tmp := filepath.Join(filepath.Dir(path), ".config.toml.tmp")
		writeConfig(t, tmp, fmt.Sprintf("[led]\ndefault_trigger = %q\n", trigger))
		if err := os.Rename(tmp, path); err != nil {
			t.Fatal(err)
		}
		if rt := waitReload(t, received); rt.LED.Trigger != trigger {
			t.Errorf("trigger = %q, want %q", rt.LED.Trigger, trigger)
		}
	}
}

func TestConfigWatcher_IgnoresOtherFiles(t *testing.T) {
	path, w := startWatcher(t, "")

	var count atomic.Int32
	w.OnReload(func(Runtime) { count.Add(1) })

	writeConfig(t, filepath.Join(filepath.Dir(path), "other.toml"), "x = 1\n")
	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("handler called %d times for an unrelated file", got)
	}
}

func TestConfigWatcher_ErrorHandler(t *testing.T) {
	errorReceived := make(chan error, 4)
	path, w := startWatcher(t, "", WithErrorHandler[Runtime](func(err error) {
		errorReceived <- err
	}))

	configReceived := make(chan Runtime, 4)
	w.OnReload(func(rt Runtime) { configReceived <- rt })

	tests := []struct {
		name    string
		content string
	}{
		{"invalid toml", "invalid toml [[["},
		{"negative delay", "[led]\ntimer_delay_on_ms = -5\n"},
		{"bad level", "[logging]\nlevel = \"loud\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeConfig(t, path, tt.content)
			select {
			case <-errorReceived:
			case rt := <-configReceived:
				t.Fatalf("config handler called with %+v", rt)
			case <-time.After(2 * time.Second):
				t.Fatal("timeout waiting for error handler")
			}
		})
	}
}

func TestConfigWatcher_Debounce(t *testing.T) {
	path, w := startWatcher(t, "", WithDebounce[Runtime](200*time.Millisecond))

	var count atomic.Int32
	var last atomic.Int32
	w.OnReload(func(rt Runtime) {
		count.Add(1)
		last.Store(int32(rt.LED.TimerDelayOn))
	})

	for i := 1; i <= 5; i++ {
		writeConfig(t, path, fmt.Sprintf("[led]\ntimer_delay_on_ms = %d\n", i))
		time.Sleep(30 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("expected 1 debounced call, got %d", got)
	}
	if got := last.Load(); got != 5 {
		t.Errorf("expected final value 5, got %d", got)
	}
}

func TestConfigWatcher_Unsubscribe(t *testing.T) {
	path, w := startWatcher(t, "")

	var count1, count2 atomic.Int32
	w.OnReload(func(Runtime) { count1.Add(1) })
	unsub := w.OnReload(func(Runtime) { count2.Add(1) })
	unsub()
	unsub() // idempotent

	writeConfig(t, path, "[led]\ndefault_trigger = \"none\"\n")
	time.Sleep(300 * time.Millisecond)

	if count1.Load() != 1 || count2.Load() != 0 {
		t.Errorf("calls = %d/%d, want 1/0", count1.Load(), count2.Load())
	}
}

func TestConfigWatcher_Stop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "")

	var count atomic.Int32
	w := NewConfigWatcher(path, LoadRuntime, newTestLogger(), WithDebounce[Runtime](20*time.Millisecond))
	w.OnReload(func(Runtime) { count.Add(1) })
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}

	writeConfig(t, path, "[led]\ndefault_trigger = \"timer\"\n")
	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected 0 calls after stop, got %d", got)
	}
}
