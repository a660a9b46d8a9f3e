package gpio

import (
	"errors"
	"testing"
)

func TestSim_AcquireConfigureWrite(t *testing.T) {
	sim := NewSim(8)

	line, err := sim.Acquire(5, "NUC_LED_GPIO")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if owner, ok := sim.Owner(5); !ok || owner != "NUC_LED_GPIO" {
		t.Errorf("Owner(5) = %q, %v, want NUC_LED_GPIO, true", owner, ok)
	}

	if err := line.ConfigureOutput(High); err != nil {
		t.Fatalf("ConfigureOutput() error = %v", err)
	}
	if !sim.IsOutput(5) {
		t.Error("line 5 should be an output")
	}
	if got := sim.Level(5); got != High {
		t.Errorf("Level(5) = %v, want high", got)
	}

	if err := line.Write(Low); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := line.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != Low {
		t.Errorf("Read() = %v, want low", got)
	}
}

func TestSim_Errors(t *testing.T) {
	tests := []struct {
		name string
		id   int
		hold bool
		want error
	}{
		{name: "negative offset", id: -1, want: ErrInvalidLine},
		{name: "offset past end", id: 8, want: ErrInvalidLine},
		{name: "already held", id: 3, hold: true, want: ErrLineBusy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := NewSim(8)
			if tt.hold {
				if _, err := sim.Acquire(tt.id, "other"); err != nil {
					t.Fatalf("first Acquire() error = %v", err)
				}
			}
			_, err := sim.Acquire(tt.id, "led")
			if !errors.Is(err, tt.want) {
				t.Errorf("Acquire() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSim_Release(t *testing.T) {
	sim := NewSim(8)
	line, err := sim.Acquire(2, "led")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if err := line.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, held := sim.Owner(2); held {
		t.Error("line 2 still owned after release")
	}
	if err := line.Write(High); !errors.Is(err, ErrReleased) {
		t.Errorf("Write() after release error = %v, want ErrReleased", err)
	}
	if err := line.Release(); !errors.Is(err, ErrReleased) {
		t.Errorf("second Release() error = %v, want ErrReleased", err)
	}

	// Line can be claimed again
	if _, err := sim.Acquire(2, "led"); err != nil {
		t.Errorf("Acquire() after release error = %v", err)
	}

	c := sim.Counters()
	if c.Acquire != 2 || c.Release != 2 {
		t.Errorf("Counters() = %+v, want 2 acquires and 2 releases", c)
	}
}

func TestSim_FaultInjection(t *testing.T) {
	sim := NewSim(8)
	boom := errors.New("boom")
	sim.ConfigureErr = boom

	line, err := sim.Acquire(1, "led")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := line.ConfigureOutput(High); !errors.Is(err, boom) {
		t.Errorf("ConfigureOutput() error = %v, want %v", err, boom)
	}
	if sim.IsOutput(1) {
		t.Error("line should not be an output after a failed configure")
	}
}
