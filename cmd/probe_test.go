package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/smazurov/gpioled/internal/gpio"
)

// stuckProvider wraps Sim so every read reports the line low.
type stuckProvider struct {
	*gpio.Sim
}

func (p stuckProvider) Acquire(id int, label string) (gpio.Line, error) {
	l, err := p.Sim.Acquire(id, label)
	if err != nil {
		return nil, err
	}
	return stuckLine{l}, nil
}

type stuckLine struct {
	gpio.Line
}

func (stuckLine) Read() (gpio.Level, error) { return gpio.Low, nil }

func TestProbe(t *testing.T) {
	sim := gpio.NewSim(8)
	var out bytes.Buffer

	if err := Probe(sim, 5, "NUC_LED_GPIO", &out); err != nil {
		t.Fatalf("Probe() error = %v\n%s", err, out.String())
	}

	for _, want := range []string{"acquired", "high ok", "low ok", "released"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report missing %q:\n%s", want, out.String())
		}
	}
	if _, held := sim.Owner(5); held {
		t.Error("line still held after probe")
	}
	if sim.Level(5) != gpio.Low {
		t.Error("line should be left low")
	}
}

func TestProbeFailures(t *testing.T) {
	tests := []struct {
		name     string
		provider func() gpio.Provider
		line     int
		wantErr  error
	}{
		{
			name:     "invalid line",
			provider: func() gpio.Provider { return gpio.NewSim(4) },
			line:     5,
			wantErr:  gpio.ErrInvalidLine,
		},
		{
			name: "busy line",
			provider: func() gpio.Provider {
				sim := gpio.NewSim(8)
				if _, err := sim.Acquire(5, "other"); err != nil {
					t.Fatal(err)
				}
				return sim
			},
			line:    5,
			wantErr: gpio.ErrLineBusy,
		},
		{
			name:     "stuck line",
			provider: func() gpio.Provider { return stuckProvider{gpio.NewSim(8)} },
			line:     5,
			wantErr:  ErrReadBack,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := Probe(tt.provider(), tt.line, "probe", &out)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Probe() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestProbeReleasesAfterConfigureFailure(t *testing.T) {
	sim := gpio.NewSim(8)
	sim.ConfigureErr = errors.New("direction locked")

	var out bytes.Buffer
	if err := Probe(sim, 5, "probe", &out); err == nil {
		t.Fatal("Probe() should fail")
	}
	if c := sim.Counters(); c.Release != 1 {
		t.Errorf("Release calls = %d, want 1", c.Release)
	}
}
