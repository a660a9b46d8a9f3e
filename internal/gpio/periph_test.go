package gpio

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func newTestPeriph(pins ...*gpiotest.Pin) *Periph {
	byName := make(map[string]gpio.PinIO, len(pins))
	for _, p := range pins {
		byName[p.N] = p
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return newPeriph(func(name string) gpio.PinIO {
		if p, ok := byName[name]; ok {
			return p
		}
		return nil
	}, logger)
}

func TestPeriph_Valid(t *testing.T) {
	p := newTestPeriph(&gpiotest.Pin{N: "GPIO5", Num: 5})

	if !p.Valid(5) {
		t.Error("Valid(5) = false, want true")
	}
	if p.Valid(6) {
		t.Error("Valid(6) = true, want false")
	}
	if p.Valid(-1) {
		t.Error("Valid(-1) = true, want false")
	}
}

func TestPeriph_WriteRead(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO5", Num: 5}
	p := newTestPeriph(pin)

	line, err := p.Acquire(5, "led")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := line.ConfigureOutput(High); err != nil {
		t.Fatalf("ConfigureOutput() error = %v", err)
	}
	if pin.Read() != gpio.High {
		t.Error("pin should be driven high after ConfigureOutput(High)")
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

func TestPeriph_Ownership(t *testing.T) {
	p := newTestPeriph(&gpiotest.Pin{N: "GPIO5", Num: 5})

	line, err := p.Acquire(5, "led")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if _, err := p.Acquire(5, "other"); !errors.Is(err, ErrLineBusy) {
		t.Errorf("second Acquire() error = %v, want ErrLineBusy", err)
	}
	if _, err := p.Acquire(7, "led"); !errors.Is(err, ErrInvalidLine) {
		t.Errorf("Acquire(7) error = %v, want ErrInvalidLine", err)
	}

	if err := line.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := line.Write(High); !errors.Is(err, ErrReleased) {
		t.Errorf("Write() after release error = %v, want ErrReleased", err)
	}
	if _, err := p.Acquire(5, "other"); err != nil {
		t.Errorf("Acquire() after release error = %v", err)
	}
}
