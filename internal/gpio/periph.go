package gpio

import (
	"fmt"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Periph drives lines through periph.io host drivers. Pins are addressed
// by their "GPIO<n>" names.
//
// periph has no notion of an exclusive claim, so ownership is tracked here.
type Periph struct {
	mu     sync.Mutex
	byName func(name string) gpio.PinIO
	owners map[int]string
	logger *slog.Logger
}

// NewPeriph initialises the periph host drivers.
func NewPeriph(logger *slog.Logger) (*Periph, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise periph host: %w", err)
	}
	logger.Debug("Initialised periph host", "drivers_loaded", len(state.Loaded))
	return newPeriph(gpioreg.ByName, logger), nil
}

func newPeriph(byName func(string) gpio.PinIO, logger *slog.Logger) *Periph {
	return &Periph{
		byName: byName,
		owners: make(map[int]string),
		logger: logger,
	}
}

func pinName(id int) string {
	return fmt.Sprintf("GPIO%d", id)
}

// Valid reports whether a pin named GPIO<id> is registered.
func (p *Periph) Valid(id int) bool {
	return id >= 0 && p.byName(pinName(id)) != nil
}

// Acquire claims pin GPIO<id> for label.
func (p *Periph) Acquire(id int, label string) (Line, error) {
	pin := p.byName(pinName(id))
	if id < 0 || pin == nil {
		return nil, fmt.Errorf("line %d: %w", id, ErrInvalidLine)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if owner, held := p.owners[id]; held {
		return nil, fmt.Errorf("line %d held by %q: %w", id, owner, ErrLineBusy)
	}
	p.owners[id] = label
	return &periphLine{owner: p, pin: pin, id: id}, nil
}

// Close is a no-op; periph drivers stay loaded for the process lifetime.
func (p *Periph) Close() error { return nil }

func (p *Periph) free(id int) {
	p.mu.Lock()
	delete(p.owners, id)
	p.mu.Unlock()
}

type periphLine struct {
	mu       sync.Mutex
	owner    *Periph
	pin      gpio.PinIO
	id       int
	released bool
}

func (l *periphLine) ID() int { return l.id }

func toPeriph(level Level) gpio.Level {
	if level == Low {
		return gpio.Low
	}
	return gpio.High
}

func (l *periphLine) ConfigureOutput(initial Level) error {
	return l.Write(initial)
}

func (l *periphLine) Write(level Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return ErrReleased
	}
	return l.pin.Out(toPeriph(level))
}

func (l *periphLine) Read() (Level, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return Low, ErrReleased
	}
	if l.pin.Read() == gpio.High {
		return High, nil
	}
	return Low, nil
}

func (l *periphLine) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return ErrReleased
	}
	l.released = true
	l.owner.free(l.id)
	return l.pin.Halt()
}
