package gpio

import (
	"fmt"
	"sync"
)

// SimCounters counts calls made against a Sim provider.
type SimCounters struct {
	Acquire   int
	Configure int
	Write     int
	Release   int
}

// Sim is an in-memory Provider with a fixed number of lines.
type Sim struct {
	mu     sync.Mutex
	lines  int
	owners map[int]string
	levels map[int]Level
	output map[int]bool
	calls  SimCounters

	// AcquireErr, when set, is returned by the next Acquire calls.
	AcquireErr error
	// ConfigureErr, when set, is returned by ConfigureOutput.
	ConfigureErr error
	// ReleaseErr, when set, is returned by Release after the line is freed.
	ReleaseErr error
}

// NewSim creates a simulated chip with n lines.
func NewSim(n int) *Sim {
	return &Sim{
		lines:  n,
		owners: make(map[int]string),
		levels: make(map[int]Level),
		output: make(map[int]bool),
	}
}

// Valid reports whether id is within the simulated chip.
func (s *Sim) Valid(id int) bool {
	return id >= 0 && id < s.lines
}

// Acquire claims line id for label.
func (s *Sim) Acquire(id int, label string) (Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls.Acquire++
	if !s.Valid(id) {
		return nil, fmt.Errorf("line %d: %w", id, ErrInvalidLine)
	}
	if s.AcquireErr != nil {
		return nil, s.AcquireErr
	}
	if owner, held := s.owners[id]; held {
		return nil, fmt.Errorf("line %d held by %q: %w", id, owner, ErrLineBusy)
	}
	s.owners[id] = label
	return &simLine{sim: s, id: id}, nil
}

// Close is a no-op for the simulator.
func (s *Sim) Close() error { return nil }

// Counters returns a snapshot of the call counters.
func (s *Sim) Counters() SimCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Level returns the level line id is driven to.
func (s *Sim) Level(id int) Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels[id]
}

// IsOutput reports whether line id has been configured as an output.
func (s *Sim) IsOutput(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output[id]
}

// Owner returns the label holding line id, if any.
func (s *Sim) Owner(id int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	label, ok := s.owners[id]
	return label, ok
}

type simLine struct {
	sim      *Sim
	id       int
	released bool
}

func (l *simLine) ID() int { return l.id }

func (l *simLine) ConfigureOutput(initial Level) error {
	s := l.sim
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls.Configure++
	if l.released {
		return ErrReleased
	}
	if s.ConfigureErr != nil {
		return s.ConfigureErr
	}
	s.output[l.id] = true
	s.levels[l.id] = initial
	return nil
}

func (l *simLine) Write(level Level) error {
	s := l.sim
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls.Write++
	if l.released {
		return ErrReleased
	}
	s.levels[l.id] = level
	return nil
}

func (l *simLine) Read() (Level, error) {
	s := l.sim
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.released {
		return Low, ErrReleased
	}
	return s.levels[l.id], nil
}

func (l *simLine) Release() error {
	s := l.sim
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls.Release++
	if l.released {
		return ErrReleased
	}
	l.released = true
	delete(s.owners, l.id)
	delete(s.output, l.id)
	return s.ReleaseErr
}
