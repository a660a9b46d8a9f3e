// Package gpio provides the line I/O used by the LED controller.
//
// A Provider hands out exclusive Line handles by offset. Three providers
// exist: Cdev (Linux GPIO character device), Periph (periph.io host
// drivers) and Sim (in-memory, for development machines and tests).
package gpio

import "errors"

// Level is the logical level of a line.
type Level int

// Line levels.
const (
	Low  Level = 0
	High Level = 1
)

// String returns "low" or "high".
func (l Level) String() string {
	if l == Low {
		return "low"
	}
	return "high"
}

// Sentinel errors returned by providers and lines.
var (
	ErrInvalidLine = errors.New("gpio: invalid line offset")
	ErrLineBusy    = errors.New("gpio: line already requested")
	ErrReleased    = errors.New("gpio: line released")
)

// Provider gives out exclusive access to lines on one chip.
type Provider interface {
	// Valid reports whether id names a line on this platform.
	Valid(id int) bool
	// Acquire claims the line for label. It does not change the line
	// direction.
	Acquire(id int, label string) (Line, error)
	// Close releases the provider's own resources.
	Close() error
}

// Line is an acquired GPIO line.
type Line interface {
	ID() int
	ConfigureOutput(initial Level) error
	Write(level Level) error
	Read() (Level, error)
	Release() error
}
