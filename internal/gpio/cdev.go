package gpio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"syscall"

	"github.com/warthog618/go-gpiocdev"
)

// Cdev drives lines through the Linux GPIO character device.
type Cdev struct {
	chip   *gpiocdev.Chip
	logger *slog.Logger
}

// NewCdev opens the named chip, e.g. "gpiochip0".
func NewCdev(chipName string, logger *slog.Logger) (*Cdev, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", chipName, err)
	}
	logger.Debug("Opened GPIO chip", "chip", chipName, "lines", chip.Lines())
	return &Cdev{chip: chip, logger: logger}, nil
}

// Valid reports whether id is a line offset on the chip.
func (c *Cdev) Valid(id int) bool {
	return id >= 0 && id < c.chip.Lines()
}

// Acquire requests the line without changing its direction.
func (c *Cdev) Acquire(id int, label string) (Line, error) {
	if !c.Valid(id) {
		return nil, fmt.Errorf("line %d: %w", id, ErrInvalidLine)
	}
	l, err := c.chip.RequestLine(id, gpiocdev.AsIs, gpiocdev.WithConsumer(label))
	if err != nil {
		if errors.Is(err, syscall.EBUSY) {
			return nil, fmt.Errorf("line %d: %w", id, ErrLineBusy)
		}
		return nil, fmt.Errorf("failed to request line %d: %w", id, err)
	}
	return &cdevLine{line: l, id: id}, nil
}

// Close closes the chip.
func (c *Cdev) Close() error {
	return c.chip.Close()
}

type cdevLine struct {
	mu       sync.Mutex
	line     *gpiocdev.Line
	id       int
	released bool
}

func (l *cdevLine) ID() int { return l.id }

func (l *cdevLine) ConfigureOutput(initial Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return ErrReleased
	}
	return l.line.Reconfigure(gpiocdev.AsOutput(int(initial)))
}

func (l *cdevLine) Write(level Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return ErrReleased
	}
	return l.line.SetValue(int(level))
}

func (l *cdevLine) Read() (Level, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return Low, ErrReleased
	}
	v, err := l.line.Value()
	if err != nil {
		return Low, err
	}
	if v != 0 {
		return High, nil
	}
	return Low, nil
}

func (l *cdevLine) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return ErrReleased
	}
	l.released = true
	return l.line.Close()
}
