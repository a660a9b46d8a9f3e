package ledclass

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/smazurov/gpioled/internal/led"
)

// DefaultTimerDelay is used for both phases when neither delay is set.
const DefaultTimerDelay = 500 * time.Millisecond

// Timer blinks with configurable on and off delays. A zero on delay keeps
// the LED off, a zero off delay keeps it on.
type Timer struct {
	clock clock.Clock

	mu      sync.Mutex
	on      time.Duration
	off     time.Duration
	changed chan struct{}
}

// NewTimer creates a timer trigger.
func NewTimer(clk clock.Clock, on, off time.Duration) *Timer {
	t := &Timer{clock: clk, changed: make(chan struct{})}
	t.on, t.off = normalizeDelays(on, off)
	return t
}

func normalizeDelays(on, off time.Duration) (time.Duration, time.Duration) {
	if on < 0 {
		on = 0
	}
	if off < 0 {
		off = 0
	}
	if on == 0 && off == 0 {
		return DefaultTimerDelay, DefaultTimerDelay
	}
	return on, off
}

// Name returns "timer".
func (t *Timer) Name() string { return TriggerTimer }

// Delays returns the current delays and a channel closed on the next change.
func (t *Timer) Delays() (on, off time.Duration, changed <-chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.on, t.off, t.changed
}

// SetDelays updates the delays. Running instances restart their cycle.
func (t *Timer) SetDelays(on, off time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.on, t.off = normalizeDelays(on, off)
	close(t.changed)
	t.changed = make(chan struct{})
}

// Run blinks the target until ctx is cancelled.
func (t *Timer) Run(ctx context.Context, target Target) {
	lit := true
	for {
		on, off, changed := t.Delays()

		switch {
		case on == 0:
			_ = target.SetBrightness(led.Off)
			if !waitChange(ctx, changed) {
				return
			}
			lit = true
			continue
		case off == 0:
			_ = target.SetBrightness(target.MaxBrightness())
			if !waitChange(ctx, changed) {
				return
			}
			lit = true
			continue
		}

		b, d := led.Off, off
		if lit {
			b, d = target.MaxBrightness(), on
		}

		timer := t.clock.Timer(d)
		_ = target.SetBrightness(b)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-changed:
			timer.Stop()
			lit = true
			continue
		case <-timer.C:
		}
		lit = !lit
	}
}

func waitChange(ctx context.Context, changed <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return false
	case <-changed:
		return true
	}
}
