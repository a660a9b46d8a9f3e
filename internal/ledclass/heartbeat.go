package ledclass

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/procfs"
	"github.com/smazurov/gpioled/internal/led"
)

const (
	beatOn        = 70 * time.Millisecond
	minBeatPeriod = 300 * time.Millisecond
)

// LoadFunc returns the one minute load average.
type LoadFunc func() (float64, error)

// ProcLoad reads the load average from /proc/loadavg.
func ProcLoad() (LoadFunc, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs: %w", err)
	}
	return func() (float64, error) {
		avg, err := fs.LoadAvg()
		if err != nil {
			return 0, err
		}
		return avg.Load1, nil
	}, nil
}

// Heartbeat blinks a double pulse whose period shrinks as load rises.
type Heartbeat struct {
	clock  clock.Clock
	load   LoadFunc
	logger *slog.Logger
}

// NewHeartbeat creates a heartbeat trigger. A nil load means idle.
func NewHeartbeat(clk clock.Clock, load LoadFunc, logger *slog.Logger) *Heartbeat {
	return &Heartbeat{clock: clk, load: load, logger: logger}
}

// Name returns "heartbeat".
func (h *Heartbeat) Name() string { return TriggerHeartbeat }

// heartbeatPeriod goes through f(0)=1260ms, f(1)=860ms, f(5)=510ms and
// approaches 300ms as load grows.
func heartbeatPeriod(load float64) time.Duration {
	if load < 0 {
		load = 0
	}
	ms := 6720 / (5*load + 7)
	return minBeatPeriod + time.Duration(ms*float64(time.Millisecond))
}

// heartbeatStep returns whether the LED is lit during phase, how long the
// phase lasts, and the next phase.
func heartbeatStep(phase int, period time.Duration) (lit bool, delay time.Duration, next int) {
	switch phase {
	case 0:
		return true, beatOn, 1
	case 1:
		return false, period/4 - beatOn, 2
	case 2:
		return true, beatOn, 3
	default:
		return false, period - period/4 - beatOn, 0
	}
}

func (h *Heartbeat) currentPeriod() time.Duration {
	if h.load == nil {
		return heartbeatPeriod(0)
	}
	load, err := h.load()
	if err != nil {
		h.logger.Debug("Failed to read load average, assuming idle", "error", err)
		load = 0
	}
	return heartbeatPeriod(load)
}

// Run beats until ctx is cancelled. The period is re-read from the load
// average at the start of every beat.
func (h *Heartbeat) Run(ctx context.Context, target Target) {
	phase := 0
	period := heartbeatPeriod(0)
	for {
		if phase == 0 {
			period = h.currentPeriod()
		}
		lit, delay, next := heartbeatStep(phase, period)

		b := led.Off
		if lit {
			b = target.MaxBrightness()
		}

		timer := h.clock.Timer(delay)
		_ = target.SetBrightness(b)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		phase = next
	}
}
