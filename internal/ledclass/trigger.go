package ledclass

import (
	"context"

	"github.com/smazurov/gpioled/internal/led"
)

// Trigger names.
const (
	TriggerNone      = "none"
	TriggerDefaultOn = "default-on"
	TriggerTimer     = "timer"
	TriggerHeartbeat = "heartbeat"
)

// Target is what a trigger drives.
type Target interface {
	SetBrightness(b led.Brightness) error
	MaxBrightness() led.Brightness
}

// Trigger drives a target until ctx is cancelled. One Trigger value may
// run against several targets at once; per-target state lives in Run.
type Trigger interface {
	Name() string
	Run(ctx context.Context, target Target)
}

// DefaultOn turns the LED fully on once and holds it there.
type DefaultOn struct{}

// Name returns "default-on".
func (DefaultOn) Name() string { return TriggerDefaultOn }

// Run sets maximum brightness and waits for cancellation.
func (DefaultOn) Run(ctx context.Context, target Target) {
	_ = target.SetBrightness(target.MaxBrightness())
	<-ctx.Done()
}
