// Package ledclass is the LED framework devices register with. It keeps
// one active trigger per device and runs it on its own goroutine.
package ledclass

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/smazurov/gpioled/internal/events"
	"github.com/smazurov/gpioled/internal/led"
)

// Registry errors.
var (
	ErrNameTaken      = errors.New("ledclass: name already registered")
	ErrInvalidName    = errors.New("ledclass: empty device name")
	ErrNotFound       = errors.New("ledclass: no such device")
	ErrUnknownTrigger = errors.New("ledclass: unknown trigger")
)

// SourceDirect marks brightness writes that did not come from a trigger.
const SourceDirect = "direct"

// DeviceInfo is a snapshot of one registered device.
type DeviceInfo struct {
	Name          string
	Trigger       string
	Brightness    led.Brightness
	MaxBrightness led.Brightness
}

type entry struct {
	dev     led.Device
	trigger string
	cancel  context.CancelFunc
	done    chan struct{}
}

// Registry implements led.Framework.
type Registry struct {
	mu       sync.Mutex
	devices  map[string]*entry
	triggers map[string]Trigger
	bus      *events.Bus
	logger   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithBus publishes registry events on bus.
func WithBus(bus *events.Bus) Option {
	return func(r *Registry) {
		r.bus = bus
	}
}

// WithTrigger adds t, replacing any trigger of the same name.
func WithTrigger(t Trigger) Option {
	return func(r *Registry) {
		r.triggers[t.Name()] = t
	}
}

// NewRegistry creates a registry with the default-on, timer and heartbeat
// triggers. Heartbeat falls back to an idle period if procfs is missing.
func NewRegistry(logger *slog.Logger, opts ...Option) *Registry {
	clk := clock.New()
	load, err := ProcLoad()
	if err != nil {
		logger.Warn("Load average unavailable, heartbeat uses idle period", "error", err)
	}

	r := &Registry{
		devices: make(map[string]*entry),
		triggers: map[string]Trigger{
			TriggerDefaultOn: DefaultOn{},
			TriggerTimer:     NewTimer(clk, DefaultTimerDelay, DefaultTimerDelay),
			TriggerHeartbeat: NewHeartbeat(clk, load, logger),
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds dev and activates its default trigger when known.
func (r *Registry) Register(dev led.Device) error {
	name := dev.Name()
	if name == "" {
		return ErrInvalidName
	}

	r.mu.Lock()
	if _, exists := r.devices[name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%q: %w", name, ErrNameTaken)
	}
	e := &entry{dev: dev}
	r.devices[name] = e

	if def := dev.DefaultTrigger(); def != "" && def != TriggerNone {
		if t, ok := r.triggers[def]; ok {
			r.activateLocked(e, t)
		} else {
			r.logger.Warn("Default trigger not available, leaving LED untriggered", "led", name, "trigger", def)
		}
	}
	trigger := e.trigger
	r.mu.Unlock()

	r.logger.Info("LED registered", "led", name, "trigger", trigger)
	r.publish(events.LEDRegisteredEvent{
		Name:      name,
		Trigger:   trigger,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return nil
}

// Unregister stops the device's trigger and, unless the device retains
// its state, switches it off.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	e, ok := r.devices[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	r.deactivateLocked(e)
	delete(r.devices, name)
	r.mu.Unlock()

	if !e.dev.Flags().Has(led.FlagRetainAtShutdown) {
		if err := r.target(e.dev, SourceDirect).SetBrightness(led.Off); err != nil {
			r.logger.Warn("Failed to switch LED off on unregister", "led", name, "error", err)
		}
	}

	r.logger.Info("LED unregistered", "led", name)
	r.publish(events.LEDUnregisteredEvent{
		Name:      name,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// SetTrigger replaces the active trigger. "" and "none" remove it.
func (r *Registry) SetTrigger(name, trigger string) error {
	var t Trigger
	if trigger != "" && trigger != TriggerNone {
		var ok bool
		if t, ok = r.lookupTrigger(trigger); !ok {
			return fmt.Errorf("%q: %w", trigger, ErrUnknownTrigger)
		}
	}

	r.mu.Lock()
	e, ok := r.devices[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	previous := e.trigger
	if t != nil && previous == t.Name() {
		r.mu.Unlock()
		return nil
	}
	r.deactivateLocked(e)
	if t != nil {
		r.activateLocked(e, t)
	}
	current := e.trigger
	r.mu.Unlock()

	if current == previous {
		return nil
	}
	r.logger.Info("LED trigger changed", "led", name, "trigger", current, "previous", previous)
	r.publish(events.TriggerChangedEvent{
		Name:      name,
		Trigger:   current,
		Previous:  previous,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return nil
}

// Trigger returns the active trigger of a device, empty for none.
func (r *Registry) Trigger(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.devices[name]
	if !ok {
		return "", fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return e.trigger, nil
}

// SetBrightness writes b to a device. Writing Off removes the active
// trigger first; other values leave it running.
func (r *Registry) SetBrightness(name string, b led.Brightness) error {
	r.mu.Lock()
	e, ok := r.devices[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	previous := e.trigger
	if b == led.Off {
		r.deactivateLocked(e)
	}
	r.mu.Unlock()

	if b == led.Off && previous != "" {
		r.publish(events.TriggerChangedEvent{
			Name:      name,
			Previous:  previous,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	return r.target(e.dev, SourceDirect).SetBrightness(b)
}

// Devices returns a snapshot of all registered devices sorted by name.
func (r *Registry) Devices() []DeviceInfo {
	r.mu.Lock()
	infos := make([]DeviceInfo, 0, len(r.devices))
	for name, e := range r.devices {
		infos = append(infos, DeviceInfo{
			Name:          name,
			Trigger:       e.trigger,
			Brightness:    e.dev.Brightness(),
			MaxBrightness: e.dev.MaxBrightness(),
		})
	}
	r.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Device returns the snapshot of one device.
func (r *Registry) Device(name string) (DeviceInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.devices[name]
	if !ok {
		return DeviceInfo{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return DeviceInfo{
		Name:          name,
		Trigger:       e.trigger,
		Brightness:    e.dev.Brightness(),
		MaxBrightness: e.dev.MaxBrightness(),
	}, nil
}

// Triggers returns the available trigger names, including "none".
func (r *Registry) Triggers() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.triggers)+1)
	names = append(names, TriggerNone)
	for name := range r.triggers {
		names = append(names, name)
	}
	r.mu.Unlock()

	sort.Strings(names[1:])
	return names
}

func (r *Registry) lookupTrigger(name string) (Trigger, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.triggers[name]
	return t, ok
}

// activateLocked starts t for e. Callers hold r.mu.
func (r *Registry) activateLocked(e *entry, t Trigger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.trigger = t.Name()
	e.cancel = cancel
	e.done = done

	target := r.target(e.dev, t.Name())
	go func() {
		defer close(done)
		t.Run(ctx, target)
	}()
}

// deactivateLocked stops the running trigger of e and waits for it.
// Trigger goroutines never take r.mu, so waiting here cannot deadlock.
func (r *Registry) deactivateLocked(e *entry) {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
	e.trigger = ""
	e.cancel = nil
	e.done = nil
}

func (r *Registry) target(dev led.Device, source string) Target {
	return &observedTarget{dev: dev, source: source, registry: r}
}

func (r *Registry) publish(ev events.Event) {
	if r.bus != nil {
		r.bus.Publish(ev)
	}
}

// observedTarget publishes every successful write.
type observedTarget struct {
	dev      led.Device
	source   string
	registry *Registry
}

func (o *observedTarget) SetBrightness(b led.Brightness) error {
	if err := o.dev.SetBrightness(b); err != nil {
		o.registry.logger.Debug("LED brightness write failed", "led", o.dev.Name(), "source", o.source, "error", err)
		return err
	}
	o.registry.publish(events.BrightnessChangedEvent{
		Name:       o.dev.Name(),
		Brightness: int(b.Clamp(o.dev.MaxBrightness())),
		Source:     o.source,
		Timestamp:  time.Now().Format(time.RFC3339Nano),
	})
	return nil
}

func (o *observedTarget) MaxBrightness() led.Brightness {
	return o.dev.MaxBrightness()
}

var _ led.Framework = (*Registry)(nil)
