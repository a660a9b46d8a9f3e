// Package led owns a single GPIO-driven LED: it claims the line, drives it
// high, registers with an LED framework so triggers can blink it, and
// releases the line at shutdown.
package led

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/smazurov/gpioled/internal/gpio"
)

// Defaults for the on-board LED.
const (
	DefaultName    = "nuc980::led1"
	DefaultLabel   = "NUC_LED_GPIO"
	DefaultLine    = 5
	DefaultTrigger = "heartbeat"
)

// Config describes the LED a Controller owns.
type Config struct {
	Name           string
	Line           int
	Label          string
	DefaultTrigger string
	MaxBrightness  Brightness
	Flags          Flags
}

// Controller owns one GPIO line and exposes it to a Framework as a Device.
//
// lifecycle serializes Initialize and Shutdown. mu guards the line handle,
// state and last brightness, and serializes line writes. Framework calls
// are made without holding mu so triggers may write during registration.
type Controller struct {
	cfg       Config
	provider  gpio.Provider
	framework Framework
	logger    *slog.Logger

	lifecycle sync.Mutex

	mu         sync.Mutex
	state      State
	line       gpio.Line
	brightness Brightness
}

// New creates an unregistered controller.
func New(cfg Config, provider gpio.Provider, framework Framework, logger *slog.Logger) *Controller {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.Label == "" {
		cfg.Label = DefaultLabel
	}
	if cfg.MaxBrightness <= Off {
		cfg.MaxBrightness = Full
	}
	return &Controller{
		cfg:       cfg,
		provider:  provider,
		framework: framework,
		logger:    logger.With("led", cfg.Name, "line", cfg.Line),
		state:     StateUnregistered,
	}
}

// Initialize claims the line, drives it high and registers with the
// framework. On any failure the line is released and the controller stays
// unregistered.
func (c *Controller) Initialize() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	id := c.cfg.Line
	if state := c.State(); state != StateUnregistered {
		return newError(CodeAlreadyRegistered, id, fmt.Sprintf("controller is %s", state), nil)
	}

	valid := c.provider.Valid(id)
	c.logger.Debug("Checked GPIO validity", "valid", valid)
	if !valid {
		c.logger.Error("GPIO line is not valid on this platform")
		return newError(CodeInvalidIdentifier, id, "line not valid on this platform", nil)
	}

	c.logger.Debug("Claiming GPIO", "label", c.cfg.Label)
	line, err := c.provider.Acquire(id, c.cfg.Label)
	if err != nil {
		c.logger.Error("Unable to claim GPIO", "error", err)
		if errors.Is(err, gpio.ErrInvalidLine) {
			return newError(CodeInvalidIdentifier, id, "line rejected by provider", err)
		}
		return newError(CodeAcquisitionFailed, id, "unable to claim line", err)
	}

	c.logger.Debug("Setting direction as output, initial level high")
	if err := line.ConfigureOutput(gpio.High); err != nil {
		c.logger.Error("Unable to set GPIO direction", "error", err)
		c.release(line)
		return newError(CodeDirectionConfigFailed, id, "unable to set output direction", err)
	}

	c.mu.Lock()
	c.line = line
	c.state = StateAcquired
	c.brightness = c.cfg.MaxBrightness
	c.mu.Unlock()

	c.logger.Debug("Registering with LED framework", "default_trigger", c.cfg.DefaultTrigger)
	if err := c.framework.Register(c); err != nil {
		c.logger.Error("LED registration failed", "error", err)
		c.mu.Lock()
		c.line = nil
		c.state = StateUnregistered
		c.brightness = Off
		c.mu.Unlock()
		c.release(line)
		return newError(CodeRegistrationFailed, id, "framework rejected registration", err)
	}

	c.mu.Lock()
	c.state = StateRegistered
	c.mu.Unlock()

	c.logger.Info("LED registered")
	return nil
}

// SetBrightness drives the line high for any nonzero b and low for Off.
// It fails with ErrNotRegistered unless the line is held and configured.
func (c *Controller) SetBrightness(b Brightness) error {
	b = b.Clamp(c.cfg.MaxBrightness)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.line == nil {
		return newError(CodeNotRegistered, c.cfg.Line, "brightness set before initialize", nil)
	}
	if err := c.line.Write(b.Level()); err != nil {
		return fmt.Errorf("failed to write line %d: %w", c.cfg.Line, err)
	}
	c.brightness = b
	return nil
}

// Shutdown unregisters from the framework and releases the line. Calling
// it on an unregistered controller does nothing.
func (c *Controller) Shutdown() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	state := c.State()
	if state == StateUnregistered {
		c.logger.Debug("Shutdown on unregistered controller, nothing to do")
		return
	}

	if state == StateRegistered {
		c.logger.Debug("Unregistering from LED framework")
		c.framework.Unregister(c.cfg.Name)
	}

	c.mu.Lock()
	line := c.line
	c.line = nil
	c.state = StateUnregistered
	c.mu.Unlock()

	c.logger.Debug("Freeing GPIO")
	c.release(line)
	c.logger.Info("LED released")
}

func (c *Controller) release(line gpio.Line) {
	if line == nil {
		return
	}
	if err := line.Release(); err != nil {
		c.logger.Warn("Failed to release GPIO", "error", err)
	}
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Brightness returns the last brightness written to the line.
func (c *Controller) Brightness() Brightness {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.brightness
}

// Name returns the fixed LED name.
func (c *Controller) Name() string { return c.cfg.Name }

// DefaultTrigger returns the trigger activated on registration.
func (c *Controller) DefaultTrigger() string { return c.cfg.DefaultTrigger }

// Flags returns the device flags.
func (c *Controller) Flags() Flags { return c.cfg.Flags }

// MaxBrightness returns the upper clamp for brightness values.
func (c *Controller) MaxBrightness() Brightness { return c.cfg.MaxBrightness }

// Line returns the GPIO line offset.
func (c *Controller) Line() int { return c.cfg.Line }

var _ Device = (*Controller)(nil)
