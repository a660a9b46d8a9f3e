package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/gpioled/internal/logging"
)

// LED is the reloadable part of the [led] table. Line, label and backend
// need a restart and are only read at startup.
type LED struct {
	Trigger       string `toml:"default_trigger"`
	TimerDelayOn  int    `toml:"timer_delay_on_ms"`
	TimerDelayOff int    `toml:"timer_delay_off_ms"`
}

// TimerDelays returns the timer trigger delays.
func (l LED) TimerDelays() (on, off time.Duration) {
	return time.Duration(l.TimerDelayOn) * time.Millisecond, time.Duration(l.TimerDelayOff) * time.Millisecond
}

// Runtime is what a config reload may change without restarting.
type Runtime struct {
	LED     LED
	Logging logging.Config
}

// LoadRuntime reads the reloadable sections from path. Unlike LoadConfig a
// missing or invalid file is an error, so a broken edit never clears settings.
func LoadRuntime(path string) (Runtime, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Runtime{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		LED     LED            `toml:"led"`
		Logging map[string]any `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Runtime{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Unset logging fields stay empty so callers keep their current values
	rt := Runtime{LED: raw.LED, Logging: logging.Config{Modules: make(map[string]string)}}
	applyLogging(&rt.Logging, raw.Logging)
	if err := rt.Validate(); err != nil {
		return Runtime{}, err
	}
	return rt, nil
}

// Validate rejects values no component accepts.
func (r Runtime) Validate() error {
	var errs []error
	if r.LED.TimerDelayOn < 0 || r.LED.TimerDelayOff < 0 {
		errs = append(errs, fmt.Errorf("led timer delays must not be negative (on=%d, off=%d)", r.LED.TimerDelayOn, r.LED.TimerDelayOff))
	}
	if r.Logging.Level != "" && !logging.ValidLevel(r.Logging.Level) {
		errs = append(errs, fmt.Errorf("unknown logging level %q", r.Logging.Level))
	}
	for module, level := range r.Logging.Modules {
		if !logging.ValidLevel(level) {
			errs = append(errs, fmt.Errorf("unknown logging level %q for module %s", level, module))
		}
	}
	if f := r.Logging.Format; f != "" && f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("unknown logging format %q", f))
	}
	return errors.Join(errs...)
}
