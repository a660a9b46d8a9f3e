package events

// Event type constants for kelindar/event.
const (
	TypeLEDRegistered uint32 = iota + 1
	TypeLEDUnregistered
	TypeTriggerChanged
	TypeBrightnessChanged
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// LEDEvent is implemented by every event concerning a single LED.
type LEDEvent interface {
	Event
	LED() string
}

// LEDRegisteredEvent is published when a device joins the LED class.
type LEDRegisteredEvent struct {
	Name      string `json:"name" example:"nuc980::led1" doc:"LED name"`
	Trigger   string `json:"trigger" example:"heartbeat" doc:"Trigger active after registration, empty for none"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for LEDRegisteredEvent.
func (e LEDRegisteredEvent) Type() uint32 { return TypeLEDRegistered }

// LED returns the name of the LED the event concerns.
func (e LEDRegisteredEvent) LED() string { return e.Name }

// LEDUnregisteredEvent is published when a device leaves the LED class.
type LEDUnregisteredEvent struct {
	Name      string `json:"name" example:"nuc980::led1" doc:"LED name"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for LEDUnregisteredEvent.
func (e LEDUnregisteredEvent) Type() uint32 { return TypeLEDUnregistered }

// LED returns the name of the LED the event concerns.
func (e LEDUnregisteredEvent) LED() string { return e.Name }

// TriggerChangedEvent is published when the active trigger of an LED changes.
type TriggerChangedEvent struct {
	Name      string `json:"name" example:"nuc980::led1" doc:"LED name"`
	Trigger   string `json:"trigger" example:"timer" doc:"New trigger, empty for none"`
	Previous  string `json:"previous" example:"heartbeat" doc:"Previous trigger, empty for none"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for TriggerChangedEvent.
func (e TriggerChangedEvent) Type() uint32 { return TypeTriggerChanged }

// LED returns the name of the LED the event concerns.
func (e TriggerChangedEvent) LED() string { return e.Name }

// BrightnessChangedEvent is published after a brightness write reached the line.
type BrightnessChangedEvent struct {
	Name       string `json:"name" example:"nuc980::led1" doc:"LED name"`
	Brightness int    `json:"brightness" example:"255" doc:"Brightness written"`
	Source     string `json:"source" example:"heartbeat" doc:"Trigger that wrote it, or direct"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for BrightnessChangedEvent.
func (e BrightnessChangedEvent) Type() uint32 { return TypeBrightnessChanged }

// LED returns the name of the LED the event concerns.
func (e BrightnessChangedEvent) LED() string { return e.Name }
