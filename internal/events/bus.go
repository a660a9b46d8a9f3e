package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
// Handlers run asynchronously on the dispatcher's goroutines.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(TriggerChangedEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case LEDRegisteredEvent:
		event.Publish(b.dispatcher, e)
	case LEDUnregisteredEvent:
		event.Publish(b.dispatcher, e)
	case TriggerChangedEvent:
		event.Publish(b.dispatcher, e)
	case BrightnessChangedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler type determines which events it receives.
// Returns an unsubscribe function; unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e BrightnessChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(LEDRegisteredEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LEDUnregisteredEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TriggerChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BrightnessChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// SubscribeToChannel bridges callback subscriptions to a channel for the
// SSE endpoint. Events are dropped when the channel is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
