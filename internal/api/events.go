package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/gpioled/internal/events"
)

// EventsInput narrows the event stream.
type EventsInput struct {
	LED string `query:"led" example:"nuc980::led1" doc:"Only events for this LED"`
}

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time LED registration, trigger and brightness events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"led-registered":     events.LEDRegisteredEvent{},
		"led-unregistered":   events.LEDUnregisteredEvent{},
		"trigger-changed":    events.TriggerChangedEvent{},
		"brightness-changed": events.BrightnessChangedEvent{},
	}, func(ctx context.Context, input *EventsInput, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.LEDRegisteredEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.LEDUnregisteredEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.TriggerChangedEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.BrightnessChangedEvent](s.options.EventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if e, ok := event.(events.LEDEvent); ok && input.LED != "" && e.LED() != input.LED {
					continue
				}
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
