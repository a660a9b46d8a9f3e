package nats

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smazurov/gpioled/internal/events"
	"github.com/smazurov/gpioled/internal/led"
)

// ErrUnknownAction is returned for control messages with an unsupported action.
var ErrUnknownAction = errors.New("unknown action")

// LEDController is the write side of the LED class.
type LEDController interface {
	SetBrightness(name string, b led.Brightness) error
	SetTrigger(name, trigger string) error
}

// Bridge mirrors event bus changes to NATS and applies control requests.
type Bridge struct {
	url      string
	eventBus *events.Bus
	leds     LEDController
	conn     *nats.Conn
	sub      *nats.Subscription
	unsubs   []func()
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewBridge creates a bridge between the event bus and the NATS server at url.
func NewBridge(url string, eventBus *events.Bus, leds LEDController, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		url:      url,
		eventBus: eventBus,
		leds:     leds,
		logger:   logger.With("component", "nats-bridge"),
	}
}

// Start connects to NATS, subscribes to control requests and starts
// forwarding LED events.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, err := nats.Connect(b.url,
		nats.Name("gpioled-bridge"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("NATS bridge disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			b.logger.Info("NATS bridge reconnected")
		}),
	)
	if err != nil {
		return err
	}

	sub, err := conn.Subscribe(SubjectControlPrefix+".*", b.handleControl)
	if err != nil {
		conn.Close()
		return err
	}

	b.conn = conn
	b.sub = sub
	b.unsubs = append(b.unsubs,
		b.eventBus.Subscribe(func(e events.LEDRegisteredEvent) {
			b.publish(StateMessage{Name: e.Name, Kind: KindRegistered, Trigger: e.Trigger, Timestamp: e.Timestamp})
		}),
		b.eventBus.Subscribe(func(e events.LEDUnregisteredEvent) {
			b.publish(StateMessage{Name: e.Name, Kind: KindUnregistered, Timestamp: e.Timestamp})
		}),
		b.eventBus.Subscribe(func(e events.TriggerChangedEvent) {
			b.publish(StateMessage{Name: e.Name, Kind: KindTrigger, Trigger: e.Trigger, Timestamp: e.Timestamp})
		}),
		b.eventBus.Subscribe(func(e events.BrightnessChangedEvent) {
			brightness := e.Brightness
			b.publish(StateMessage{
				Name:       e.Name,
				Kind:       KindBrightness,
				Brightness: &brightness,
				Source:     e.Source,
				Timestamp:  e.Timestamp,
			})
		}),
	)

	b.logger.Info("NATS bridge connected", "url", b.url)
	return nil
}

// publish sends m on the LED's state subject. Dropped when disconnected.
func (b *Bridge) publish(m StateMessage) {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return
	}

	data, err := m.Marshal()
	if err != nil {
		b.logger.Warn("Failed to marshal state", "error", err)
		return
	}
	if err := conn.Publish(SubjectLEDState(m.Name), data); err != nil {
		b.logger.Warn("Failed to publish state", "led", m.Name, "error", err)
	}
}

// handleControl applies a control request and replies when asked to.
func (b *Bridge) handleControl(msg *nats.Msg) {
	err := b.apply(msg.Data)
	if err != nil {
		b.logger.Warn("Control request failed", "subject", msg.Subject, "error", err)
	}

	if msg.Reply == "" {
		return
	}
	reply := ReplyMessage{OK: err == nil}
	if err != nil {
		reply.Error = err.Error()
	}
	data, marshalErr := reply.Marshal()
	if marshalErr != nil {
		return
	}
	if respondErr := msg.Respond(data); respondErr != nil {
		b.logger.Warn("Failed to reply to control request", "error", respondErr)
	}
}

func (b *Bridge) apply(data []byte) error {
	ctrl, err := UnmarshalControl(data)
	if err != nil {
		return fmt.Errorf("invalid control message: %w", err)
	}

	b.logger.Debug("Received control request", "action", ctrl.Action, "led", ctrl.Name)

	switch ctrl.Action {
	case ActionSetBrightness:
		if ctrl.Brightness < 0 {
			return fmt.Errorf("brightness %d: must not be negative", ctrl.Brightness)
		}
		return b.leds.SetBrightness(ctrl.Name, led.Brightness(ctrl.Brightness))
	case ActionSetTrigger:
		return b.leds.SetTrigger(ctrl.Name, ctrl.Trigger)
	default:
		return fmt.Errorf("%q: %w", ctrl.Action, ErrUnknownAction)
	}
}

// Stop stops forwarding events and closes the connection.
func (b *Bridge) Stop() {
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub != nil {
		_ = b.sub.Unsubscribe()
		b.sub = nil
	}
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	b.logger.Info("NATS bridge stopped")
}

// IsConnected returns true if the bridge is connected to NATS.
func (b *Bridge) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.conn != nil && b.conn.IsConnected()
}
