// Package mqtt exposes LEDs to Home Assistant as MQTT lights.
package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/smazurov/gpioled/internal/events"
	"github.com/smazurov/gpioled/internal/led"
	"github.com/smazurov/gpioled/internal/ledclass"
	"github.com/smazurov/gpioled/internal/version"
)

const (
	tokenTimeout = 5 * time.Second
	qos          = 1
)

// ErrInvalidPayload is returned for commands that cannot be parsed.
var ErrInvalidPayload = errors.New("invalid payload")

// LEDs is the part of the LED class the bridge reads and drives.
type LEDs interface {
	Devices() []ledclass.DeviceInfo
	Triggers() []string
	SetBrightness(name string, b led.Brightness) error
	SetTrigger(name, trigger string) error
}

// Options configures the broker connection and topic layout.
type Options struct {
	Broker          string // e.g. tcp://homeassistant.local:1883
	Username        string
	Password        string
	ClientID        string
	TopicPrefix     string // Defaults to gpioled
	DiscoveryPrefix string // Defaults to homeassistant
}

func (o *Options) setDefaults() {
	if o.TopicPrefix == "" {
		o.TopicPrefix = "gpioled"
	}
	if o.DiscoveryPrefix == "" {
		o.DiscoveryPrefix = "homeassistant"
	}
	if o.ClientID == "" {
		o.ClientID = "gpioled"
	}
}

func (o *Options) availabilityTopic() string {
	return o.TopicPrefix + "/availability"
}

// Bridge publishes LED state to an MQTT broker and applies commands from it.
type Bridge struct {
	client MQTT.Client
	bus    *events.Bus
	leds   LEDs
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	unsubs []func()
}

// New creates a bridge with a paho client for opts.Broker.
func New(opts Options, bus *events.Bus, leds LEDs, logger *slog.Logger) *Bridge {
	opts.setDefaults()
	b := &Bridge{bus: bus, leds: leds, opts: opts, logger: logger}

	clientOpts := MQTT.NewClientOptions()
	clientOpts.AddBroker(opts.Broker)
	clientOpts.SetClientID(opts.ClientID)
	clientOpts.SetUsername(opts.Username)
	clientOpts.SetPassword(opts.Password)
	clientOpts.SetCleanSession(true)
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetWill(opts.availabilityTopic(), PayloadOffline, qos, true)
	clientOpts.OnConnect = b.onConnect
	clientOpts.OnConnectionLost = func(_ MQTT.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	}

	b.client = MQTT.NewClient(clientOpts)
	return b
}

// newBridge wraps an existing client.
func newBridge(client MQTT.Client, opts Options, bus *events.Bus, leds LEDs, logger *slog.Logger) *Bridge {
	opts.setDefaults()
	return &Bridge{client: client, bus: bus, leds: leds, opts: opts, logger: logger}
}

// Start connects to the broker and starts forwarding LED events. Topics are
// (re)announced from the connect handler so they survive reconnects.
func (b *Bridge) Start() error {
	token := b.client.Connect()
	if !token.WaitTimeout(tokenTimeout) {
		return fmt.Errorf("connect to %s: timed out", b.opts.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", b.opts.Broker, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsubs = append(b.unsubs,
		b.bus.Subscribe(func(e events.LEDRegisteredEvent) {
			b.announce(ledclass.DeviceInfo{Name: e.Name, Trigger: e.Trigger})
		}),
		b.bus.Subscribe(func(e events.LEDUnregisteredEvent) {
			b.publish(topicsFor(b.opts.TopicPrefix, b.opts.DiscoveryPrefix, e.Name).State, PayloadOff)
		}),
		b.bus.Subscribe(func(e events.TriggerChangedEvent) {
			b.publishTrigger(e.Name, e.Trigger)
		}),
		b.bus.Subscribe(func(e events.BrightnessChangedEvent) {
			// Trigger blinking is reported as the effect rather than as state flapping
			if e.Source != ledclass.SourceDirect {
				return
			}
			b.publishBrightness(e.Name, led.Brightness(e.Brightness))
		}),
	)

	b.logger.Info("MQTT bridge connected", "broker", b.opts.Broker)
	return nil
}

// Stop marks the LEDs unavailable and disconnects.
func (b *Bridge) Stop() {
	b.mu.Lock()
	unsubs := b.unsubs
	b.unsubs = nil
	b.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}

	if b.client.IsConnected() {
		b.publish(b.opts.availabilityTopic(), PayloadOffline)
		b.client.Disconnect(250)
	}
	b.logger.Info("MQTT bridge stopped")
}

func (b *Bridge) onConnect(_ MQTT.Client) {
	b.publish(b.opts.availabilityTopic(), PayloadOnline)
	for _, dev := range b.leds.Devices() {
		b.announce(dev)
	}
}

// announce publishes discovery and current state for dev and subscribes to
// its command topics.
func (b *Bridge) announce(dev ledclass.DeviceInfo) {
	topics := topicsFor(b.opts.TopicPrefix, b.opts.DiscoveryPrefix, dev.Name)

	maxBrightness := int(dev.MaxBrightness)
	if maxBrightness == 0 {
		maxBrightness = int(led.Full)
	}

	cfg := lightConfig{
		Name:     dev.Name,
		UniqueID: "gpioled_" + objectID(dev.Name),
		Availability: []availability{{
			Topic:               b.opts.availabilityTopic(),
			PayloadAvailable:    PayloadOnline,
			PayloadNotAvailable: PayloadOffline,
		}},
		Device: deviceSpec{
			Name:         b.opts.ClientID,
			Identifiers:  []string{b.opts.ClientID},
			Manufacturer: "gpioled",
			SWVersion:    version.Version,
		},
		StateTopic:             topics.State,
		CommandTopic:           topics.Command,
		BrightnessStateTopic:   topics.BrightnessState,
		BrightnessCommandTopic: topics.BrightnessCommand,
		BrightnessScale:        maxBrightness,
		EffectStateTopic:       topics.TriggerState,
		EffectCommandTopic:     topics.TriggerCommand,
		EffectList:             b.leds.Triggers(),
		PayloadOn:              PayloadOn,
		PayloadOff:             PayloadOff,
		Qos:                    qos,
	}
	data, err := cfg.Marshal()
	if err != nil {
		b.logger.Warn("Failed to marshal discovery config", "led", dev.Name, "error", err)
		return
	}
	b.publish(topics.Discovery, data)

	name := dev.Name
	b.subscribe(topics.Command, func(payload string) error { return b.handleSwitch(name, payload) })
	b.subscribe(topics.BrightnessCommand, func(payload string) error { return b.handleBrightness(name, payload) })
	b.subscribe(topics.TriggerCommand, func(payload string) error { return b.leds.SetTrigger(name, payload) })

	b.publishTrigger(dev.Name, dev.Trigger)
	if dev.Trigger == "" {
		b.publishBrightness(dev.Name, dev.Brightness)
	}
}

func (b *Bridge) subscribe(topic string, handle func(payload string) error) {
	token := b.client.Subscribe(topic, qos, func(_ MQTT.Client, msg MQTT.Message) {
		payload := strings.TrimSpace(string(msg.Payload()))
		if err := handle(payload); err != nil {
			b.logger.Warn("MQTT command failed", "topic", msg.Topic(), "payload", payload, "error", err)
		}
	})
	if !token.WaitTimeout(tokenTimeout) || token.Error() != nil {
		b.logger.Warn("Failed to subscribe", "topic", topic, "error", token.Error())
	}
}

func (b *Bridge) handleSwitch(name, payload string) error {
	switch strings.ToUpper(payload) {
	case PayloadOn:
		return b.leds.SetBrightness(name, led.Full)
	case PayloadOff:
		return b.leds.SetBrightness(name, led.Off)
	default:
		return fmt.Errorf("%q: %w", payload, ErrInvalidPayload)
	}
}

func (b *Bridge) handleBrightness(name, payload string) error {
	v, err := strconv.Atoi(payload)
	if err != nil || v < 0 {
		return fmt.Errorf("%q: %w", payload, ErrInvalidPayload)
	}
	return b.leds.SetBrightness(name, led.Brightness(v))
}

func (b *Bridge) publishBrightness(name string, v led.Brightness) {
	topics := topicsFor(b.opts.TopicPrefix, b.opts.DiscoveryPrefix, name)
	state := PayloadOff
	if v != led.Off {
		state = PayloadOn
	}
	b.publish(topics.State, state)
	b.publish(topics.BrightnessState, strconv.Itoa(int(v)))
}

func (b *Bridge) publishTrigger(name, trigger string) {
	topics := topicsFor(b.opts.TopicPrefix, b.opts.DiscoveryPrefix, name)
	if trigger == "" {
		trigger = ledclass.TriggerNone
	} else {
		// A running trigger keeps the light on as far as Home Assistant is concerned
		b.publish(topics.State, PayloadOn)
	}
	b.publish(topics.TriggerState, trigger)
}

// publish sends a retained message. Failures are logged.
func (b *Bridge) publish(topic string, payload any) {
	token := b.client.Publish(topic, qos, true, payload)
	if !token.WaitTimeout(tokenTimeout) {
		b.logger.Warn("MQTT publish timed out", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		b.logger.Warn("MQTT publish failed", "topic", topic, "error", err)
	}
}
