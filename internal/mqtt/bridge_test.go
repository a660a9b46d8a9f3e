package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/smazurov/gpioled/internal/events"
	"github.com/smazurov/gpioled/internal/led"
	"github.com/smazurov/gpioled/internal/ledclass"
)

// mockClient records publishes and subscriptions.
type mockClient struct {
	mu        sync.Mutex
	connected bool
	published map[string]string
	handlers  map[string]MQTT.MessageHandler
}

func newMockClient() *mockClient {
	return &mockClient{published: map[string]string{}, handlers: map[string]MQTT.MessageHandler{}}
}

func (m *mockClient) IsConnected() bool      { return m.connected }
func (m *mockClient) IsConnectionOpen() bool { return m.connected }

func (m *mockClient) Connect() MQTT.Token {
	m.connected = true
	return &mockToken{}
}

func (m *mockClient) Disconnect(uint) { m.connected = false }

func (m *mockClient) Publish(topic string, _ byte, _ bool, payload any) MQTT.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch p := payload.(type) {
	case []byte:
		m.published[topic] = string(p)
	default:
		m.published[topic] = fmt.Sprint(p)
	}
	return &mockToken{}
}

func (m *mockClient) Subscribe(topic string, _ byte, callback MQTT.MessageHandler) MQTT.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = callback
	return &mockToken{}
}

func (m *mockClient) SubscribeMultiple(map[string]byte, MQTT.MessageHandler) MQTT.Token {
	return &mockToken{}
}
func (m *mockClient) Unsubscribe(...string) MQTT.Token        { return &mockToken{} }
func (m *mockClient) AddRoute(string, MQTT.MessageHandler)    {}
func (m *mockClient) OptionsReader() MQTT.ClientOptionsReader { return MQTT.ClientOptionsReader{} }

func (m *mockClient) get(topic string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.published[topic]
	return v, ok
}

// deliver invokes the handler subscribed to topic.
func (m *mockClient) deliver(t *testing.T, topic, payload string) {
	t.Helper()
	m.mu.Lock()
	h := m.handlers[topic]
	m.mu.Unlock()
	if h == nil {
		t.Fatalf("no subscription for %s", topic)
	}
	h(m, &mockMessage{topic: topic, payload: []byte(payload)})
}

type mockToken struct {
	err error
}

func (m *mockToken) Wait() bool                     { return true }
func (m *mockToken) WaitTimeout(time.Duration) bool { return true }
func (m *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (m *mockToken) Error() error { return m.err }

type mockMessage struct {
	topic   string
	payload []byte
}

func (m *mockMessage) Duplicate() bool   { return false }
func (m *mockMessage) Qos() byte         { return 0 }
func (m *mockMessage) Retained() bool    { return false }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) MessageID() uint16 { return 0 }
func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Ack()              {}

// fakeLEDs is a single-LED class.
type fakeLEDs struct {
	mu      sync.Mutex
	dev     ledclass.DeviceInfo
	written []led.Brightness
}

func (f *fakeLEDs) Devices() []ledclass.DeviceInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return []ledclass.DeviceInfo{f.dev}
}

func (f *fakeLEDs) Triggers() []string {
	return []string{"none", "default-on", "heartbeat", "timer"}
}

func (f *fakeLEDs) SetBrightness(name string, b led.Brightness) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name != f.dev.Name {
		return errors.New("not found")
	}
	f.dev.Brightness = b
	f.written = append(f.written, b)
	return nil
}

func (f *fakeLEDs) SetTrigger(name, trigger string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name != f.dev.Name {
		return errors.New("not found")
	}
	f.dev.Trigger = trigger
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestBridge(t *testing.T) (*Bridge, *mockClient, *fakeLEDs, *events.Bus) {
	t.Helper()
	client := newMockClient()
	leds := &fakeLEDs{dev: ledclass.DeviceInfo{
		Name: "nuc980::led1", Trigger: "heartbeat", Brightness: led.Full, MaxBrightness: led.Full,
	}}
	bus := events.New()
	b := newBridge(client, Options{Broker: "tcp://broker:1883"}, bus, leds, testLogger())
	if err := b.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(b.Stop)
	b.onConnect(client)
	return b, client, leds, bus
}

func waitPublished(t *testing.T, client *mockClient, topic, want string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if got, _ := client.get(topic); got == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	got, _ := client.get(topic)
	t.Fatalf("%s = %q, want %q", topic, got, want)
}

func TestObjectID(t *testing.T) {
	tests := map[string]string{
		"nuc980::led1":  "nuc980_led1",
		"status-led_2":  "status-led_2",
		"board led/red": "board_led_red",
	}
	for name, want := range tests {
		if got := objectID(name); got != want {
			t.Errorf("objectID(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestBridge_AnnouncesOnConnect(t *testing.T) {
	_, client, _, _ := newTestBridge(t)

	if got, _ := client.get("gpioled/availability"); got != PayloadOnline {
		t.Errorf("availability = %q, want online", got)
	}

	raw, ok := client.get("homeassistant/light/nuc980_led1/config")
	if !ok {
		t.Fatal("discovery config not published")
	}
	var cfg lightConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("invalid discovery config: %v", err)
	}
	if cfg.CommandTopic != "gpioled/nuc980_led1/set" || cfg.BrightnessScale != 255 || len(cfg.EffectList) != 4 {
		t.Errorf("discovery config = %+v", cfg)
	}

	if got, _ := client.get("gpioled/nuc980_led1/trigger"); got != "heartbeat" {
		t.Errorf("trigger state = %q, want heartbeat", got)
	}
	if got, _ := client.get("gpioled/nuc980_led1/state"); got != PayloadOn {
		t.Errorf("state = %q, want ON while triggered", got)
	}
}

func TestBridge_Commands(t *testing.T) {
	_, client, leds, _ := newTestBridge(t)

	client.deliver(t, "gpioled/nuc980_led1/set", "OFF")
	client.deliver(t, "gpioled/nuc980_led1/brightness/set", "127")
	client.deliver(t, "gpioled/nuc980_led1/set", "on")
	client.deliver(t, "gpioled/nuc980_led1/trigger/set", "timer")

	// Rejected payloads leave the LED alone
	client.deliver(t, "gpioled/nuc980_led1/set", "maybe")
	client.deliver(t, "gpioled/nuc980_led1/brightness/set", "-4")

	want := []led.Brightness{led.Off, led.Half, led.Full}
	leds.mu.Lock()
	defer leds.mu.Unlock()
	if len(leds.written) != len(want) {
		t.Fatalf("writes = %v, want %v", leds.written, want)
	}
	for i := range want {
		if leds.written[i] != want[i] {
			t.Errorf("write %d = %d, want %d", i, leds.written[i], want[i])
		}
	}
	if leds.dev.Trigger != "timer" {
		t.Errorf("trigger = %q, want timer", leds.dev.Trigger)
	}
}

func TestBridge_PublishesEvents(t *testing.T) {
	_, client, _, bus := newTestBridge(t)

	bus.Publish(events.TriggerChangedEvent{Name: "nuc980::led1", Trigger: "", Previous: "heartbeat"})
	waitPublished(t, client, "gpioled/nuc980_led1/trigger", "none")

	bus.Publish(events.BrightnessChangedEvent{Name: "nuc980::led1", Brightness: 0, Source: ledclass.SourceDirect})
	waitPublished(t, client, "gpioled/nuc980_led1/state", PayloadOff)
	waitPublished(t, client, "gpioled/nuc980_led1/brightness", "0")

	// Trigger writes are not mirrored
	bus.Publish(events.BrightnessChangedEvent{Name: "nuc980::led1", Brightness: 255, Source: "heartbeat"})
	time.Sleep(20 * time.Millisecond)
	if got, _ := client.get("gpioled/nuc980_led1/brightness"); got != "0" {
		t.Errorf("brightness = %q after trigger write, want 0", got)
	}
}

func TestBridge_StopMarksOffline(t *testing.T) {
	b, client, _, _ := newTestBridge(t)

	b.Stop()
	if got, _ := client.get("gpioled/availability"); got != PayloadOffline {
		t.Errorf("availability = %q, want offline", got)
	}
	if client.IsConnected() {
		t.Error("client still connected after Stop()")
	}
}

func TestBridge_ConnectError(t *testing.T) {
	client := &failingClient{mockClient: newMockClient()}
	b := newBridge(client, Options{Broker: "tcp://broker:1883"}, events.New(), &fakeLEDs{}, testLogger())
	if err := b.Start(); err == nil {
		t.Fatal("Start() should fail when the broker refuses the connection")
	}
}

type failingClient struct {
	*mockClient
}

func (f *failingClient) Connect() MQTT.Token {
	return &mockToken{err: errors.New("connection refused")}
}
