package events

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan BrightnessChangedEvent, 1)

	unsub := bus.Subscribe(func(e BrightnessChangedEvent) {
		received <- e
	})
	defer unsub()

	ev := BrightnessChangedEvent{
		Name:       "nuc980::led1",
		Brightness: 255,
		Source:     "heartbeat",
		Timestamp:  "2025-01-27T10:30:00Z",
	}
	bus.Publish(ev)

	select {
	case got := <-received:
		if got != ev {
			t.Errorf("received %+v, want %+v", got, ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := New()
	received1 := make(chan LEDRegisteredEvent, 1)
	received2 := make(chan LEDRegisteredEvent, 1)

	unsub1 := bus.Subscribe(func(e LEDRegisteredEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e LEDRegisteredEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(LEDRegisteredEvent{Name: "nuc980::led1", Trigger: "heartbeat"})

	for i, ch := range []chan LEDRegisteredEvent{received1, received2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive event", i+1)
		}
	}
}

func TestBus_TypedDelivery(t *testing.T) {
	bus := New()
	triggers := make(chan TriggerChangedEvent, 1)

	unsub := bus.Subscribe(func(e TriggerChangedEvent) {
		triggers <- e
	})
	defer unsub()

	// An event of another type must not reach the trigger handler
	bus.Publish(LEDUnregisteredEvent{Name: "nuc980::led1"})

	select {
	case e := <-triggers:
		t.Fatalf("unexpected trigger event %+v", e)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan LEDUnregisteredEvent, 1)

	unsub := bus.Subscribe(func(e LEDUnregisteredEvent) {
		received <- e
	})

	bus.Publish(LEDUnregisteredEvent{Name: "a"})
	<-received

	unsub()

	bus.Publish(LEDUnregisteredEvent{Name: "b"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_UnknownHandler(t *testing.T) {
	bus := New()

	unsub := bus.Subscribe(func(string) {})
	if unsub == nil {
		t.Fatal("Subscribe() with unknown handler returned nil")
	}
	unsub()
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)

	unsub := SubscribeToChannel[TriggerChangedEvent](bus, ch)
	defer unsub()

	bus.Publish(TriggerChangedEvent{Name: "nuc980::led1", Trigger: "timer", Previous: "heartbeat"})

	select {
	case got := <-ch:
		e, ok := got.(TriggerChangedEvent)
		if !ok {
			t.Fatalf("received %T, want TriggerChangedEvent", got)
		}
		if e.Trigger != "timer" {
			t.Errorf("Trigger = %q, want timer", e.Trigger)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}
