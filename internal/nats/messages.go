package nats

import (
	"encoding/json"
	"strings"
)

// Subject prefixes for NATS topics.
const (
	SubjectLEDsPrefix    = "gpioled.leds"
	SubjectControlPrefix = "gpioled.control"
)

// Control actions.
const (
	ActionSetBrightness = "set_brightness"
	ActionSetTrigger    = "set_trigger"
)

// State message kinds.
const (
	KindRegistered   = "registered"
	KindUnregistered = "unregistered"
	KindTrigger      = "trigger"
	KindBrightness   = "brightness"
)

var tokenReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_", "\t", "_")

// subjectToken makes an LED name usable as a single subject token.
func subjectToken(name string) string {
	return tokenReplacer.Replace(name)
}

// SubjectLEDState returns the subject state changes of an LED are published on.
func SubjectLEDState(name string) string {
	return SubjectLEDsPrefix + "." + subjectToken(name) + ".state"
}

// SubjectLEDControl returns the subject control requests for an LED are sent to.
func SubjectLEDControl(name string) string {
	return SubjectControlPrefix + "." + subjectToken(name)
}

// StateMessage reports a change to one LED.
type StateMessage struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"` // registered, unregistered, trigger, brightness
	Trigger    string `json:"trigger,omitempty"`
	Brightness *int   `json:"brightness,omitempty"`
	Source     string `json:"source,omitempty"` // trigger that wrote the brightness, or direct
	Timestamp  string `json:"timestamp"`
}

// Marshal serializes the message to JSON.
func (m StateMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ControlMessage asks the service to change an LED.
type ControlMessage struct {
	Action     string `json:"action"` // set_brightness, set_trigger
	Name       string `json:"name"`
	Brightness int    `json:"brightness,omitempty"`
	Trigger    string `json:"trigger,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// Marshal serializes the message to JSON.
func (m ControlMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ReplyMessage answers a control request.
type ReplyMessage struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Marshal serializes the message to JSON.
func (m ReplyMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalState deserializes a StateMessage from JSON.
func UnmarshalState(data []byte) (StateMessage, error) {
	var m StateMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalControl deserializes a ControlMessage from JSON.
func UnmarshalControl(data []byte) (ControlMessage, error) {
	var m ControlMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalReply deserializes a ReplyMessage from JSON.
func UnmarshalReply(data []byte) (ReplyMessage, error) {
	var m ReplyMessage
	err := json.Unmarshal(data, &m)
	return m, err
}
