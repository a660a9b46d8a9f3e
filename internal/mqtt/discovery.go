package mqtt

import (
	"encoding/json"
	"regexp"
)

var unsafeID = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// objectID turns an LED name into a topic level and Home Assistant object id.
func objectID(name string) string {
	return unsafeID.ReplaceAllString(name, "_")
}

// Payloads of the state and command topics.
const (
	PayloadOn      = "ON"
	PayloadOff     = "OFF"
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// Topics of one LED.
type Topics struct {
	State             string
	Command           string
	BrightnessState   string
	BrightnessCommand string
	TriggerState      string
	TriggerCommand    string
	Discovery         string
}

// topicsFor lays out the topics of the named LED under prefix.
func topicsFor(prefix, discoveryPrefix, name string) Topics {
	id := objectID(name)
	base := prefix + "/" + id
	return Topics{
		State:             base + "/state",
		Command:           base + "/set",
		BrightnessState:   base + "/brightness",
		BrightnessCommand: base + "/brightness/set",
		TriggerState:      base + "/trigger",
		TriggerCommand:    base + "/trigger/set",
		Discovery:         discoveryPrefix + "/light/" + id + "/config",
	}
}

type availability struct {
	Topic               string `json:"topic"`
	PayloadAvailable    string `json:"payload_available"`
	PayloadNotAvailable string `json:"payload_not_available"`
}

type deviceSpec struct {
	Name         string   `json:"name"`
	Identifiers  []string `json:"ids"`
	Manufacturer string   `json:"mf,omitempty"`
	SWVersion    string   `json:"sw,omitempty"`
}

// lightConfig is the Home Assistant MQTT light discovery payload. Triggers
// are offered as effects.
type lightConfig struct {
	Name                   string         `json:"name"`
	UniqueID               string         `json:"uniq_id"`
	Availability           []availability `json:"availability"`
	Device                 deviceSpec     `json:"device"`
	StateTopic             string         `json:"state_topic"`
	CommandTopic           string         `json:"command_topic"`
	BrightnessStateTopic   string         `json:"brightness_state_topic"`
	BrightnessCommandTopic string         `json:"brightness_command_topic"`
	BrightnessScale        int            `json:"brightness_scale"`
	EffectStateTopic       string         `json:"effect_state_topic"`
	EffectCommandTopic     string         `json:"effect_command_topic"`
	EffectList             []string       `json:"effect_list"`
	PayloadOn              string         `json:"payload_on"`
	PayloadOff             string         `json:"payload_off"`
	Qos                    int            `json:"qos"`
}

func (c lightConfig) Marshal() ([]byte, error) {
	return json.Marshal(c)
}
