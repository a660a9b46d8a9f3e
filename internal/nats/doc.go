// Package nats publishes LED state on NATS and accepts brightness and trigger
// commands from other processes on the board.
//
// # Architecture
//
//   - Server: optional embedded NATS server (nats.embedded = true)
//   - Bridge: forwards event bus changes to NATS and applies control requests
//   - ControlClient: request-reply client used by `gpioled set`
//
// # Subject Hierarchy
//
//	gpioled.leds.{led}.state   # registration, trigger and brightness changes
//	gpioled.control.{led}      # set_brightness / set_trigger requests
//
// LED names are used as subject tokens with '.', '*', '>' and whitespace
// replaced by '_', so nuc980::led1 stays nuc980::led1.
//
// State messages are fire-and-forget (core NATS, no JetStream). Control
// requests get a reply with ok and error fields when the sender asked for one.
//
// # Debugging with nats CLI
//
// Follow every state change:
//
//	nats sub "gpioled.leds.>"
//
// Switch the LED off:
//
//	nats req "gpioled.control.nuc980::led1" '{"action":"set_brightness","name":"nuc980::led1","brightness":0}'
//
// Hand it back to the heartbeat trigger:
//
//	nats req "gpioled.control.nuc980::led1" '{"action":"set_trigger","name":"nuc980::led1","trigger":"heartbeat"}'
package nats
