//go:build tinygo

package main

import "machine"

const (
	// Indicator LEDs
	PIN_RED    = machine.D10 // PB2
	PIN_YELLOW = machine.D4  // PD4
	PIN_GREEN  = machine.D8  // PB0

	// Heartbeat and shade-open LEDs
	PIN_STATUS = machine.D3  // PD3
	PIN_ACTION = machine.D13 // PB5, on-board LED

	// Buzzer, toggled from the Timer2 compare interrupt
	PIN_BUZZER = machine.D7 // PD7

	// Shade servo, OC1A driven by Timer1
	PIN_SERVO = machine.D9 // PB1

	// The light sensor divider sits on A0, ADC channel guard.SensorChannel.
)
