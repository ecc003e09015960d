//go:build tinygo

package main

import (
	"device/avr"
	"machine"
	"runtime/interrupt"

	"github.com/itohio/plantguard/pkg/guard"
)

// analog drives the converter registers directly so the control loop owns
// the completion wait. machine.InitADC must run first.
type analog struct{}

func (analog) Start(channel uint8) {
	avr.ADMUX.Set(avr.ADMUX_REFS0 | channel&0x0F)
	avr.ADCSRA.SetBits(avr.ADCSRA_ADSC)
}

func (analog) Ready() bool {
	return !avr.ADCSRA.HasBits(avr.ADCSRA_ADSC)
}

func (analog) Result() uint16 {
	// ADCL must be read first; it latches ADCH.
	low := uint16(avr.ADCL.Get())
	high := uint16(avr.ADCH.Get())
	return high<<8 | low
}

// serialPort adds transmit readiness to UART0.
type serialPort struct {
	*machine.UART
}

func (serialPort) TxReady() bool {
	return avr.UCSR0A.HasBits(avr.UCSR0A_UDRE0)
}

// toneTimer is Timer2 in CTC mode with a /64 prescaler.
type toneTimer struct{}

func (toneTimer) SetCompare(c uint32) {
	avr.OCR2A.Set(uint8(c))
}

func configureToneTimer() {
	avr.TCCR2A.Set(avr.TCCR2A_WGM21)
	avr.TCCR2B.Set(avr.TCCR2B_CS22)
	avr.OCR2A.Set(guard.ToneMaxCompare)
	avr.TIMSK2.SetBits(avr.TIMSK2_OCIE2A)

	interrupt.New(avr.IRQ_TIMER2_COMPA, func(interrupt.Interrupt) {
		ctrl.Tone().Tick()
	})
}

// critical runs f with interrupts masked. OCR2A and the tone state must
// change together as seen from the compare interrupt.
func critical(f func()) {
	state := interrupt.Disable()
	f()
	interrupt.Restore(state)
}

// noServo stands in when Timer1 cannot be configured, so the light monitor
// keeps running without a shade.
type noServo struct{}

func (noServo) SetMicroseconds(int16) {}

func configureOutputs(pins ...machine.Pin) {
	for _, p := range pins {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.Low()
	}
}
