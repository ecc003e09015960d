//go:build tinygo

//go:generate tinygo flash -target=arduino

package main

import (
	"context"
	"machine"

	"tinygo.org/x/drivers/servo"

	"github.com/itohio/plantguard/pkg/guard"
)

// ctrl is global so the Timer2 interrupt can reach the tone generator.
var ctrl *guard.Controller

func main() {
	configureOutputs(PIN_RED, PIN_YELLOW, PIN_GREEN, PIN_STATUS, PIN_ACTION, PIN_BUZZER)

	machine.InitADC()

	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: guard.BaudRate,
	})

	var shade guard.Servo = noServo{}
	if s, err := servo.New(machine.Timer1, PIN_SERVO); err != nil {
		println("servo:", err.Error())
	} else {
		shade = s
	}

	ctrl = guard.New(guard.Hardware{
		ADC:       analog{},
		Port:      serialPort{uart},
		Buzzer:    PIN_BUZZER,
		ToneTimer: toneTimer{},
		Servo:     shade,
		Red:       PIN_RED,
		Yellow:    PIN_YELLOW,
		Green:     PIN_GREEN,
		Status:    PIN_STATUS,
		Action:    PIN_ACTION,
	})
	ctrl.Tone().SetCritical(critical)
	ctrl.Watchdog = func(err error) {
		// Shares UART0 with telemetry; the host drops non-numeric lines.
		println("fault:", err.Error())
	}

	configureToneTimer()
	ctrl.Init()
	ctrl.Run(context.Background())
}
