// Package blink provides the liveness task of the board.
package blink

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/robotalks/uartlink/pkg/framework"
	"github.com/robotalks/uartlink/pkg/l0/hal"
	"github.com/robotalks/uartlink/pkg/l0/serial"
)

// DefaultHalfPeriod is the time the LED spends in each level.
const DefaultHalfPeriod = 500 * time.Millisecond

// Blinker toggles a pin and sends a running counter after every period.
type Blinker struct {
	HalfPeriod time.Duration

	pin     hal.Pin
	tx      serial.Transmitter
	counter uint32
}

// New creates a Blinker.
func New(pin hal.Pin, tx serial.Transmitter) *Blinker {
	return &Blinker{HalfPeriod: DefaultHalfPeriod, pin: pin, tx: tx}
}

// Counter returns the value sent next.
func (b *Blinker) Counter() uint32 {
	return b.counter
}

// Run is the blink task. Each period the pin goes high then low, then the
// counter is sent as 4 big-endian bytes; the counter wraps around.
func (b *Blinker) Run(ctx context.Context, sleeper framework.Sleeper) error {
	var msg [4]byte
	for {
		if err := sleeper.Sleep(ctx, b.HalfPeriod); err != nil {
			return err
		}
		b.pin.High()
		if err := sleeper.Sleep(ctx, b.HalfPeriod); err != nil {
			return err
		}
		b.pin.Low()
		binary.BigEndian.PutUint32(msg[:], b.counter)
		b.tx.Send(msg[:])
		b.counter++
	}
}
