// Package board performs the init phase of the L0 firmware.
//
// It brings up the diagnostic line first, then the executor, the
// application link and the blink task. Every later failure is reported
// through the diagnostic line.
package board

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/golang/glog"

	"github.com/robotalks/uartlink/pkg/framework"
	"github.com/robotalks/uartlink/pkg/l0/blink"
	"github.com/robotalks/uartlink/pkg/l0/hal"
	"github.com/robotalks/uartlink/pkg/l0/logsink"
	"github.com/robotalks/uartlink/pkg/l0/serial"
)

// LogTarget is the target of lines logged during init.
const LogTarget = "board"

// Devices are the peripherals the board drives.
type Devices struct {
	Diag hal.TxRegister
	App  hal.TxRegister
	LED  hal.Pin
}

// Board is an initialized firmware instance.
type Board struct {
	Sink    *logsink.Sink
	Exec    *framework.Executor
	Link    *serial.Link
	Blinker *blink.Blinker
}

// New runs the init phase. A nil halt means logsink.HaltForever.
func New(conf *Config, devs Devices, halt logsink.Halter) (*Board, error) {
	if devs.Diag == nil || devs.App == nil || devs.LED == nil {
		return nil, errors.New("board: diag, app and led devices are required")
	}
	level, err := logsink.ParseLevel(conf.LogLevel)
	if err != nil {
		return nil, err
	}
	b := &Board{Sink: logsink.New(halt), Exec: framework.NewExecutor()}
	b.Sink.Start(devs.Diag, level)
	b.Sink.Log(logsink.LevelInfo, LogTarget, "start.")

	b.Exec.TickPeriod = conf.TickPeriod
	b.Exec.OnFault = b.Sink.Fault
	if b.Link, err = serial.New(conf.linkConfig(), devs.App, b.Sink); err != nil {
		err = errors.Wrap(err, "serial link")
		b.Sink.Log(logsink.LevelError, LogTarget, err.Error())
		return nil, err
	}
	b.Blinker = blink.New(devs.LED, b.Link)
	if conf.BlinkHalfPeriod > 0 {
		b.Blinker.HalfPeriod = conf.BlinkHalfPeriod
	}
	return b, nil
}

// NewBoard creates a Board using the config.
func (c *Config) NewBoard(devs Devices, halt logsink.Halter) (*Board, error) {
	return New(c, devs, halt)
}

// HandleInterrupt is the receive interrupt of the application line.
func (b *Board) HandleInterrupt(rx hal.RxRegister) {
	b.Link.HandleInterrupt(rx)
}

// Send transmits payload on the application line.
func (b *Board) Send(payload []byte) {
	b.Link.Send(payload)
}

// Start spawns the receive and blink tasks without driving time.
func (b *Board) Start(ctx context.Context) {
	b.Exec.Spawn(ctx, "serial", func(ctx context.Context) error {
		return b.Link.Run(ctx, b.Exec)
	})
	b.Exec.Spawn(ctx, "blink", func(ctx context.Context) error {
		return b.Blinker.Run(ctx, b.Exec)
	})
}

// Run starts the tasks and drives the timer until ctx is done.
func (b *Board) Run(ctx context.Context) error {
	b.Start(ctx)
	err := b.Exec.Run(ctx)
	b.Exec.Wait()
	glog.V(1).Infof("board stopped: %v", err)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
