package sh

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/golang/glog"

	"github.com/robotalks/uartlink/pkg/framework"
	"github.com/robotalks/uartlink/pkg/l0/hal"
	"github.com/robotalks/uartlink/pkg/l0/logsink"
	"github.com/robotalks/uartlink/pkg/l0/serial"
)

// Session is an open line. Received frames are reported on out as
// diagnostic lines.
type Session struct {
	Name string

	port   *hal.Port
	link   *serial.Link
	exec   *framework.Executor
	cancel context.CancelFunc
	pumpCh chan error
}

// OpenSession opens the serial port name.
func OpenSession(conf *Config, name string, out io.Writer) (*Session, error) {
	port, err := hal.OpenSerial(conf.serialConfig(name))
	if err != nil {
		return nil, err
	}
	s, err := NewSession(conf, name, port, out)
	if err != nil {
		port.Close()
		return nil, err
	}
	return s, nil
}

// NewSession runs a session over port.
func NewSession(conf *Config, name string, port *hal.Port, out io.Writer) (*Session, error) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := logsink.New(logsink.Halter(cancel))
	sink.Start(hal.NewWriterTx(out), logsink.LevelTrace)
	link, err := serial.New(serial.Config{HeaderSize: conf.HeaderSize}, port, sink)
	if err != nil {
		cancel()
		return nil, err
	}
	s := &Session{
		Name:   name,
		port:   port,
		link:   link,
		exec:   framework.NewExecutor(),
		cancel: cancel,
		pumpCh: make(chan error, 1),
	}
	s.exec.OnFault = sink.Fault
	s.exec.Spawn(ctx, "serial", func(ctx context.Context) error {
		return link.Run(ctx, s.exec)
	})
	go s.exec.Run(ctx)
	go func() {
		err := port.Run(ctx, link.HandleInterrupt)
		if err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
			glog.Errorf("%s: %v", name, err)
		}
		s.pumpCh <- err
	}()
	return s, nil
}

// Send sends payload as one frame.
func (s *Session) Send(payload []byte) {
	s.link.Send(payload)
}

// Stats returns the line counters.
func (s *Session) Stats() serial.Stats {
	return s.link.Stats()
}

// Close stops the session and closes the port.
func (s *Session) Close() error {
	s.cancel()
	err := s.port.Close()
	<-s.pumpCh
	s.exec.Wait()
	return err
}
