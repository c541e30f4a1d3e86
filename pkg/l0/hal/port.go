package hal

import (
	"context"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tarm/serial"
)

// WriterTx implements TxRegister over an io.Writer.
type WriterTx struct {
	w   io.Writer
	buf [1]byte
}

// NewWriterTx wraps w.
func NewWriterTx(w io.Writer) *WriterTx {
	return &WriterTx{w: w}
}

// WriteByte implements TxRegister. Short writes are retried until the
// byte is accepted.
func (t *WriterTx) WriteByte(b byte) error {
	t.buf[0] = b
	for {
		n, err := t.w.Write(t.buf[:])
		if err != nil {
			return err
		}
		if n == 1 {
			return nil
		}
	}
}

// Port is a duplex serial line. Received bytes are delivered in chunks to an
// InterruptHandler from the goroutine calling Run, which plays the role of
// the receive interrupt.
type Port struct {
	WriterTx

	r         io.Reader
	closer    io.Closer
	eofIsIdle bool
	rx        BytesRx
	buf       [64]byte
}

// SerialConfig configures a physical serial port. Framing is always 8N1.
type SerialConfig struct {
	Name        string
	Baud        int
	ReadTimeout time.Duration
}

// DefaultBaud is the baud rate of both firmware lines.
const DefaultBaud = 115200

// NewPort creates a Port over rw. rw is closed by Close if it is an io.Closer.
func NewPort(rw io.ReadWriter) *Port {
	p := &Port{WriterTx: WriterTx{w: rw}, r: rw}
	p.closer, _ = rw.(io.Closer)
	return p
}

// OpenSerial opens a serial device.
func OpenSerial(conf SerialConfig) (*Port, error) {
	if conf.Baud == 0 {
		conf.Baud = DefaultBaud
	}
	if conf.ReadTimeout == 0 {
		conf.ReadTimeout = 100 * time.Millisecond
	}
	s, err := serial.OpenPort(&serial.Config{
		Name:        conf.Name,
		Baud:        conf.Baud,
		ReadTimeout: conf.ReadTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open serial %s", conf.Name)
	}
	p := NewPort(s)
	// read timeouts surface as io.EOF on posix ports.
	p.eofIsIdle = true
	return p, nil
}

// Run pumps received bytes into handler until ctx is done or the line fails.
// Only one Run may be active per Port.
func (p *Port) Run(ctx context.Context, handler InterruptHandler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := p.r.Read(p.buf[:])
		if n > 0 {
			p.rx.Load(p.buf[:n])
			handler(&p.rx)
		}
		if err != nil {
			if err == io.EOF && p.eofIsIdle {
				continue
			}
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, "serial read")
		}
	}
}

// Close implements io.Closer.
func (p *Port) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}
