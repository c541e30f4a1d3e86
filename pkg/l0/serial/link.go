// Package serial implements the application serial line of the L0 firmware.
//
// Bytes arrive in interrupt context through HandleInterrupt and are handed
// to the receive task over a single-producer single-consumer queue. The
// receive task reassembles frames and reports every payload on the
// diagnostic line. Send frames outbound payloads onto the TX register.
package serial

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"

	"github.com/robotalks/uartlink/pkg/framework"
	"github.com/robotalks/uartlink/pkg/l0/frame"
	"github.com/robotalks/uartlink/pkg/l0/hal"
	"github.com/robotalks/uartlink/pkg/l0/logsink"
	"github.com/robotalks/uartlink/pkg/l0/spsc"
)

// LogTarget is the target of lines logged by the receive task.
const LogTarget = "serial"

// DefaultPollInterval is how long the receive task sleeps on an empty queue.
const DefaultPollInterval = 100 * time.Millisecond

// ErrQueueTooSmall is returned when the receive queue cannot hold a full frame.
var ErrQueueTooSmall = errors.New("serial: queue capacity below frame length")

// Config configures a Link. A zero QueueCapacity holds exactly one frame of
// the largest size for HeaderSize.
type Config struct {
	HeaderSize    int
	QueueCapacity int
	PollInterval  time.Duration
}

func (c Config) withDefaults() Config {
	if c.HeaderSize == 0 {
		c.HeaderSize = frame.DefaultHeaderSize
	}
	if c.QueueCapacity == 0 {
		c.QueueCapacity = frame.Len(c.HeaderSize)
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

// PayloadHandler receives every decoded payload. The payload is a copy owned
// by the handler. It is called from the receive task and must not block for
// long.
type PayloadHandler interface {
	HandlePayload(payload []byte)
}

// PayloadHandlerFunc is the func form of PayloadHandler.
type PayloadHandlerFunc func(payload []byte)

// HandlePayload implements PayloadHandler.
func (f PayloadHandlerFunc) HandlePayload(payload []byte) {
	f(payload)
}

// Transmitter sends payloads on the line.
type Transmitter interface {
	Send(payload []byte)
}

// Link is one application serial line.
type Link struct {
	// Handler is optional. Set it before Run.
	Handler PayloadHandler

	conf  Config
	sink  *logsink.Sink
	queue *spsc.Queue

	sender   *spsc.Sender
	receiver *spsc.Receiver
	reader   *frame.Reader
	chunk    []byte
	decoded  frame.Stats

	txLock sync.Mutex
	tx     hal.TxRegister
	writer *frame.Writer

	rxBytes    atomic.Uint64
	framesRecv atomic.Uint64
	framesSent atomic.Uint64
	txErrors   atomic.Uint64
	discarded  atomic.Uint64
	crcErrors  atomic.Uint64
}

// New creates a Link transmitting on tx and logging to sink.
func New(conf Config, tx hal.TxRegister, sink *logsink.Sink) (*Link, error) {
	if tx == nil || sink == nil {
		return nil, errors.New("serial: tx register and sink are required")
	}
	conf = conf.withDefaults()
	reader, err := frame.NewReaderSize(conf.HeaderSize)
	if err != nil {
		return nil, err
	}
	writer, err := frame.NewWriter(conf.HeaderSize)
	if err != nil {
		return nil, err
	}
	frameLen := frame.Len(conf.HeaderSize)
	if conf.QueueCapacity < frameLen {
		return nil, errors.Wrapf(ErrQueueTooSmall, "%d < %d", conf.QueueCapacity, frameLen)
	}
	l := &Link{
		conf:   conf,
		sink:   sink,
		queue:  spsc.New(conf.QueueCapacity),
		reader: reader,
		chunk:  make([]byte, frameLen),
		tx:     tx,
		writer: writer,
	}
	if l.sender, err = l.queue.TakeSender(); err != nil {
		return nil, err
	}
	if l.receiver, err = l.queue.TakeReceiver(); err != nil {
		return nil, err
	}
	return l, nil
}

// HandleInterrupt drains rx into the receive queue. It is the receive
// interrupt handler: it never blocks and silently drops bytes when the
// queue is full.
func (l *Link) HandleInterrupt(rx hal.RxRegister) {
	for {
		b, ok := rx.ReadByte()
		if !ok {
			return
		}
		l.rxBytes.Inc()
		l.sender.TrySend(b)
	}
}

// Run is the receive task. It must be spawned exactly once, and Sleep on
// sleeper is its only suspension point.
func (l *Link) Run(ctx context.Context, sleeper framework.Sleeper) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := l.drain()
		if n == 0 {
			if err := sleeper.Sleep(ctx, l.conf.PollInterval); err != nil {
				return err
			}
			continue
		}
		l.reader.Feed(l.chunk[:n])
		l.checkDesync()
		for l.reader.IsReady() {
			l.dispatch(l.reader.Payload())
			l.reader.Feed(nil)
			l.checkDesync()
		}
	}
}

func (l *Link) drain() int {
	n := 0
	for n < len(l.chunk) {
		b, ok := l.receiver.TryRecv()
		if !ok {
			break
		}
		l.chunk[n] = b
		n++
	}
	return n
}

func (l *Link) dispatch(payload []byte) {
	l.framesRecv.Inc()
	if l.sink.Enabled(logsink.LevelInfo) {
		l.sink.Log(logsink.LevelInfo, LogTarget, "recv: "+FormatBytes(payload))
	}
	if h := l.Handler; h != nil {
		h.HandlePayload(bytes.Clone(payload))
	}
}

func (l *Link) checkDesync() {
	stats := l.reader.Stats()
	discarded := stats.Discarded - l.decoded.Discarded
	crcErrors := stats.CRCErrors - l.decoded.CRCErrors
	if discarded == 0 && crcErrors == 0 {
		return
	}
	l.decoded = stats
	l.discarded.Store(stats.Discarded)
	l.crcErrors.Store(stats.CRCErrors)
	l.sink.Logf(logsink.LevelWarn, LogTarget, "desync: %d bytes discarded, %d crc errors", discarded, crcErrors)
}
