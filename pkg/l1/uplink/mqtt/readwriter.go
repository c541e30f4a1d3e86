package mqtt

import (
	"context"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/denisbrodbeck/machineid"

	"github.com/robotalks/uartlink/pkg/l1/uplink"
)

// Topic suffixes relative to the device.
const (
	// RxSuffix carries payloads received from the device line.
	RxSuffix = "/rx"
	// TxSuffix carries payloads to be sent on the device line.
	TxSuffix = "/tx"
)

// DeviceID returns an ID identifying this machine with the app id mixed in,
// so the raw machine id never leaves the host.
func DeviceID() (string, error) {
	id, err := machineid.ProtectedID("uartlink")
	if err != nil {
		return "", errors.Wrap(err, "machine id")
	}
	return id[:16], nil
}

// ReadWriter implements PacketReadWriter.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{Queue: q, packetCh: make(chan []byte, uplink.DefaultPeerBacklog), done: make(chan struct{})}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForDevice sets topics for the daemon owning the line of device:
// SubTopic = device/tx
// PubTopic = device/rx
func (p *ReadWriter) ForDevice(device string) *ReadWriter {
	return p.WithTopics(device+TxSuffix, device+RxSuffix)
}

// ForMonitor sets topics for a remote peer of device:
// SubTopic = device/rx
// PubTopic = device/tx
func (p *ReadWriter) ForMonitor(device string) *ReadWriter {
	return p.WithTopics(device+RxSuffix, device+TxSuffix)
}

// ReadPacket implements PacketReader. It returns io.EOF once closed.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.done:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Run subscribes SubTopic until ctx is done, then closes the ReadWriter.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(p.SubTopic, Handler(p.handleMsg))
	defer sub.Close()
	defer p.Close()
	sub.Token.Wait()
	if err := sub.Token.Error(); err != nil {
		return errors.Wrapf(err, "subscribe %s", p.SubTopic)
	}
	<-ctx.Done()
	return ctx.Err()
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.done:
	}
}
