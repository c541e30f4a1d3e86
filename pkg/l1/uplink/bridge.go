package uplink

import (
	"context"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/golang/glog"
	"go.uber.org/atomic"

	"github.com/robotalks/uartlink/pkg/l0/serial"
)

// DefaultPeerBacklog is the number of upstream packets buffered per peer.
const DefaultPeerBacklog = 16

// Bridge relays payloads between a serial link and any number of peers.
// It is the PayloadHandler of the link.
type Bridge struct {
	Backlog int

	tx      serial.Transmitter
	lock    sync.RWMutex
	peers   map[*peer]struct{}
	dropped atomic.Uint64
}

type peer struct {
	name string
	rw   PacketReadWriteCloser
	out  chan []byte
}

// NewBridge creates a Bridge sending downlink packets on tx.
func NewBridge(tx serial.Transmitter) *Bridge {
	return &Bridge{Backlog: DefaultPeerBacklog, tx: tx, peers: make(map[*peer]struct{})}
}

// Peers returns the number of attached peers.
func (b *Bridge) Peers() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.peers)
}

// Dropped returns the number of upstream packets dropped on slow peers.
func (b *Bridge) Dropped() uint64 {
	return b.dropped.Load()
}

// HandlePayload implements serial.PayloadHandler. It never blocks: a peer
// not keeping up loses packets.
func (b *Bridge) HandlePayload(payload []byte) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	for p := range b.peers {
		select {
		case p.out <- payload:
		default:
			b.dropped.Inc()
			glog.V(2).Infof("uplink %s: backlog full, packet dropped", p.name)
		}
	}
}

// Serve attaches rw until ctx is done or rw fails. Packets read from rw are
// sent on the link. rw is closed before Serve returns, and no packet read
// from it is sent after that.
func (b *Bridge) Serve(ctx context.Context, name string, rw PacketReadWriteCloser) error {
	backlog := b.Backlog
	if backlog <= 0 {
		backlog = DefaultPeerBacklog
	}
	p := &peer{name: name, rw: rw, out: make(chan []byte, backlog)}
	b.lock.Lock()
	b.peers[p] = struct{}{}
	b.lock.Unlock()
	glog.Infof("uplink %s attached", name)
	defer func() {
		b.lock.Lock()
		delete(b.peers, p)
		b.lock.Unlock()
		glog.Infof("uplink %s detached", name)
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	writeErrCh := make(chan error, 1)
	go func() {
		writeErrCh <- p.writeLoop(ctx)
	}()
	readErrCh := make(chan error, 1)
	go func() {
		readErrCh <- b.readLoop(ctx, p)
	}()

	stop := func() {
		cancel()
		rw.Close()
	}
	select {
	case err := <-readErrCh:
		stop()
		<-writeErrCh
		if err != nil && !errors.Is(err, io.EOF) {
			return errors.Wrapf(err, "uplink %s read", name)
		}
		return nil
	case err := <-writeErrCh:
		stop()
		<-readErrCh
		if err != nil && !errors.Is(err, context.Canceled) {
			return errors.Wrapf(err, "uplink %s write", name)
		}
		return nil
	}
}

func (b *Bridge) readLoop(ctx context.Context, p *peer) error {
	for {
		pkt, err := p.rw.ReadPacket()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		if len(pkt) > MaxPacketLen {
			glog.Warningf("uplink %s: packet of %d bytes dropped", p.name, len(pkt))
			continue
		}
		b.tx.Send(pkt)
	}
}

func (p *peer) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case pkt := <-p.out:
			if err := p.rw.WritePacket(pkt); err != nil {
				return err
			}
		}
	}
}
