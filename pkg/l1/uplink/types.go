// Package uplink relays frame payloads between the application serial
// line and higher layer peers.
//
// Peers are packet based: each payload received on the line becomes one
// packet to every attached peer, and each packet read from a peer is sent
// on the line as one frame.
package uplink

import (
	"io"

	"github.com/cockroachdb/errors"

	"github.com/robotalks/uartlink/pkg/l0/frame"
)

// MaxPacketLen is the largest packet relayed in either direction.
const MaxPacketLen = frame.MaxPayloadLen

// ErrPacketTooLarge is returned for packets above MaxPacketLen.
var ErrPacketTooLarge = errors.New("uplink: packet too large")

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// PacketReadWriteCloser is a PacketReadWriter whose Close unblocks a
// pending ReadPacket.
type PacketReadWriteCloser interface {
	PacketReadWriter
	io.Closer
}
