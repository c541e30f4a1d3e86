// Package stream carries packets over a byte stream, e.g. a TCP connection.
package stream

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/robotalks/uartlink/pkg/l1/uplink"
)

// ReadWriter implements PacketReadWriter.
// Each packet is prefixed by 4-byte (little-endian) indicate the length.
type ReadWriter struct {
	io.ReadWriter

	writeLock sync.Mutex
	header    [4]byte
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{ReadWriter: s}
}

// ReadPacket implements PacketReader. An oversized length prefix is an
// error as the stream can not be resynchronized.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var size uint32
	if err := binary.Read(p.ReadWriter, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size > uplink.MaxPacketLen {
		return nil, errors.Wrapf(uplink.ErrPacketTooLarge, "length prefix %d", size)
	}
	pkt := make([]byte, size)
	if _, err := io.ReadFull(p.ReadWriter, pkt); err != nil {
		return nil, err
	}
	return pkt, nil
}

// WritePacket implements PacketWriter. It is safe for concurrent use.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if len(pkt) > uplink.MaxPacketLen {
		return uplink.ErrPacketTooLarge
	}
	p.writeLock.Lock()
	defer p.writeLock.Unlock()
	binary.LittleEndian.PutUint32(p.header[:], uint32(len(pkt)))
	if _, err := p.Write(p.header[:]); err != nil {
		return err
	}
	_, err := p.Write(pkt)
	return err
}

// Close closes the underlying stream if it is an io.Closer.
func (p *ReadWriter) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
