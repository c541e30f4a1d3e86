// Package websocket carries packets as binary websocket messages.
package websocket

import (
	"net/http"

	"golang.org/x/net/websocket"

	"github.com/robotalks/uartlink/pkg/l1/uplink"
)

// ReadWriter implements PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// Dial connects to a websocket endpoint.
func Dial(url, origin string) (*ReadWriter, error) {
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// Handler serves each websocket connection with fn. The connection is
// closed once fn returns.
func Handler(fn func(*ReadWriter)) http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		fn(New(conn))
	})
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if len(pkt) > uplink.MaxPacketLen {
		return uplink.ErrPacketTooLarge
	}
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}
