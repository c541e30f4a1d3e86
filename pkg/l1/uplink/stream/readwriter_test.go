package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/uartlink/pkg/l1/uplink"
)

func TestReadWriter(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.NoError(t, rw.WritePacket([]byte{1, 2, 3}))
	require.NoError(t, rw.WritePacket(nil))
	require.Equal(t, []byte{3, 0, 0, 0, 1, 2, 3, 0, 0, 0, 0}, buf.Bytes())

	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Empty(t, pkt)
	_, err = rw.ReadPacket()
	require.Equal(t, io.EOF, err)
}

func TestReadWriterLimits(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.ErrorIs(t, rw.WritePacket(make([]byte, uplink.MaxPacketLen+1)), uplink.ErrPacketTooLarge)
	require.Zero(t, buf.Len())

	buf.Write([]byte{0, 1, 0, 0})
	_, err := rw.ReadPacket()
	require.ErrorIs(t, err, uplink.ErrPacketTooLarge)
}

func TestReadWriterTruncated(t *testing.T) {
	rw := New(bytes.NewBuffer([]byte{4, 0, 0, 0, 1, 2}))
	_, err := rw.ReadPacket()
	require.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestClose(t *testing.T) {
	require.NoError(t, New(&bytes.Buffer{}).Close())
}
