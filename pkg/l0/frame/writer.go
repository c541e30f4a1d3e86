package frame

import "encoding/binary"

// Writer builds frames. The returned frame lives in a buffer owned by the
// Writer, so a Writer must not be shared without external locking.
type Writer struct {
	headerSize int
	buf        []byte
}

// NewWriter creates a Writer with the given header size.
func NewWriter(headerSize int) (*Writer, error) {
	if err := checkHeaderSize(headerSize); err != nil {
		return nil, err
	}
	return &Writer{
		headerSize: headerSize,
		buf:        make([]byte, headerSize+MaxPayloadLen+TrailerSize),
	}, nil
}

// HeaderSize returns the configured header size.
func (w *Writer) HeaderSize() int {
	return w.headerSize
}

// Frame wraps payload into one frame. The result is valid until the next call.
func (w *Writer) Frame(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLen {
		return nil, ErrPayloadTooLarge
	}
	end := w.headerSize + len(payload)
	b := w.buf[:end+TrailerSize]
	b[0], b[1] = syncWord[0], syncWord[1]
	putLength(b[len(syncWord):w.headerSize], len(payload))
	copy(b[w.headerSize:], payload)
	binary.BigEndian.PutUint16(b[end:], checksum(b[len(syncWord):end]))
	return b, nil
}
