package frame

import (
	"github.com/cockroachdb/errors"
	"github.com/sigurn/crc16"
)

const (
	// FrameLen is the largest frame produced with the default header.
	FrameLen = 256
	// DefaultHeaderSize covers the sync word and a 2-byte length.
	DefaultHeaderSize = 4
	// MinHeaderSize leaves a 1-byte length field.
	MinHeaderSize = 3
	// MaxHeaderSize leaves a 4-byte length field.
	MaxHeaderSize = 6
	// TrailerSize is the CRC size.
	TrailerSize = 2
	// MaxPayloadLen is the largest payload accepted by the codec.
	MaxPayloadLen = FrameLen - DefaultHeaderSize - TrailerSize
)

var (
	// ErrPayloadTooLarge is returned when a payload exceeds MaxPayloadLen.
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	// ErrInvalidHeaderSize is returned for header sizes outside
	// [MinHeaderSize, MaxHeaderSize].
	ErrInvalidHeaderSize = errors.New("frame: invalid header size")
)

var (
	syncWord = [2]byte{0xa5, 0x5a}
	crcTable = crc16.MakeTable(crc16.CRC16_MODBUS)
)

func checksum(p []byte) uint16 {
	return crc16.Checksum(p, crcTable)
}

func checkHeaderSize(size int) error {
	if size < MinHeaderSize || size > MaxHeaderSize {
		return errors.Wrapf(ErrInvalidHeaderSize, "%d", size)
	}
	return nil
}

func putLength(dst []byte, n int) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte(n)
		n >>= 8
	}
}

func readLength(src []byte) uint64 {
	var n uint64
	for _, b := range src {
		n = n<<8 | uint64(b)
	}
	return n
}

// Len returns the largest frame length for the given header size.
func Len(headerSize int) int {
	return headerSize + MaxPayloadLen + TrailerSize
}
