package sh

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/robotalks/uartlink/pkg/l0/frame"
)

// ParsePayload parses hex arguments like "dead", "0xBE EF" or "de:ad".
func ParsePayload(args []string) ([]byte, error) {
	var payload []byte
	for _, arg := range args {
		for _, item := range lo.Compact(strings.Split(arg, ":")) {
			item = strings.TrimPrefix(strings.TrimPrefix(item, "0x"), "0X")
			if len(item)%2 != 0 {
				item = "0" + item
			}
			b, err := hex.DecodeString(item)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid hex %q", arg)
			}
			payload = append(payload, b...)
		}
	}
	if len(payload) > frame.MaxPayloadLen {
		return nil, frame.ErrPayloadTooLarge
	}
	return payload, nil
}

// ParseU32 parses a number as the 4-byte big-endian payload sent by the
// blink task.
func ParseU32(arg string) ([]byte, error) {
	n, err := strconv.ParseUint(arg, 0, 32)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid number %q", arg)
	}
	return binary.BigEndian.AppendUint32(nil, uint32(n)), nil
}
