// Package frame implements the frame codec of the L0 serial protocol.
//
// A frame is self-delimited and carries an opaque payload:
//
//	0xA5 0x5A | length (headerSize-2 bytes, big-endian) | payload | CRC16
//
// The CRC is CRC-16/MODBUS over the length field and the payload, sent
// big-endian. Consumers only rely on the Reader state contract: feed
// bytes, wait for Ready, take the payload, feed empty input until the
// Reader no longer reports Ready.
package frame
