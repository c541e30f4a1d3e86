package frame

import (
	"bytes"
	"encoding/binary"
)

// State is the readiness of a Reader.
type State int

const (
	// StateCollecting waits for more input. A partial frame may be buffered.
	StateCollecting State = iota
	// StateReady has a completed frame payload available.
	StateReady
	// StateFinished means the last frame is fully resolved and no other
	// frame remains in the buffered input.
	StateFinished
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateReady:
		return "ready"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}

// Stats counts decoder events since creation.
type Stats struct {
	Frames    uint64
	CRCErrors uint64
	// Discarded counts bytes skipped while looking for a valid frame.
	Discarded uint64
}

const maxPending = 2 * (MaxHeaderSize + MaxPayloadLen + TrailerSize)

// Reader reassembles frames from a byte stream. It is owned by a single
// consumer and never shared.
type Reader struct {
	headerSize int
	state      State
	pending    []byte
	payload    []byte
	stats      Stats
}

// NewReader creates a Reader for frames with the default header size.
func NewReader() *Reader {
	r, _ := NewReaderSize(DefaultHeaderSize)
	return r
}

// NewReaderSize creates a Reader for frames with the given header size.
func NewReaderSize(headerSize int) (*Reader, error) {
	if err := checkHeaderSize(headerSize); err != nil {
		return nil, err
	}
	return &Reader{
		headerSize: headerSize,
		pending:    make([]byte, 0, maxPending),
		payload:    make([]byte, 0, MaxPayloadLen),
	}, nil
}

// Feed appends p to the buffered input and extracts at most one frame.
// Feed(nil) resolves frames still buffered from earlier input.
func (r *Reader) Feed(p []byte) {
	if len(p) > 0 {
		r.append(p)
	}
	prev := r.state
	switch {
	case r.extract():
		r.state = StateReady
	case prev == StateReady:
		r.state = StateFinished
	default:
		r.state = StateCollecting
	}
}

// State returns the current state.
func (r *Reader) State() State {
	return r.state
}

// IsReady reports whether a payload is available.
func (r *Reader) IsReady() bool {
	return r.state == StateReady
}

// IsFinish reports whether feeding empty input can make no further progress.
func (r *Reader) IsFinish() bool {
	return r.state != StateReady
}

// Payload returns the completed payload while Ready, nil otherwise.
// The slice is owned by the Reader and valid until the next Feed.
func (r *Reader) Payload() []byte {
	if r.state != StateReady {
		return nil
	}
	return r.payload
}

// Buffered returns the number of input bytes not yet resolved.
func (r *Reader) Buffered() int {
	return len(r.pending)
}

// Stats returns the counters.
func (r *Reader) Stats() Stats {
	return r.stats
}

// Reset drops buffered input and returns to StateCollecting.
func (r *Reader) Reset() {
	r.pending = r.pending[:0]
	r.payload = r.payload[:0]
	r.state = StateCollecting
}

func (r *Reader) append(p []byte) {
	if len(p) >= maxPending {
		r.discard(len(r.pending))
		drop := len(p) - maxPending
		r.stats.Discarded += uint64(drop)
		p = p[drop:]
	} else if over := len(r.pending) + len(p) - maxPending; over > 0 {
		r.discard(over)
	}
	r.pending = append(r.pending, p...)
}

func (r *Reader) extract() bool {
	for {
		i := bytes.Index(r.pending, syncWord[:])
		if i < 0 {
			// a trailing first sync byte may start the next frame.
			keep := 0
			if n := len(r.pending); n > 0 && r.pending[n-1] == syncWord[0] {
				keep = 1
			}
			r.discard(len(r.pending) - keep)
			return false
		}
		r.discard(i)
		if len(r.pending) < r.headerSize {
			return false
		}
		n := readLength(r.pending[len(syncWord):r.headerSize])
		if n > MaxPayloadLen {
			r.discard(1)
			continue
		}
		end := r.headerSize + int(n)
		if len(r.pending) < end+TrailerSize {
			return false
		}
		if checksum(r.pending[len(syncWord):end]) != binary.BigEndian.Uint16(r.pending[end:]) {
			r.stats.CRCErrors++
			r.discard(1)
			continue
		}
		r.payload = append(r.payload[:0], r.pending[r.headerSize:end]...)
		r.consume(end + TrailerSize)
		r.stats.Frames++
		return true
	}
}

func (r *Reader) discard(n int) {
	if n <= 0 {
		return
	}
	r.stats.Discarded += uint64(n)
	r.consume(n)
}

func (r *Reader) consume(n int) {
	r.pending = r.pending[:copy(r.pending, r.pending[n:])]
}
