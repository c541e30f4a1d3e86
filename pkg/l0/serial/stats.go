package serial

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Stats is a snapshot of the counters of a Link.
type Stats struct {
	RxBytes        uint64
	RxDropped      uint64
	FramesReceived uint64
	FramesSent     uint64
	TxErrors       uint64
	Discarded      uint64
	CRCErrors      uint64
}

// Stats returns the current counters. It is safe to call from any goroutine.
func (l *Link) Stats() Stats {
	return Stats{
		RxBytes:        l.rxBytes.Load(),
		RxDropped:      l.queue.Dropped(),
		FramesReceived: l.framesRecv.Load(),
		FramesSent:     l.framesSent.Load(),
		TxErrors:       l.txErrors.Load(),
		Discarded:      l.discarded.Load(),
		CRCErrors:      l.crcErrors.Load(),
	}
}

// String implements fmt.Stringer.
func (s Stats) String() string {
	return fmt.Sprintf("rx %d bytes (%d dropped), %d frames in, %d frames out, %d tx errors, %d discarded, %d crc errors",
		s.RxBytes, s.RxDropped, s.FramesReceived, s.FramesSent, s.TxErrors, s.Discarded, s.CRCErrors)
}

// FormatBytes renders p as "[0xDE, 0xAD]".
func FormatBytes(p []byte) string {
	return "[" + strings.Join(lo.Map(p, func(b byte, _ int) string {
		return fmt.Sprintf("0x%02X", b)
	}), ", ") + "]"
}
