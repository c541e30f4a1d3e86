// Package logsink owns the diagnostic serial line.
//
// A Sink is created once during board initialization and passed to every
// component that logs. Lines are written synchronously, byte by byte, under
// a single lock. The sink must never be used from interrupt context.
package logsink

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/robotalks/uartlink/pkg/l0/hal"
)

// Halter stops the system for good. Production halters never return.
type Halter func()

// HaltForever parks the calling goroutine forever. The sink itself stays
// silent once halted.
func HaltForever() {
	select {}
}

// FaultTarget is the target used for fault lines.
const FaultTarget = "fault"

// Sink writes formatted lines to the diagnostic line.
type Sink struct {
	halt Halter

	once    sync.Once
	started atomic.Bool
	filter  atomic.Int32

	lock sync.Mutex
	dev  hal.TxRegister
	line []byte

	faulted atomic.Bool
	halted  atomic.Bool
}

// New creates an unstarted Sink. A nil halt means HaltForever.
func New(halt Halter) *Sink {
	if halt == nil {
		halt = HaltForever
	}
	s := &Sink{halt: halt, line: make([]byte, 0, 256)}
	s.filter.Store(int32(LevelOff))
	return s
}

// Start attaches the device and the level filter. Only the first call has
// any effect; it returns false for every later call.
func (s *Sink) Start(dev hal.TxRegister, filter Level) bool {
	first := false
	s.once.Do(func() {
		s.lock.Lock()
		s.dev = dev
		s.lock.Unlock()
		s.filter.Store(int32(filter))
		s.started.Store(true)
		first = true
	})
	return first
}

// Enabled reports whether lines at level are written.
func (s *Sink) Enabled(level Level) bool {
	return s.started.Load() && !s.halted.Load() && level < LevelOff && int32(level) >= s.filter.Load()
}

// Log writes "<LEVEL> [<TARGET>] <MESSAGE>\r\n". A failing write is fatal.
func (s *Sink) Log(level Level, target, message string) {
	if !s.Enabled(level) {
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.line = appendLine(s.line[:0], level, target, message)
	if err := s.writeLocked(s.line); err != nil {
		s.faultLocked(fmt.Sprintf("write diagnostic line: %v", err))
	}
}

// Logf formats message with fmt.Sprintf.
func (s *Sink) Logf(level Level, target, format string, args ...interface{}) {
	if !s.Enabled(level) {
		return
	}
	s.Log(level, target, fmt.Sprintf(format, args...))
}

// Fault is the terminal error path: it makes one best-effort attempt to log
// err and halts. It does not wait for the lock, so a fault raised while a
// line is being written halts without logging.
func (s *Sink) Fault(err error) {
	desc := "unknown fault"
	if err != nil {
		desc = err.Error()
	}
	if s.lock.TryLock() {
		s.faultLocked(desc)
		s.lock.Unlock()
		return
	}
	s.haltCaller()
}

// Halted reports whether the sink has halted the system.
func (s *Sink) Halted() bool {
	return s.halted.Load()
}

func (s *Sink) faultLocked(desc string) {
	if s.faulted.CompareAndSwap(false, true) && s.dev != nil {
		s.line = appendLine(s.line[:0], LevelError, FaultTarget, desc)
		_ = s.writeLocked(s.line)
	}
	s.haltCaller()
}

func (s *Sink) haltCaller() {
	s.halted.Store(true)
	s.halt()
}

func (s *Sink) writeLocked(p []byte) error {
	for _, b := range p {
		if err := s.dev.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

func appendLine(dst []byte, level Level, target, message string) []byte {
	dst = append(dst, level.String()...)
	dst = append(dst, " ["...)
	dst = append(dst, target...)
	dst = append(dst, "] "...)
	dst = append(dst, message...)
	return append(dst, "\r\n"...)
}
