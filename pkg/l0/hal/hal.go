// Package hal defines the hardware boundary of the L0 firmware.
//
// The firmware core only talks to registers and pins through the interfaces
// here. Host builds back them with a serial port (see Port), tests with fakes.
package hal

// RxRegister is the receive side of a UART as seen from an interrupt handler.
type RxRegister interface {
	// ReadByte pops the next received byte. It never blocks and returns
	// false once the register is drained.
	ReadByte() (byte, bool)
}

// TxRegister is the transmit side of a UART.
type TxRegister interface {
	// WriteByte blocks until the hardware accepts the byte.
	WriteByte(b byte) error
}

// Pin is a digital output.
type Pin interface {
	High()
	Low()
}

// InterruptHandler is invoked in interrupt context whenever new bytes arrive.
// It must not block, log or allocate.
type InterruptHandler func(RxRegister)

// BytesRx is an RxRegister over an in-memory chunk of received bytes.
type BytesRx struct {
	data []byte
}

// NewBytesRx creates a register holding p.
func NewBytesRx(p []byte) *BytesRx {
	return &BytesRx{data: p}
}

// Load replaces the register content.
func (r *BytesRx) Load(p []byte) {
	r.data = p
}

// Len returns the number of bytes not yet read.
func (r *BytesRx) Len() int {
	return len(r.data)
}

// ReadByte implements RxRegister.
func (r *BytesRx) ReadByte() (byte, bool) {
	if len(r.data) == 0 {
		return 0, false
	}
	b := r.data[0]
	r.data = r.data[1:]
	return b, true
}
