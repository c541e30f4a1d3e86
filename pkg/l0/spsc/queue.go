// Package spsc provides a bounded lock-free byte queue for exactly one
// producer and one consumer.
//
// The queue is how received bytes leave interrupt context: the receive
// interrupt owns the Sender, the receive task owns the Receiver. Both
// roles can be taken exactly once, and neither side ever blocks.
package spsc

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
)

// ErrRoleTaken is returned when a Sender or Receiver has already been taken.
var ErrRoleTaken = errors.New("spsc: role already taken")

// Queue is a fixed capacity FIFO of bytes.
//
// head is only stored by the consumer and tail only by the producer. One
// slot is kept free to tell full from empty.
type Queue struct {
	buf  []byte
	head atomic.Uint32
	tail atomic.Uint32

	senderTaken atomic.Bool
	recverTaken atomic.Bool
	dropped     atomic.Uint64
}

// New creates a Queue holding at most capacity bytes.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{buf: make([]byte, capacity+1)}
}

// Cap returns the capacity.
func (q *Queue) Cap() int {
	return len(q.buf) - 1
}

// Len returns the number of buffered bytes. It is exact only when called
// from one of the two roles.
func (q *Queue) Len() int {
	head, tail := int(q.head.Load()), int(q.tail.Load())
	if tail >= head {
		return tail - head
	}
	return len(q.buf) - head + tail
}

// Dropped returns the number of bytes rejected because the queue was full.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// TakeSender hands out the producer role.
func (q *Queue) TakeSender() (*Sender, error) {
	if !q.senderTaken.CompareAndSwap(false, true) {
		return nil, ErrRoleTaken
	}
	return &Sender{q: q}, nil
}

// TakeReceiver hands out the consumer role.
func (q *Queue) TakeReceiver() (*Receiver, error) {
	if !q.recverTaken.CompareAndSwap(false, true) {
		return nil, ErrRoleTaken
	}
	return &Receiver{q: q}, nil
}

func (q *Queue) next(i uint32) uint32 {
	if i++; int(i) == len(q.buf) {
		return 0
	}
	return i
}

// Sender is the producer side of a Queue.
type Sender struct {
	q *Queue
}

// TrySend enqueues b. When the queue is full b is dropped and false is
// returned; bytes already queued are never touched.
func (s *Sender) TrySend(b byte) bool {
	q := s.q
	tail := q.tail.Load()
	next := q.next(tail)
	if next == q.head.Load() {
		q.dropped.Inc()
		return false
	}
	q.buf[tail] = b
	q.tail.Store(next)
	return true
}

// Receiver is the consumer side of a Queue.
type Receiver struct {
	q *Queue
}

// TryRecv dequeues the oldest byte, if any.
func (r *Receiver) TryRecv() (byte, bool) {
	q := r.q
	head := q.head.Load()
	if head == q.tail.Load() {
		return 0, false
	}
	b := q.buf[head]
	q.head.Store(q.next(head))
	return b, true
}
