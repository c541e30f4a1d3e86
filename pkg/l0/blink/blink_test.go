package blink

import (
	"bytes"
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/uartlink/pkg/framework"
	"github.com/robotalks/uartlink/pkg/l0/hal"
)

type edge struct {
	at    uint64
	level bool
}

type sent struct {
	at      uint64
	payload []byte
}

type recorder struct {
	exec  *framework.Executor
	lock  sync.Mutex
	edges []edge
	sent  []sent
}

func (r *recorder) Send(payload []byte) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.sent = append(r.sent, sent{at: r.exec.Now(), payload: bytes.Clone(payload)})
}

func (r *recorder) pin() *hal.VirtualPin {
	return &hal.VirtualPin{OnChange: func(level bool) {
		r.lock.Lock()
		defer r.lock.Unlock()
		r.edges = append(r.edges, edge{at: r.exec.Now(), level: level})
	}}
}

func run(t *testing.T, b *Blinker, exec *framework.Executor, until uint64) {
	ctx, cancel := context.WithCancel(context.Background())
	exec.Spawn(ctx, "blink", func(ctx context.Context) error {
		return b.Run(ctx, exec)
	})
	exec.WaitIdle()
	for exec.Now() < until {
		exec.Tick(100)
		exec.WaitIdle()
	}
	cancel()
	exec.Wait()
}

func TestBlinkSchedule(t *testing.T) {
	exec := framework.NewExecutor()
	rec := &recorder{exec: exec}
	b := New(rec.pin(), rec)
	run(t, b, exec, 3000)

	require.Equal(t, []edge{
		{500, true}, {1000, false},
		{1500, true}, {2000, false},
		{2500, true}, {3000, false},
	}, rec.edges)
	require.Equal(t, []sent{
		{1000, []byte{0, 0, 0, 0}},
		{2000, []byte{0, 0, 0, 1}},
		{3000, []byte{0, 0, 0, 2}},
	}, rec.sent)
	require.Equal(t, uint32(3), b.Counter())
}

func TestBlinkNoDrift(t *testing.T) {
	exec := framework.NewExecutor()
	rec := &recorder{exec: exec}
	b := New(rec.pin(), rec)
	run(t, b, exec, 60000)

	require.Len(t, rec.edges, 120)
	for n, e := range rec.edges {
		require.Equal(t, uint64(n+1)*500, e.at)
		require.Equal(t, n%2 == 0, e.level)
	}
}

func TestBlinkCounterWraps(t *testing.T) {
	exec := framework.NewExecutor()
	rec := &recorder{exec: exec}
	b := New(rec.pin(), rec)
	b.counter = math.MaxUint32
	run(t, b, exec, 2000)

	require.Len(t, rec.sent, 2)
	require.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, rec.sent[0].payload)
	require.Equal(t, []byte{0, 0, 0, 0}, rec.sent[1].payload)
	require.Equal(t, uint32(1), b.Counter())
}
