package framework

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang/glog"
	"go.uber.org/atomic"
)

// DefaultTickPeriod is the period of the timer interrupt driving Tick.
const DefaultTickPeriod = 100 * time.Millisecond

// Executor is a cooperative scheduler. Spawned tasks run one at a time and
// only give up the processor inside Sleep; no task is ever preempted by
// another. Time is a millisecond counter advanced by Tick, normally from
// the timer driven by Run.
//
// A task sleeping repeatedly for the same duration keeps a fixed schedule
// based on its previous deadline, so late wake-ups do not accumulate.
type Executor struct {
	TickPeriod time.Duration
	// OnFault receives panics and unexpected errors of tasks.
	OnFault func(error)

	now   atomic.Uint64
	baton sync.Mutex

	lock     sync.Mutex
	idle     *sync.Cond
	runnable int
	sleepers []*sleeper
	tasks    sync.WaitGroup
}

type task struct {
	name        string
	deadline    uint64
	hasDeadline bool
}

type sleeper struct {
	deadline uint64
	task     bool
	wake     chan struct{}
}

type taskKey struct{}

// NewExecutor creates an Executor.
func NewExecutor() *Executor {
	e := &Executor{TickPeriod: DefaultTickPeriod}
	e.idle = sync.NewCond(&e.lock)
	return e
}

// Now returns the milliseconds elapsed in ticks.
func (e *Executor) Now() uint64 {
	return e.now.Load()
}

// Spawn starts a task. It stays runnable until it sleeps or returns.
func (e *Executor) Spawn(ctx context.Context, name string, fn TaskFunc) {
	t := &task{name: name}
	e.lock.Lock()
	e.runnable++
	e.lock.Unlock()
	e.tasks.Add(1)
	go e.runTask(context.WithValue(ctx, taskKey{}, t), t, fn)
}

func (e *Executor) runTask(ctx context.Context, t *task, fn TaskFunc) {
	defer e.tasks.Done()
	e.baton.Lock()
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Newf("task %s panic: %v", t.name, r)
			}
		}()
		if err = fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			err = errors.Wrapf(err, "task %s", t.name)
		} else {
			err = nil
		}
	}()
	e.lock.Lock()
	e.suspendLocked()
	e.lock.Unlock()
	e.baton.Unlock()
	glog.V(4).Infof("task %s exited", t.name)
	if err != nil {
		e.fault(err)
	}
}

// Sleep suspends the calling task for at least d, rounded to ticks. Called
// outside a task it simply waits for the ticks. A non-positive d yields.
func (e *Executor) Sleep(ctx context.Context, d time.Duration) error {
	t, _ := ctx.Value(taskKey{}).(*task)
	ms := uint64(0)
	if d > 0 {
		ms = uint64((d + time.Millisecond - 1) / time.Millisecond)
	}

	e.lock.Lock()
	now := e.now.Load()
	deadline := now + ms
	if t != nil {
		if next := t.deadline + ms; t.hasDeadline && next > now {
			deadline = next
		}
		t.deadline, t.hasDeadline = deadline, true
	}
	if ms == 0 || deadline <= now {
		e.lock.Unlock()
		if t != nil {
			e.baton.Unlock()
			runtime.Gosched()
			e.baton.Lock()
		}
		return ctx.Err()
	}
	s := &sleeper{deadline: deadline, task: t != nil, wake: make(chan struct{})}
	e.sleepers = append(e.sleepers, s)
	if t != nil {
		e.suspendLocked()
	}
	e.lock.Unlock()

	if t != nil {
		e.baton.Unlock()
		defer e.baton.Lock()
	}
	select {
	case <-s.wake:
		return nil
	case <-ctx.Done():
		e.lock.Lock()
		if e.removeLocked(s) && s.task {
			e.runnable++
		}
		e.lock.Unlock()
		return ctx.Err()
	}
}

// Tick advances time by ms milliseconds and wakes the due tasks. It is what
// the timer interrupt calls.
func (e *Executor) Tick(ms uint64) {
	e.lock.Lock()
	defer e.lock.Unlock()
	now := e.now.Add(ms)
	kept := e.sleepers[:0]
	for _, s := range e.sleepers {
		if s.deadline > now {
			kept = append(kept, s)
			continue
		}
		if s.task {
			e.runnable++
		}
		close(s.wake)
	}
	for n := len(kept); n < len(e.sleepers); n++ {
		e.sleepers[n] = nil
	}
	e.sleepers = kept
}

// WaitIdle blocks until every task is sleeping or has exited.
func (e *Executor) WaitIdle() {
	e.lock.Lock()
	for e.runnable > 0 {
		e.idle.Wait()
	}
	e.lock.Unlock()
}

// Wait blocks until all tasks have exited.
func (e *Executor) Wait() {
	e.tasks.Wait()
}

// Run drives Tick every TickPeriod until ctx is done. It is the timer
// interrupt of the executor; the tasks themselves run on their own once
// spawned.
func (e *Executor) Run(ctx context.Context) error {
	period := e.TickPeriod
	if period <= 0 {
		period = DefaultTickPeriod
	}
	ms := uint64(period / time.Millisecond)
	if ms == 0 {
		ms = 1
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.Tick(ms)
		}
	}
}

func (e *Executor) suspendLocked() {
	if e.runnable--; e.runnable == 0 {
		e.idle.Broadcast()
	}
}

func (e *Executor) removeLocked(s *sleeper) bool {
	for n, item := range e.sleepers {
		if item == s {
			last := len(e.sleepers) - 1
			e.sleepers[n] = e.sleepers[last]
			e.sleepers[last] = nil
			e.sleepers = e.sleepers[:last]
			return true
		}
	}
	return false
}

func (e *Executor) fault(err error) {
	if fn := e.OnFault; fn != nil {
		fn(err)
		return
	}
	glog.Errorf("executor: %v", err)
}
