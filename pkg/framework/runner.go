package framework

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/golang/glog"
)

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun wraps a Runnable with a name.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// Runner runs Runnables concurrently. The first one failing cancels the
// others; errors are aggregated.
type Runner struct {
	runners []Runnable
	signals bool
}

// NewRunner creates a Runner.
func NewRunner(runners ...Runnable) *Runner {
	return &Runner{runners: runners}
}

// Add adds more Runnables.
func (r *Runner) Add(runners ...Runnable) *Runner {
	r.runners = append(r.runners, runners...)
	return r
}

// HandleSignals cancels the run on CtrlC or SIGTERM. A second signal exits
// the process.
func (r *Runner) HandleSignals() *Runner {
	r.signals = true
	return r
}

// Run starts all Runnables and waits for them to stop.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if r.signals {
		defer watchSignals(cancel)()
	}

	errCh := make(chan error, len(r.runners))
	for n, runner := range r.runners {
		name := strconv.Itoa(n)
		if named, ok := runner.(Named); ok {
			name = named.Name()
		}
		go func(runner Runnable, name string) {
			glog.V(4).Infof("Runner[%s] started", name)
			err := runner.Run(ctx)
			glog.V(4).Infof("Runner[%s] stopped: %v", name, err)
			if err != nil && !errors.Is(err, context.Canceled) {
				err = errors.Wrapf(err, "%s", name)
			}
			errCh <- err
		}(runner, name)
	}

	var errs AggregatedError
	for range r.runners {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			errs.Add(err)
			cancel()
		}
	}
	return errs.Aggregate()
}

func watchSignals(cancel func()) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	doneCh := make(chan struct{})
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
		case <-doneCh:
			return
		}
		glog.Info("stop requested")
		cancel()
		select {
		case <-sigCh:
		case <-doneCh:
			return
		}
		glog.Error("stop requested again, force exit")
		glog.Flush()
		os.Exit(1)
	}()
	return func() {
		signal.Stop(sigCh)
		close(doneCh)
	}
}

// RunWithContextCloser runs fn which doesn't accept a context. closer is
// closed when ctx is canceled, which must make fn return, and in any case
// once fn has returned.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case <-ctx.Done():
		closer.Close()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		closer.Close()
		return err
	}
}
