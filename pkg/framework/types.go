package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// TaskFunc is the body of a cooperative task. Tasks are expected to loop
// until ctx is done.
type TaskFunc func(ctx context.Context) error

// Sleeper suspends the calling task for a duration.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}
