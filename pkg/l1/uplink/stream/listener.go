package stream

import (
	"context"
	"net"
	"sync"

	"github.com/robotalks/uartlink/pkg/framework"
)

// Serve accepts connections on ln until ctx is done and serves each one
// with fn in its own goroutine. Connections are closed once fn returns. ln
// is closed on return, after every fn has returned.
func Serve(ctx context.Context, ln net.Listener, fn func(context.Context, *ReadWriter)) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	return framework.RunWithContextCloser(ctx, ln, func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return err
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer conn.Close()
				fn(ctx, New(conn))
			}()
		}
	})
}
