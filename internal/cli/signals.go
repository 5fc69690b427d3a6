package cli

import (
	"context"
	goerrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// errInterrupted is the cancellation cause of an operator interrupt.
var errInterrupted = goerrors.New("interrupted by signal")

// runContexts are the two cancellation levels of a run. interrupt stops
// scheduling new cases; abort also kills running children.
type runContexts struct {
	interrupt context.Context
	abort     context.Context
	stop      func()
}

// setupSignalHandler cancels interrupt on the first SIGINT or SIGTERM and
// abort on the second.
func setupSignalHandler(ctx context.Context, w io.Writer, firstMsg, secondMsg string) runContexts {
	interrupt, cancelInterrupt := context.WithCancelCause(ctx)
	abort, cancelAbort := context.WithCancel(ctx)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		for count := 0; ; {
			select {
			case <-sigChan:
				count++
				if count == 1 {
					fmt.Fprintln(w, "\n"+firstMsg)
					cancelInterrupt(errInterrupted)
					continue
				}
				fmt.Fprintln(w, "\n"+secondMsg)
				cancelAbort()
				return
			case <-done:
				return
			}
		}
	}()

	return runContexts{
		interrupt: interrupt,
		abort:     abort,
		stop: func() {
			signal.Stop(sigChan)
			close(done)
			cancelInterrupt(nil)
			cancelAbort()
		},
	}
}
