// Package cli holds process-level helpers shared by vuln-scan commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/waftester/vulnscan/pkg/defaults"
)

// SignalContext returns a child of parent cancelled on SIGINT/SIGTERM.
// Cancellation lets in-flight probes finish as Unreachable so every round
// still reports one result per host. If a second signal arrives during
// gracePeriod, the process exits with defaults.ExitInterrupted.
//
// Usage:
//
//	ctx, cancel := cli.SignalContext(context.Background(), duration.GracePeriod)
//	defer cancel()
func SignalContext(parent context.Context, gracePeriod time.Duration) (context.Context, context.CancelFunc) {
	return signalContextWithNotifier(parent, gracePeriod, nil, nil, os.Stderr)
}

// signalContextWithNotifier is the internal implementation for testing.
// sigChan, if non-nil, overrides the real signal channel.
// exitFn, if non-nil, overrides os.Exit for testing.
func signalContextWithNotifier(
	parent context.Context,
	gracePeriod time.Duration,
	sigChan chan os.Signal,
	exitFn func(int),
	w io.Writer,
) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	ownChannel := sigChan == nil
	if ownChannel {
		sigChan = make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	}

	if exitFn == nil {
		exitFn = os.Exit
	}

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Interrupt received, finishing in-flight requests (interrupt again to force exit)...")
			cancel()

			select {
			case <-sigChan:
				exitFn(defaults.ExitInterrupted)
			case <-time.After(gracePeriod):
			}
		case <-ctx.Done():
		}
		if ownChannel {
			signal.Stop(sigChan)
		}
	}()

	return ctx, cancel
}
