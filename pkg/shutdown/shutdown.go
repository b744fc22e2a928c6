package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"routekit/pkg/logger"
)

// exit is swapped in tests.
var exit = os.Exit

// Abort logs a fatal startup error, gives log sinks a moment to flush and
// exits with status 1.
func Abort(contextMsg string, err error, delay time.Duration) {
	logger.Error("startup_fatal", "msg", contextMsg, "error", err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", contextMsg, err)
	if delay > 0 {
		time.Sleep(delay)
	}
	logger.Sync()
	exit(1)
}

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM.
// Call the cancel function to stop watching.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigc)
		select {
		case s := <-sigc:
			logger.Info("signal_received", "signal", s.String(), "msg", "shutdown requested")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
