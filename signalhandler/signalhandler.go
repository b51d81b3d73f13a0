package signalhandler

import (
	"context"
	"os/signal"
	"runtime"
	"syscall"
)

// SetupContext returns a context cancelled on SIGINT or SIGTERM. The
// pipeline checks it between stages, so an interrupt stops the run at the
// next stage boundary without corrupting entries that already applied.
func SetupContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// GetOptimalProcs returns the optimal number of worker goroutines for the system
func GetOptimalProcs() int {
	// Get the number of CPUs available
	numCPU := runtime.NumCPU()

	// For image processing with CGo, using too many goroutines can cause issues
	maxProcs := (numCPU * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}

	return maxProcs
}
