// Package main is the entry point for the revlabel CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/relicta-tech/revlabel/internal/cli"
)

// Version information set by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 30 * time.Second

func main() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	cli.SetVersionInfo(version, commit, date)

	code := run(context.Background(), sigChan, cli.ExecuteContext, cli.Cleanup, os.Stderr, os.Exit)
	os.Exit(code)
}

// run executes the CLI and returns the process exit code. The first signal
// cancels ctx; a second one, or a shutdown that exceeds shutdownTimeout,
// calls exit immediately.
func run(ctx context.Context, sigChan <-chan os.Signal, execute func(context.Context) error, cleanup func(), stderr io.Writer, exit func(int)) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		var sig os.Signal
		select {
		case sig = <-sigChan:
		case <-done:
			return
		}
		fmt.Fprintf(stderr, "\nReceived signal %v, initiating graceful shutdown...\n", sig)
		cancel()

		select {
		case sig = <-sigChan:
			fmt.Fprintf(stderr, "\nReceived second signal %v, forcing exit\n", sig)
			exit(1)
			return
		default:
		}

		timer := time.NewTimer(shutdownTimeout)
		defer timer.Stop()

		select {
		case <-done:
		case <-timer.C:
			fmt.Fprintf(stderr, "\nShutdown timeout (%v) exceeded, forcing exit\n", shutdownTimeout)
			exit(1)
		case sig = <-sigChan:
			fmt.Fprintf(stderr, "\nReceived second signal %v, forcing exit\n", sig)
			exit(1)
		}
	}()

	exitCode := 0
	if err := execute(ctx); err != nil {
		var exitErr *cli.ExitError
		switch {
		case ctx.Err() != nil:
			fmt.Fprintln(stderr, "Operation canceled")
			exitCode = 130
		case errors.As(err, &exitErr):
			// A child process run by `exec` failed; its status is the result.
			exitCode = exitErr.Code
		default:
			fmt.Fprintf(stderr, "Error: %v\n", err)
			exitCode = 1
		}
	}

	close(done)
	wg.Wait()
	cleanup()

	return exitCode
}
