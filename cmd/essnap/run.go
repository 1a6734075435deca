package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dm/essnap-go/internal/config"
	"github.com/dm/essnap-go/internal/engine"
	"github.com/dm/essnap-go/internal/events"
	"github.com/dm/essnap-go/internal/tui"
)

// pollOptions derives the poller budget from the loaded configuration.
func pollOptions(cfg *config.Config) engine.PollOptions {
	return engine.PollOptions{
		Timeout:      cfg.WaitTimeout,
		ProbeRetries: 3,
	}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runWorkflow executes a long-polling workflow either behind the interactive
// progress view or, with --plain, directly with log output only. The
// workflow receives the sink its events should go to and returns the
// workflow-level error to surface. cancel stops the workflow when the user
// interrupts the interactive view; runWorkflow only returns once the
// workflow goroutine has finished, so callers may read state the workflow
// wrote without further synchronization.
func runWorkflow(title string, cancel context.CancelFunc, workflow func(sink events.Sink) error) error {
	if plain {
		return workflow(events.NewZapSink(logger))
	}

	// Interactive mode owns the terminal; events feed the progress view
	// instead of the logger.
	sink := tui.NewChanSink()
	done := make(chan error, 1)
	go func() {
		done <- workflow(sink)
		sink.Close()
	}()

	prog := tui.NewProgress(title, sink, done, cancel)
	if _, err := tea.NewProgram(prog).Run(); err != nil {
		// The terminal is gone; still wait out the workflow before the
		// caller touches its report.
		cancel()
		<-done
		return err
	}
	return prog.Err()
}
