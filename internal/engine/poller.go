package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dm/essnap-go/internal/client"
	"github.com/dm/essnap-go/internal/events"
	"github.com/dm/essnap-go/internal/model"
)

// Probe fetches the current descriptor of an in-flight operation.
type Probe func(ctx context.Context) (model.SnapshotDescriptor, error)

// PollOptions bounds one Await call.
type PollOptions struct {
	// Timeout caps total local waiting. It does not cancel the remote
	// operation; on expiry the operation may still be running.
	Timeout time.Duration

	// InitialInterval is the first sleep between probes; it doubles each
	// round up to MaxInterval.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// ProbeRetries is how many times a single failed probe is retried on
	// transient connection errors before escalating. Retries use a fixed
	// ProbeRetryDelay and do not reset the overall backoff schedule.
	ProbeRetries    int
	ProbeRetryDelay time.Duration
}

func (o PollOptions) withDefaults() PollOptions {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Minute
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = 1 * time.Second
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = 30 * time.Second
	}
	if o.ProbeRetries < 0 {
		o.ProbeRetries = 0
	}
	if o.ProbeRetryDelay <= 0 {
		o.ProbeRetryDelay = 500 * time.Millisecond
	}
	return o
}

// TimeoutError reports that the local wait budget ran out before the
// operation reached a terminal state. Last carries the most recent
// non-terminal observation so the caller can decide what to do with the
// still-running remote operation.
type TimeoutError struct {
	Last   model.SnapshotDescriptor
	Waited time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation %q still %s after %s", e.Last.Name, e.Last.State, e.Waited)
}

// Await drives probe to a terminal state on an exponential backoff schedule.
// It probes immediately, then sleeps InitialInterval, doubling up to
// MaxInterval, until the descriptor is terminal or Timeout elapses. Each
// non-terminal observation is emitted as a PollTick; transient probe
// failures are retried per PollOptions and emitted as ProbeRetried.
func Await(ctx context.Context, probe Probe, opts PollOptions, sink events.Sink) (model.SnapshotDescriptor, error) {
	opts = opts.withDefaults()
	if sink == nil {
		sink = events.Discard{}
	}

	start := time.Now()
	deadline := start.Add(opts.Timeout)
	interval := opts.InitialInterval

	var last model.SnapshotDescriptor
	for {
		desc, err := probeWithRetry(ctx, probe, opts, sink, last.Name)
		if err != nil {
			return last, err
		}
		last = desc
		if desc.State.Terminal() {
			return desc, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return last, &TimeoutError{Last: last, Waited: time.Since(start)}
		}

		wait := interval
		if wait > remaining {
			wait = remaining
		}
		sink.Emit(events.PollTick{
			Snapshot:     desc.Name,
			State:        desc.State,
			Elapsed:      time.Since(start),
			NextInterval: wait,
		})

		select {
		case <-ctx.Done():
			return last, fmt.Errorf("awaiting %q: %w", desc.Name, ctx.Err())
		case <-time.After(wait):
		}

		interval *= 2
		if interval > opts.MaxInterval {
			interval = opts.MaxInterval
		}
	}
}

// probeWithRetry runs probe once, retrying transient connection errors up to
// opts.ProbeRetries times with a fixed short delay. Anything else escalates
// immediately. snapshot is the last observed name, carried into retry events;
// it is empty until the first successful probe.
func probeWithRetry(ctx context.Context, probe Probe, opts PollOptions, sink events.Sink, snapshot string) (model.SnapshotDescriptor, error) {
	var lastErr error
	for attempt := 0; attempt <= opts.ProbeRetries; attempt++ {
		desc, err := probe(ctx)
		if err == nil {
			return desc, nil
		}

		var connErr *client.ConnectionError
		if !errors.As(err, &connErr) {
			return model.SnapshotDescriptor{}, err
		}
		lastErr = err

		if attempt == opts.ProbeRetries {
			break
		}
		sink.Emit(events.ProbeRetried{Snapshot: snapshot, Attempt: attempt + 1, Err: err})

		select {
		case <-ctx.Done():
			return model.SnapshotDescriptor{}, ctx.Err()
		case <-time.After(opts.ProbeRetryDelay):
		}
	}
	return model.SnapshotDescriptor{}, lastErr
}
