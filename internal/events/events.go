// Package events carries the structured facts the lifecycle engine emits.
// The engine never formats or writes logs itself; it hands typed events to a
// Sink and the surrounding tool decides how to render them.
package events

import (
	"time"

	"github.com/dm/essnap-go/internal/model"
)

// Event is a structured, log-worthy fact produced by a workflow.
type Event interface {
	// Kind returns a stable machine-readable event name.
	Kind() string
}

// Sink receives events in emission order. Implementations must be safe for
// use from the goroutine running the workflow; the cleanup delete pool
// serializes its emissions.
type Sink interface {
	Emit(Event)
}

// PhaseChanged records a workflow state-machine transition.
type PhaseChanged struct {
	Workflow string
	Phase    string
}

func (PhaseChanged) Kind() string { return "phase_changed" }

// PollTick records one poller observation of a non-terminal operation.
type PollTick struct {
	Snapshot     string
	State        model.SnapshotState
	Elapsed      time.Duration
	NextInterval time.Duration
}

func (PollTick) Kind() string { return "poll_tick" }

// ProbeRetried records a transient probe failure that was retried locally.
type ProbeRetried struct {
	Snapshot string
	Attempt  int
	Err      error
}

func (ProbeRetried) Kind() string { return "probe_retried" }

// CandidatesSelected records the retention engine's decision.
type CandidatesSelected struct {
	Candidates []string
	Kept       int
	DryRun     bool
}

func (CandidatesSelected) Kind() string { return "candidates_selected" }

// SnapshotDeleted records one cleanup deletion attempt.
type SnapshotDeleted struct {
	Snapshot string
	Err      error // nil on success; NotFound is reported as success upstream
}

func (SnapshotDeleted) Kind() string { return "snapshot_deleted" }

// RotationFailed records a post-backup rotation error that did not revert
// the backup's own result.
type RotationFailed struct {
	Err error
}

func (RotationFailed) Kind() string { return "rotation_failed" }

// IndicesReopenFailed records a best-effort reopen that did not succeed
// after a restore attempt.
type IndicesReopenFailed struct {
	Indices []string
	Err     error
}

func (IndicesReopenFailed) Kind() string { return "indices_reopen_failed" }

// Discard is a Sink that drops every event.
type Discard struct{}

func (Discard) Emit(Event) {}
