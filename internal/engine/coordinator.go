package engine

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dm/essnap-go/internal/client"
	"github.com/dm/essnap-go/internal/events"
	"github.com/dm/essnap-go/internal/model"
)

// maxConcurrentDeletes bounds the cleanup fan-out. Deletions of distinct
// snapshots are independent, but the repository itself is remote shared
// state, so the pool stays small.
const maxConcurrentDeletes = 8

// busyRetryDelay is the single-retry pause when a delete hits a busy
// repository during concurrent create/restore activity.
var busyRetryDelay = 2 * time.Second

// Coordinator composes the client, poller and retention engine into the
// user-facing workflows. It owns error classification and the construction
// of OperationResults; it holds no state between invocations.
type Coordinator struct {
	client client.SnapshotClient
	sink   events.Sink
	poll   PollOptions
	now    func() time.Time
}

// NewCoordinator wires a coordinator. A nil sink discards events.
func NewCoordinator(c client.SnapshotClient, sink events.Sink, poll PollOptions) *Coordinator {
	if sink == nil {
		sink = events.Discard{}
	}
	return &Coordinator{
		client: c,
		sink:   sink,
		poll:   poll,
		now:    time.Now,
	}
}

// BackupOptions configures one backup-and-rotate invocation.
type BackupOptions struct {
	// SnapshotName names the new snapshot; empty generates
	// snapshot_YYYYMMDD_HHMMSS from the current time.
	SnapshotName string

	// Indices to capture. Must not be empty.
	Indices []string

	// Rotation, when non-empty, runs the retention policy against the
	// fresh post-create inventory. Rotation failures are reported but do
	// not revert the backup's own result.
	Rotation model.RetentionPolicy
}

// BackupReport is the outcome of one backup workflow.
type BackupReport struct {
	Result   model.OperationResult
	Snapshot model.SnapshotDescriptor
	Rotation *CleanupReport // nil when rotation did not run
}

// RestoreReport is the outcome of one restore workflow.
type RestoreReport struct {
	Result   model.OperationResult
	Snapshot model.SnapshotDescriptor
}

// CleanupReport is the outcome of one cleanup workflow. Results are in the
// same oldest-first order the retention engine produced, regardless of
// delete completion order.
type CleanupReport struct {
	Candidates []model.SnapshotDescriptor
	Results    []model.OperationResult
	Outcome    model.WorkflowOutcome
	DryRun     bool
}

// Deleted returns how many candidates were actually removed.
func (r CleanupReport) Deleted() int {
	n := 0
	for _, res := range r.Results {
		if res.OK() && !res.Skipped {
			n++
		}
	}
	return n
}

func (co *Coordinator) phase(workflow, phase string) {
	co.sink.Emit(events.PhaseChanged{Workflow: workflow, Phase: phase})
}

// generateSnapshotName mirrors the snapshot_YYYYMMDD_HHMMSS convention; the
// API requires lowercase names.
func (co *Coordinator) generateSnapshotName() string {
	return strings.ToLower(co.now().UTC().Format("snapshot_20060102_150405"))
}

// Backup runs create → poll → optional rotation and reports the worst
// observed state of the snapshot itself. A busy repository surfaces
// immediately as *client.BusyError inside the result.
func (co *Coordinator) Backup(ctx context.Context, opts BackupOptions) BackupReport {
	started := co.now()
	name := opts.SnapshotName
	if name == "" {
		name = co.generateSnapshotName()
	}
	co.phase("backup", "STARTED")

	fail := func(err error) BackupReport {
		return BackupReport{Result: model.OperationResult{
			Snapshot: name,
			Outcome:  model.OutcomeFailed,
			Err:      err,
			Duration: co.now().Sub(started),
		}}
	}

	if len(opts.Indices) == 0 {
		return fail(&client.ValidationError{Msg: "backup requires at least one index"})
	}
	if err := co.client.EnsureRepository(ctx); err != nil {
		return fail(err)
	}

	co.phase("backup", "CREATING")
	if _, err := co.client.CreateSnapshot(ctx, name, opts.Indices); err != nil {
		return fail(err)
	}

	co.phase("backup", "POLLING")
	desc, err := Await(ctx, func(ctx context.Context) (model.SnapshotDescriptor, error) {
		return co.client.GetSnapshot(ctx, name)
	}, co.poll, co.sink)
	if err != nil {
		return fail(err)
	}

	outcome := outcomeFromState(desc.State)
	co.phase("backup", outcome.String())

	report := BackupReport{
		Result: model.OperationResult{
			Snapshot: name,
			Outcome:  outcome,
			Duration: co.now().Sub(started),
		},
		Snapshot: desc,
	}

	if outcome != model.OutcomeFailed && !opts.Rotation.Empty() {
		rotation := co.Cleanup(ctx, opts.Rotation)
		report.Rotation = &rotation
		if rotation.Outcome != model.OutcomeSucceeded {
			co.sink.Emit(events.RotationFailed{
				Err: fmt.Errorf("rotation finished %s", rotation.Outcome),
			})
		}
	}
	return report
}

// Restore runs validate → close → restore → poll → reopen. Validation
// failures short-circuit before any restore call is issued.
func (co *Coordinator) Restore(ctx context.Context, snapshotName string, targetIndices []string) RestoreReport {
	started := co.now()
	co.phase("restore", "STARTED")

	fail := func(err error) RestoreReport {
		return RestoreReport{Result: model.OperationResult{
			Snapshot: snapshotName,
			Outcome:  model.OutcomeFailed,
			Err:      err,
			Duration: co.now().Sub(started),
		}}
	}

	co.phase("restore", "VALIDATING")
	if snapshotName == "" {
		return fail(&client.ValidationError{Msg: "snapshot name is required for restore"})
	}
	source, err := co.client.GetSnapshot(ctx, snapshotName)
	if err != nil {
		return fail(err)
	}
	if len(targetIndices) == 0 {
		targetIndices = source.Indices
	}
	for _, idx := range targetIndices {
		if !source.HasIndex(idx) {
			return fail(&client.ValidationError{
				Msg: fmt.Sprintf("index %q is not captured in snapshot %q", idx, snapshotName),
			})
		}
	}

	if err := co.client.CloseIndices(ctx, targetIndices); err != nil {
		return fail(err)
	}

	co.phase("restore", "RESTORING")
	if err := co.client.RestoreSnapshot(ctx, snapshotName, targetIndices); err != nil {
		// Leave the cluster usable even when the restore never started.
		co.reopen(ctx, targetIndices)
		return fail(err)
	}

	co.phase("restore", "POLLING")
	desc, err := Await(ctx, func(ctx context.Context) (model.SnapshotDescriptor, error) {
		return co.client.RestoreStatus(ctx, snapshotName, targetIndices)
	}, co.poll, co.sink)

	co.reopen(ctx, targetIndices)

	if err != nil {
		return fail(err)
	}

	outcome := outcomeFromState(desc.State)
	co.phase("restore", outcome.String())
	return RestoreReport{
		Result: model.OperationResult{
			Snapshot: snapshotName,
			Outcome:  outcome,
			Duration: co.now().Sub(started),
		},
		Snapshot: desc,
	}
}

// reopen restores index availability after a restore attempt. Best-effort:
// a reopen failure must not mask the restore outcome.
func (co *Coordinator) reopen(ctx context.Context, indices []string) {
	if err := co.client.OpenIndices(ctx, indices); err != nil {
		co.sink.Emit(events.IndicesReopenFailed{Indices: indices, Err: err})
	}
}

// Cleanup runs list → select → delete. Individual delete failures never
// abort the batch; the workflow ends PARTIAL when any candidate could not be
// removed. Deletes run with bounded fan-out but the report preserves the
// retention engine's oldest-first order.
func (co *Coordinator) Cleanup(ctx context.Context, policy model.RetentionPolicy) CleanupReport {
	co.phase("cleanup", "STARTED")

	if policy.Pattern != "" {
		if _, err := path.Match(policy.Pattern, ""); err != nil {
			return CleanupReport{
				Outcome: model.OutcomeFailed,
				Results: []model.OperationResult{{
					Outcome: model.OutcomeFailed,
					Err:     &client.ValidationError{Msg: fmt.Sprintf("invalid pattern %q", policy.Pattern)},
				}},
			}
		}
	}

	co.phase("cleanup", "LISTING")
	inventory, err := co.client.ListSnapshots(ctx)
	if err != nil {
		return CleanupReport{
			Outcome: model.OutcomeFailed,
			Results: []model.OperationResult{{Outcome: model.OutcomeFailed, Err: err}},
		}
	}

	co.phase("cleanup", "SELECTING")
	candidates := SelectForDeletion(inventory, policy)

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	co.sink.Emit(events.CandidatesSelected{
		Candidates: names,
		Kept:       len(inventory) - len(candidates),
		DryRun:     policy.DryRun,
	})

	report := CleanupReport{
		Candidates: candidates,
		Results:    make([]model.OperationResult, len(candidates)),
		Outcome:    model.OutcomeSucceeded,
		DryRun:     policy.DryRun,
	}

	if policy.DryRun {
		for i, c := range candidates {
			report.Results[i] = model.OperationResult{Snapshot: c.Name, Skipped: true}
		}
		co.phase("cleanup", "SUCCEEDED")
		return report
	}

	co.phase("cleanup", "DELETING")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDeletes)
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			report.Results[i] = co.deleteOne(gctx, c.Name)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in the results

	for _, res := range report.Results {
		co.sink.Emit(events.SnapshotDeleted{Snapshot: res.Snapshot, Err: res.Err})
		report.Outcome = model.WorseOf(report.Outcome, workflowOutcomeOf(res))
	}
	co.phase("cleanup", report.Outcome.String())
	return report
}

// deleteOne removes a single snapshot. NotFound counts as success so a
// second pass over an already-rotated inventory stays idempotent; a busy
// repository is retried exactly once.
func (co *Coordinator) deleteOne(ctx context.Context, name string) model.OperationResult {
	started := co.now()
	err := co.client.DeleteSnapshot(ctx, name)

	var busy *client.BusyError
	if errors.As(err, &busy) {
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(busyRetryDelay):
			err = co.client.DeleteSnapshot(ctx, name)
		}
	}

	var notFound *client.NotFoundError
	if errors.As(err, &notFound) {
		err = nil
	}

	res := model.OperationResult{
		Snapshot: name,
		Duration: co.now().Sub(started),
	}
	if err != nil {
		res.Outcome = model.OutcomeFailed
		res.Err = err
	}
	return res
}

// workflowOutcomeOf maps a per-snapshot result onto the workflow verdict:
// one failed delete makes the whole cleanup PARTIAL, never FAILED, because
// the remaining candidates were still attempted.
func workflowOutcomeOf(res model.OperationResult) model.WorkflowOutcome {
	if res.Outcome == model.OutcomeFailed {
		return model.OutcomePartial
	}
	return model.OutcomeSucceeded
}

func outcomeFromState(state model.SnapshotState) model.WorkflowOutcome {
	switch state {
	case model.StateSuccess:
		return model.OutcomeSucceeded
	case model.StatePartial:
		return model.OutcomePartial
	default:
		return model.OutcomeFailed
	}
}
