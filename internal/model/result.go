package model

import "time"

// WorkflowOutcome is the top-level verdict of one workflow invocation.
type WorkflowOutcome int

const (
	OutcomeSucceeded WorkflowOutcome = iota
	OutcomePartial
	OutcomeFailed
)

// String returns the outcome name.
func (o WorkflowOutcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "SUCCEEDED"
	case OutcomePartial:
		return "PARTIAL"
	case OutcomeFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// WorseOf returns the worse of two outcomes (FAILED > PARTIAL > SUCCEEDED).
func WorseOf(a, b WorkflowOutcome) WorkflowOutcome {
	if a > b {
		return a
	}
	return b
}

// OperationResult is the immutable record of one operation against one
// snapshot. Backup and restore produce exactly one; cleanup produces one per
// deletion candidate.
type OperationResult struct {
	Snapshot string
	Outcome  WorkflowOutcome
	Err      error
	Duration time.Duration

	// Skipped is set on cleanup results when DryRun suppressed the delete.
	Skipped bool
}

// OK reports whether the operation ended without full failure.
func (r OperationResult) OK() bool {
	return r.Outcome != OutcomeFailed
}
