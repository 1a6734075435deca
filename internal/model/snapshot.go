package model

import "time"

// SnapshotState is the normalized lifecycle state of a snapshot.
type SnapshotState int

const (
	StatePending SnapshotState = iota
	StateInProgress
	StateSuccess
	StatePartial
	StateFailed
)

// String returns the upper-case state name as the snapshot API reports it.
func (s SnapshotState) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateInProgress:
		return "IN_PROGRESS"
	case StateSuccess:
		return "SUCCESS"
	case StatePartial:
		return "PARTIAL"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further state transition can occur without a
// new operation.
func (s SnapshotState) Terminal() bool {
	return s == StateSuccess || s == StatePartial || s == StateFailed
}

// ParseState maps a raw state string from the snapshot API onto the
// normalized enum. Elasticsearch reports STARTED for in-flight snapshots and
// IN_PROGRESS for in-flight restores; both collapse to StateInProgress.
// Unrecognized values are treated as StatePending.
func ParseState(raw string) SnapshotState {
	switch raw {
	case "SUCCESS":
		return StateSuccess
	case "PARTIAL":
		return StatePartial
	case "FAILED", "INCOMPATIBLE":
		return StateFailed
	case "STARTED", "IN_PROGRESS":
		return StateInProgress
	default:
		return StatePending
	}
}

// SnapshotDescriptor is the read model for one snapshot, reconstructed fresh
// from the remote API on every poll or list call. EndedAt is zero exactly
// while State is non-terminal.
type SnapshotDescriptor struct {
	Name      string
	State     SnapshotState
	StartedAt time.Time
	EndedAt   time.Time
	Indices   []string
	SizeBytes int64

	// Shard completion counters from the last observation. FailedShards > 0
	// with SuccessfulShards > 0 is what distinguishes PARTIAL from FAILED.
	TotalShards      int
	SuccessfulShards int
	FailedShards     int
}

// HasIndex reports whether the snapshot captured the named index.
func (d SnapshotDescriptor) HasIndex(name string) bool {
	for _, idx := range d.Indices {
		if idx == name {
			return true
		}
	}
	return false
}

// Duration returns EndedAt-StartedAt for terminal snapshots and 0 otherwise.
func (d SnapshotDescriptor) Duration() time.Duration {
	if d.EndedAt.IsZero() || d.StartedAt.IsZero() {
		return 0
	}
	return d.EndedAt.Sub(d.StartedAt)
}
