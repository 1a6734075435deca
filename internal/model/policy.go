package model

import "time"

// RetentionPolicy describes which snapshots are eligible for deletion.
//
// Selectors (Names, Pattern, OlderThan, All) are unioned: a snapshot matching
// any one of them is a candidate. MaxSnapshots is applied afterwards to the
// surviving inventory. KeepSuccessfulOnly is a global pre-filter: when set,
// non-SUCCESS snapshots are removed from consideration before any selector
// runs.
type RetentionPolicy struct {
	// Names lists snapshots to delete by exact name.
	Names []string

	// Pattern is a shell-style glob matched against snapshot names
	// (e.g. "snapshot_2025_07_*").
	Pattern string

	// OlderThan marks snapshots whose StartedAt is strictly before the
	// cutoff. Zero disables the selector.
	OlderThan time.Time

	// MaxSnapshots caps how many snapshots survive after the selector
	// union. 0 disables the cap.
	MaxSnapshots int

	// All selects the entire (filtered) inventory. It does not
	// short-circuit the other selectors; it behaves like a pattern that
	// matches everything.
	All bool

	// KeepSuccessfulOnly restricts consideration to SUCCESS snapshots.
	KeepSuccessfulOnly bool

	// DryRun computes candidates without deleting them. Honored by the
	// coordinator, not the selection function, which never deletes.
	DryRun bool
}

// Empty reports whether the policy has no active selector and no cap, i.e.
// it can never produce a candidate.
func (p RetentionPolicy) Empty() bool {
	return !p.All &&
		len(p.Names) == 0 &&
		p.Pattern == "" &&
		p.OlderThan.IsZero() &&
		p.MaxSnapshots == 0
}
