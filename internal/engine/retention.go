package engine

import (
	"path"
	"sort"

	"github.com/dm/essnap-go/internal/model"
)

// SelectForDeletion evaluates a retention policy against a snapshot
// inventory and returns the deletion candidates, oldest first (ties broken
// by name ascending). It is a pure function: it performs no deletion, holds
// no state between runs, and returns the same candidates regardless of the
// order selectors were supplied in.
func SelectForDeletion(inventory []model.SnapshotDescriptor, policy model.RetentionPolicy) []model.SnapshotDescriptor {
	considered := inventory
	if policy.KeepSuccessfulOnly {
		considered = make([]model.SnapshotDescriptor, 0, len(inventory))
		for _, s := range inventory {
			if s.State == model.StateSuccess {
				considered = append(considered, s)
			}
		}
	}

	names := make(map[string]bool, len(policy.Names))
	for _, n := range policy.Names {
		names[n] = true
	}

	selected := make(map[string]bool, len(considered))
	for _, s := range considered {
		if policy.All || names[s.Name] {
			selected[s.Name] = true
			continue
		}
		if policy.Pattern != "" {
			if ok, err := path.Match(policy.Pattern, s.Name); err == nil && ok {
				selected[s.Name] = true
				continue
			}
		}
		if !policy.OlderThan.IsZero() && s.StartedAt.Before(policy.OlderThan) {
			selected[s.Name] = true
		}
	}

	// Count cap: if the inventory surviving the selector union still
	// exceeds MaxSnapshots, the oldest excess joins the candidates so at
	// most MaxSnapshots remain.
	if policy.MaxSnapshots > 0 {
		survivors := make([]model.SnapshotDescriptor, 0, len(considered))
		for _, s := range considered {
			if !selected[s.Name] {
				survivors = append(survivors, s)
			}
		}
		if len(survivors) > policy.MaxSnapshots {
			sortNewestFirst(survivors)
			for _, s := range survivors[policy.MaxSnapshots:] {
				selected[s.Name] = true
			}
		}
	}

	candidates := make([]model.SnapshotDescriptor, 0, len(selected))
	for _, s := range considered {
		if selected[s.Name] {
			candidates = append(candidates, s)
		}
	}
	sortOldestFirst(candidates)
	return candidates
}

// sortNewestFirst orders by StartedAt descending; equal timestamps order by
// name ascending so the retained set is deterministic.
func sortNewestFirst(snaps []model.SnapshotDescriptor) {
	sort.SliceStable(snaps, func(i, j int) bool {
		if !snaps[i].StartedAt.Equal(snaps[j].StartedAt) {
			return snaps[i].StartedAt.After(snaps[j].StartedAt)
		}
		return snaps[i].Name < snaps[j].Name
	})
}

// sortOldestFirst orders by StartedAt ascending, ties by name ascending,
// which keeps cleanup logs and dry-run previews deterministic.
func sortOldestFirst(snaps []model.SnapshotDescriptor) {
	sort.SliceStable(snaps, func(i, j int) bool {
		if !snaps[i].StartedAt.Equal(snaps[j].StartedAt) {
			return snaps[i].StartedAt.Before(snaps[j].StartedAt)
		}
		return snaps[i].Name < snaps[j].Name
	})
}
