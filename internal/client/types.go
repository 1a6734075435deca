package client

import (
	"time"

	"github.com/dm/essnap-go/internal/model"
)

// errorEnvelope is the error body the snapshot API returns on non-2xx.
type errorEnvelope struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// snapshotInfo is one entry from GET /_snapshot/<repo>/<name>.
type snapshotInfo struct {
	Snapshot          string    `json:"snapshot"`
	UUID              string    `json:"uuid"`
	State             string    `json:"state"`
	Indices           []string  `json:"indices"`
	StartTime         time.Time `json:"start_time"`
	StartTimeInMillis int64     `json:"start_time_in_millis"`
	EndTime           time.Time `json:"end_time"`
	EndTimeInMillis   int64     `json:"end_time_in_millis"`
	Shards            struct {
		Total      int `json:"total"`
		Successful int `json:"successful"`
		Failed     int `json:"failed"`
	} `json:"shards"`
	Failures []struct {
		Index   string `json:"index"`
		ShardID int    `json:"shard_id"`
		Reason  string `json:"reason"`
	} `json:"failures"`
}

// snapshotsResponse is the envelope around one or more snapshotInfo entries.
type snapshotsResponse struct {
	Snapshots []snapshotInfo `json:"snapshots"`
}

// createResponse is returned by PUT /_snapshot/<repo>/<name> without
// wait_for_completion.
type createResponse struct {
	Accepted bool `json:"accepted"`
}

// acknowledgedResponse covers the acknowledged-style bodies (repository
// registration, index open/close, restore accepted).
type acknowledgedResponse struct {
	Acknowledged bool `json:"acknowledged"`
	Accepted     bool `json:"accepted"`
}

// recoveryResponse is the filtered body of GET /<indices>/_recovery, used to
// track restore progress. Only snapshot-sourced shards are relevant.
type recoveryResponse map[string]struct {
	Shards []recoveryShard `json:"shards"`
}

type recoveryShard struct {
	Type   string `json:"type"`
	Stage  string `json:"stage"`
	Source struct {
		Snapshot   string `json:"snapshot"`
		Repository string `json:"repository"`
	} `json:"source"`
}

// createSnapshotBody is the request body for snapshot creation.
type createSnapshotBody struct {
	Indices            string `json:"indices"`
	IgnoreUnavailable  bool   `json:"ignore_unavailable"`
	IncludeGlobalState bool   `json:"include_global_state"`
	Partial            bool   `json:"partial"`
}

// restoreSnapshotBody is the request body for snapshot restore.
type restoreSnapshotBody struct {
	Indices            string `json:"indices"`
	IgnoreUnavailable  bool   `json:"ignore_unavailable"`
	IncludeGlobalState bool   `json:"include_global_state"`
	IncludeAliases     bool   `json:"include_aliases"`
}

// repositoryBody is the request body for repository registration.
type repositoryBody struct {
	Type     string         `json:"type"`
	Settings map[string]any `json:"settings"`
}

// toDescriptor normalizes one wire entry into the internal read model.
// Shard-level outcomes collapse into the four-state enum: any shard failure
// alongside at least one success yields PARTIAL, total failure yields FAILED,
// regardless of what the raw state string claims.
func (s snapshotInfo) toDescriptor() model.SnapshotDescriptor {
	state := model.ParseState(s.State)
	if state.Terminal() {
		switch {
		case s.Shards.Failed > 0 && s.Shards.Successful > 0:
			state = model.StatePartial
		case s.Shards.Total > 0 && s.Shards.Failed == s.Shards.Total:
			state = model.StateFailed
		}
	}

	started := s.StartTime
	if started.IsZero() && s.StartTimeInMillis > 0 {
		started = time.UnixMilli(s.StartTimeInMillis).UTC()
	}
	ended := s.EndTime
	if ended.IsZero() && s.EndTimeInMillis > 0 {
		ended = time.UnixMilli(s.EndTimeInMillis).UTC()
	}
	// EndedAt is set iff the state is terminal. In-flight entries carry a
	// zero end time; a stale end time on a non-terminal entry is dropped.
	if !state.Terminal() {
		ended = time.Time{}
	}

	return model.SnapshotDescriptor{
		Name:             s.Snapshot,
		State:            state,
		StartedAt:        started,
		EndedAt:          ended,
		Indices:          s.Indices,
		TotalShards:      s.Shards.Total,
		SuccessfulShards: s.Shards.Successful,
		FailedShards:     s.Shards.Failed,
	}
}
