package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dm/essnap-go/internal/model"
)

func (c *DefaultClient) repoPath(parts ...string) string {
	segs := []string{"/_snapshot", url.PathEscape(c.config.RepositoryName)}
	for _, p := range parts {
		segs = append(segs, url.PathEscape(p))
	}
	return strings.Join(segs, "/")
}

func joinIndices(indices []string) string {
	escaped := make([]string, len(indices))
	for i, idx := range indices {
		escaped[i] = url.PathEscape(idx)
	}
	return strings.Join(escaped, ",")
}

// EnsureRepository registers the snapshot repository, building the settings
// body from the configured backing store. Registration is an idempotent
// upsert; verification is skipped so a registration race with another tool
// does not fail the workflow.
func (c *DefaultClient) EnsureRepository(ctx context.Context) error {
	settings := map[string]any{}
	repoType := c.config.RepositorySettings.Type

	switch repoType {
	case "s3":
		settings["bucket"] = c.config.RepositorySettings.Bucket
		settings["base_path"] = c.config.RepositorySettings.BasePath
		settings["region"] = c.config.RepositorySettings.Region
		if c.config.RepositorySettings.Endpoint != "" {
			settings["endpoint"] = c.config.RepositorySettings.Endpoint
		}
		if c.config.RepositorySettings.Protocol != "" {
			settings["protocol"] = c.config.RepositorySettings.Protocol
		}
		if c.config.RepositorySettings.PathStyleAccess {
			settings["path_style_access"] = true
		}
	case "fs", "":
		repoType = "fs"
		location := c.config.RepositorySettings.Location
		if location == "" {
			location = "/usr/share/elasticsearch/data/snapshots/" + c.config.RepositoryName
		}
		settings["location"] = location
		settings["compress"] = true
	default:
		return &ValidationError{Msg: fmt.Sprintf("unsupported repository type %q", repoType)}
	}

	body := repositoryBody{Type: repoType, Settings: settings}
	if _, err := c.do(ctx, "EnsureRepository", http.MethodPut, c.repoPath()+"?verify=false", body); err != nil {
		return err
	}
	return nil
}

// CreateSnapshot starts a snapshot of the given indices without waiting for
// completion and returns the initial descriptor as observed by an immediate
// status read. A busy repository surfaces as *BusyError; the caller must not
// retry blindly.
func (c *DefaultClient) CreateSnapshot(ctx context.Context, name string, indices []string) (model.SnapshotDescriptor, error) {
	if name == "" {
		return model.SnapshotDescriptor{}, &ValidationError{Msg: "snapshot name must not be empty"}
	}
	if len(indices) == 0 {
		return model.SnapshotDescriptor{}, &ValidationError{Msg: "at least one index is required"}
	}

	body := createSnapshotBody{
		Indices:           strings.Join(indices, ","),
		IgnoreUnavailable: true,
	}
	raw, err := c.do(ctx, "CreateSnapshot", http.MethodPut, c.repoPath(name), body)
	if err != nil {
		return model.SnapshotDescriptor{}, err
	}

	var resp createResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return model.SnapshotDescriptor{}, fmt.Errorf("CreateSnapshot decode: %w", err)
	}
	if !resp.Accepted {
		return model.SnapshotDescriptor{}, &APIError{Op: "CreateSnapshot", Status: http.StatusOK, Reason: "snapshot not accepted"}
	}

	// The create call only acknowledges acceptance; the authoritative state
	// comes from the status endpoint.
	desc, err := c.GetSnapshot(ctx, name)
	if err != nil {
		// Accepted but not yet visible: report it as pending.
		return model.SnapshotDescriptor{Name: name, State: model.StatePending}, nil
	}
	return desc, nil
}

// GetSnapshot fetches the current descriptor for one snapshot. A missing
// name returns *NotFoundError. Size is populated best-effort from the status
// endpoint once the snapshot is terminal; a failure there is non-fatal.
func (c *DefaultClient) GetSnapshot(ctx context.Context, name string) (model.SnapshotDescriptor, error) {
	if name == "" {
		return model.SnapshotDescriptor{}, &ValidationError{Msg: "snapshot name must not be empty"}
	}

	raw, err := c.do(ctx, "GetSnapshot", http.MethodGet, c.repoPath(name), nil)
	if err != nil {
		return model.SnapshotDescriptor{}, notFoundName(err, name)
	}

	var resp snapshotsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return model.SnapshotDescriptor{}, fmt.Errorf("GetSnapshot decode: %w", err)
	}
	if len(resp.Snapshots) == 0 {
		return model.SnapshotDescriptor{}, &NotFoundError{Name: name}
	}

	desc := resp.Snapshots[0].toDescriptor()
	if desc.State.Terminal() {
		if size, err := c.snapshotSize(ctx, name); err == nil {
			desc.SizeBytes = size
		}
	}
	return desc, nil
}

// snapshotSize reads total size from GET /_snapshot/<repo>/<name>/_status.
func (c *DefaultClient) snapshotSize(ctx context.Context, name string) (int64, error) {
	raw, err := c.do(ctx, "SnapshotStatus", http.MethodGet,
		c.repoPath(name)+"/_status?filter_path=snapshots.stats.total.size_in_bytes", nil)
	if err != nil {
		return 0, notFoundName(err, name)
	}

	var resp struct {
		Snapshots []struct {
			Stats struct {
				Total struct {
					SizeInBytes int64 `json:"size_in_bytes"`
				} `json:"total"`
			} `json:"stats"`
		} `json:"snapshots"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, fmt.Errorf("SnapshotStatus decode: %w", err)
	}
	if len(resp.Snapshots) == 0 {
		return 0, &NotFoundError{Name: name}
	}
	return resp.Snapshots[0].Stats.Total.SizeInBytes, nil
}

// ListSnapshots fetches every snapshot in the repository.
func (c *DefaultClient) ListSnapshots(ctx context.Context) ([]model.SnapshotDescriptor, error) {
	raw, err := c.do(ctx, "ListSnapshots", http.MethodGet, c.repoPath("_all"), nil)
	if err != nil {
		return nil, err
	}

	var resp snapshotsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("ListSnapshots decode: %w", err)
	}

	out := make([]model.SnapshotDescriptor, 0, len(resp.Snapshots))
	for _, s := range resp.Snapshots {
		out = append(out, s.toDescriptor())
	}
	return out, nil
}

// DeleteSnapshot removes one snapshot. An unknown name comes back as
// *NotFoundError so idempotent cleanup can treat "already gone" as success.
func (c *DefaultClient) DeleteSnapshot(ctx context.Context, name string) error {
	if name == "" {
		return &ValidationError{Msg: "snapshot name must not be empty"}
	}
	_, err := c.do(ctx, "DeleteSnapshot", http.MethodDelete, c.repoPath(name), nil)
	return notFoundName(err, name)
}

// RestoreSnapshot starts restoring the given indices from a snapshot without
// waiting for completion.
func (c *DefaultClient) RestoreSnapshot(ctx context.Context, name string, indices []string) error {
	if name == "" {
		return &ValidationError{Msg: "snapshot name must not be empty"}
	}
	if len(indices) == 0 {
		return &ValidationError{Msg: "at least one index is required"}
	}

	body := restoreSnapshotBody{
		Indices:           strings.Join(indices, ","),
		IgnoreUnavailable: true,
		IncludeAliases:    true,
	}
	raw, err := c.do(ctx, "RestoreSnapshot", http.MethodPost, c.repoPath(name)+"/_restore", body)
	if err != nil {
		return notFoundName(err, name)
	}

	var resp acknowledgedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("RestoreSnapshot decode: %w", err)
	}
	if !resp.Accepted && !resp.Acknowledged {
		return &APIError{Op: "RestoreSnapshot", Status: http.StatusOK, Reason: "restore not accepted"}
	}
	return nil
}

// RestoreStatus synthesizes a descriptor for an in-flight restore from the
// recovery endpoint. Shards recovering from the named snapshot count as done
// once their stage is DONE; an index with no matching recovery entries yet
// keeps the restore non-terminal.
func (c *DefaultClient) RestoreStatus(ctx context.Context, name string, indices []string) (model.SnapshotDescriptor, error) {
	path := "/" + joinIndices(indices) + "/_recovery?filter_path=*.shards.type,*.shards.stage,*.shards.source"
	raw, err := c.do(ctx, "RestoreStatus", http.MethodGet, path, nil)
	if err != nil {
		return model.SnapshotDescriptor{}, err
	}

	var resp recoveryResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return model.SnapshotDescriptor{}, fmt.Errorf("RestoreStatus decode: %w", err)
	}

	desc := model.SnapshotDescriptor{Name: name, Indices: indices, State: model.StateInProgress}
	seen := map[string]bool{}
	for idx, rec := range resp {
		for _, shard := range rec.Shards {
			if shard.Type != "SNAPSHOT" || shard.Source.Snapshot != name {
				continue
			}
			seen[idx] = true
			desc.TotalShards++
			if shard.Stage == "DONE" {
				desc.SuccessfulShards++
			}
		}
	}

	// Terminal only when every requested index has reported and every
	// snapshot-sourced shard finished.
	if len(seen) == len(indices) && desc.TotalShards > 0 && desc.SuccessfulShards == desc.TotalShards {
		desc.State = model.StateSuccess
	}
	return desc, nil
}

// CloseIndices closes the given indices ahead of a restore. Missing indices
// are ignored so first-time restores do not fail.
func (c *DefaultClient) CloseIndices(ctx context.Context, indices []string) error {
	if len(indices) == 0 {
		return &ValidationError{Msg: "at least one index is required"}
	}
	_, err := c.do(ctx, "CloseIndices", http.MethodPost,
		"/"+joinIndices(indices)+"/_close?ignore_unavailable=true", nil)
	return err
}

// OpenIndices reopens the given indices after a restore.
func (c *DefaultClient) OpenIndices(ctx context.Context, indices []string) error {
	if len(indices) == 0 {
		return &ValidationError{Msg: "at least one index is required"}
	}
	_, err := c.do(ctx, "OpenIndices", http.MethodPost,
		"/"+joinIndices(indices)+"/_open?ignore_unavailable=true", nil)
	return err
}
