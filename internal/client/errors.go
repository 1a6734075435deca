package client

import "fmt"

// ConnectionError wraps a transport-level failure reaching the snapshot API.
// The poller retries these a bounded number of times before escalating.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: connection error: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// BusyError reports that another snapshot operation holds the repository.
// The remote service enforces single-writer semantics per repository; this
// is surfaced immediately, never retried into a loop.
type BusyError struct {
	Repository string
	Reason     string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("repository %q busy: %s", e.Repository, e.Reason)
}

// NotFoundError reports that a referenced snapshot does not exist. Fatal for
// status and restore; treated as success for delete.
type NotFoundError struct {
	Name   string // snapshot the caller asked about
	Reason string // server-side reason, when the name is not known yet
}

func (e *NotFoundError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("snapshot not found: %s", e.Reason)
	}
	return fmt.Sprintf("snapshot %q not found", e.Name)
}

// ValidationError reports a malformed request detected before any remote
// call is made.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// APIError reports a non-2xx response that maps to no more specific type.
type APIError struct {
	Op     string
	Status int
	Type   string
	Reason string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: status %d (%s): %s", e.Op, e.Status, e.Type, e.Reason)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Reason)
}

// Elasticsearch exception types that indicate the repository is locked by a
// concurrent snapshot operation.
const (
	errTypeConcurrentSnapshot = "concurrent_snapshot_execution_exception"
	errTypeSnapshotInProgress = "snapshot_in_progress_exception"
	errTypeSnapshotMissing    = "snapshot_missing_exception"
	errTypeRestoreInProgress  = "snapshot_restore_exception"
)
