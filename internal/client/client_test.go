package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dm/essnap-go/internal/model"
)

// newTestClient creates a DefaultClient pointed at the given test server URL.
func newTestClient(t *testing.T, baseURL string) *DefaultClient {
	t.Helper()
	c, err := NewDefaultClient(ClientConfig{
		BaseURL:        baseURL,
		RepositoryName: "test-repo",
		RequestTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewDefaultClient: %v", err)
	}
	return c
}

func TestNewDefaultClient_Validation(t *testing.T) {
	if _, err := NewDefaultClient(ClientConfig{RepositoryName: "r"}); err == nil {
		t.Error("expected error for empty BaseURL")
	}
	if _, err := NewDefaultClient(ClientConfig{BaseURL: "http://localhost:9200"}); err == nil {
		t.Error("expected error for empty RepositoryName")
	}
}

func TestCreateSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/_snapshot/test-repo/snap1":
			body, _ := io.ReadAll(r.Body)
			var req createSnapshotBody
			if err := json.Unmarshal(body, &req); err != nil {
				t.Errorf("decode request body: %v", err)
			}
			if req.Indices != "logs-1,logs-2" {
				t.Errorf("Indices = %q, want %q", req.Indices, "logs-1,logs-2")
			}
			if !req.IgnoreUnavailable {
				t.Error("IgnoreUnavailable not set")
			}
			_, _ = w.Write([]byte(`{"accepted":true}`))
		case r.Method == http.MethodGet && r.URL.Path == "/_snapshot/test-repo/snap1":
			_, _ = w.Write([]byte(`{"snapshots":[{"snapshot":"snap1","state":"STARTED","indices":["logs-1","logs-2"]}]}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	desc, err := c.CreateSnapshot(context.Background(), "snap1", []string{"logs-1", "logs-2"})
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}
	if desc.Name != "snap1" {
		t.Errorf("Name = %q, want %q", desc.Name, "snap1")
	}
	if desc.State != model.StateInProgress {
		t.Errorf("State = %v, want %v", desc.State, model.StateInProgress)
	}
}

func TestCreateSnapshot_EmptyArguments(t *testing.T) {
	c := newTestClient(t, "http://localhost:1")

	var vErr *ValidationError
	if _, err := c.CreateSnapshot(context.Background(), "", []string{"a"}); !errors.As(err, &vErr) {
		t.Errorf("empty name: got %v, want ValidationError", err)
	}
	if _, err := c.CreateSnapshot(context.Background(), "s", nil); !errors.As(err, &vErr) {
		t.Errorf("empty indices: got %v, want ValidationError", err)
	}
}

func TestCreateSnapshot_BusyRepository(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"type":"concurrent_snapshot_execution_exception","reason":"a snapshot is already running"},"status":503}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.CreateSnapshot(context.Background(), "snap1", []string{"logs-1"})

	var busy *BusyError
	if !errors.As(err, &busy) {
		t.Fatalf("got %v, want BusyError", err)
	}
	if busy.Repository != "test-repo" {
		t.Errorf("Repository = %q, want %q", busy.Repository, "test-repo")
	}
	if !strings.Contains(busy.Reason, "already running") {
		t.Errorf("Reason = %q, want it to carry the server reason", busy.Reason)
	}
}

func TestGetSnapshot_ShardFailuresOverrideState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/_status") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"snapshots":[{
			"snapshot":"snap1",
			"state":"SUCCESS",
			"indices":["logs-1"],
			"start_time_in_millis":1754042400000,
			"end_time_in_millis":1754042460000,
			"shards":{"total":5,"successful":3,"failed":2}
		}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	desc, err := c.GetSnapshot(context.Background(), "snap1")
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if desc.State != model.StatePartial {
		t.Errorf("State = %v, want PARTIAL when shards failed alongside successes", desc.State)
	}
	if desc.StartedAt.IsZero() {
		t.Error("StartedAt not populated from millis")
	}
	if desc.EndedAt.IsZero() {
		t.Error("EndedAt must be set for a terminal snapshot")
	}
	if desc.FailedShards != 2 || desc.SuccessfulShards != 3 {
		t.Errorf("shards = %d/%d failed=%d, want 3/5 failed=2",
			desc.SuccessfulShards, desc.TotalShards, desc.FailedShards)
	}
}

func TestGetSnapshot_InProgressHasNoEndTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"snapshots":[{
			"snapshot":"snap1",
			"state":"IN_PROGRESS",
			"start_time_in_millis":1754042400000,
			"end_time_in_millis":1754042460000
		}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	desc, err := c.GetSnapshot(context.Background(), "snap1")
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if desc.State != model.StateInProgress {
		t.Errorf("State = %v, want IN_PROGRESS", desc.State)
	}
	if !desc.EndedAt.IsZero() {
		t.Errorf("EndedAt = %v, want zero for a non-terminal snapshot", desc.EndedAt)
	}
}

func TestGetSnapshot_Missing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"snapshot_missing_exception","reason":"[test-repo:gone] is missing"},"status":404}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.GetSnapshot(context.Background(), "gone")

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("got %v, want NotFoundError", err)
	}
	if notFound.Name != "gone" {
		t.Errorf("Name = %q, want the requested snapshot name", notFound.Name)
	}
	if got := notFound.Error(); !strings.Contains(got, `"gone"`) {
		t.Errorf("Error() = %q, want it to quote the snapshot name", got)
	}
}

func TestGetSnapshot_PopulatesSizeWhenTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "/_status") {
			_, _ = w.Write([]byte(`{"snapshots":[{"stats":{"total":{"size_in_bytes":123456}}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"snapshots":[{"snapshot":"snap1","state":"SUCCESS","shards":{"total":1,"successful":1,"failed":0}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	desc, err := c.GetSnapshot(context.Background(), "snap1")
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if desc.SizeBytes != 123456 {
		t.Errorf("SizeBytes = %d, want 123456", desc.SizeBytes)
	}
}

func TestListSnapshots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_snapshot/test-repo/_all" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"snapshots":[
			{"snapshot":"a","state":"SUCCESS","shards":{"total":1,"successful":1,"failed":0}},
			{"snapshot":"b","state":"FAILED","shards":{"total":1,"successful":0,"failed":1}}
		]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	snaps, err := c.ListSnapshots(context.Background())
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("len(snaps) = %d, want 2", len(snaps))
	}
	if snaps[0].State != model.StateSuccess {
		t.Errorf("snaps[0].State = %v, want SUCCESS", snaps[0].State)
	}
	if snaps[1].State != model.StateFailed {
		t.Errorf("snaps[1].State = %v, want FAILED", snaps[1].State)
	}
}

func TestDeleteSnapshot_Missing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %q, want DELETE", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"snapshot_missing_exception","reason":"[test-repo:gone] is missing"},"status":404}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.DeleteSnapshot(context.Background(), "gone")

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("got %v, want NotFoundError so cleanup can treat it as success", err)
	}
	if notFound.Name != "gone" {
		t.Errorf("Name = %q, want the requested snapshot name", notFound.Name)
	}
}

func TestEnsureRepository_S3Body(t *testing.T) {
	var captured repositoryBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_snapshot/test-repo" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("verify") != "false" {
			t.Errorf("verify=false missing from query: %q", r.URL.RawQuery)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	}))
	defer srv.Close()

	c, err := NewDefaultClient(ClientConfig{
		BaseURL:        srv.URL,
		RepositoryName: "test-repo",
		RepositorySettings: RepositorySettings{
			Type:            "s3",
			Bucket:          "bkt",
			BasePath:        "es-snaps",
			Region:          "eu-west-1",
			PathStyleAccess: true,
		},
	})
	if err != nil {
		t.Fatalf("NewDefaultClient: %v", err)
	}
	if err := c.EnsureRepository(context.Background()); err != nil {
		t.Fatalf("EnsureRepository: %v", err)
	}
	if captured.Type != "s3" {
		t.Errorf("Type = %q, want s3", captured.Type)
	}
	if captured.Settings["bucket"] != "bkt" {
		t.Errorf("bucket = %v, want bkt", captured.Settings["bucket"])
	}
	if captured.Settings["path_style_access"] != true {
		t.Errorf("path_style_access = %v, want true", captured.Settings["path_style_access"])
	}
}

func TestEnsureRepository_FSDefaultLocation(t *testing.T) {
	var captured repositoryBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if err := c.EnsureRepository(context.Background()); err != nil {
		t.Fatalf("EnsureRepository: %v", err)
	}
	if captured.Type != "fs" {
		t.Errorf("Type = %q, want fs", captured.Type)
	}
	loc, _ := captured.Settings["location"].(string)
	if !strings.HasSuffix(loc, "/test-repo") {
		t.Errorf("location = %q, want it to end in the repository name", loc)
	}
}

func TestRestoreStatus(t *testing.T) {
	responses := []string{
		// First call: one shard still indexing.
		`{"logs-1":{"shards":[
			{"type":"SNAPSHOT","stage":"DONE","source":{"snapshot":"snap1","repository":"test-repo"}},
			{"type":"SNAPSHOT","stage":"INDEX","source":{"snapshot":"snap1","repository":"test-repo"}},
			{"type":"PEER","stage":"DONE","source":{}}
		]}}`,
		// Second call: everything done.
		`{"logs-1":{"shards":[
			{"type":"SNAPSHOT","stage":"DONE","source":{"snapshot":"snap1","repository":"test-repo"}},
			{"type":"SNAPSHOT","stage":"DONE","source":{"snapshot":"snap1","repository":"test-repo"}}
		]}}`,
	}
	call := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/logs-1/_recovery") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(responses[call]))
		if call < len(responses)-1 {
			call++
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	desc, err := c.RestoreStatus(context.Background(), "snap1", []string{"logs-1"})
	if err != nil {
		t.Fatalf("RestoreStatus: %v", err)
	}
	if desc.State != model.StateInProgress {
		t.Errorf("State = %v, want IN_PROGRESS while a shard is still recovering", desc.State)
	}
	if desc.TotalShards != 2 || desc.SuccessfulShards != 1 {
		t.Errorf("shards = %d/%d, want 1/2 (peer recoveries must not count)",
			desc.SuccessfulShards, desc.TotalShards)
	}

	desc, err = c.RestoreStatus(context.Background(), "snap1", []string{"logs-1"})
	if err != nil {
		t.Fatalf("RestoreStatus: %v", err)
	}
	if desc.State != model.StateSuccess {
		t.Errorf("State = %v, want SUCCESS once every snapshot shard is DONE", desc.State)
	}
}

func TestRestoreStatus_NoEntriesStaysInProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	desc, err := c.RestoreStatus(context.Background(), "snap1", []string{"logs-1"})
	if err != nil {
		t.Fatalf("RestoreStatus: %v", err)
	}
	if desc.State != model.StateInProgress {
		t.Errorf("State = %v, want IN_PROGRESS before recovery entries appear", desc.State)
	}
}

func TestCloseAndOpenIndices(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Query().Get("ignore_unavailable") != "true" {
			t.Errorf("ignore_unavailable missing from query: %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if err := c.CloseIndices(context.Background(), []string{"logs-1", "logs-2"}); err != nil {
		t.Fatalf("CloseIndices: %v", err)
	}
	if err := c.OpenIndices(context.Background(), []string{"logs-1", "logs-2"}); err != nil {
		t.Fatalf("OpenIndices: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/logs-1,logs-2/_close" || paths[1] != "/logs-1,logs-2/_open" {
		t.Errorf("paths = %v", paths)
	}
}

func TestDo_TransportErrorIsConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := newTestClient(t, srv.URL)
	_, err := c.GetSnapshot(context.Background(), "snap1")

	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("got %v, want ConnectionError", err)
	}
}

func TestDo_SendsBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "elastic" || pass != "secret" {
			t.Errorf("BasicAuth = %q/%q ok=%v", user, pass, ok)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"snapshots":[{"snapshot":"s","state":"STARTED"}]}`))
	}))
	defer srv.Close()

	c, err := NewDefaultClient(ClientConfig{
		BaseURL:        srv.URL,
		RepositoryName: "test-repo",
		Username:       "elastic",
		Password:       "secret",
	})
	if err != nil {
		t.Fatalf("NewDefaultClient: %v", err)
	}
	if _, err := c.GetSnapshot(context.Background(), "s"); err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
}

func TestClassifyStatus_TruncatesUnparseableBody(t *testing.T) {
	long := strings.Repeat("x", 500)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(long))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.GetSnapshot(context.Background(), "snap1")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("got %v, want APIError", err)
	}
	if len(apiErr.Reason) > 210 {
		t.Errorf("Reason length = %d, want truncated to ~200", len(apiErr.Reason))
	}
	if !strings.HasSuffix(apiErr.Reason, "...") {
		t.Errorf("Reason = %q, want ellipsis suffix", apiErr.Reason[:20])
	}
}
