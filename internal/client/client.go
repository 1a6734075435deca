package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dm/essnap-go/internal/model"
)

// SnapshotClient defines the control operations against one repository of an
// Elasticsearch cluster.
type SnapshotClient interface {
	Ping(ctx context.Context) error
	EnsureRepository(ctx context.Context) error
	CreateSnapshot(ctx context.Context, name string, indices []string) (model.SnapshotDescriptor, error)
	GetSnapshot(ctx context.Context, name string) (model.SnapshotDescriptor, error)
	ListSnapshots(ctx context.Context) ([]model.SnapshotDescriptor, error)
	DeleteSnapshot(ctx context.Context, name string) error
	RestoreSnapshot(ctx context.Context, name string, indices []string) error
	RestoreStatus(ctx context.Context, name string, indices []string) (model.SnapshotDescriptor, error)
	CloseIndices(ctx context.Context, indices []string) error
	OpenIndices(ctx context.Context, indices []string) error
	Repository() string
}

// RepositorySettings is the opaque storage backing for the repository.
// S3 settings travel inside the repository registration body; the client
// never talks to the object store itself.
type RepositorySettings struct {
	Type            string // "s3" or "fs"
	Bucket          string
	BasePath        string
	Region          string
	Endpoint        string
	Protocol        string
	PathStyleAccess bool
	Location        string // fs repositories only
}

// ClientConfig holds configuration for DefaultClient.
type ClientConfig struct {
	BaseURL            string
	Username           string
	Password           string
	InsecureSkipVerify bool
	RequestTimeout     time.Duration

	RepositoryName     string
	RepositorySettings RepositorySettings
}

// DefaultClient implements SnapshotClient using the standard net/http package.
type DefaultClient struct {
	http   *http.Client
	config ClientConfig
}

// NewDefaultClient constructs a DefaultClient from the given config.
// It configures TLS skip-verify and request timeout from the config.
// Returns an error if BaseURL or RepositoryName is empty.
func NewDefaultClient(cfg ClientConfig) (*DefaultClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}
	if cfg.RepositoryName == "" {
		return nil, fmt.Errorf("RepositoryName is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
	}

	return &DefaultClient{
		http: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		config: cfg,
	}, nil
}

// Repository returns the configured repository name.
func (c *DefaultClient) Repository() string {
	return c.config.RepositoryName
}

const maxResponseBytes = 32 * 1024 * 1024 // 32 MB — well above any real ES response

// do performs an HTTP request with the given method, path (relative to
// BaseURL), and optional JSON body. It sets Accept/Content-Type headers and
// Basic Auth if credentials are configured. Transport failures come back as
// *ConnectionError; non-2xx statuses are mapped onto the typed error
// taxonomy via classifyStatus.
func (c *DefaultClient) do(ctx context.Context, op, method, path string, reqBody any) ([]byte, error) {
	url := strings.TrimRight(c.config.BaseURL, "/") + path

	var reader io.Reader
	if reqBody != nil {
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.Username != "" || c.config.Password != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ConnectionError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &ConnectionError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.classifyStatus(op, resp.StatusCode, body)
	}

	return body, nil
}

// classifyStatus turns a non-2xx response into a typed error. The snapshot
// API reports the exception type inside the error envelope; busy and missing
// conditions get their own types so callers can branch with errors.As.
func (c *DefaultClient) classifyStatus(op string, status int, body []byte) error {
	var envelope errorEnvelope
	_ = json.Unmarshal(body, &envelope)

	errType := envelope.Error.Type
	reason := envelope.Error.Reason
	if reason == "" {
		reason = truncate(body, 200)
	}

	switch errType {
	case errTypeConcurrentSnapshot, errTypeSnapshotInProgress, errTypeRestoreInProgress:
		return &BusyError{Repository: c.config.RepositoryName, Reason: reason}
	case errTypeSnapshotMissing:
		return &NotFoundError{Reason: reason}
	}
	if status == http.StatusNotFound {
		return &NotFoundError{Reason: reason}
	}
	return &APIError{Op: op, Status: status, Type: errType, Reason: reason}
}

// notFoundName fills in the snapshot name on a NotFoundError coming out of
// classifyStatus, which only sees the server's reason string.
func notFoundName(err error, name string) error {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		nf.Name = name
	}
	return err
}

// Ping checks connectivity by fetching the cluster root with a 2s timeout.
func (c *DefaultClient) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err := c.do(pingCtx, "Ping", http.MethodGet, "/", nil)
	return err
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
