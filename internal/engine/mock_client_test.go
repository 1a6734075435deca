package engine

import (
	"context"
	"errors"

	"github.com/dm/essnap-go/internal/client"
	"github.com/dm/essnap-go/internal/model"
)

// MockSnapshotClient implements client.SnapshotClient for testing.
type MockSnapshotClient struct {
	EnsureRepositoryFn func(ctx context.Context) error
	CreateFn           func(ctx context.Context, name string, indices []string) (model.SnapshotDescriptor, error)
	GetFn              func(ctx context.Context, name string) (model.SnapshotDescriptor, error)
	ListFn             func(ctx context.Context) ([]model.SnapshotDescriptor, error)
	DeleteFn           func(ctx context.Context, name string) error
	RestoreFn          func(ctx context.Context, name string, indices []string) error
	RestoreStatusFn    func(ctx context.Context, name string, indices []string) (model.SnapshotDescriptor, error)
	CloseFn            func(ctx context.Context, indices []string) error
	OpenFn             func(ctx context.Context, indices []string) error
}

func (m *MockSnapshotClient) Ping(ctx context.Context) error { return nil }

func (m *MockSnapshotClient) EnsureRepository(ctx context.Context) error {
	if m.EnsureRepositoryFn != nil {
		return m.EnsureRepositoryFn(ctx)
	}
	return nil
}

func (m *MockSnapshotClient) CreateSnapshot(ctx context.Context, name string, indices []string) (model.SnapshotDescriptor, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, name, indices)
	}
	return model.SnapshotDescriptor{Name: name, State: model.StateInProgress, Indices: indices}, nil
}

func (m *MockSnapshotClient) GetSnapshot(ctx context.Context, name string) (model.SnapshotDescriptor, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, name)
	}
	return model.SnapshotDescriptor{Name: name, State: model.StateSuccess}, nil
}

func (m *MockSnapshotClient) ListSnapshots(ctx context.Context) ([]model.SnapshotDescriptor, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	return nil, nil
}

func (m *MockSnapshotClient) DeleteSnapshot(ctx context.Context, name string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, name)
	}
	return nil
}

func (m *MockSnapshotClient) RestoreSnapshot(ctx context.Context, name string, indices []string) error {
	if m.RestoreFn != nil {
		return m.RestoreFn(ctx, name, indices)
	}
	return nil
}

func (m *MockSnapshotClient) RestoreStatus(ctx context.Context, name string, indices []string) (model.SnapshotDescriptor, error) {
	if m.RestoreStatusFn != nil {
		return m.RestoreStatusFn(ctx, name, indices)
	}
	return model.SnapshotDescriptor{Name: name, State: model.StateSuccess, Indices: indices}, nil
}

func (m *MockSnapshotClient) CloseIndices(ctx context.Context, indices []string) error {
	if m.CloseFn != nil {
		return m.CloseFn(ctx, indices)
	}
	return nil
}

func (m *MockSnapshotClient) OpenIndices(ctx context.Context, indices []string) error {
	if m.OpenFn != nil {
		return m.OpenFn(ctx, indices)
	}
	return nil
}

func (m *MockSnapshotClient) Repository() string { return "test-repo" }

var errMockFailure = errors.New("mock failure")

// connErr wraps errMockFailure the way the HTTP client reports transport
// failures, so poller retry paths can be exercised.
func connErr() error {
	return &client.ConnectionError{Op: "GetSnapshot", Err: errMockFailure}
}
