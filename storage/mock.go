package storage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

// MockBlobStore is a testify mock of interfaces.BlobStore.
type MockBlobStore struct {
	mock.Mock
	BackendName string
}

func (m *MockBlobStore) Put(ctx context.Context, data []byte, name string) (string, error) {
	args := m.Called(ctx, data, name)
	return args.String(0), args.Error(1)
}

func (m *MockBlobStore) Get(ctx context.Context, ref string) ([]byte, error) {
	args := m.Called(ctx, ref)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockBlobStore) Delete(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *MockBlobStore) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockBlobStore) Name() string {
	if m.BackendName == "" {
		return "mock"
	}
	return m.BackendName
}

var (
	_ interfaces.BlobStore = (*MockBlobStore)(nil)
	_ interfaces.BlobStore = (*IPFSBackend)(nil)
	_ interfaces.BlobStore = (*S3Backend)(nil)
	_ interfaces.BlobStore = (*FileBackend)(nil)
	_ interfaces.BlobStore = (*BadgerBackend)(nil)
	_ interfaces.BlobStore = (*MultiBlobStore)(nil)
)
