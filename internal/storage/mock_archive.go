package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockArchive is a mock implementation of crawler.ArchiveWriter for testing.
type MockArchive struct {
	mock.Mock
}

// Put is the mock implementation of the Put method.
func (m *MockArchive) Put(ctx context.Context, name string, data []byte) (string, error) {
	args := m.Called(ctx, name, data)
	return args.String(0), args.Error(1) //nolint:wrapcheck
}
