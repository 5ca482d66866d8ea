package contract

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockGitClient is a mock implementation of GitClient for testing.
type MockGitClient struct {
	mock.Mock
}

var _ GitClient = &MockGitClient{} // Compile-time check

// Run implements the GitClient interface.
func (m *MockGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	mockArgs := []any{ctx, repoPath}
	for _, arg := range args {
		mockArgs = append(mockArgs, arg)
	}
	ret := m.Called(mockArgs...)
	out, _ := ret.Get(0).([]byte)
	return out, ret.Error(1)
}

// GetActivityLog implements the GitClient interface.
func (m *MockGitClient) GetActivityLog(ctx context.Context, repoPath string, since, until time.Time) ([]byte, error) {
	ret := m.Called(ctx, repoPath, since, until)
	out, _ := ret.Get(0).([]byte)
	return out, ret.Error(1)
}

// GetCommitMessages implements the GitClient interface.
func (m *MockGitClient) GetCommitMessages(ctx context.Context, repoPath string, since, until time.Time) ([]byte, error) {
	ret := m.Called(ctx, repoPath, since, until)
	out, _ := ret.Get(0).([]byte)
	return out, ret.Error(1)
}

// GetLastCommitForPath implements the GitClient interface.
func (m *MockGitClient) GetLastCommitForPath(ctx context.Context, repoPath string, path string) ([]byte, error) {
	ret := m.Called(ctx, repoPath, path)
	out, _ := ret.Get(0).([]byte)
	return out, ret.Error(1)
}
