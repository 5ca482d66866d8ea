package scan

import (
	"context"
	"time"

	"github.com/huangsam/hourglass/internal/ghapi"
	"github.com/stretchr/testify/mock"
)

// MockGitHub is a mock implementation of GitHub for testing.
type MockGitHub struct {
	mock.Mock
}

var _ GitHub = &MockGitHub{} // Compile-time check

// AuthenticatedUser implements the GitHub interface.
func (m *MockGitHub) AuthenticatedUser(ctx context.Context) (ghapi.User, error) {
	ret := m.Called(ctx)
	u, _ := ret.Get(0).(ghapi.User)
	return u, ret.Error(1)
}

// ListRepos implements the GitHub interface.
func (m *MockGitHub) ListRepos(ctx context.Context, q ghapi.RepoQuery) ([]ghapi.Repo, error) {
	ret := m.Called(ctx, q)
	out, _ := ret.Get(0).([]ghapi.Repo)
	return out, ret.Error(1)
}

// ListContributors implements the GitHub interface.
func (m *MockGitHub) ListContributors(ctx context.Context, fullName string) ([]ghapi.Contributor, error) {
	ret := m.Called(ctx, fullName)
	out, _ := ret.Get(0).([]ghapi.Contributor)
	return out, ret.Error(1)
}

// ListCommits implements the GitHub interface.
func (m *MockGitHub) ListCommits(ctx context.Context, fullName string, since, until time.Time) ([]ghapi.Commit, error) {
	ret := m.Called(ctx, fullName, since, until)
	out, _ := ret.Get(0).([]ghapi.Commit)
	return out, ret.Error(1)
}

// GetCommit implements the GitHub interface.
func (m *MockGitHub) GetCommit(ctx context.Context, fullName, sha string) (ghapi.CommitDetail, error) {
	ret := m.Called(ctx, fullName, sha)
	out, _ := ret.Get(0).(ghapi.CommitDetail)
	return out, ret.Error(1)
}

// ListPulls implements the GitHub interface.
func (m *MockGitHub) ListPulls(ctx context.Context, fullName string, since time.Time) ([]ghapi.Pull, error) {
	ret := m.Called(ctx, fullName, since)
	out, _ := ret.Get(0).([]ghapi.Pull)
	return out, ret.Error(1)
}

// ListIssues implements the GitHub interface.
func (m *MockGitHub) ListIssues(ctx context.Context, fullName string, since time.Time) ([]ghapi.Issue, error) {
	ret := m.Called(ctx, fullName, since)
	out, _ := ret.Get(0).([]ghapi.Issue)
	return out, ret.Error(1)
}

// ListIssueComments implements the GitHub interface.
func (m *MockGitHub) ListIssueComments(ctx context.Context, fullName string, number int) ([]ghapi.Comment, error) {
	ret := m.Called(ctx, fullName, number)
	out, _ := ret.Get(0).([]ghapi.Comment)
	return out, ret.Error(1)
}

// ListReviewComments implements the GitHub interface.
func (m *MockGitHub) ListReviewComments(ctx context.Context, fullName string, number int) ([]ghapi.Comment, error) {
	ret := m.Called(ctx, fullName, number)
	out, _ := ret.Get(0).([]ghapi.Comment)
	return out, ret.Error(1)
}

// ListReviews implements the GitHub interface.
func (m *MockGitHub) ListReviews(ctx context.Context, fullName string, number int) ([]ghapi.Review, error) {
	ret := m.Called(ctx, fullName, number)
	out, _ := ret.Get(0).([]ghapi.Review)
	return out, ret.Error(1)
}
