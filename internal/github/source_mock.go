package github

import (
	"context"
	"time"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
	"github.com/stretchr/testify/mock"
)

// MockChangeSource is a mock implementation of ChangeSource for testing.
type MockChangeSource struct {
	mock.Mock
}

var _ contract.ChangeSource = &MockChangeSource{} // Compile-time check

// ListRepositories implements the ChangeSource interface.
func (m *MockChangeSource) ListRepositories(ctx context.Context, owner string) ([]schema.Repository, error) {
	args := m.Called(ctx, owner)
	v, _ := args.Get(0).([]schema.Repository)
	return v, args.Error(1)
}

// ListMergedPullRequests implements the ChangeSource interface.
func (m *MockChangeSource) ListMergedPullRequests(ctx context.Context, repository string, since time.Time) ([]schema.PullRequest, error) {
	args := m.Called(ctx, repository, since)
	v, _ := args.Get(0).([]schema.PullRequest)
	return v, args.Error(1)
}

// ListPullRequestFiles implements the ChangeSource interface.
func (m *MockChangeSource) ListPullRequestFiles(ctx context.Context, repository string, number int) ([]schema.ChangedFile, error) {
	args := m.Called(ctx, repository, number)
	v, _ := args.Get(0).([]schema.ChangedFile)
	return v, args.Error(1)
}

// ListIssues implements the ChangeSource interface.
func (m *MockChangeSource) ListIssues(ctx context.Context, repository string, since time.Time) ([]schema.Issue, error) {
	args := m.Called(ctx, repository, since)
	v, _ := args.Get(0).([]schema.Issue)
	return v, args.Error(1)
}

// CreateComment implements the ChangeSource interface.
func (m *MockChangeSource) CreateComment(ctx context.Context, repository string, number int, body string) error {
	args := m.Called(ctx, repository, number, body)
	return args.Error(0)
}
