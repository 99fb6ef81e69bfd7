package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/huangsam/prscore/internal/github"
	"github.com/huangsam/prscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseClosingReferences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int
	}{
		{"fixes", "Fixes #12", []int{12}},
		{"keyword variants", "closed #1, resolves #2 and fix #3", []int{1, 2, 3}},
		{"colon form", "Resolved: #7", []int{7}},
		{"case insensitive", "FIXED #8", []int{8}},
		{"duplicates", "fixes #4, closes #4", []int{4}},
		{"plain mention", "see #5 for context", nil},
		{"keyword inside word", "prefixes #6", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseClosingReferences(tt.text))
		})
	}
}

func TestSyncRepository(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	merged := time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)

	src := &github.MockChangeSource{}
	src.On("ListIssues", mock.Anything, "acme/api", since).Return([]schema.Issue{
		{Number: 3, Title: "Login broken", State: "closed"},
		{Number: 4, Title: "Unrelated", State: "open"},
	}, nil)
	src.On("ListMergedPullRequests", mock.Anything, "acme/api", since).Return([]schema.PullRequest{
		{Number: 10, Title: "Fix login", Body: "Fixes #3 and closes #99", AuthorLogin: "alice", MergedAt: merged},
	}, nil)
	src.On("ListPullRequestFiles", mock.Anything, "acme/api", 10).Return([]schema.ChangedFile{
		{Path: "auth/login.go", Status: "modified", Additions: 12, Deletions: 3},
		{Path: "auth/login_test.go", Status: "added", Additions: 30},
	}, nil).Once()

	syncer := NewSyncer(src, s, zap.NewNop())
	report, err := syncer.SyncRepository(ctx, testOrg, "acme/api", since)
	require.NoError(t, err)
	assert.Equal(t, &schema.SyncReport{Repository: "acme/api", Issues: 2, Changes: 1, ChangedFiles: 2, IssueLinks: 1}, report)

	change, err := s.FindChange(ctx, testOrg, "acme/api", 10)
	require.NoError(t, err)
	assert.Equal(t, 42, change.Additions)
	assert.Equal(t, 3, change.Deletions)
	assert.Equal(t, 2, change.ChangedFileCount)
	assert.Equal(t, "alice", change.AuthorLogin)

	linked, err := s.ListLinkedIssues(ctx, change.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, 3, linked[0].Number)

	// A resync replaces the file list wholesale.
	src.On("ListPullRequestFiles", mock.Anything, "acme/api", 10).Return([]schema.ChangedFile{
		{Path: "auth/session.go", Status: "modified", Additions: 1, Deletions: 1},
	}, nil).Once()
	_, err = syncer.SyncRepository(ctx, testOrg, "acme/api", since)
	require.NoError(t, err)

	files, err := s.ListChangedFiles(ctx, change.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "auth/session.go", files[0].Path)
	src.AssertExpectations(t)
}

func TestSyncRepositoryErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	syncer := NewSyncer(&github.MockChangeSource{}, s, nil)

	_, err := syncer.SyncRepository(ctx, testOrg, "acme", time.Time{})
	assert.ErrorContains(t, err, "expected owner/name")

	src := &github.MockChangeSource{}
	src.On("ListIssues", mock.Anything, "acme/api", mock.Anything).Return(nil, errors.New("boom"))
	_, err = NewSyncer(src, s, nil).SyncRepository(ctx, testOrg, "acme/api", time.Time{})
	assert.ErrorContains(t, err, "failed to list issues: boom")
}

func TestSyncOwnerSkipsArchived(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	src := &github.MockChangeSource{}
	src.On("ListRepositories", mock.Anything, "acme").Return([]schema.Repository{
		{Owner: "acme", Name: "api", FullName: "acme/api"},
		{Owner: "acme", Name: "old", FullName: "acme/old", Archived: true},
	}, nil)
	src.On("ListIssues", mock.Anything, "acme/api", since).Return([]schema.Issue{}, nil)
	src.On("ListMergedPullRequests", mock.Anything, "acme/api", since).Return([]schema.PullRequest{}, nil)

	reports, err := NewSyncer(src, s, zap.NewNop()).SyncOwner(ctx, testOrg, "acme", since)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "acme/api", reports[0].Repository)
	src.AssertNotCalled(t, "ListIssues", mock.Anything, "acme/old", mock.Anything)
	src.AssertExpectations(t)
}
