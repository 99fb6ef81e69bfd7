package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
	"go.uber.org/zap"
)

// Syncer copies merged pull requests and issues from a change source into the store.
type Syncer struct {
	source contract.ChangeSource
	store  contract.ChangeStore
	logger *zap.Logger
}

// NewSyncer creates a syncer. A nil logger discards output.
func NewSyncer(source contract.ChangeSource, store contract.ChangeStore, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{source: source, store: store, logger: logger}
}

// SyncRepository upserts the repository's issues and merged changes updated since
// the given time. Changed files are replaced wholesale and closing references in a
// change body are linked to issues known in the same repository.
func (s *Syncer) SyncRepository(ctx context.Context, orgID int64, repository string, since time.Time) (*schema.SyncReport, error) {
	if _, _, err := schema.ParseRepository(repository); err != nil {
		return nil, err
	}
	report := &schema.SyncReport{Repository: repository}
	logger := s.logger.With(zap.String("repository", repository))

	issues, err := s.source.ListIssues(ctx, repository, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	for i := range issues {
		issue := issues[i]
		issue.OrganizationID = orgID
		issue.Repository = repository
		if _, err := s.store.UpsertIssue(ctx, &issue); err != nil {
			return nil, err
		}
		report.Issues++
	}

	prs, err := s.source.ListMergedPullRequests(ctx, repository, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list merged pull requests: %w", err)
	}
	for _, pr := range prs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files, err := s.source.ListPullRequestFiles(ctx, repository, pr.Number)
		if err != nil {
			return nil, fmt.Errorf("failed to list files of %s#%d: %w", repository, pr.Number, err)
		}

		change := &schema.Change{
			OrganizationID:   orgID,
			Repository:       repository,
			Number:           pr.Number,
			Title:            pr.Title,
			Body:             pr.Body,
			URL:              pr.URL,
			AuthorLogin:      pr.AuthorLogin,
			MergedAt:         pr.MergedAt,
			ChangedFileCount: len(files),
		}
		for _, f := range files {
			change.Additions += f.Additions
			change.Deletions += f.Deletions
		}
		changeID, err := s.store.UpsertChange(ctx, change)
		if err != nil {
			return nil, err
		}
		if err := s.store.ReplaceChangedFiles(ctx, changeID, files); err != nil {
			return nil, err
		}

		linked, err := s.linkIssues(ctx, orgID, repository, changeID, pr.Body)
		if err != nil {
			return nil, err
		}
		report.Changes++
		report.ChangedFiles += len(files)
		report.IssueLinks += linked
	}

	logger.Info("repository synced",
		zap.Int("issues", report.Issues),
		zap.Int("changes", report.Changes),
		zap.Int("files", report.ChangedFiles),
		zap.Int("links", report.IssueLinks))
	return report, nil
}

// linkIssues replaces the change's issue links with the referenced issues that exist.
func (s *Syncer) linkIssues(ctx context.Context, orgID int64, repository string, changeID int64, body string) (int, error) {
	numbers := ParseClosingReferences(body)
	ids, err := s.store.FindIssueIDs(ctx, orgID, repository, numbers)
	if err != nil {
		return 0, err
	}
	issueIDs := make([]int64, 0, len(ids))
	for _, n := range numbers {
		if id, ok := ids[n]; ok {
			issueIDs = append(issueIDs, id)
		}
	}
	if err := s.store.ReplaceIssueLinks(ctx, changeID, issueIDs); err != nil {
		return 0, err
	}
	return len(issueIDs), nil
}

// SyncOwner syncs every non-archived repository of an owner.
func (s *Syncer) SyncOwner(ctx context.Context, orgID int64, owner string, since time.Time) ([]schema.SyncReport, error) {
	repos, err := s.source.ListRepositories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories of %s: %w", owner, err)
	}

	var reports []schema.SyncReport
	for _, repo := range repos {
		if repo.Archived {
			s.logger.Debug("skipping archived repository", zap.String("repository", repo.FullName))
			continue
		}
		report, err := s.SyncRepository(ctx, orgID, repo.FullName, since)
		if err != nil {
			return reports, fmt.Errorf("failed to sync %s: %w", repo.FullName, err)
		}
		reports = append(reports, *report)
	}
	return reports, nil
}
