// Package github adapts the GitHub REST API to the change source used by sync.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v61/github"
	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	userAgent          = "prscore"
	pageSize           = 100
	maxRateLimitWaits  = 3
	defaultResetWait   = 5 * time.Second
	defaultMaxWaitTime = 2 * time.Minute
)

// Config holds the connection settings of the GitHub source.
type Config struct {
	Token            string
	BaseURL          string        // Empty uses api.github.com; Enterprise needs the full API root
	MaxRateLimitWait time.Duration // Cap on a single rate limit wait; 0 uses two minutes
}

// Source reads merged pull requests and issues from GitHub.
type Source struct {
	client  *gh.Client
	logger  *zap.Logger
	maxWait time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

var _ contract.ChangeSource = &Source{} // Compile-time check

// NewSource creates an authenticated source when a token is configured and an
// anonymous one otherwise.
func NewSource(ctx context.Context, cfg Config, logger *zap.Logger) (*Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var httpClient *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	}
	client := gh.NewClient(httpClient)
	client.UserAgent = userAgent

	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", cfg.BaseURL, err)
		}
		client.BaseURL = u
	}

	maxWait := cfg.MaxRateLimitWait
	if maxWait <= 0 {
		maxWait = defaultMaxWaitTime
	}
	return &Source{client: client, logger: logger, maxWait: maxWait, sleep: sleepContext}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// rateLimitWait reports how long to wait before retrying a rate limited call.
func rateLimitWait(err error) (time.Duration, bool) {
	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &abuse) {
		if abuse.RetryAfter != nil && *abuse.RetryAfter > 0 {
			return *abuse.RetryAfter, true
		}
		return defaultResetWait, true
	}
	var limit *gh.RateLimitError
	if errors.As(err, &limit) {
		wait := time.Until(limit.Rate.Reset.Time)
		if wait <= 0 {
			wait = defaultResetWait
		}
		return wait, true
	}
	return 0, false
}

// call runs fn and retries it after waiting out rate limits.
func (s *Source) call(ctx context.Context, what string, fn func() (*gh.Response, error)) (*gh.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		wait, limited := rateLimitWait(err)
		if !limited || attempt >= maxRateLimitWaits {
			return resp, fmt.Errorf("failed to %s: %w", what, err)
		}
		wait = min(wait, s.maxWait)
		s.logger.Warn("GitHub rate limit reached, waiting",
			zap.String("call", what),
			zap.Duration("wait", wait),
			zap.Int("attempt", attempt+1))
		if err := s.sleep(ctx, wait); err != nil {
			return resp, err
		}
	}
}

// ListRepositories lists the repositories of an organization.
func (s *Source) ListRepositories(ctx context.Context, owner string) ([]schema.Repository, error) {
	opts := &gh.RepositoryListByOrgOptions{Type: "all", ListOptions: gh.ListOptions{PerPage: pageSize}}
	var repos []schema.Repository
	for {
		var page []*gh.Repository
		resp, err := s.call(ctx, "list repositories of "+owner, func() (*gh.Response, error) {
			var resp *gh.Response
			var err error
			page, resp, err = s.client.Repositories.ListByOrg(ctx, owner, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		for _, r := range page {
			repos = append(repos, schema.Repository{
				Owner:    r.GetOwner().GetLogin(),
				Name:     r.GetName(),
				FullName: r.GetFullName(),
				Archived: r.GetArchived(),
			})
		}
		if resp.NextPage == 0 {
			return repos, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListMergedPullRequests lists pull requests merged at or after since. Closed
// pull requests that were never merged are skipped.
func (s *Source) ListMergedPullRequests(ctx context.Context, repository string, since time.Time) ([]schema.PullRequest, error) {
	owner, name, err := schema.ParseRepository(repository)
	if err != nil {
		return nil, err
	}
	opts := &gh.PullRequestListOptions{
		State:       "closed",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: pageSize},
	}

	var prs []schema.PullRequest
	for {
		var page []*gh.PullRequest
		resp, err := s.call(ctx, "list pull requests of "+repository, func() (*gh.Response, error) {
			var resp *gh.Response
			var err error
			page, resp, err = s.client.PullRequests.List(ctx, owner, name, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		done := false
		for _, pr := range page {
			// Sorted by update time; a merge always updates the pull request.
			if pr.UpdatedAt != nil && pr.GetUpdatedAt().Before(since) {
				done = true
				break
			}
			if pr.MergedAt == nil || pr.GetMergedAt().Before(since) {
				continue
			}
			prs = append(prs, schema.PullRequest{
				Number:      pr.GetNumber(),
				Title:       pr.GetTitle(),
				Body:        pr.GetBody(),
				URL:         pr.GetHTMLURL(),
				AuthorLogin: pr.GetUser().GetLogin(),
				MergedAt:    pr.GetMergedAt().UTC(),
			})
		}
		if done || resp.NextPage == 0 {
			return prs, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListPullRequestFiles lists the files changed by a pull request.
func (s *Source) ListPullRequestFiles(ctx context.Context, repository string, number int) ([]schema.ChangedFile, error) {
	owner, name, err := schema.ParseRepository(repository)
	if err != nil {
		return nil, err
	}
	opts := &gh.ListOptions{PerPage: pageSize}

	var files []schema.ChangedFile
	for {
		var page []*gh.CommitFile
		resp, err := s.call(ctx, fmt.Sprintf("list files of %s#%d", repository, number), func() (*gh.Response, error) {
			var resp *gh.Response
			var err error
			page, resp, err = s.client.PullRequests.ListFiles(ctx, owner, name, number, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		for _, f := range page {
			files = append(files, schema.ChangedFile{
				Path:      f.GetFilename(),
				Status:    f.GetStatus(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
			})
		}
		if resp.NextPage == 0 {
			return files, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListIssues lists issues updated at or after since. Pull requests, which the
// issues API also returns, are skipped.
func (s *Source) ListIssues(ctx context.Context, repository string, since time.Time) ([]schema.Issue, error) {
	owner, name, err := schema.ParseRepository(repository)
	if err != nil {
		return nil, err
	}
	opts := &gh.IssueListByRepoOptions{
		State:       "all",
		Since:       since,
		ListOptions: gh.ListOptions{PerPage: pageSize},
	}

	var issues []schema.Issue
	for {
		var page []*gh.Issue
		resp, err := s.call(ctx, "list issues of "+repository, func() (*gh.Response, error) {
			var resp *gh.Response
			var err error
			page, resp, err = s.client.Issues.ListByRepo(ctx, owner, name, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		for _, is := range page {
			if is.IsPullRequest() {
				continue
			}
			issues = append(issues, schema.Issue{
				Repository: repository,
				Number:     is.GetNumber(),
				Title:      is.GetTitle(),
				Body:       is.GetBody(),
				URL:        is.GetHTMLURL(),
				State:      is.GetState(),
			})
		}
		if resp.NextPage == 0 {
			return issues, nil
		}
		opts.Page = resp.NextPage
	}
}

// CreateComment posts a comment on a pull request.
func (s *Source) CreateComment(ctx context.Context, repository string, number int, body string) error {
	owner, name, err := schema.ParseRepository(repository)
	if err != nil {
		return err
	}
	_, err = s.call(ctx, fmt.Sprintf("comment on %s#%d", repository, number), func() (*gh.Response, error) {
		_, resp, err := s.client.Issues.CreateComment(ctx, owner, name, number, &gh.IssueComment{Body: gh.String(body)})
		return resp, err
	})
	return err
}
