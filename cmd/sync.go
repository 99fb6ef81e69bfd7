package cmd

import (
	"time"

	"github.com/huangsam/prscore/core"
	"github.com/huangsam/prscore/internal/outwriter"
	"github.com/huangsam/prscore/schema"
	"github.com/spf13/cobra"
)

// syncCmd pulls merged pull requests and issues from GitHub into the store.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull merged pull requests and issues from GitHub",
	Long: `Synchronize merged pull requests, their changed files and the issues they close
from GitHub into the store.

Either list repositories with --repos or sync every unarchived repository of an
organization with --owner. Closing keywords in pull request descriptions
(fixes #12, closes #3) link changes to issues of the same repository.

Examples:
  # Sync two repositories for the last week
  prscore sync --org 1 --repos acme/api,acme/web

  # Sync a whole GitHub organization for the last 30 days
  PRSCORE_GITHUB_TOKEN=... prscore sync --org 1 --owner acme --lookback 30`,
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.ValidateForSync(); err != nil {
			return err
		}
		ctx := cmd.Context()
		start := time.Now()

		s, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		source, err := newSource(ctx)
		if err != nil {
			return err
		}
		syncer := core.NewSyncer(source, s, logger)
		since := cfg.Since(start)

		var reports []schema.SyncReport
		if cfg.GitHubOwner != "" {
			owned, err := syncer.SyncOwner(ctx, cfg.OrganizationID, cfg.GitHubOwner, since)
			reports = append(reports, owned...)
			if err != nil {
				return err
			}
		}
		for _, repo := range cfg.Repositories {
			report, err := syncer.SyncRepository(ctx, cfg.OrganizationID, repo, since)
			if err != nil {
				return err
			}
			reports = append(reports, *report)
		}

		return outwriter.NewOutWriter().WriteSyncReports(reports, cfg, time.Since(start))
	},
}
