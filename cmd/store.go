package cmd

import (
	"fmt"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/internal/store"
	"github.com/huangsam/prscore/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// storeSetup loads minimal configuration needed for store maintenance.
// This is used by commands that need store access without full shared setup.
func storeSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	backend := schema.DatabaseBackend(viper.GetString("store-backend"))
	if _, ok := schema.ValidStoreBackends[backend]; !ok {
		return fmt.Errorf("invalid store backend '%s'. must be sqlite, mysql, postgresql", backend)
	}
	connStr := viper.GetString("store-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	cfg.StoreBackend = backend
	cfg.StoreDBConnect = connStr
	cfg.OrganizationID = viper.GetInt64("org")
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// storeSetupWrapper wraps storeSetup to provide PreRunE for store commands.
func storeSetupWrapper(_ *cobra.Command, _ []string) error {
	return storeSetup()
}

// storeCmd focused on pipeline store management.
//
// Note: Store subcommands use minimal initialization (storeSetup) instead of
// the full sharedSetup. This avoids judge and output validation for simple
// maintenance operations.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the pipeline store (status, migrations, exports)",
	Long: `Manage the database holding catalogs, synced changes, batches, evaluations
and developer daily stats.

Supported backends: SQLite (default), MySQL, PostgreSQL

Subcommands:
  status  - Show table sizes and the last batch
  migrate - Run database schema migrations
  export  - Export batches, evaluations and daily stats to Parquet
  clear   - Remove all pipeline data`,
}

// storeStatusCmd shows store status.
var storeStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display store statistics and connection details",
	PreRunE: storeSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		status, err := s.GetStatus(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get store status: %w", err)
		}
		store.PrintStoreStatus(cmd.OutOrStdout(), status)
		return nil
	},
}

// storeMigrateCmd runs database migrations for the pipeline store.
var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions of the pipeline store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  prscore store migrate

  # Rollback everything
  prscore store migrate --target-version 0`,
	PreRunE: storeSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		from, to, err := store.MigrateStore(cfg.StoreBackend, cfg.StoreDBConnect, viper.GetInt("target-version"))
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		if from == to {
			cmd.Printf("Store schema already at version %d.\n", to)
			return nil
		}
		cmd.Printf("Migrated store schema from version %d to %d.\n", from, to)
		return nil
	},
}

// storeExportCmd exports pipeline data to Parquet files.
var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export batches, evaluations and daily stats to Parquet",
	Long: `Export the organization's pipeline data to Parquet for BI tools.

Requires: --org and --output-file (a prefix; one file is written per dataset)

Examples:
  prscore store export --org 1 --output-file prscore-data
  duckdb -c "SELECT * FROM read_parquet('prscore-data.evaluations.parquet') LIMIT 10"`,
	PreRunE: storeSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.OrganizationID <= 0 {
			return fmt.Errorf("org must be set to a positive organization ID")
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		return store.ExecuteExport(cmd.Context(), s, cfg.OrganizationID, cfg.OutputFile, cmd.OutOrStdout())
	},
}

// storeClearCmd removes all pipeline data.
var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all pipeline data",
	Long: `Delete every catalog, change, batch, evaluation and daily stat.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the store tables

WARNING: This action cannot be undone. Consider exporting data first.`,
	PreRunE: storeSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbFile := cfg.StoreDBConnect
		if dbFile == "" {
			dbFile = contract.GetStoreDBFilePath()
		}
		if err := store.ClearStore(cfg.StoreBackend, dbFile, cfg.StoreDBConnect); err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
		cmd.Println("Store cleared successfully.")
		return nil
	},
}
