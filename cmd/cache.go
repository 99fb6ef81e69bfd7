package cmd

import (
	"fmt"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/internal/store"
	"github.com/huangsam/prscore/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cacheSetup loads minimal configuration needed for cache operations.
// This is used by commands that need cache access without full shared setup.
func cacheSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	// Get cache-related config values
	backend := schema.DatabaseBackend(viper.GetString("cache-backend"))
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", backend)
	}
	connStr := viper.GetString("cache-db-connect")

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr
	return nil
}

// cacheSetupWrapper wraps cacheSetup to provide PreRunE for cache commands.
func cacheSetupWrapper(_ *cobra.Command, _ []string) error {
	return cacheSetup()
}

// cacheCmd focused on judgment cache management.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the judgment cache (avoids repeated model calls)",
	Long: `Manage the cache of validated judgments keyed by model and prompt.

Re-evaluating an unchanged pull request with the same model and template reuses
the cached judgment instead of calling the model again. Entries older than 30
days are ignored.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status - Show cache statistics and connection info
  clear  - Remove all cached judgments`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached judgments",
	Long: `Delete all cached judgments from the configured backend.

Use this when:
- The prompt template changed in a way the cache key cannot see
- Testing the judgment client without cache

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache table

Examples:
  prscore cache clear
  PRSCORE_CACHE_BACKEND=mysql PRSCORE_CACHE_DB_CONNECT="..." prscore cache clear`,
	PreRunE: cacheSetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		dbFile := cfg.CacheDBConnect
		if dbFile == "" {
			dbFile = contract.GetCacheDBFilePath()
		}
		if err := store.ClearCache(cfg.CacheBackend, dbFile, cfg.CacheDBConnect); err != nil {
			contract.LogFatal("Failed to clear cache", err)
		}
		cmd.Println("Cache cleared successfully.")
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display cache statistics and connection details",
	PreRunE: cacheSetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		cache, err := store.NewCacheStore(store.JudgmentCacheTable, cfg.CacheBackend, cfg.CacheDBConnect)
		if err != nil {
			contract.LogFatal("Failed to open cache", err)
		}
		defer func() { _ = cache.Close() }()

		status, err := cache.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
		store.PrintCacheStatus(cmd.OutOrStdout(), status)
	},
}
