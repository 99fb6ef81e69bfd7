// Package cmd defines the command-line interface for prscore.
package cmd

import (
	"github.com/huangsam/prscore/core/algo"
	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the batch subcommands to the parent batch command
	batchCmd.AddCommand(batchStatusCmd)
	batchCmd.AddCommand(batchListCmd)

	// Add the catalog subcommands to the parent catalog command
	catalogCmd.AddCommand(catalogImportCmd)
	catalogCmd.AddCommand(catalogShowCmd)

	// Add the store subcommands to the parent store command
	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeMigrateCmd)
	storeCmd.AddCommand(storeExportCmd)
	storeCmd.AddCommand(storeClearCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().Int64("org", 0, "Organization ID all data belongs to")
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of results to display")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("store-backend", string(schema.SQLiteBackend), "Store backend: sqlite or mysql or postgresql")
	rootCmd.PersistentFlags().String("store-db-connect", "", "Database connection string for the store (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Judgment cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for the judgment cache (SQLite files must differ from the store)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-format", "json", "Log format: json or console")
	rootCmd.PersistentFlags().Int64("rule-set", 0, "Rule set ID (0 = the organization's active rule set)")
	rootCmd.PersistentFlags().Int("lookback", contract.DefaultLookbackDays, "Days of merged pull requests to consider")
	rootCmd.PersistentFlags().String("run-type", string(schema.ManualRun), "Batch run type: manual or scheduled or backfill")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of changes judged concurrently")
	rootCmd.PersistentFlags().Int("max-item-failures", 0, "Failed changes tolerated before a batch aborts (0 = abort on first)")
	rootCmd.PersistentFlags().String("judge-base-url", contract.DefaultJudgeBaseURL, "Base URL of the OpenAI compatible completion API")
	rootCmd.PersistentFlags().String("judge-api-key", "", "API key for the completion API (prefer PRSCORE_JUDGE_API_KEY)")
	rootCmd.PersistentFlags().String("judge-model", contract.DefaultJudgeModel, "Model that judges changes")
	rootCmd.PersistentFlags().String("judge-timeout", contract.DefaultJudgeTimeout.String(), "Timeout of one completion request")
	rootCmd.PersistentFlags().Int("judge-max-retries", contract.DefaultJudgeMaxRetries, "Retries of a failed completion request")
	rootCmd.PersistentFlags().Int("max-prompt-tokens", contract.DefaultMaxPromptTokens, "Token budget of one judgment prompt")
	rootCmd.PersistentFlags().String("prompt-template", "", "Path to a prompt template overriding the stored one")
	rootCmd.PersistentFlags().Bool("comment", false, "Post the evaluation as a comment on each pull request")
	rootCmd.PersistentFlags().String("github-token", "", "GitHub token (prefer PRSCORE_GITHUB_TOKEN)")
	rootCmd.PersistentFlags().String("github-base-url", "", "GitHub Enterprise API base URL")
	rootCmd.PersistentFlags().String("owner", "", "GitHub organization whose repositories are synced")
	rootCmd.PersistentFlags().String("repos", "", "Comma-separated list of owner/name repositories")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of statsCmd to Viper
	statsCmd.Flags().String("developer", "", "Restrict stats to one developer login")
	statsCmd.Flags().String("start", "", "First day of the range (YYYY-MM-DD)")
	statsCmd.Flags().String("end", "", "Last day of the range (YYYY-MM-DD)")
	statsCmd.Flags().String("rank-by", algo.ByScore, "Ranking key: score or prs or a component key")
	statsCmd.Flags().Bool("evaluations", false, "List the top evaluations instead of developers")
	if err := viper.BindPFlags(statsCmd.Flags()); err != nil {
		contract.LogFatal("Error binding stats flags", err)
	}

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().String("schedule", contract.DefaultSchedule, "Cron schedule of sync and evaluation runs")
	serveCmd.Flags().String("metrics-addr", contract.DefaultMetricsAddr, "Listen address of the /metrics endpoint")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Bind all flags of storeMigrateCmd to Viper
	storeMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(storeMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding store migrate flags", err)
	}
}
