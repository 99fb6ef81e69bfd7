package contract

import (
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/huangsam/prscore/schema"
	"github.com/robfig/cron/v3"
)

// Default values for configuration.
const (
	DefaultLookbackDays    = 7
	MaxLookbackDays        = 365
	DefaultResultLimit     = 25
	MaxResultLimit         = 1000
	DefaultPrecision       = 1
	DefaultJudgeModel      = "gpt-4o-mini"
	DefaultJudgeBaseURL    = "https://api.openai.com/v1"
	DefaultJudgeTimeout    = 60 * time.Second
	DefaultJudgeMaxRetries = 3
	DefaultMaxPromptTokens = 12000
	DefaultSchedule        = "0 2 * * *"
	DefaultMetricsAddr     = ":9090"
)

// DefaultWorkers is the default number of concurrent batch workers.
// Items are processed sequentially unless configured otherwise.
var DefaultWorkers = 1

// MaxWorkers caps the batch worker pool.
var MaxWorkers = 4 * runtime.GOMAXPROCS(0)

// Config holds the runtime configuration.
// This struct is the "final, validated" config.
type Config struct {
	OrganizationID  int64
	RuleSetID       int64 // 0 = active rule set
	LookbackDays    int
	RunType         schema.RunType
	Workers         int
	MaxItemFailures int // 0 = abort the batch on the first failed item

	JudgeBaseURL       string
	JudgeAPIKey        string // Please use env var as this is plaintext
	JudgeModel         string
	JudgeTimeout       time.Duration
	JudgeMaxRetries    int
	MaxPromptTokens    int
	PromptTemplateFile string
	CommentOnPR        bool

	GitHubToken   string // Please use env var as this is plaintext
	GitHubBaseURL string
	GitHubOwner   string
	Repositories  []string

	StoreBackend   schema.DatabaseBackend
	StoreDBConnect string // Please use env var as this is plaintext

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string

	Output      schema.OutputMode
	OutputFile  string
	Precision   int
	ResultLimit int
	Developer   string
	StartDate   string // YYYY-MM-DD
	EndDate     string // YYYY-MM-DD
	UseColors   bool
	Width       int // Terminal width override (0 = auto-detect)

	Schedule    string
	MetricsAddr string

	LogLevel  string
	LogFormat string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Org            int64  `mapstructure:"org"`
	StoreBackend   string `mapstructure:"store-backend"`
	StoreDBConnect string `mapstructure:"store-db-connect"`
	CacheBackend   string `mapstructure:"cache-backend"`
	CacheDBConnect string `mapstructure:"cache-db-connect"`
	Output         string `mapstructure:"output"`
	OutputFile     string `mapstructure:"output-file"`
	Precision      int    `mapstructure:"precision"`
	Limit          int    `mapstructure:"limit"`
	Color          string `mapstructure:"color"`
	Width          int    `mapstructure:"width"`
	LogLevel       string `mapstructure:"log-level"`
	LogFormat      string `mapstructure:"log-format"`

	// --- Fields from evaluateCmd.Flags() and serveCmd.Flags() ---
	RuleSet         int64  `mapstructure:"rule-set"`
	Lookback        int    `mapstructure:"lookback"`
	RunType         string `mapstructure:"run-type"`
	Workers         int    `mapstructure:"workers"`
	MaxItemFailures int    `mapstructure:"max-item-failures"`
	JudgeBaseURL    string `mapstructure:"judge-base-url"`
	JudgeAPIKey     string `mapstructure:"judge-api-key"`
	JudgeModel      string `mapstructure:"judge-model"`
	JudgeTimeout    string `mapstructure:"judge-timeout"`
	JudgeMaxRetries int    `mapstructure:"judge-max-retries"`
	MaxPromptTokens int    `mapstructure:"max-prompt-tokens"`
	PromptTemplate  string `mapstructure:"prompt-template"`
	Comment         bool   `mapstructure:"comment"`
	Schedule        string `mapstructure:"schedule"`
	MetricsAddr     string `mapstructure:"metrics-addr"`

	// --- Fields from syncCmd.Flags() ---
	GitHubToken   string `mapstructure:"github-token"`
	GitHubBaseURL string `mapstructure:"github-base-url"`
	Owner         string `mapstructure:"owner"`
	Repos         string `mapstructure:"repos"`

	// --- Fields from statsCmd.Flags() ---
	Developer string `mapstructure:"developer"`
	Start     string `mapstructure:"start"`
	End       string `mapstructure:"end"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Repositories != nil {
		clone.Repositories = make([]string, len(c.Repositories))
		copy(clone.Repositories, c.Repositories)
	}
	return &clone
}

// Since returns the start of the lookback window relative to now.
func (c *Config) Since(now time.Time) time.Time {
	return now.Add(-time.Duration(c.LookbackDays) * 24 * time.Hour)
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processRunInputs(cfg, input); err != nil {
		return err
	}
	if err := processJudgeInputs(cfg, input); err != nil {
		return err
	}
	if err := processSourceInputs(cfg, input); err != nil {
		return err
	}
	if err := processDateRange(cfg, input, time.Now()); err != nil {
		return err
	}
	return nil
}

// ValidateOrganization checks that an organization was selected.
func (c *Config) ValidateOrganization() error {
	if c.OrganizationID <= 0 {
		return fmt.Errorf("org must be set to a positive organization ID (received %d)", c.OrganizationID)
	}
	return nil
}

// ValidateForEvaluation checks the settings that only matter when judgments are requested.
func (c *Config) ValidateForEvaluation() error {
	if err := c.ValidateOrganization(); err != nil {
		return err
	}
	if c.JudgeBaseURL == "" {
		return fmt.Errorf("judge-base-url is required")
	}
	if c.JudgeModel == "" {
		return fmt.Errorf("judge-model is required")
	}
	return nil
}

// ValidateForSync checks the settings that only matter when pulling from the code host.
func (c *Config) ValidateForSync() error {
	if err := c.ValidateOrganization(); err != nil {
		return err
	}
	if c.GitHubOwner == "" && len(c.Repositories) == 0 {
		return fmt.Errorf("either --owner or --repos must be provided")
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates output related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OrganizationID = input.Org
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Developer = strings.TrimSpace(input.Developer)

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}

	cfg.LogLevel = strings.ToLower(input.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level '%s'. must be debug, info, warn, error", input.LogLevel)
	}
	cfg.LogFormat = strings.ToLower(input.LogFormat)
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("invalid log format '%s'. must be json or console", input.LogFormat)
	}

	return nil
}

// validateBackendConfigs validates store and cache backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	cfg.StoreBackend = schema.DatabaseBackend(strings.ToLower(input.StoreBackend))
	if _, ok := schema.ValidStoreBackends[cfg.StoreBackend]; !ok {
		return fmt.Errorf("invalid store backend '%s'. must be sqlite, mysql, postgresql", input.StoreBackend)
	}
	cfg.StoreDBConnect = input.StoreDBConnect
	if err := ValidateDatabaseConnectionString(cfg.StoreBackend, cfg.StoreDBConnect); err != nil {
		return err
	}

	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// For SQLite, resolve to actual file paths to catch default path conflicts
	if cfg.StoreBackend == schema.SQLiteBackend && cfg.CacheBackend == schema.SQLiteBackend {
		storePath := cfg.StoreDBConnect
		if storePath == "" {
			storePath = GetStoreDBFilePath()
		}
		cachePath := cfg.CacheDBConnect
		if cachePath == "" {
			cachePath = GetCacheDBFilePath()
		}
		if storePath == cachePath && storePath != ":memory:" {
			return fmt.Errorf("store and cache must use different SQLite database files. Both resolve to %q", storePath)
		}
	}

	return nil
}

// processRunInputs handles the batch related fields.
func processRunInputs(cfg *Config, input *ConfigRawInput) error {
	if input.RuleSet < 0 {
		return fmt.Errorf("rule-set must be 0 (active) or a positive ID (received %d)", input.RuleSet)
	}
	cfg.RuleSetID = input.RuleSet

	if input.Lookback <= 0 || input.Lookback > MaxLookbackDays {
		return fmt.Errorf("lookback must be between 1 and %d days (received %d)", MaxLookbackDays, input.Lookback)
	}
	cfg.LookbackDays = input.Lookback

	cfg.RunType = schema.RunType(strings.ToLower(input.RunType))
	if _, ok := schema.ValidRunTypes[cfg.RunType]; !ok {
		return fmt.Errorf("invalid run type '%s'. must be manual, scheduled, backfill", input.RunType)
	}

	if input.Workers <= 0 || input.Workers > MaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d (received %d)", MaxWorkers, input.Workers)
	}
	cfg.Workers = input.Workers

	if input.MaxItemFailures < 0 {
		return fmt.Errorf("max-item-failures cannot be negative (received %d)", input.MaxItemFailures)
	}
	cfg.MaxItemFailures = input.MaxItemFailures

	cfg.Schedule = strings.TrimSpace(input.Schedule)
	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
		}
	}
	cfg.MetricsAddr = input.MetricsAddr
	cfg.CommentOnPR = input.Comment

	return nil
}

// processJudgeInputs handles the judgment client fields.
func processJudgeInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.JudgeBaseURL = strings.TrimRight(strings.TrimSpace(input.JudgeBaseURL), "/")
	if cfg.JudgeBaseURL != "" {
		if u, err := url.Parse(cfg.JudgeBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid judge-base-url %q: expected an absolute URL", input.JudgeBaseURL)
		}
	}
	cfg.JudgeAPIKey = input.JudgeAPIKey
	cfg.JudgeModel = strings.TrimSpace(input.JudgeModel)

	timeout, err := time.ParseDuration(input.JudgeTimeout)
	if err != nil || timeout <= 0 {
		return fmt.Errorf("invalid judge-timeout %q: expected a positive duration like 60s", input.JudgeTimeout)
	}
	cfg.JudgeTimeout = timeout

	if input.JudgeMaxRetries < 0 {
		return fmt.Errorf("judge-max-retries cannot be negative (received %d)", input.JudgeMaxRetries)
	}
	cfg.JudgeMaxRetries = input.JudgeMaxRetries

	if input.MaxPromptTokens < 1000 {
		return fmt.Errorf("max-prompt-tokens must be at least 1000 (received %d)", input.MaxPromptTokens)
	}
	cfg.MaxPromptTokens = input.MaxPromptTokens
	cfg.PromptTemplateFile = strings.TrimSpace(input.PromptTemplate)

	return nil
}

// processSourceInputs handles the code host fields.
func processSourceInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.GitHubToken = input.GitHubToken
	cfg.GitHubBaseURL = strings.TrimSpace(input.GitHubBaseURL)
	cfg.GitHubOwner = strings.TrimSpace(input.Owner)

	cfg.Repositories = nil
	if input.Repos != "" {
		for p := range strings.SplitSeq(input.Repos, ",") {
			repo := strings.TrimSpace(p)
			if repo == "" {
				continue
			}
			if _, _, err := schema.ParseRepository(repo); err != nil {
				return err
			}
			cfg.Repositories = append(cfg.Repositories, repo)
		}
	}
	return nil
}

// processDateRange resolves the stats date window. Defaults to the lookback window ending today.
func processDateRange(cfg *Config, input *ConfigRawInput, now time.Time) error {
	cfg.EndDate = schema.StatDate(now)
	cfg.StartDate = schema.StatDate(cfg.Since(now))

	if input.Start != "" {
		t, err := time.Parse(schema.StatDateLayout, input.Start)
		if err != nil {
			return fmt.Errorf("invalid start date %q: expected YYYY-MM-DD", input.Start)
		}
		cfg.StartDate = t.Format(schema.StatDateLayout)
	}
	if input.End != "" {
		t, err := time.Parse(schema.StatDateLayout, input.End)
		if err != nil {
			return fmt.Errorf("invalid end date %q: expected YYYY-MM-DD", input.End)
		}
		cfg.EndDate = t.Format(schema.StatDateLayout)
	}
	if cfg.StartDate > cfg.EndDate {
		return fmt.Errorf("start date (%s) cannot be after end date (%s)", cfg.StartDate, cfg.EndDate)
	}
	return nil
}
