package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for storage and caching.
	DatabaseBackend string

	// MatchType represents how a classification rule pattern is compared to a file path.
	MatchType string

	// BatchStatus represents the lifecycle state of an evaluation batch.
	BatchStatus string

	// RunType represents what triggered an evaluation batch.
	RunType string

	// ItemStatus represents the outcome of a single change inside a batch.
	ItemStatus string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All rule match types supported.
const (
	PrefixMatch MatchType = "prefix"
	SuffixMatch MatchType = "suffix"
	RegexMatch  MatchType = "regex"
	GlobMatch   MatchType = "glob"
)

// Batch lifecycle states. Completed and failed are terminal.
const (
	BatchPending   BatchStatus = "pending"
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
)

// Run types recorded on a batch.
const (
	ManualRun    RunType = "manual" // default
	ScheduledRun RunType = "scheduled"
	BackfillRun  RunType = "backfill"
)

// Per-item outcomes inside a batch report.
const (
	ItemEvaluated ItemStatus = "evaluated"
	ItemFailed    ItemStatus = "failed"
	ItemSkipped   ItemStatus = "skipped"
)

// Reserved catalog keys.
const (
	// OtherComponentKey is the fallback component for unmatched changes.
	OtherComponentKey = "OTHER"

	SeverityP0 = "P0"
	SeverityP1 = "P1"
	SeverityP2 = "P2"
	SeverityP3 = "P3"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid backends for the cache store.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidStoreBackends lists the backends able to hold pipeline state.
var ValidStoreBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
}

// ValidMatchTypes lists all valid rule match types.
var ValidMatchTypes = map[MatchType]struct{}{
	PrefixMatch: {},
	SuffixMatch: {},
	RegexMatch:  {},
	GlobMatch:   {},
}

// ValidRunTypes lists all valid batch run types.
var ValidRunTypes = map[RunType]struct{}{
	ManualRun:    {},
	ScheduledRun: {},
	BackfillRun:  {},
}

// IsTerminal reports whether no further transitions are allowed from this status.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchCompleted || s == BatchFailed
}
