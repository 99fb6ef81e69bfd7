package schema

import "time"

// CacheStatus represents the status of the judgment cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// StoreStatus represents the status of the pipeline store.
type StoreStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	SchemaVersion uint             `json:"schema_version"`
	TotalBatches  int              `json:"total_batches"`
	LastBatchID   int64            `json:"last_batch_id"`
	LastBatchTime time.Time        `json:"last_batch_time"`
	TableSizes    map[string]int64 `json:"table_sizes"`
}
