package store

import (
	"context"
	"fmt"
	"io"

	"github.com/huangsam/prscore/schema"
)

// GetStatus returns status information about the pipeline store.
func (s *StoreImpl) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:    string(s.backend),
		Connected:  s.db != nil,
		TableSizes: make(map[string]int64),
	}
	if s.db == nil {
		return status, nil
	}

	version, err := schemaVersion(ctx, s.db)
	if err != nil {
		return status, err
	}
	status.SchemaVersion = version

	for _, table := range storeTables {
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, s.backend))
		var count int64
		if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to count %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalBatches = int(status.TableSizes[batchesTable])

	if status.TotalBatches == 0 {
		return status, nil
	}

	row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT id, created_at FROM %s ORDER BY id DESC LIMIT 1",
		quoteTableName(batchesTable, s.backend)))
	var createdAt dbTime
	if err := row.Scan(&status.LastBatchID, &createdAt); err != nil {
		return status, fmt.Errorf("failed to get last batch: %w", err)
	}
	status.LastBatchTime = createdAt.Time

	return status, nil
}

// PrintStoreStatus prints store status information.
func PrintStoreStatus(w io.Writer, status schema.StoreStatus) {
	_, _ = fmt.Fprintf(w, "Store Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Schema Version: %d\n", status.SchemaVersion)
	_, _ = fmt.Fprintf(w, "Total Batches: %d\n", status.TotalBatches)
	if status.TotalBatches > 0 {
		_, _ = fmt.Fprintf(w, "Last Batch ID: %d\n", status.LastBatchID)
		_, _ = fmt.Fprintf(w, "Last Batch: %s\n", status.LastBatchTime.Format("2006-01-02 15:04:05"))
	}
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	for _, table := range storeTables {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, status.TableSizes[table])
	}
}

// PrintCacheStatus prints cache status information.
func PrintCacheStatus(w io.Writer, status schema.CacheStatus) {
	_, _ = fmt.Fprintf(w, "Cache Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Entries: %d\n", status.TotalEntries)
	if status.TotalEntries > 0 {
		_, _ = fmt.Fprintf(w, "Last Entry: %s\n", status.LastEntryTime.Format("2006-01-02 15:04:05"))
		_, _ = fmt.Fprintf(w, "Oldest Entry: %s\n", status.OldestEntryTime.Format("2006-01-02 15:04:05"))
	}
	_, _ = fmt.Fprintf(w, "Table Size: %d bytes\n", status.TableSizeBytes)
}
