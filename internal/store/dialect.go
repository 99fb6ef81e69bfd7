package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/huangsam/prscore/schema"
)

// sqliteTimeLayout is fixed width so that lexical order matches time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// validateTableName prevents SQL injection through dynamic table names.
func validateTableName(name string) error {
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("invalid table name: %s (must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$)", name)
	}
	return nil
}

// quoteTableName returns the properly quoted table name for the given backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf("`%s`", name)
	default: // SQLite and PostgreSQL
		return fmt.Sprintf("\"%s\"", name)
	}
}

// statementBuilder returns a squirrel builder with the backend placeholder format.
func statementBuilder(backend schema.DatabaseBackend) sq.StatementBuilderType {
	if backend == schema.PostgreSQLBackend {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// upsertSuffix returns the conflict clause appended to an INSERT for the backend.
// An empty updateCols turns the upsert into insert-if-absent.
func upsertSuffix(backend schema.DatabaseBackend, conflictCols, updateCols []string) string {
	switch backend {
	case schema.MySQLBackend:
		if len(updateCols) == 0 {
			return fmt.Sprintf("AS new ON DUPLICATE KEY UPDATE %s = %s", conflictCols[0], conflictCols[0])
		}
		sets := make([]string, len(updateCols))
		for i, c := range updateCols {
			sets[i] = fmt.Sprintf("%s = new.%s", c, c)
		}
		return "AS new ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")

	default: // SQLite and PostgreSQL
		conflict := strings.Join(conflictCols, ", ")
		if len(updateCols) == 0 {
			return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", conflict)
		}
		sets := make([]string, len(updateCols))
		for i, c := range updateCols {
			sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", c, c)
		}
		return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", conflict, strings.Join(sets, ", "))
	}
}

// forUpdateSuffix returns the row lock clause for backends that support it.
// SQLite serializes writers on its single connection instead.
func forUpdateSuffix(backend schema.DatabaseBackend) string {
	if backend == schema.SQLiteBackend {
		return ""
	}
	return "FOR UPDATE"
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	switch backend {
	case schema.SQLiteBackend:
		return t.UTC().Format(sqliteTimeLayout)
	default:
		return t.UTC()
	}
}

// formatNullTime is formatTime for optional timestamps.
func formatNullTime(t *time.Time, backend schema.DatabaseBackend) any {
	if t == nil {
		return nil
	}
	return formatTime(*t, backend)
}

// dbTime scans a timestamp stored either natively or as text.
type dbTime struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (d *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		d.Time, d.Valid = time.Time{}, false
		return nil
	case time.Time:
		d.Time, d.Valid = v.UTC(), true
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into a timestamp", src)
	}
}

func (d *dbTime) parse(s string) error {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time, d.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", s)
}

// Ptr returns nil for NULL timestamps.
func (d dbTime) Ptr() *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Time
	return &t
}

// execBuilder renders and executes a squirrel statement.
func execBuilder(ctx context.Context, q queryer, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return q.ExecContext(ctx, query, args...)
}

// queryBuilder renders and runs a squirrel select.
func queryBuilder(ctx context.Context, q queryer, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return q.QueryContext(ctx, query, args...)
}

// queryRowBuilder renders and runs a squirrel select expected to return one row.
func queryRowBuilder(ctx context.Context, q queryer, b sq.Sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return q.QueryRowContext(ctx, query, args...), nil
}

// insertReturningID inserts one row and returns its generated id.
func insertReturningID(ctx context.Context, q queryer, backend schema.DatabaseBackend, b sq.InsertBuilder) (int64, error) {
	if backend == schema.PostgreSQLBackend {
		row, err := queryRowBuilder(ctx, q, b.Suffix("RETURNING id"))
		if err != nil {
			return 0, err
		}
		var id int64
		if err := row.Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := execBuilder(ctx, q, b)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// nullInt64 converts an optional id to a driver value.
func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// scanNullInt64 converts a scanned sql.NullInt64 to an optional id.
func scanNullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
