// Package store persists the pipeline catalog, changes, batches, evaluations and
// developer aggregates across SQLite, MySQL and PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
)

// Table names for the pipeline store.
const (
	ruleSetsTable         = "rule_sets"
	componentsTable       = "components"
	rulesTable            = "rules"
	severitiesTable       = "severities"
	promptTemplatesTable  = "prompt_templates"
	changesTable          = "changes"
	changedFilesTable     = "changed_files"
	issuesTable           = "issues"
	issueLinksTable       = "issue_links"
	changeComponentsTable = "change_components"
	batchesTable          = "evaluation_batches"
	evaluationsTable      = "evaluations"
	dailyStatsTable       = "developer_daily_stats"
)

// storeTables lists every table owned by the store, in dependency order.
var storeTables = []string{
	ruleSetsTable,
	componentsTable,
	rulesTable,
	severitiesTable,
	promptTemplatesTable,
	changesTable,
	changedFilesTable,
	issuesTable,
	issueLinksTable,
	changeComponentsTable,
	batchesTable,
	evaluationsTable,
	dailyStatsTable,
}

// StoreImpl implements contract.Store on a relational database.
type StoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	connStr string
	sb      sq.StatementBuilderType
	now     func() time.Time
}

var _ contract.Store = &StoreImpl{} // Compile-time check

// NewStore opens the pipeline store and applies any pending migrations.
func NewStore(backend schema.DatabaseBackend, connStr string) (contract.Store, error) {
	return newStoreImpl(backend, connStr)
}

func newStoreImpl(backend schema.DatabaseBackend, connStr string) (*StoreImpl, error) {
	if backend == schema.NoneBackend || backend == "" {
		return nil, fmt.Errorf("the pipeline store requires a database backend (sqlite, mysql or postgresql)")
	}

	db, err := openDB(backend, connStr, contract.GetStoreDBFilePath())
	if err != nil {
		return nil, err
	}

	if err := applyMigrations(db, backend, connStr); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &StoreImpl{
		db:      db,
		backend: backend,
		connStr: connStr,
		sb:      statementBuilder(backend),
		now:     time.Now,
	}, nil
}

// Backend returns the database backend of the store.
func (s *StoreImpl) Backend() schema.DatabaseBackend {
	return s.backend
}

// Close closes the underlying DB connection.
func (s *StoreImpl) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success.
func (s *StoreImpl) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// notFound converts sql.ErrNoRows into contract.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, contract.ErrNotFound)
	}
	return err
}
