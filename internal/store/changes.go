package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/huangsam/prscore/schema"
)

var changeColumns = []string{
	"id", "organization_id", "repository", "number", "title", "body", "url", "author_login",
	"merged_at", "additions", "deletions", "changed_file_count", "synced_at",
}

func scanChange(row interface{ Scan(...any) error }) (*schema.Change, error) {
	var c schema.Change
	var mergedAt, syncedAt dbTime
	if err := row.Scan(&c.ID, &c.OrganizationID, &c.Repository, &c.Number, &c.Title, &c.Body, &c.URL,
		&c.AuthorLogin, &mergedAt, &c.Additions, &c.Deletions, &c.ChangedFileCount, &syncedAt); err != nil {
		return nil, err
	}
	c.MergedAt = mergedAt.Time
	c.SyncedAt = syncedAt.Time
	return &c, nil
}

// prefixed qualifies columns with a table alias.
func prefixed(alias string, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = alias + "." + c
	}
	return out
}

// UpsertChange inserts or refreshes a merged change keyed by organization, repository
// and number. It returns the row id and sets change.ID.
func (s *StoreImpl) UpsertChange(ctx context.Context, change *schema.Change) (int64, error) {
	syncedAt := change.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = s.now()
	}
	_, err := execBuilder(ctx, s.db, s.sb.Insert(changesTable).
		Columns("organization_id", "repository", "number", "title", "body", "url", "author_login",
			"merged_at", "additions", "deletions", "changed_file_count", "synced_at").
		Values(change.OrganizationID, change.Repository, change.Number, change.Title, change.Body, change.URL,
			change.AuthorLogin, formatTime(change.MergedAt, s.backend), change.Additions, change.Deletions,
			change.ChangedFileCount, formatTime(syncedAt, s.backend)).
		Suffix(upsertSuffix(s.backend,
			[]string{"organization_id", "repository", "number"},
			[]string{"title", "body", "url", "author_login", "merged_at", "additions", "deletions", "changed_file_count", "synced_at"})))
	if err != nil {
		return 0, fmt.Errorf("failed to upsert change %s#%d: %w", change.Repository, change.Number, err)
	}

	stored, err := s.FindChange(ctx, change.OrganizationID, change.Repository, change.Number)
	if err != nil {
		return 0, err
	}
	change.ID = stored.ID
	change.SyncedAt = syncedAt
	return stored.ID, nil
}

// GetChange returns a change by id.
func (s *StoreImpl) GetChange(ctx context.Context, changeID int64) (*schema.Change, error) {
	row, err := queryRowBuilder(ctx, s.db, s.sb.Select(changeColumns...).
		From(changesTable).
		Where(sq.Eq{"id": changeID}))
	if err != nil {
		return nil, err
	}
	c, err := scanChange(row)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("change %d", changeID))
	}
	return c, nil
}

// FindChange returns a change by its natural key.
func (s *StoreImpl) FindChange(ctx context.Context, orgID int64, repository string, number int) (*schema.Change, error) {
	row, err := queryRowBuilder(ctx, s.db, s.sb.Select(changeColumns...).
		From(changesTable).
		Where(sq.Eq{"organization_id": orgID, "repository": repository, "number": number}))
	if err != nil {
		return nil, err
	}
	c, err := scanChange(row)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("change %s#%d", repository, number))
	}
	return c, nil
}

// ReplaceChangedFiles replaces the file list of a change.
func (s *StoreImpl) ReplaceChangedFiles(ctx context.Context, changeID int64, files []schema.ChangedFile) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := execBuilder(ctx, tx, s.sb.Delete(changedFilesTable).Where(sq.Eq{"change_id": changeID})); err != nil {
			return fmt.Errorf("failed to clear changed files: %w", err)
		}
		if len(files) == 0 {
			return nil
		}
		insert := s.sb.Insert(changedFilesTable).Columns("change_id", "path", "status", "additions", "deletions")
		for _, f := range files {
			insert = insert.Values(changeID, f.Path, f.Status, f.Additions, f.Deletions)
		}
		if _, err := execBuilder(ctx, tx, insert); err != nil {
			return fmt.Errorf("failed to insert changed files: %w", err)
		}
		return nil
	})
}

// ListChangedFiles returns the files of a change in the order they were synced.
func (s *StoreImpl) ListChangedFiles(ctx context.Context, changeID int64) ([]schema.ChangedFile, error) {
	rows, err := queryBuilder(ctx, s.db, s.sb.Select("change_id", "path", "status", "additions", "deletions").
		From(changedFilesTable).
		Where(sq.Eq{"change_id": changeID}).
		OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("failed to query changed files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []schema.ChangedFile
	for rows.Next() {
		var f schema.ChangedFile
		if err := rows.Scan(&f.ChangeID, &f.Path, &f.Status, &f.Additions, &f.Deletions); err != nil {
			return nil, fmt.Errorf("failed to scan changed file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// UpsertIssue inserts or refreshes an issue keyed by organization, repository and number.
func (s *StoreImpl) UpsertIssue(ctx context.Context, issue *schema.Issue) (int64, error) {
	_, err := execBuilder(ctx, s.db, s.sb.Insert(issuesTable).
		Columns("organization_id", "repository", "number", "title", "body", "url", "state").
		Values(issue.OrganizationID, issue.Repository, issue.Number, issue.Title, issue.Body, issue.URL, issue.State).
		Suffix(upsertSuffix(s.backend,
			[]string{"organization_id", "repository", "number"},
			[]string{"title", "body", "url", "state"})))
	if err != nil {
		return 0, fmt.Errorf("failed to upsert issue %s#%d: %w", issue.Repository, issue.Number, err)
	}

	ids, err := s.FindIssueIDs(ctx, issue.OrganizationID, issue.Repository, []int{issue.Number})
	if err != nil {
		return 0, err
	}
	id, ok := ids[issue.Number]
	if !ok {
		return 0, fmt.Errorf("issue %s#%d missing after upsert", issue.Repository, issue.Number)
	}
	issue.ID = id
	return id, nil
}

// FindIssueIDs maps the known issue numbers of a repository to their row ids.
// Unknown numbers are absent from the result.
func (s *StoreImpl) FindIssueIDs(ctx context.Context, orgID int64, repository string, numbers []int) (map[int]int64, error) {
	ids := make(map[int]int64)
	if len(numbers) == 0 {
		return ids, nil
	}
	rows, err := queryBuilder(ctx, s.db, s.sb.Select("number", "id").
		From(issuesTable).
		Where(sq.Eq{"organization_id": orgID, "repository": repository, "number": numbers}))
	if err != nil {
		return nil, fmt.Errorf("failed to query issue ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var number int
		var id int64
		if err := rows.Scan(&number, &id); err != nil {
			return nil, fmt.Errorf("failed to scan issue id: %w", err)
		}
		ids[number] = id
	}
	return ids, rows.Err()
}

// ReplaceIssueLinks replaces the issues linked to a change.
func (s *StoreImpl) ReplaceIssueLinks(ctx context.Context, changeID int64, issueIDs []int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := execBuilder(ctx, tx, s.sb.Delete(issueLinksTable).Where(sq.Eq{"change_id": changeID})); err != nil {
			return fmt.Errorf("failed to clear issue links: %w", err)
		}
		if len(issueIDs) == 0 {
			return nil
		}
		seen := make(map[int64]bool, len(issueIDs))
		insert := s.sb.Insert(issueLinksTable).Columns("change_id", "issue_id")
		for _, id := range issueIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			insert = insert.Values(changeID, id)
		}
		if _, err := execBuilder(ctx, tx, insert); err != nil {
			return fmt.Errorf("failed to insert issue links: %w", err)
		}
		return nil
	})
}

// ListLinkedIssues returns the issues linked to a change ordered by number.
func (s *StoreImpl) ListLinkedIssues(ctx context.Context, changeID int64) ([]schema.Issue, error) {
	rows, err := queryBuilder(ctx, s.db, s.sb.
		Select("i.id", "i.organization_id", "i.repository", "i.number", "i.title", "i.body", "i.url", "i.state").
		From(issuesTable+" i").
		Join(issueLinksTable+" l ON l.issue_id = i.id").
		Where(sq.Eq{"l.change_id": changeID}).
		OrderBy("i.number"))
	if err != nil {
		return nil, fmt.Errorf("failed to query linked issues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var issues []schema.Issue
	for rows.Next() {
		var i schema.Issue
		if err := rows.Scan(&i.ID, &i.OrganizationID, &i.Repository, &i.Number, &i.Title, &i.Body, &i.URL, &i.State); err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, i)
	}
	return issues, rows.Err()
}

// ListPendingChanges returns the organization's changes merged at or after since that
// have no evaluation under the rule set, oldest first.
func (s *StoreImpl) ListPendingChanges(ctx context.Context, orgID, ruleSetID int64, since time.Time) ([]schema.Change, error) {
	rows, err := queryBuilder(ctx, s.db, s.sb.Select(prefixed("c", changeColumns)...).
		From(changesTable+" c").
		Where(sq.Eq{"c.organization_id": orgID}).
		Where(sq.GtOrEq{"c.merged_at": formatTime(since, s.backend)}).
		Where(sq.Expr("NOT EXISTS (SELECT 1 FROM "+evaluationsTable+" e WHERE e.change_id = c.id AND e.rule_set_id = ?)", ruleSetID)).
		OrderBy("c.merged_at", "c.id"))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending changes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var changes []schema.Change
	for rows.Next() {
		c, err := scanChange(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan change: %w", err)
		}
		changes = append(changes, *c)
	}
	return changes, rows.Err()
}

// ReplaceChangeComponents replaces the component associations of a change under a rule set.
func (s *StoreImpl) ReplaceChangeComponents(ctx context.Context, changeID, ruleSetID int64, matches []schema.ChangeComponent) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := execBuilder(ctx, tx, s.sb.Delete(changeComponentsTable).
			Where(sq.Eq{"change_id": changeID, "rule_set_id": ruleSetID})); err != nil {
			return fmt.Errorf("failed to clear change components: %w", err)
		}
		if len(matches) == 0 {
			return nil
		}
		insert := s.sb.Insert(changeComponentsTable).
			Columns("change_id", "rule_set_id", "component_id", "line_delta", "priority", "is_primary")
		for _, m := range matches {
			insert = insert.Values(changeID, ruleSetID, m.ComponentID, m.LineDelta, m.Priority, m.IsPrimary)
		}
		if _, err := execBuilder(ctx, tx, insert); err != nil {
			return fmt.Errorf("failed to insert change components: %w", err)
		}
		return nil
	})
}

// ListChangeComponents returns the component associations of a change, primary first.
func (s *StoreImpl) ListChangeComponents(ctx context.Context, changeID, ruleSetID int64) ([]schema.ChangeComponent, error) {
	rows, err := queryBuilder(ctx, s.db, s.sb.
		Select("cc.change_id", "cc.rule_set_id", "cc.component_id", "c.component_key", "cc.line_delta", "cc.priority", "cc.is_primary").
		From(changeComponentsTable+" cc").
		Join(componentsTable+" c ON c.id = cc.component_id").
		Where(sq.Eq{"cc.change_id": changeID, "cc.rule_set_id": ruleSetID}).
		OrderBy("cc.is_primary DESC", "cc.priority DESC", "cc.line_delta DESC", "c.component_key"))
	if err != nil {
		return nil, fmt.Errorf("failed to query change components: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []schema.ChangeComponent
	for rows.Next() {
		var m schema.ChangeComponent
		if err := rows.Scan(&m.ChangeID, &m.RuleSetID, &m.ComponentID, &m.ComponentKey, &m.LineDelta, &m.Priority, &m.IsPrimary); err != nil {
			return nil, fmt.Errorf("failed to scan change component: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
