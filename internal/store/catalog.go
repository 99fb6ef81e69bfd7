package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/huangsam/prscore/schema"
)

var ruleSetColumns = []string{"id", "organization_id", "name", "is_active", "created_at"}

func scanRuleSet(row interface{ Scan(...any) error }) (*schema.RuleSet, error) {
	var rs schema.RuleSet
	var createdAt dbTime
	if err := row.Scan(&rs.ID, &rs.OrganizationID, &rs.Name, &rs.IsActive, &createdAt); err != nil {
		return nil, err
	}
	rs.CreatedAt = createdAt.Time
	return &rs, nil
}

// GetRuleSet returns a rule set of the organization by id.
func (s *StoreImpl) GetRuleSet(ctx context.Context, orgID, ruleSetID int64) (*schema.RuleSet, error) {
	return s.getRuleSet(ctx, s.db, orgID, ruleSetID)
}

func (s *StoreImpl) getRuleSet(ctx context.Context, q queryer, orgID, ruleSetID int64) (*schema.RuleSet, error) {
	row, err := queryRowBuilder(ctx, q, s.sb.Select(ruleSetColumns...).
		From(ruleSetsTable).
		Where(sq.Eq{"id": ruleSetID, "organization_id": orgID}))
	if err != nil {
		return nil, err
	}
	rs, err := scanRuleSet(row)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("rule set %d", ruleSetID))
	}
	return rs, nil
}

// GetActiveRuleSet returns the active rule set of the organization.
func (s *StoreImpl) GetActiveRuleSet(ctx context.Context, orgID int64) (*schema.RuleSet, error) {
	row, err := queryRowBuilder(ctx, s.db, s.sb.Select(ruleSetColumns...).
		From(ruleSetsTable).
		Where(sq.Eq{"organization_id": orgID, "is_active": true}).
		OrderBy("id DESC").
		Limit(1))
	if err != nil {
		return nil, err
	}
	rs, err := scanRuleSet(row)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("active rule set for organization %d", orgID))
	}
	return rs, nil
}

// ListComponents returns the organization's components in configured order.
func (s *StoreImpl) ListComponents(ctx context.Context, orgID int64, activeOnly bool) ([]schema.Component, error) {
	where := sq.Eq{"organization_id": orgID}
	if activeOnly {
		where["is_active"] = true
	}
	rows, err := queryBuilder(ctx, s.db, s.sb.
		Select("id", "organization_id", "component_key", "name", "description", "multiplier", "is_active").
		From(componentsTable).
		Where(where).
		OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("failed to query components: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var components []schema.Component
	for rows.Next() {
		var c schema.Component
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.Key, &c.Name, &c.Description, &c.Multiplier, &c.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		components = append(components, c)
	}
	return components, rows.Err()
}

// ListRules returns the rules of a rule set by priority, highest first.
func (s *StoreImpl) ListRules(ctx context.Context, ruleSetID int64) ([]schema.Rule, error) {
	rows, err := queryBuilder(ctx, s.db, s.sb.
		Select("r.id", "r.rule_set_id", "r.component_id", "c.component_key", "r.match_type", "r.pattern", "r.priority").
		From(rulesTable+" r").
		Join(componentsTable+" c ON c.id = r.component_id").
		Where(sq.Eq{"r.rule_set_id": ruleSetID}).
		OrderBy("r.priority DESC", "r.id"))
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []schema.Rule
	for rows.Next() {
		var r schema.Rule
		var matchType string
		if err := rows.Scan(&r.ID, &r.RuleSetID, &r.ComponentID, &r.ComponentKey, &matchType, &r.Pattern, &r.Priority); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		r.MatchType = schema.MatchType(matchType)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// ListSeverities returns the organization's severity rubric in configured order.
func (s *StoreImpl) ListSeverities(ctx context.Context, orgID int64) ([]schema.Severity, error) {
	rows, err := queryBuilder(ctx, s.db, s.sb.
		Select("id", "organization_id", "severity_key", "name", "description", "base_points").
		From(severitiesTable).
		Where(sq.Eq{"organization_id": orgID}).
		OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("failed to query severities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var severities []schema.Severity
	for rows.Next() {
		var sv schema.Severity
		if err := rows.Scan(&sv.ID, &sv.OrganizationID, &sv.Key, &sv.Name, &sv.Description, &sv.BasePoints); err != nil {
			return nil, fmt.Errorf("failed to scan severity: %w", err)
		}
		severities = append(severities, sv)
	}
	return severities, rows.Err()
}

// GetPromptTemplate returns the organization's prompt template.
func (s *StoreImpl) GetPromptTemplate(ctx context.Context, orgID int64) (*schema.PromptTemplate, error) {
	row, err := queryRowBuilder(ctx, s.db, s.sb.
		Select("organization_id", "body", "updated_at").
		From(promptTemplatesTable).
		Where(sq.Eq{"organization_id": orgID}))
	if err != nil {
		return nil, err
	}
	var tmpl schema.PromptTemplate
	var updatedAt dbTime
	if err := row.Scan(&tmpl.OrganizationID, &tmpl.Body, &updatedAt); err != nil {
		return nil, notFound(err, fmt.Sprintf("prompt template for organization %d", orgID))
	}
	tmpl.UpdatedAt = updatedAt.Time
	return &tmpl, nil
}

// ImportCatalog writes a catalog for the organization and makes its rule set the
// only active one. Components and severities are upserted by key; the rule set's
// rules are replaced wholesale.
func (s *StoreImpl) ImportCatalog(ctx context.Context, orgID int64, catalog schema.Catalog) (*schema.RuleSet, error) {
	if err := validateCatalog(catalog); err != nil {
		return nil, err
	}

	now := s.now()
	var result *schema.RuleSet
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ruleSetID, err := s.upsertRuleSet(ctx, tx, orgID, catalog.RuleSet, now)
		if err != nil {
			return err
		}

		for _, c := range catalog.Components {
			active := c.Active == nil || *c.Active
			_, err := execBuilder(ctx, tx, s.sb.Insert(componentsTable).
				Columns("organization_id", "component_key", "name", "description", "multiplier", "is_active").
				Values(orgID, c.Key, c.Name, c.Description, c.Multiplier, active).
				Suffix(upsertSuffix(s.backend,
					[]string{"organization_id", "component_key"},
					[]string{"name", "description", "multiplier", "is_active"})))
			if err != nil {
				return fmt.Errorf("failed to upsert component %s: %w", c.Key, err)
			}
		}

		for _, sv := range catalog.Severities {
			_, err := execBuilder(ctx, tx, s.sb.Insert(severitiesTable).
				Columns("organization_id", "severity_key", "name", "description", "base_points").
				Values(orgID, sv.Key, sv.Name, sv.Description, sv.BasePoints).
				Suffix(upsertSuffix(s.backend,
					[]string{"organization_id", "severity_key"},
					[]string{"name", "description", "base_points"})))
			if err != nil {
				return fmt.Errorf("failed to upsert severity %s: %w", sv.Key, err)
			}
		}

		componentIDs, err := s.componentIDsByKey(ctx, tx, orgID)
		if err != nil {
			return err
		}

		if _, err := execBuilder(ctx, tx, s.sb.Delete(rulesTable).Where(sq.Eq{"rule_set_id": ruleSetID})); err != nil {
			return fmt.Errorf("failed to clear rules: %w", err)
		}
		if len(catalog.Rules) > 0 {
			insert := s.sb.Insert(rulesTable).Columns("rule_set_id", "component_id", "match_type", "pattern", "priority")
			for _, r := range catalog.Rules {
				componentID, ok := componentIDs[r.Component]
				if !ok {
					return fmt.Errorf("rule %q references unknown component %s", r.Pattern, r.Component)
				}
				insert = insert.Values(ruleSetID, componentID, string(r.MatchType), r.Pattern, r.Priority)
			}
			if _, err := execBuilder(ctx, tx, insert); err != nil {
				return fmt.Errorf("failed to insert rules: %w", err)
			}
		}

		if catalog.PromptTemplate != "" {
			_, err := execBuilder(ctx, tx, s.sb.Insert(promptTemplatesTable).
				Columns("organization_id", "body", "updated_at").
				Values(orgID, catalog.PromptTemplate, formatTime(now, s.backend)).
				Suffix(upsertSuffix(s.backend, []string{"organization_id"}, []string{"body", "updated_at"})))
			if err != nil {
				return fmt.Errorf("failed to upsert prompt template: %w", err)
			}
		}

		result, err = s.getRuleSet(ctx, tx, orgID, ruleSetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// upsertRuleSet creates or reactivates the named rule set and deactivates the others.
func (s *StoreImpl) upsertRuleSet(ctx context.Context, tx *sql.Tx, orgID int64, name string, now time.Time) (int64, error) {
	_, err := execBuilder(ctx, tx, s.sb.Update(ruleSetsTable).
		Set("is_active", false).
		Where(sq.Eq{"organization_id": orgID}))
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate rule sets: %w", err)
	}

	_, err = execBuilder(ctx, tx, s.sb.Insert(ruleSetsTable).
		Columns("organization_id", "name", "is_active", "created_at").
		Values(orgID, name, true, formatTime(now, s.backend)).
		Suffix(upsertSuffix(s.backend, []string{"organization_id", "name"}, []string{"is_active"})))
	if err != nil {
		return 0, fmt.Errorf("failed to upsert rule set %s: %w", name, err)
	}

	row, err := queryRowBuilder(ctx, tx, s.sb.Select("id").
		From(ruleSetsTable).
		Where(sq.Eq{"organization_id": orgID, "name": name}))
	if err != nil {
		return 0, err
	}
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to read rule set id: %w", err)
	}
	return id, nil
}

func (s *StoreImpl) componentIDsByKey(ctx context.Context, q queryer, orgID int64) (map[string]int64, error) {
	rows, err := queryBuilder(ctx, q, s.sb.Select("id", "component_key").
		From(componentsTable).
		Where(sq.Eq{"organization_id": orgID}))
	if err != nil {
		return nil, fmt.Errorf("failed to query component ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make(map[string]int64)
	for rows.Next() {
		var id int64
		var key string
		if err := rows.Scan(&id, &key); err != nil {
			return nil, fmt.Errorf("failed to scan component id: %w", err)
		}
		ids[key] = id
	}
	return ids, rows.Err()
}

// validateCatalog checks a catalog before any of it is written.
func validateCatalog(catalog schema.Catalog) error {
	if strings.TrimSpace(catalog.RuleSet) == "" {
		return fmt.Errorf("catalog rule_set name is required")
	}
	seen := make(map[string]bool)
	hasOther := false
	for _, c := range catalog.Components {
		if c.Key == "" || c.Name == "" {
			return fmt.Errorf("catalog component requires key and name")
		}
		if seen[c.Key] {
			return fmt.Errorf("duplicate component key %s", c.Key)
		}
		seen[c.Key] = true
		if c.Multiplier <= 0 {
			return fmt.Errorf("component %s multiplier must be positive, got %v", c.Key, c.Multiplier)
		}
		if c.Key == schema.OtherComponentKey {
			if c.Active != nil && !*c.Active {
				return fmt.Errorf("component %s cannot be inactive", schema.OtherComponentKey)
			}
			hasOther = true
		}
	}
	if len(catalog.Components) > 0 && !hasOther {
		return fmt.Errorf("catalog components must include %s", schema.OtherComponentKey)
	}
	seen = make(map[string]bool)
	for _, sv := range catalog.Severities {
		if sv.Key == "" || sv.Name == "" {
			return fmt.Errorf("catalog severity requires key and name")
		}
		if seen[sv.Key] {
			return fmt.Errorf("duplicate severity key %s", sv.Key)
		}
		seen[sv.Key] = true
		if sv.BasePoints < 0 {
			return fmt.Errorf("severity %s base_points must not be negative", sv.Key)
		}
	}
	for _, r := range catalog.Rules {
		if _, ok := schema.ValidMatchTypes[r.MatchType]; !ok {
			return fmt.Errorf("rule %q has invalid match type %q", r.Pattern, r.MatchType)
		}
		if r.Pattern == "" {
			return fmt.Errorf("rule for component %s has an empty pattern", r.Component)
		}
	}
	return nil
}
