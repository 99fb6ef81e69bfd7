package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/prscore/internal/classify"
	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/schema"
	"go.uber.org/zap"
)

// ClassificationStore is the store surface needed to classify a stored change.
type ClassificationStore interface {
	contract.CatalogStore
	contract.ChangeStore
}

// ClassifyChange classifies a stored change under a rule set (0 = active) and
// replaces its persisted component associations.
func ClassifyChange(ctx context.Context, store ClassificationStore, orgID, changeID, ruleSetID int64, logger *zap.Logger) (*schema.Classification, error) {
	var ruleSet *schema.RuleSet
	var err error
	if ruleSetID > 0 {
		ruleSet, err = store.GetRuleSet(ctx, orgID, ruleSetID)
	} else {
		ruleSet, err = store.GetActiveRuleSet(ctx, orgID)
	}
	if errors.Is(err, contract.ErrNotFound) {
		return nil, fmt.Errorf("%w for organization %d", contract.ErrNoActiveRuleSet, orgID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rule set: %w", err)
	}

	components, err := store.ListComponents(ctx, orgID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load components: %w", err)
	}
	if err := checkComponents(components, orgID); err != nil {
		return nil, err
	}
	rules, err := store.ListRules(ctx, ruleSet.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	change, err := store.GetChange(ctx, changeID)
	if err != nil {
		return nil, err
	}
	if change.OrganizationID != orgID {
		return nil, fmt.Errorf("change %d belongs to organization %d, not %d: %w", changeID, change.OrganizationID, orgID, contract.ErrNotFound)
	}
	files, err := store.ListChangedFiles(ctx, changeID)
	if err != nil {
		return nil, err
	}

	classification := classify.NewClassifier(components, rules, logger).Classify(files)
	classification.Matches = classify.WithChange(classification.Matches, changeID, ruleSet.ID)
	for i := range classification.Matches {
		if classification.Matches[i].IsPrimary {
			classification.Primary = &classification.Matches[i]
		}
	}
	if err := store.ReplaceChangeComponents(ctx, changeID, ruleSet.ID, classification.Matches); err != nil {
		return nil, err
	}
	return &classification, nil
}
