package core

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/huangsam/prscore/internal/contract"
	"github.com/huangsam/prscore/internal/prompt"
	"github.com/huangsam/prscore/schema"
)

// LoadCatalog reads everything a run needs from the catalog. Missing pieces are
// configuration errors. Template precedence: override, stored, fallback.
func LoadCatalog(ctx context.Context, store contract.CatalogStore, orgID, ruleSetID int64, override, fallback string) (*schema.CatalogSnapshot, error) {
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
	severities, err := store.ListSeverities(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load severities: %w", err)
	}

	template := override
	if template == "" {
		stored, err := store.GetPromptTemplate(ctx, orgID)
		switch {
		case err == nil:
			template = stored.Body
		case errors.Is(err, contract.ErrNotFound):
			template = fallback
		default:
			return nil, fmt.Errorf("failed to load prompt template: %w", err)
		}
	}
	if template == "" {
		return nil, fmt.Errorf("%w for organization %d", contract.ErrNoPromptTemplate, orgID)
	}
	if err := prompt.ValidateTemplate(template); err != nil {
		return nil, err
	}

	return &schema.CatalogSnapshot{
		RuleSet:    *ruleSet,
		Components: components,
		Rules:      rules,
		Severities: severities,
		Template:   template,
	}, nil
}

// checkComponents requires at least one active component, one of them OTHER.
func checkComponents(components []schema.Component, orgID int64) error {
	if len(components) == 0 {
		return fmt.Errorf("%w for organization %d", contract.ErrNoComponents, orgID)
	}
	if !slices.ContainsFunc(components, func(c schema.Component) bool { return c.Key == schema.OtherComponentKey }) {
		return fmt.Errorf("%w for organization %d", contract.ErrNoFallbackComponent, orgID)
	}
	return nil
}
