package core

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/prscore/schema"
	"gopkg.in/yaml.v3"
)

// ReadCatalog decodes a YAML catalog. Unknown keys are rejected so typos in
// a catalog file do not silently drop rules.
func ReadCatalog(r io.Reader) (schema.Catalog, error) {
	var catalog schema.Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&catalog); err != nil {
		if errors.Is(err, io.EOF) {
			return catalog, fmt.Errorf("catalog file is empty")
		}
		return catalog, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return catalog, nil
}

// CatalogFromSnapshot turns a loaded snapshot back into its importable form.
func CatalogFromSnapshot(snapshot *schema.CatalogSnapshot) schema.Catalog {
	catalog := schema.Catalog{
		RuleSet:        snapshot.RuleSet.Name,
		Severities:     snapshot.Severities,
		PromptTemplate: snapshot.Template,
	}
	for _, c := range snapshot.Components {
		catalog.Components = append(catalog.Components, schema.CatalogComponent{
			Key:         c.Key,
			Name:        c.Name,
			Description: c.Description,
			Multiplier:  c.Multiplier,
		})
	}
	for _, r := range snapshot.Rules {
		catalog.Rules = append(catalog.Rules, schema.CatalogRule{
			Component: r.ComponentKey,
			MatchType: r.MatchType,
			Pattern:   r.Pattern,
			Priority:  r.Priority,
		})
	}
	return catalog
}

// WriteCatalog encodes a catalog as YAML.
func WriteCatalog(w io.Writer, catalog schema.Catalog) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(catalog); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	return enc.Close()
}
