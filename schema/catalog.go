package schema

// Catalog is the importable definition of an organization's scoring setup.
type Catalog struct {
	RuleSet        string             `yaml:"rule_set" json:"rule_set"`
	Components     []CatalogComponent `yaml:"components" json:"components"`
	Severities     []Severity         `yaml:"severities" json:"severities"`
	Rules          []CatalogRule      `yaml:"rules" json:"rules"`
	PromptTemplate string             `yaml:"prompt_template,omitempty" json:"prompt_template,omitempty"`
}

// CatalogComponent is a component entry in a catalog file.
type CatalogComponent struct {
	Key         string  `yaml:"key" json:"key"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Multiplier  float64 `yaml:"multiplier" json:"multiplier"`
	Active      *bool   `yaml:"active,omitempty" json:"active,omitempty"` // Defaults to true
}

// CatalogRule is a rule entry in a catalog file, keyed by component key.
type CatalogRule struct {
	Component string    `yaml:"component" json:"component"`
	MatchType MatchType `yaml:"match" json:"match"`
	Pattern   string    `yaml:"pattern" json:"pattern"`
	Priority  int       `yaml:"priority" json:"priority"`
}

// CatalogSnapshot is everything the pipeline reads from the catalog for one run.
type CatalogSnapshot struct {
	RuleSet    RuleSet
	Components []Component
	Rules      []Rule
	Severities []Severity
	Template   string
}
