// Package schema has the models and global constants for all parts of prscore.
package schema

import "time"

// Component is a named area of a codebase that changes can be attributed to.
type Component struct {
	ID             int64   `json:"id"`
	OrganizationID int64   `json:"organization_id"`
	Key            string  `json:"key"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Multiplier     float64 `json:"multiplier"` // Strictly positive
	IsActive       bool    `json:"is_active"`
}

// RuleSet groups classification rules. Evaluations are unique per (change, rule set).
type RuleSet struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Name           string    `json:"name"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// Rule maps a file path pattern to a component.
type Rule struct {
	ID           int64     `json:"id"`
	RuleSetID    int64     `json:"rule_set_id"`
	ComponentID  int64     `json:"component_id"`
	ComponentKey string    `json:"component_key"` // Denormalized on read
	MatchType    MatchType `json:"match_type"`
	Pattern      string    `json:"pattern"`
	Priority     int       `json:"priority"`
}

// Severity is an impact level with a base point value.
type Severity struct {
	ID             int64  `json:"id" yaml:"-"`
	OrganizationID int64  `json:"organization_id" yaml:"-"`
	Key            string `json:"key" yaml:"key"`
	Name           string `json:"name" yaml:"name"`
	Description    string `json:"description" yaml:"description"`
	BasePoints     int    `json:"base_points" yaml:"base_points"` // Non-negative
}

// PromptTemplate is the organization-specific judgment prompt.
type PromptTemplate struct {
	OrganizationID int64     `json:"organization_id"`
	Body           string    `json:"body"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Change is a merged pull request.
type Change struct {
	ID               int64     `json:"id"`
	OrganizationID   int64     `json:"organization_id"`
	Repository       string    `json:"repository"` // owner/name
	Number           int       `json:"number"`
	Title            string    `json:"title"`
	Body             string    `json:"body"`
	URL              string    `json:"url"`
	AuthorLogin      string    `json:"author_login"`
	MergedAt         time.Time `json:"merged_at"`
	Additions        int       `json:"additions"`
	Deletions        int       `json:"deletions"`
	ChangedFileCount int       `json:"changed_file_count"`
	SyncedAt         time.Time `json:"synced_at"`
}

// ChangedFile is one file touched by a change.
type ChangedFile struct {
	ChangeID  int64  `json:"change_id"`
	Path      string `json:"path"`
	Status    string `json:"status"` // added, modified, removed, renamed
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// LineDelta returns additions plus deletions.
func (f ChangedFile) LineDelta() int {
	return f.Additions + f.Deletions
}

// Issue is a tracked issue in the same repository as a change.
type Issue struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organization_id"`
	Repository     string `json:"repository"`
	Number         int    `json:"number"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	URL            string `json:"url"`
	State          string `json:"state"`
}

// ChangeComponent associates a change with a component under a rule set.
type ChangeComponent struct {
	ChangeID     int64  `json:"change_id"`
	RuleSetID    int64  `json:"rule_set_id"`
	ComponentID  int64  `json:"component_id"`
	ComponentKey string `json:"component_key"`
	LineDelta    int    `json:"line_delta"`
	Priority     int    `json:"priority"`
	IsPrimary    bool   `json:"is_primary"`
}

// Classification is the result of classifying a change's files.
type Classification struct {
	Matches []ChangeComponent `json:"matches"` // In first-encountered order
	Primary *ChangeComponent  `json:"primary,omitempty"`
}

// Repository is a source repository visible to a change source.
type Repository struct {
	Owner    string `json:"owner"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Archived bool   `json:"archived"`
}

// PullRequest is a merged pull request as reported by a change source.
type PullRequest struct {
	Number      int       `json:"number"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	URL         string    `json:"url"`
	AuthorLogin string    `json:"author_login"`
	MergedAt    time.Time `json:"merged_at"`
}
