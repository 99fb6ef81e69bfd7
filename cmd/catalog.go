package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/prscore/core"
	"github.com/huangsam/prscore/internal/prompt"
	"github.com/spf13/cobra"
)

// catalogCmd manages the organization's scoring catalog.
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Import or show the scoring catalog",
	Long: `Manage the per-organization scoring catalog: components with multipliers,
severities with base points, classification rules and the judgment prompt template.

A catalog file is YAML:

  rule_set: default
  components:
    - key: AUTH
      name: Authentication
      multiplier: 1.5
    - key: OTHER
      name: Other
      multiplier: 1.0
  severities:
    - key: P1
      name: High
      base_points: 50
  rules:
    - component: AUTH
      match: prefix
      pattern: auth/
      priority: 10

Subcommands:
  import - Upsert a catalog file and activate its rule set
  show   - Print the active catalog as YAML`,
}

// catalogImportCmd imports a catalog file.
var catalogImportCmd = &cobra.Command{
	Use:     "import <file>",
	Short:   "Upsert a catalog file and make its rule set active",
	Args:    cobra.ExactArgs(1),
	PreRunE: orgSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open catalog: %w", err)
		}
		defer func() { _ = file.Close() }()

		catalog, err := core.ReadCatalog(file)
		if err != nil {
			return err
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		rs, err := s.ImportCatalog(cmd.Context(), cfg.OrganizationID, catalog)
		if err != nil {
			return err
		}
		cmd.Printf("Imported %d components, %d severities and %d rules into rule set %q (id %d).\n",
			len(catalog.Components), len(catalog.Severities), len(catalog.Rules), rs.Name, rs.ID)
		return nil
	},
}

// catalogShowCmd prints the active catalog.
var catalogShowCmd = &cobra.Command{
	Use:     "show",
	Short:   "Print the selected rule set and its catalog as YAML",
	PreRunE: orgSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		override, err := readTemplateOverride()
		if err != nil {
			return err
		}
		snapshot, err := core.LoadCatalog(cmd.Context(), s, cfg.OrganizationID, cfg.RuleSetID, override, prompt.DefaultTemplate)
		if err != nil {
			return err
		}
		catalog := core.CatalogFromSnapshot(snapshot)
		if catalog.PromptTemplate == prompt.DefaultTemplate {
			catalog.PromptTemplate = ""
		}
		return core.WriteCatalog(cmd.OutOrStdout(), catalog)
	},
}
