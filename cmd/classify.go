package cmd

import (
	"fmt"
	"strconv"

	"github.com/huangsam/prscore/core"
	"github.com/huangsam/prscore/internal/outwriter"
	"github.com/spf13/cobra"
)

// classifyCmd classifies a single change without judging it.
var classifyCmd = &cobra.Command{
	Use:   "classify <change-id>",
	Short: "Attribute one change to catalog components",
	Long: `Run the component classifier over one stored change and persist its component
associations under the selected rule set. No judgment is requested.

Examples:
  prscore classify 42 --org 1
  prscore classify 42 --org 1 --rule-set 3 --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: orgSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		changeID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || changeID <= 0 {
			return fmt.Errorf("invalid change ID %q", args[0])
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		c, err := core.ClassifyChange(cmd.Context(), s, cfg.OrganizationID, changeID, cfg.RuleSetID, logger)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter().WriteClassification(changeID, c, cfg)
	},
}
