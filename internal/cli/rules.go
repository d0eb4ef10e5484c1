package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/crm-service/internal/catalog"
)

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesCheckCmd)
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect qualification rule catalogs",
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Validate a rule catalog file",
	Long:  `Parse a TOML rule catalog and report every rule it defines. Unknown keys, missing fields and duplicate ids fail the check.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesCheck,
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	rules, err := catalog.LoadFile(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, rule := range rules {
		var flags []string
		if rule.RecallRequired {
			flags = append(flags, "recall")
		}
		if rule.TicketRequired {
			flags = append(flags, "ticket")
		}
		if rule.MarkNC {
			flags = append(flags, "nc")
		}
		fmt.Fprintf(out, "%-16s %-24s %v\n", rule.ID, rule.DefaultStatus, flags)
	}
	fmt.Fprintf(out, "%d rules OK\n", len(rules))
	return nil
}
