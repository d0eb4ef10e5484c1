// Package cli implements crmctl, the operator tool for the CRM service.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crmctl",
	Short: "Operate the CRM qualification and SLA engine",
	Long: `crmctl validates qualification rule catalogs and runs one-off SLA sweeps
against the service database. Configuration is read from the same environment
variables as the API server.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
