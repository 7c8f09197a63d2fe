package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	httpcmd "github.com/oveliahealth/ovelia_backend/cmd/http"
	systemcmd "github.com/oveliahealth/ovelia_backend/cmd/system"
)

var rootCmd = &cobra.Command{
	Use:   "ovelia",
	Short: "Ovelia practice management backend for psychotherapy clinics.",
	Long: `Ovelia is the management backend for psychotherapy clinics in Quebec.
It handles client files, consultation requests, scheduling, third-party payer
coverage (IVAC, employee assistance programs) and document generation behind
a single API.`,
}

// Execute runs the command tree. Subcommands pick up the shared
// --config flag through cmd.Root().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "config file path")

	rootCmd.AddCommand(
		httpcmd.NewHTTPCommand(),
		systemcmd.NewSystemCommand(),
	)
}
