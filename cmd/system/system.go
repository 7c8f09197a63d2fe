package system

import (
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oveliahealth/ovelia_backend/config"
	"github.com/oveliahealth/ovelia_backend/pkg/logs"
)

// NewSystemCommand groups the operational one-shots: database creation,
// migrations, and CLI doc generation.
func NewSystemCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system",
		Short: "Maintenance and tooling commands",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// One-shots use the plain JSON logger; the full logging
			// config only matters for the long-running server.
			slog.SetDefault(logs.Default())
		},
	}

	cmd.AddCommand(NewMigrateCommand())
	cmd.AddCommand(NewGenDocsCommand())
	cmd.AddCommand(NewInitCommand())

	return cmd
}

// loadConfig reads the config file named by the root --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.ReadConfig(filepath.Dir(cfgPath))
}
