package system

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/oveliahealth/ovelia_backend/pkg/database"
)

func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configured databases if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			slog.Info("initializing databases", "count", len(cfg.Server.Databases))
			if err := database.InitializeDatabases(cfg); err != nil {
				return fmt.Errorf("initialize databases: %w", err)
			}
			slog.Info("databases initialized")
			return nil
		},
	}
}
