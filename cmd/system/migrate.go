package system

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/pkg/authorize"
	"github.com/oveliahealth/ovelia_backend/pkg/database"
)

// NewMigrateCommand migrates the main schema and seeds the default
// casbin policies into the policy database.
func NewMigrateCommand() *cobra.Command {
	var superadminID string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and seed authorization policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			slog.Info("migrating main database", "dbname", cfg.Database.DBName)
			db, err := database.New(database.FromCentralConfig(cfg.Database))
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			if err := database.Migrate(ctx, db, model.All()...); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}

			// The policy store lives in its own database. No watcher
			// here; this process exits as soon as seeding is done.
			slog.Info("seeding authorization policies", "dbname", cfg.CasbinDatabase.DBName)
			casbinDSN := database.NewDSN(cfg.CasbinDatabase)
			enforcer, cleanup, err := authorize.NewEnforcer(cfg.Authorization.CasbinModelPath, casbinDSN, false)
			if err != nil {
				return fmt.Errorf("create enforcer: %w", err)
			}
			defer cleanup(context.Background())

			auth, err := authorize.NewAuthorization(enforcer, cfg.Authorization.SuperadminBypass)
			if err != nil {
				return fmt.Errorf("create authorization: %w", err)
			}
			if err := authorize.SeedDefaultPolicies(context.Background(), auth); err != nil {
				return fmt.Errorf("seed policies: %w", err)
			}

			if superadminID != "" {
				if _, err := uuid.Parse(superadminID); err != nil {
					return fmt.Errorf("invalid --superadmin id: %w", err)
				}
				if err := authorize.AssignSystemRole(context.Background(), auth, superadminID, authorize.RoleSysSuperAdmin); err != nil {
					return fmt.Errorf("grant superadmin: %w", err)
				}
				slog.Info("granted platform superadmin", "user_id", superadminID)
			}

			slog.Info("migrations complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&superadminID, "superadmin", "", "user id to grant the platform superadmin role")
	return cmd
}
