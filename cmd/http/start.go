package http

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/oveliahealth/ovelia_backend/config"
	"github.com/oveliahealth/ovelia_backend/internal/api/http"
	"github.com/oveliahealth/ovelia_backend/pkg/logs"
)

// NewHTTPCommand groups the server lifecycle commands.
func NewHTTPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http",
		Short: "HTTP server commands",
	}

	cmd.AddCommand(NewStartCommand())

	return cmd
}

// NewStartCommand boots the API server and blocks until shutdown.
func NewStartCommand() *cobra.Command {
	var (
		shutdownTimeout time.Duration
		port            int
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			// The structured logger goes in before fx starts so every
			// component logs through it.
			slog.SetDefault(logs.New(cfg))

			http.Start(cfg, shutdownTimeout)
			return nil
		},
	}

	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second,
		"Maximum time to wait for graceful shutdown")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port, overriding the config file")

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
