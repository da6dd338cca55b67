package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"myconnectionsvr/loginportal/internal/app"
	"myconnectionsvr/loginportal/internal/config"
	"myconnectionsvr/loginportal/internal/observability"
)

const defaultEnvFile = ".env"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "loginportal",
		Short:         "Serve the login, registration and dashboard pages",
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(envFile, cmd.Flags().Changed("env-file")); err != nil {
				return err
			}
			cfg, err := config.LoadWithFlags(cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(cfg, logger)
			if err != nil {
				logger.Error("create app failed", "error", err)
				return fmt.Errorf("create app: %w", err)
			}
			if err := a.Run(ctx); err != nil {
				logger.Error("run app failed", "error", err)
				return fmt.Errorf("run app: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().String("addr", "0.0.0.0:8080", "listen address (HTTP_ADDR)")
	cmd.Flags().StringVar(&envFile, "env-file", defaultEnvFile, "dotenv file loaded before reading the environment")
	cmd.Flags().String("templates-dir", "", "directory with login.html and register.html (TEMPLATES_DIR)")
	cmd.Flags().Bool("ensure-schema", false, "create the users table when missing (DB_ENSURE_SCHEMA)")

	cmd.SetContext(context.Background())
	return cmd
}

// loadEnvFile fills unset environment variables from path. A missing default
// file is ignored; a missing file named on the command line is an error.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
