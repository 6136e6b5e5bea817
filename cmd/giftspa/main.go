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
	"github.com/luxspa/giftspa/internal/app"
	"github.com/luxspa/giftspa/internal/config"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	var appCfg config.AppConfig
	rootCmd := &cobra.Command{
		Use:           "giftspa",
		Short:         "Gift card storefront for the spa",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&appCfg.ConfigPath, "config", "c", "", "config file (default $GIFTSPA_CONFIG or config.yaml)")

	rootCmd.AddCommand(serveCmd(&appCfg))
	rootCmd.AddCommand(migrateCmd(&appCfg))
	rootCmd.AddCommand(seedCmd(&appCfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func serveCmd(appCfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront and admin HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunServer(cmd.Context(), *appCfg)
		},
	}
}

func migrateCmd(appCfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Migrate(cmd.Context(), *appCfg); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}

func seedCmd(appCfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the default design templates and spa packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Seed(cmd.Context(), *appCfg); err != nil {
				return err
			}
			fmt.Println("catalog seeded")
			return nil
		},
	}
}
