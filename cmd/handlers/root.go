package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/faisworld/fais-web-sub000/internal/config"
	"github.com/faisworld/fais-web-sub000/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fais",
		Short: "Blog content pipeline for the Fantastic AI Studio site",
		Long: `fais crawls AI and blockchain news, writes blog articles, checks them
for duplicates and publishes them to the site's blog index.

Core workflows:
  • Automated run: pick 1-2 topics, generate, publish, refresh the knowledge base
  • Single article: generate one article for a topic
  • Media: serve the image/video generation endpoint

Examples:
  # Start the API server
  fais serve

  # Generate one article
  fais generate "Zero-knowledge proofs for enterprise" -k "zk proofs,privacy"

  # Run the daily job once, or on its cron schedule
  fais run
  fais schedule`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .fais.yaml)")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewGenerateCmd())
	rootCmd.AddCommand(NewCrawlCmd())
	rootCmd.AddCommand(NewCheckDuplicateCmd())
	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewScheduleCmd())
	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewDiagnoseCmd())

	return rootCmd
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		stop()
		os.Exit(1)
	}
}

// initConfig loads the configuration and reconfigures the logger from it.
func initConfig() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if cfg.App.Debug {
		level = "debug"
	}
	logger.Configure(logger.Options{Level: level, Format: cfg.Logging.Format, Output: os.Stderr})
	return nil
}
