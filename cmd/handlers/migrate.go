package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/faisworld/fais-web-sub000/internal/config"
	"github.com/faisworld/fais-web-sub000/internal/logger"
	"github.com/faisworld/fais-web-sub000/internal/persistence"
)

// NewMigrateCmd creates the migrate command for the gallery database
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the gallery database schema",
		Long: `Manage the schema of the image gallery database (DATABASE_URL).

Subcommands:
  up       Apply all pending migrations
  status   Show the embedded migrations
  down     Roll back every migration (use with caution!)

Examples:
  fais migrate up
  fais migrate down --force`,
	}

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateStatusCmd())
	cmd.AddCommand(newMigrateDownCmd())

	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateUp(cmd.Context())
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the embedded migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateStatus()
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		Long: `Roll back every migration. This drops the gallery tables and their data.

Use --force to skip the confirmation prompt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateDown(cmd.Context(), force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}

// getDatabase connects to the gallery database; migrations require one.
func getDatabase(ctx context.Context) (*app, *persistence.PostgresDB, error) {
	a := newApp(config.Get())
	db, err := a.Database(ctx)
	if err != nil {
		a.close()
		return nil, nil, err
	}
	if db == nil {
		a.close()
		return nil, nil, errors.New("database connection string not configured (set database.url in config or DATABASE_URL env var)")
	}
	return a, db, nil
}

func runMigrateUp(ctx context.Context) error {
	logger.Info("Starting database migration")

	a, db, err := getDatabase(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	status, err := db.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if !status.Applied {
		printSummary(os.Stdout, "Schema up to date", field{"Version", fmt.Sprint(status.Version)})
		return nil
	}
	printSummary(os.Stdout, "Migrations applied",
		field{"Version", fmt.Sprint(status.Version)},
		field{"Dirty", fmt.Sprint(status.Dirty)},
	)
	return nil
}

func runMigrateStatus() error {
	versions, err := persistence.MigrationVersions()
	if err != nil {
		return err
	}

	fields := make([]field, 0, len(versions))
	for _, v := range versions {
		fields = append(fields, field{"Migration", fmt.Sprintf("%06d", v)})
	}
	printSummary(os.Stdout, fmt.Sprintf("%d embedded migrations", len(versions)), fields...)
	return nil
}

func runMigrateDown(ctx context.Context, force bool) error {
	if !force {
		fmt.Println(warnStyle.Render("WARNING: this drops the gallery tables and all their rows."))
		fmt.Print("Are you sure you want to proceed? (yes/no): ")

		var response string
		if _, err := fmt.Scanln(&response); err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if response != "yes" {
			fmt.Println("Rollback cancelled")
			return nil
		}
	}

	a, db, err := getDatabase(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := db.MigrateDown(); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	logger.Warn("Gallery schema rolled back")
	fmt.Println(successStyle.Render("Rolled back"))
	return nil
}
