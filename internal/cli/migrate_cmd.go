package cli

import (
	"fmt"

	"github.com/ajharbinger/dealflowos/internal/database"
	"github.com/spf13/cobra"
)

func newMigrateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the embedded schema migrations",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.Config.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is not set")
			}
			return nil
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := database.RunMigrations(app.Config.DatabaseURL); err != nil {
					return err
				}
				return printVersion(cmd, app)
			},
		},
		newMigrateDownCmd(app),
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return printVersion(cmd, app)
			},
		},
	)

	return cmd
}

func newMigrateDownCmd(app *App) *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.RollbackMigrations(app.Config.DatabaseURL, steps); err != nil {
				return err
			}
			return printVersion(cmd, app)
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back (0 rolls back everything)")
	return cmd
}

func printVersion(cmd *cobra.Command, app *App) error {
	version, dirty, err := database.MigrationVersion(app.Config.DatabaseURL)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
	return nil
}
