// Package cli implements the dealflowctl operator commands.
package cli

import (
	"database/sql"
	"fmt"

	"github.com/ajharbinger/dealflowos/internal/clock"
	"github.com/ajharbinger/dealflowos/internal/database"
	"github.com/ajharbinger/dealflowos/internal/logger"
	"github.com/ajharbinger/dealflowos/internal/repository"
	"github.com/ajharbinger/dealflowos/pkg/config"
	"github.com/spf13/cobra"
)

// App holds what the commands run against
type App struct {
	Config *config.Config
	Logger logger.Logger
	Clock  clock.Clock
	// OpenRepositories returns the configured store and a close func
	OpenRepositories func() (*repository.Repositories, func(), error)
}

// NewApp builds an App from configuration, opening PostgreSQL unless the
// memory driver is selected
func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Config: cfg,
		Logger: log,
		Clock:  clock.New(),
		OpenRepositories: func() (*repository.Repositories, func(), error) {
			if cfg.UsesMemoryStore() {
				return repository.NewMemoryRepositories(), func() {}, nil
			}
			if cfg.DatabaseURL == "" {
				return nil, nil, fmt.Errorf("DATABASE_URL is not set")
			}
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return nil, nil, err
			}
			return repository.NewRepositories(db.DB), func() { closeDB(db.DB) }, nil
		},
	}
}

func closeDB(db *sql.DB) {
	_ = db.Close()
}

// NewRootCmd creates the top-level "dealflowctl" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "dealflowctl",
		Short:         "Operator tooling for the DealflowOS core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newMigrateCmd(app),
		newSweepCmd(app),
		newUnderwriteCmd(app),
		newTokenCmd(app),
	)

	return root
}
