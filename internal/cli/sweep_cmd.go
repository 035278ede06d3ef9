package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ajharbinger/dealflowos/internal/scanner"
	"github.com/spf13/cobra"
)

func newSweepCmd(app *App) *cobra.Command {
	var grace time.Duration
	var limit int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one due-scanner sweep against the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			repos, closeFn, err := app.OpenRepositories()
			if err != nil {
				return err
			}
			defer closeFn()

			cfg := scanner.Config{
				Interval:    app.Config.ScannerInterval,
				GracePeriod: app.Config.ScannerGracePeriod,
				BatchLimit:  app.Config.ScannerBatchLimit,
			}
			if cmd.Flags().Changed("grace") {
				cfg.GracePeriod = grace
			}
			if cmd.Flags().Changed("limit") {
				cfg.BatchLimit = limit
			}

			s := scanner.New(repos.Reminder, repos.Event, app.Clock, app.Logger, cfg)
			result := s.Sweep(context.Background())

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if !result.OK() {
				return fmt.Errorf("sweep finished with errors")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&grace, "grace", 0, "Override the grace period (e.g. 15m)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Override the reminder batch limit")
	return cmd
}
