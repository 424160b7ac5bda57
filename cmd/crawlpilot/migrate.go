package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/user/crawl-pilot/internal/adapter/postgres"
)

func migrateCMD(envFile *string) *cobra.Command {
	var steps int
	migrate := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the session archive schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			cfg, err := bootstrap(*envFile)
			if err != nil {
				return err
			}
			if err := postgres.Migrate(cfg.PostgresDSN(), direction, steps); err != nil {
				return err
			}
			slog.Info("Archive migrations applied", "direction", direction, "steps", steps)
			return nil
		},
	}
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	return migrate
}
