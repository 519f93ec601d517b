package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"CompetitionScanner/internal/app"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Crawl every site and refresh statuses once a day until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runSchedule,
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return withApp(cmd.Context(), cfg, func(a *app.Application, logger *slog.Logger) error {
		err := a.Schedule(cmd.Context())
		logger.Info("scheduler stopped")
		return err
	})
}
