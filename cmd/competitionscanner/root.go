package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"CompetitionScanner/internal/app"
	"CompetitionScanner/internal/config"
	"CompetitionScanner/internal/logging"
)

var rootFlags struct {
	configPath string
	platform   string
	batchSize  int
	maxRetries int
}

var rootCmd = &cobra.Command{
	Use:   "competitionscanner",
	Short: "Collect AI competitions into a shared table",
	Long: "competitionscanner scrapes competition listings, drops finished and duplicate\n" +
		"entries, labels the rest and stores them. --platform=update-status marks stored\n" +
		"competitions whose end date has passed as ended.",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	RunE: runRoot,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "YAML config file (defaults, then $COMPETITION_SCANNER_CONFIG)")

	f := rootCmd.Flags()
	f.StringVar(&rootFlags.platform, "platform", "all", "baidu, aliyun, tencent, wechat, all or update-status")
	f.IntVar(&rootFlags.batchSize, "batch-size", 0, "submissions between page delays (0 keeps the config value)")
	f.IntVar(&rootFlags.maxRetries, "max-retries", 0, "attempts per store call (0 keeps the config value)")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func runRoot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if rootFlags.batchSize > 0 {
		cfg.Ingest.BatchSize = rootFlags.batchSize
	}
	if rootFlags.maxRetries > 0 {
		cfg.Ingest.MaxRetries = rootFlags.maxRetries
	}

	return withApp(cmd.Context(), cfg, func(a *app.Application, _ *slog.Logger) error {
		return a.Run(cmd.Context(), rootFlags.platform, cmd.OutOrStdout())
	})
}

func loadConfig() (config.Config, error) {
	if rootFlags.configPath == "" {
		return config.Load(), nil
	}
	return config.LoadFile(rootFlags.configPath)
}

// withApp builds the logger and application, runs fn and releases both.
func withApp(ctx context.Context, cfg config.Config, fn func(*app.Application, *slog.Logger) error) error {
	logger, closeLog, err := logging.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return err
	}
	defer closeLog()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()

	if err := fn(a, logger); err != nil {
		logger.Error("application stopped", "error", err)
		return err
	}
	return nil
}
