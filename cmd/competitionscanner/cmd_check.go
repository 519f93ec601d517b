package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"CompetitionScanner/internal/app"
	"CompetitionScanner/internal/dedup"
	"CompetitionScanner/internal/report"
)

var checkFlags struct {
	title       string
	platform    string
	link        string
	description string
	threshold   float64
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check one competition against the stored records",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	f := checkCmd.Flags()
	f.StringVar(&checkFlags.title, "title", "", "competition title (required)")
	f.StringVar(&checkFlags.platform, "platform", "", "platform the competition is listed on")
	f.StringVar(&checkFlags.link, "link", "", "competition link")
	f.StringVar(&checkFlags.description, "description", "", "description passed to the duplicate classifier")
	f.Float64Var(&checkFlags.threshold, "threshold", 0, "similarity threshold (0 keeps the config value)")

	_ = checkCmd.MarkFlagRequired("title")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	if checkFlags.threshold < 0 || checkFlags.threshold > 1 {
		return fmt.Errorf("threshold must be within [0, 1], got %v", checkFlags.threshold)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cand := dedup.Candidate{
		Title:       checkFlags.title,
		Platform:    checkFlags.platform,
		Link:        checkFlags.link,
		Description: checkFlags.description,
	}

	return withApp(cmd.Context(), cfg, func(a *app.Application, _ *slog.Logger) error {
		res, err := a.CheckDuplicate(cmd.Context(), cand, checkFlags.threshold)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.Duplicate(cand, res))
		return nil
	})
}
