// Package report renders run statistics and duplicate checks as terminal tables.
package report

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"CompetitionScanner/internal/dedup"
	"CompetitionScanner/internal/usecase"
)

const topSimilar = 3

func newTable(title string) table.Writer {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	w.Style().Format.Footer = text.FormatDefault
	w.SetTitle(title)
	return w
}

// Crawl renders the counters of one crawl.
func Crawl(stats usecase.Stats) string {
	w := newTable(fmt.Sprintf("Crawl %s", stats.Selector))
	w.AppendHeader(table.Row{"Metric", "Count"})
	w.AppendRows([]table.Row{
		{"collected", stats.Collected},
		{"created", stats.Created},
		{"existing", stats.Existing},
		{"status updated", stats.StatusUpdated},
		{"skipped stale", stats.SkippedStale},
		{"skipped duplicate", stats.SkippedDuplicate},
		{"review", stats.Review},
		{"failed", stats.Failed},
	})
	if stats.SourceErrors > 0 {
		w.AppendFooter(table.Row{"sites failed", stats.SourceErrors})
	}
	w.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	return w.Render()
}

// Refresh renders the counters of one status refresh.
func Refresh(stats usecase.RefreshStats) string {
	w := newTable("Status refresh")
	w.AppendHeader(table.Row{"Metric", "Count"})
	w.AppendRows([]table.Row{
		{"checked", stats.Checked},
		{"skipped", stats.Skipped},
		{"updated", stats.Updated},
		{"failed", stats.Failed},
	})
	w.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	return w.Render()
}

// Duplicate renders the outcome of a single duplicate check.
func Duplicate(cand dedup.Candidate, res dedup.Result) string {
	var b strings.Builder

	summary := newTable("Duplicate check")
	summary.AppendRows([]table.Row{
		{"title", cand.Title},
		{"platform", orDash(cand.Platform)},
		{"link", orDash(cand.Link)},
		{"duplicate", res.IsDuplicate},
		{"type", res.Type},
		{"recommendation", strings.ToUpper(string(res.Recommendation))},
	})
	if res.ExactMatch != nil {
		summary.AppendRow(table.Row{"matched record", fmt.Sprintf("%s (%s)", res.ExactMatch.Title, orDash(res.ExactMatch.Platform))})
	}
	if v := res.Verdict; v != nil {
		summary.AppendRow(table.Row{"classifier", fmt.Sprintf("duplicate=%t confidence=%.2f", v.IsDuplicate, v.Confidence)})
		if v.MostSimilarTitle != "" {
			summary.AppendRow(table.Row{"classifier match", v.MostSimilarTitle})
		}
		if v.Reason != "" {
			summary.AppendRow(table.Row{"classifier reason", v.Reason})
		}
	}
	summary.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 80}})
	b.WriteString(summary.Render())

	if len(res.SimilarMatches) == 0 {
		return b.String()
	}

	similar := newTable("Similar records")
	similar.AppendHeader(table.Row{"#", "Title", "Platform", "Score"})
	for i, m := range res.SimilarMatches {
		if i == topSimilar {
			break
		}
		similar.AppendRow(table.Row{i + 1, m.Record.Title, orDash(m.Record.Platform), fmt.Sprintf("%.2f", m.Score)})
	}
	similar.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 60},
		{Number: 4, Align: text.AlignRight},
	})
	b.WriteString("\n")
	b.WriteString(similar.Render())
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
