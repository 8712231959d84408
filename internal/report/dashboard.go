// Package report renders console data for terminal output.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"degradation_monitor/internal/models"
)

const notAnalyzed = "-"

// WriteDashboard writes rows as a table followed by a one-line summary.
func WriteDashboard(w io.Writer, rows []models.DashboardRow, useColors bool) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"ID", "Category", "Slope", "Trend", "Anomalies", "Baseline"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	red, green, yellow := fmt.Sprint, fmt.Sprint, fmt.Sprint
	if useColors {
		red = color.New(color.FgRed).SprintFunc()
		green = color.New(color.FgGreen).SprintFunc()
		yellow = color.New(color.FgYellow).SprintFunc()
	}

	var warnings, unconfigured int
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		slope, trend := notAnalyzed, yellow("not analyzed")
		if r.Trend != nil {
			slope = strconv.FormatFloat(r.Trend.Slope, 'f', 4, 64)
			trend = green("ok")
			if r.Trend.IsWarning {
				trend = red("warning")
				warnings++
			}
		}
		baseline := green(string(r.BaselineStatus))
		if r.BaselineStatus != models.BaselineConfigured {
			baseline = yellow(string(models.BaselineUnconfigured))
			unconfigured++
		}
		data = append(data, []string{
			strconv.FormatInt(int64(r.CategoryID), 10),
			r.CategoryPath,
			slope,
			trend,
			strconv.Itoa(r.AnomalyCount),
			baseline,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d categories, %d trend warnings, %d without baseline\n", len(rows), warnings, unconfigured)
	return err
}
