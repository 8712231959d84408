package dashboard

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"degradation_monitor/internal/models"
)

// defaultFanOut bounds concurrent per-leaf fetches.
const defaultFanOut = 8

// TreeSource is what FanOutSummarizer reads per leaf.
type TreeSource interface {
	Categories(ctx context.Context, root models.CategoryID) ([]models.CategoryNode, error)
	Results(ctx context.Context, id models.CategoryID) (models.AnalysisResult, error)
	Baseline(ctx context.Context, id models.CategoryID) (models.BaselineDefinition, error)
}

// FanOutSummarizer builds summary rows client side: one results and one
// baseline fetch per leaf category. A leaf whose results fail is reported as
// not analyzed; a leaf whose baseline fails is reported as unconfigured. Only
// a failure to read the tree fails the summary.
type FanOutSummarizer struct {
	src   TreeSource
	limit int
}

// NewFanOutSummarizer returns a summarizer running at most limit leaves at once.
func NewFanOutSummarizer(src TreeSource, limit int) *FanOutSummarizer {
	if limit <= 0 {
		limit = defaultFanOut
	}
	return &FanOutSummarizer{src: src, limit: limit}
}

func (f *FanOutSummarizer) Summary(ctx context.Context) ([]models.DashboardRow, error) {
	tree, err := f.src.Categories(ctx, models.NoCategory)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	leaves := models.FlattenLeaves(tree)
	rows := make([]models.DashboardRow, len(leaves))

	var g errgroup.Group
	g.SetLimit(f.limit)
	for i, leaf := range leaves {
		g.Go(func() error {
			rows[i] = f.row(ctx, leaf)
			return nil
		})
	}
	_ = g.Wait()
	return rows, nil
}

func (f *FanOutSummarizer) row(ctx context.Context, leaf models.LeafCategory) models.DashboardRow {
	row := models.DashboardRow{
		CategoryID:     leaf.ID,
		CategoryPath:   leaf.Path,
		BaselineStatus: models.BaselineUnconfigured,
	}
	if res, err := f.src.Results(ctx, leaf.ID); err == nil {
		row.Trend = res.Trend
		row.AnomalyCount = len(res.Anomalies)
	}
	if _, err := f.src.Baseline(ctx, leaf.ID); err == nil {
		row.BaselineStatus = models.BaselineConfigured
	}
	return row
}
