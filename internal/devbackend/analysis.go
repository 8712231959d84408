package devbackend

import (
	"math"

	"degradation_monitor/internal/models"
)

// Placeholder analysis so the console has something to display. It is not
// the production analysis engine.
const (
	warningSlopeRatio = 0.01 // slope per sample relative to the mean
	anomalyFloor      = 0.5  // scores below this are not reported
)

// computeTrend fits work_time against sample index with least squares.
func computeTrend(records []models.WorkRecord) *models.TrendResult {
	n := float64(len(records))
	if n < 2 {
		return nil
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, r := range records {
		x := float64(i)
		sumX += x
		sumY += r.WorkTime
		sumXY += x * r.WorkTime
		sumXX += x * x
	}
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return nil
	}
	slope := (n*sumXY - sumX*sumY) / den
	intercept := (sumY - slope*sumX) / n
	mean := sumY / n
	warning := mean != 0 && slope/math.Abs(mean) > warningSlopeRatio
	return &models.TrendResult{Slope: slope, Intercept: intercept, IsWarning: warning}
}

// computeAnomalies scores every record against the baseline window's mean
// and deviation, normalized to 0..1, and keeps those above anomalyFloor.
func computeAnomalies(records []models.WorkRecord, def models.BaselineDefinition) []models.AnomalyResult {
	excluded := make(map[models.Timestamp]struct{}, len(def.ExcludedPoints))
	for _, ts := range def.ExcludedPoints {
		excluded[ts] = struct{}{}
	}
	var sample []float64
	for _, r := range records {
		if r.RecordedAt < def.Start || r.RecordedAt > def.End {
			continue
		}
		if _, skip := excluded[r.RecordedAt]; skip {
			continue
		}
		sample = append(sample, r.WorkTime)
	}
	out := []models.AnomalyResult{}
	if len(sample) < 2 {
		return out
	}
	mean, std := meanStd(sample)
	if std == 0 {
		std = 1
	}
	for _, r := range records {
		z := math.Abs(r.WorkTime-mean) / std
		score := z / (1 + z)
		if score >= anomalyFloor {
			out = append(out, models.AnomalyResult{RecordedAt: r.RecordedAt, AnomalyScore: score})
		}
	}
	return out
}

func meanStd(xs []float64) (float64, float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}
