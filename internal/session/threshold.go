package session

import "degradation_monitor/internal/models"

// HighlightedAnomalies returns the anomalies whose normalized score reaches
// the display threshold for sensitivity. Higher sensitivity lowers the
// threshold: a point is highlighted when score >= 1 - sensitivity.
func HighlightedAnomalies(anomalies []models.AnomalyResult, sensitivity float64) []models.AnomalyResult {
	threshold := 1 - sensitivity
	out := make([]models.AnomalyResult, 0, len(anomalies))
	for _, a := range anomalies {
		if a.AnomalyScore >= threshold {
			out = append(out, a)
		}
	}
	return out
}

// Highlighted is HighlightedAnomalies applied to the snapshot.
func (s State) Highlighted() []models.AnomalyResult {
	return HighlightedAnomalies(s.Anomalies, s.Sensitivity)
}
