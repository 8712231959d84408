package models

// Timestamp is an ISO-8601 instant kept in the exact textual form the analysis
// API emits. Records and excluded points are matched by string equality.
type Timestamp string

// WorkRecord is one work-time sample. Records are ordered by RecordedAt and
// the resulting slice positions form the index space used for exclusions.
type WorkRecord struct {
	CategoryID CategoryID `json:"category_id,omitempty"`
	RecordedAt Timestamp  `json:"recorded_at"`
	WorkTime   float64    `json:"work_time"`
}

// TrendResult is the linear trend computed by the analysis service.
type TrendResult struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	IsWarning bool    `json:"is_warning"`
}

// AnomalyResult is a per-point anomaly score, normalized to 0..1 where 1 is
// the most anomalous.
type AnomalyResult struct {
	RecordedAt   Timestamp `json:"recorded_at"`
	AnomalyScore float64   `json:"anomaly_score"`
}

// AnalysisResult bundles the latest trend and anomaly results for a category.
// Trend is nil when the category has not been analyzed yet.
type AnalysisResult struct {
	Trend     *TrendResult    `json:"trend"`
	Anomalies []AnomalyResult `json:"anomalies"`
}
