package models

// DashboardRow summarizes one leaf category for the monitoring dashboard.
type DashboardRow struct {
	CategoryID     CategoryID     `json:"category_id"`
	CategoryPath   string         `json:"category_path"`
	Trend          *TrendResult   `json:"trend"`
	AnomalyCount   int            `json:"anomaly_count"`
	BaselineStatus BaselineStatus `json:"baseline_status"`
}

// PushEventDashboardUpdated is the SSE event name fired on any server-side
// change that affects dashboard summaries.
const PushEventDashboardUpdated = "dashboard-updated"

// PushEvent is one server-sent event received from the analysis API.
type PushEvent struct {
	Name string `json:"event"`
	Data string `json:"data,omitempty"`
}
