package models

import "time"

// AnalysisRunState is the persisted status of the scheduled analysis runner.
type AnalysisRunState struct {
	ID                  int       `json:"id"`
	Schedule            string    `json:"schedule"`             // cron expression, empty when disabled
	LastRunAt           time.Time `json:"last_run_at"`          // zero before the first run
	ProcessedCategories int       `json:"processed_categories"` // from the last successful run
	Errors              []string  `json:"errors"`               // failures of the last run
	Running             bool      `json:"running"`
	UpdatedAt           time.Time `json:"updated_at"`
}
