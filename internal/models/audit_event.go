package models

import "time"

// Audit event types.
const (
	AuditBaselineSaved   = "BASELINE_SAVED"
	AuditBaselineDeleted = "BASELINE_DELETED"
	AuditAnalysisRun     = "ANALYSIS_RUN"
)

// AuditEvent is a single entry of the console's append-only audit log.
type AuditEvent struct {
	EventID     string     `json:"event_id"`
	OccurredAt  time.Time  `json:"occurred_at"`
	Type        string     `json:"type"`                  // BASELINE_SAVED | BASELINE_DELETED | ANALYSIS_RUN
	CategoryID  CategoryID `json:"category_id,omitempty"` // zero for batch operations
	OperatorID  int        `json:"operator_id,omitempty"` // zero for scheduled runs
	Operator    string     `json:"operator,omitempty"`    // username at the time of the write
	Description string     `json:"description"`           // human-readable
	Metadata    any        `json:"metadata,omitempty"`
}
