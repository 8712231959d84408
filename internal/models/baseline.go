package models

// BaselineStatus tells whether a baseline definition is persisted for a category.
type BaselineStatus string

const (
	BaselineUnconfigured BaselineStatus = "unconfigured"
	BaselineConfigured   BaselineStatus = "configured"
)

// InteractionMode selects how chart gestures are interpreted.
type InteractionMode string

const (
	ModeSelect  InteractionMode = "select"  // drag/click edit the baseline
	ModeOperate InteractionMode = "operate" // drag/click navigate the view
)

// Valid reports whether m is one of the known modes.
func (m InteractionMode) Valid() bool {
	return m == ModeSelect || m == ModeOperate
}

// Range is a baseline period. Both ends are inclusive.
type Range struct {
	Start Timestamp `json:"start"`
	End   Timestamp `json:"end"`
}

// BaselineDefinition is the persisted per-category baseline. At most one
// exists per category; writes replace it entirely.
type BaselineDefinition struct {
	Start          Timestamp   `json:"baseline_start"`
	End            Timestamp   `json:"baseline_end"`
	Sensitivity    float64     `json:"sensitivity"`
	ExcludedPoints []Timestamp `json:"excluded_points"`
}

// SaveBaselineResponse is returned by PUT /models/{id}.
type SaveBaselineResponse struct {
	Retrained bool `json:"retrained"`
}

// DeleteBaselineResponse is returned by DELETE /models/{id}.
type DeleteBaselineResponse struct {
	Deleted bool `json:"deleted"`
}

// RunAnalysisResponse is returned by POST /analysis/run.
type RunAnalysisResponse struct {
	ProcessedCategories int `json:"processed_categories"`
}
