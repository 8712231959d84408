// Package session owns the single live baseline-configuration session: the
// records and results of the selected category, its baseline definition,
// the pending edits, the interaction mode and what is in flight.
//
// All transitions go through reduce; asynchronous gateway results are tagged
// with the Generation they were issued under and ignored once superseded.
package session

import "degradation_monitor/internal/models"

// Phase is the activity the session is in.
type Phase string

const (
	PhaseIdle       Phase = "idle"        // no category selected
	PhaseLoading    Phase = "loading"     // records/results/baseline being fetched
	PhaseLoaded     Phase = "loaded"      // data present, nothing in flight
	PhaseEditing    Phase = "editing"     // unconfigured with pending local edits
	PhaseSaving     Phase = "saving"      // baseline write (and results refresh) in flight
	PhaseDeleting   Phase = "deleting"    // baseline delete (and results refresh) in flight
	PhaseFetchError Phase = "fetch_error" // last attempt failed; data kept, retry allowed
)

// Busy reports whether a gateway round trip owned by the session is in flight.
func (p Phase) Busy() bool {
	return p == PhaseLoading || p == PhaseSaving || p == PhaseDeleting
}

// Generation identifies one load of one category. Every async result carries
// the generation it was issued under.
type Generation uint64

// DefaultSensitivity is used whenever no baseline definition supplies one.
const DefaultSensitivity = 0.5

// Bounds limits the sensitivity a user may pick.
type Bounds struct {
	Min     float64
	Max     float64
	Default float64
}

// DefaultBounds matches the three-step slider (low, medium, high).
var DefaultBounds = Bounds{Min: 0.25, Max: 0.75, Default: DefaultSensitivity}

// Clamp forces v into [Min, Max].
func (b Bounds) Clamp(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// State is an immutable snapshot of the session. Slices are never modified
// after a snapshot is published.
type State struct {
	Phase           Phase                  `json:"phase"`
	CategoryID      models.CategoryID      `json:"category_id"`
	Records         []models.WorkRecord    `json:"records"`
	Trend           *models.TrendResult    `json:"trend"`
	Anomalies       []models.AnomalyResult `json:"anomalies"`
	Status          models.BaselineStatus  `json:"baseline_status"`
	Range           *models.Range          `json:"baseline_range"`
	ExcludedIndices []int                  `json:"excluded_indices"`
	Sensitivity     float64                `json:"sensitivity"`
	Mode            models.InteractionMode `json:"interaction_mode"`
	Dirty           bool                   `json:"dirty"` // local edits not yet saved
	Err             string                 `json:"error,omitempty"`
	Generation      Generation             `json:"generation"`

	// exclusions carried across a reload of the same category, re-resolved
	// against the records that arrive
	pendingExcluded []models.Timestamp
}

// initialState is the Idle session.
func initialState(b Bounds) State {
	return State{
		Phase:           PhaseIdle,
		Records:         []models.WorkRecord{},
		Anomalies:       []models.AnomalyResult{},
		Status:          models.BaselineUnconfigured,
		ExcludedIndices: []int{},
		Sensitivity:     b.Default,
		Mode:            models.ModeSelect,
	}
}

// restingPhase is the phase a session settles in when nothing is in flight.
func restingPhase(s State) Phase {
	switch {
	case s.CategoryID == models.NoCategory:
		return PhaseIdle
	case s.Status == models.BaselineUnconfigured && s.Dirty:
		return PhaseEditing
	default:
		return PhaseLoaded
	}
}

// editable reports whether local edits are currently accepted.
func (s State) editable() bool {
	return s.CategoryID != models.NoCategory && !s.Phase.Busy()
}

// Loading reports whether a load is in progress.
func (s State) Loading() bool { return s.Phase == PhaseLoading }

// Saving reports whether a save is in progress.
func (s State) Saving() bool { return s.Phase == PhaseSaving }
