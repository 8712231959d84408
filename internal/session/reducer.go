package session

import (
	"degradation_monitor/internal/exclusion"
	"degradation_monitor/internal/models"
)

// reduce is the only place State changes. It returns the next state, an
// optional effect for the machine to run and whether anything happened at all.
// Illegal commands and superseded results return changed == false.
func reduce(s State, ev event, b Bounds) (State, effect, bool) {
	if r, ok := ev.(result); ok && r.generation() != s.Generation {
		return s, nil, false
	}

	switch e := ev.(type) {
	case cleared:
		next := initialState(b)
		next.Generation = s.Generation + 1
		return next, cancelLoad{}, true

	case loadRequested:
		if e.id == models.NoCategory {
			return reduce(s, cleared{}, b)
		}
		next := s
		if e.id != s.CategoryID {
			next = initialState(b)
			next.CategoryID = e.id
		} else {
			next.pendingExcluded = exclusion.ToTimestamps(s.ExcludedIndices, s.Records)
		}
		next.Phase = PhaseLoading
		next.Err = ""
		next.Generation = s.Generation + 1
		return next, fetchData{gen: next.Generation, id: e.id}, true

	case dataFetched:
		next := s
		next.Records = e.records
		next.ExcludedIndices = exclusion.ToIndices(s.pendingExcluded, e.records)
		next.pendingExcluded = nil
		next.Trend = e.results.Trend
		next.Anomalies = e.results.Anomalies
		return next, fetchBaseline{gen: s.Generation, id: s.CategoryID}, true

	case baselineFound:
		r := models.Range{Start: e.def.Start, End: e.def.End}
		next := s
		next.Status = models.BaselineConfigured
		next.Range = &r
		next.Sensitivity = e.def.Sensitivity
		next.ExcludedIndices = exclusion.ToIndices(e.def.ExcludedPoints, s.Records)
		next.Mode = models.ModeOperate
		next.Dirty = false
		next.Phase = PhaseLoaded
		return next, nil, true

	case baselineMissing:
		next := s
		next.Status = models.BaselineUnconfigured
		next.Range = nil
		next.Sensitivity = b.Default
		next.ExcludedIndices = []int{}
		next.Mode = models.ModeSelect
		next.Dirty = false
		next.Phase = PhaseLoaded
		return next, nil, true

	case fetchFailed:
		next := s
		next.Phase = PhaseFetchError
		next.Err = e.msg
		return next, nil, true

	case rangeSet:
		if !s.editable() || s.Status != models.BaselineUnconfigured {
			return s, nil, false
		}
		if e.r.Start == "" || e.r.End == "" || e.r.End < e.r.Start {
			return s, nil, false
		}
		r := e.r
		next := s
		next.Range = &r
		return markEdited(next), nil, true

	case sensitivitySet:
		next := s
		next.Sensitivity = b.Clamp(e.v)
		if s.editable() {
			next = markEdited(next)
		}
		return next, nil, true

	case excludeToggled:
		if !s.editable() || e.index < 0 || e.index >= len(s.Records) {
			return s, nil, false
		}
		next := s
		next.ExcludedIndices = exclusion.Toggle(s.ExcludedIndices, e.index)
		return markEdited(next), nil, true

	case modeSet:
		if !e.mode.Valid() {
			return s, nil, false
		}
		next := s
		next.Mode = e.mode
		return next, nil, true

	case errorCleared:
		if s.Err == "" && s.Phase != PhaseFetchError {
			return s, nil, false
		}
		next := s
		next.Err = ""
		if next.Phase == PhaseFetchError {
			next.Phase = restingPhase(next)
		}
		return next, nil, true

	case saveRequested:
		if !s.editable() || s.Range == nil {
			return s, nil, false
		}
		def := models.BaselineDefinition{
			Start:          s.Range.Start,
			End:            s.Range.End,
			Sensitivity:    s.Sensitivity,
			ExcludedPoints: exclusion.ToTimestamps(s.ExcludedIndices, s.Records),
		}
		next := s
		next.Phase = PhaseSaving
		return next, writeBaseline{gen: s.Generation, id: s.CategoryID, def: def, by: e.by}, true

	case baselineSaved:
		r := models.Range{Start: e.def.Start, End: e.def.End}
		next := s
		next.Status = models.BaselineConfigured
		next.Range = &r
		next.Mode = models.ModeOperate
		next.Dirty = s.Sensitivity != e.def.Sensitivity
		return next, refreshResults{gen: s.Generation, id: s.CategoryID}, true

	case deleteRequested:
		if !s.editable() {
			return s, nil, false
		}
		next := s
		next.Phase = PhaseDeleting
		return next, removeBaseline{gen: s.Generation, id: s.CategoryID, by: e.by}, true

	case baselineDeleted:
		next := s
		next.Status = models.BaselineUnconfigured
		next.Range = nil
		next.ExcludedIndices = []int{}
		next.Sensitivity = b.Default
		next.Anomalies = []models.AnomalyResult{}
		next.Mode = models.ModeSelect
		next.Dirty = false
		return next, refreshResults{gen: s.Generation, id: s.CategoryID}, true

	case resultsRefreshed:
		next := s
		next.Trend = e.results.Trend
		next.Anomalies = e.results.Anomalies
		next.Phase = restingPhase(next)
		return next, nil, true
	}
	return s, nil, false
}

// markEdited records a local edit. Edits of an unconfigured baseline move the
// session into Editing; edits of a configured one stay in the resting phase.
func markEdited(s State) State {
	s.Dirty = true
	if s.Phase != PhaseFetchError {
		s.Phase = restingPhase(s)
	}
	return s
}
