package session

import "degradation_monitor/internal/models"

// event is the sealed set of inputs to reduce. Commands come from callers;
// results come back from gateway calls.
type event interface{ isEvent() }

// result is an event produced by an asynchronous gateway call.
type result interface {
	event
	generation() Generation
}

// Commands.
type (
	loadRequested   struct{ id models.CategoryID }
	cleared         struct{}
	rangeSet        struct{ r models.Range }
	sensitivitySet  struct{ v float64 }
	excludeToggled  struct{ index int }
	modeSet         struct{ mode models.InteractionMode }
	errorCleared    struct{}
	saveRequested   struct{ by models.Actor }
	deleteRequested struct{ by models.Actor }
)

// Results.
type (
	dataFetched struct {
		gen     Generation
		records []models.WorkRecord
		results models.AnalysisResult
	}
	baselineFound struct {
		gen Generation
		def models.BaselineDefinition
	}
	baselineMissing struct{ gen Generation }
	baselineSaved   struct {
		gen Generation
		def models.BaselineDefinition
	}
	baselineDeleted  struct{ gen Generation }
	resultsRefreshed struct {
		gen     Generation
		results models.AnalysisResult
	}
	fetchFailed struct {
		gen Generation
		msg string
	}
)

func (loadRequested) isEvent()   {}
func (cleared) isEvent()         {}
func (rangeSet) isEvent()        {}
func (sensitivitySet) isEvent()  {}
func (excludeToggled) isEvent()  {}
func (modeSet) isEvent()         {}
func (errorCleared) isEvent()    {}
func (saveRequested) isEvent()   {}
func (deleteRequested) isEvent() {}

func (dataFetched) isEvent()      {}
func (baselineFound) isEvent()    {}
func (baselineMissing) isEvent()  {}
func (baselineSaved) isEvent()    {}
func (baselineDeleted) isEvent()  {}
func (resultsRefreshed) isEvent() {}
func (fetchFailed) isEvent()      {}

func (e dataFetched) generation() Generation      { return e.gen }
func (e baselineFound) generation() Generation    { return e.gen }
func (e baselineMissing) generation() Generation  { return e.gen }
func (e baselineSaved) generation() Generation    { return e.gen }
func (e baselineDeleted) generation() Generation  { return e.gen }
func (e resultsRefreshed) generation() Generation { return e.gen }
func (e fetchFailed) generation() Generation      { return e.gen }

// effect is a side effect the machine performs after a transition.
type effect interface{ isEffect() }

type (
	fetchData struct {
		gen Generation
		id  models.CategoryID
	}
	fetchBaseline struct {
		gen Generation
		id  models.CategoryID
	}
	writeBaseline struct {
		gen Generation
		id  models.CategoryID
		def models.BaselineDefinition
		by  models.Actor
	}
	removeBaseline struct {
		gen Generation
		id  models.CategoryID
		by  models.Actor
	}
	refreshResults struct {
		gen Generation
		id  models.CategoryID
	}
	cancelLoad struct{}
)

func (fetchData) isEffect()      {}
func (fetchBaseline) isEffect()  {}
func (writeBaseline) isEffect()  {}
func (removeBaseline) isEffect() {}
func (refreshResults) isEffect() {}
func (cancelLoad) isEffect()     {}
