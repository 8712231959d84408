package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"degradation_monitor/internal/gateway"
	"degradation_monitor/internal/logger"
	"degradation_monitor/internal/models"
)

// Gateway is the slice of the analysis API the session needs.
type Gateway interface {
	Records(ctx context.Context, id models.CategoryID, start, end models.Timestamp) ([]models.WorkRecord, error)
	Results(ctx context.Context, id models.CategoryID) (models.AnalysisResult, error)
	Baseline(ctx context.Context, id models.CategoryID) (models.BaselineDefinition, error)
	SaveBaseline(ctx context.Context, id models.CategoryID, def models.BaselineDefinition) (models.SaveBaselineResponse, error)
	DeleteBaseline(ctx context.Context, id models.CategoryID) (models.DeleteBaselineResponse, error)
}

// Observer is told about every baseline write the API committed, including
// writes whose session was superseded before the result came back. It is
// called from worker goroutines.
type Observer interface {
	BaselineSaved(by models.Actor, id models.CategoryID, def models.BaselineDefinition)
	BaselineDeleted(by models.Actor, id models.CategoryID)
}

// ErrStopped is returned by commands issued after the machine's Run returned.
var ErrStopped = errors.New("session machine stopped")

// User-visible error prefixes.
const (
	msgFetchFailed  = "data fetch failed"
	msgSaveFailed   = "baseline save failed"
	msgDeleteFailed = "baseline reset failed"
)

// eventQueueSize bounds commands and results waiting for the loop.
const eventQueueSize = 32

type envelope struct {
	ev    event
	reply chan State
}

// Machine runs the session on a single goroutine. Commands and gateway results
// are serialized through one queue and applied with reduce.
type Machine struct {
	gw       Gateway
	bounds   Bounds
	log      *logger.Logger
	observer Observer

	queue   chan envelope
	stopped chan struct{}

	mu    sync.RWMutex
	state State

	subsMu sync.Mutex
	subs   map[int]chan State
	nextID int

	// loop goroutine only
	runCtx     context.Context
	cancelLoad context.CancelFunc
	loadCtx    context.Context
	workers    sync.WaitGroup
}

// MachineOption customizes a Machine.
type MachineOption func(*Machine)

// WithBounds sets the sensitivity bounds and the default sensitivity.
func WithBounds(b Bounds) MachineOption {
	return func(m *Machine) { m.bounds = b }
}

// WithLogger attaches a logger.
func WithLogger(log *logger.Logger) MachineOption {
	return func(m *Machine) { m.log = log }
}

// WithObserver registers an observer of committed baseline writes.
func WithObserver(o Observer) MachineOption {
	return func(m *Machine) { m.observer = o }
}

// NewMachine builds an Idle machine. Call Run to start processing.
func NewMachine(gw Gateway, opts ...MachineOption) *Machine {
	m := &Machine{
		gw:      gw,
		bounds:  DefaultBounds,
		queue:   make(chan envelope, eventQueueSize),
		stopped: make(chan struct{}),
		subs:    make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.state = initialState(m.bounds)
	return m
}

// Run processes commands and results until ctx is cancelled. In-flight
// gateway calls are cancelled and awaited before Run returns; their results
// are discarded.
func (m *Machine) Run(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	m.runCtx = runCtx
	defer func() {
		cancel()
		m.workers.Wait()
		close(m.stopped)
		m.closeSubscribers()
	}()

	for {
		select {
		case <-runCtx.Done():
			if m.cancelLoad != nil {
				m.cancelLoad()
			}
			return
		case env := <-m.queue:
			st := m.apply(env.ev)
			if env.reply != nil {
				env.reply <- st
			}
		}
	}
}

// apply reduces ev, publishes the new snapshot and starts any effect.
func (m *Machine) apply(ev event) State {
	prev := m.Snapshot()
	next, eff, changed := reduce(prev, ev, m.bounds)
	if !changed {
		if r, ok := ev.(result); ok && m.log != nil {
			m.log.Debugw("session_stale_result_discarded",
				"result_generation", r.generation(), "current_generation", prev.Generation)
		}
		return prev
	}

	m.mu.Lock()
	m.state = next
	m.mu.Unlock()

	m.broadcast(next)
	if eff != nil {
		m.perform(eff)
	}
	return next
}

// perform starts the gateway work for eff. Results are posted back to the queue.
func (m *Machine) perform(eff effect) {
	switch e := eff.(type) {
	case cancelLoad:
		m.resetLoadContext(false)

	case fetchData:
		ctx := m.resetLoadContext(true)
		m.spawn(func() {
			var (
				records []models.WorkRecord
				results models.AnalysisResult
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				records, err = m.gw.Records(gctx, e.id, "", "")
				return err
			})
			g.Go(func() error {
				var err error
				results, err = m.gw.Results(gctx, e.id)
				return err
			})
			if err := g.Wait(); err != nil {
				m.fail(e.gen, msgFetchFailed, err)
				return
			}
			m.post(dataFetched{gen: e.gen, records: records, results: results})
		})

	case fetchBaseline:
		ctx := m.loadCtx
		if ctx == nil {
			ctx = m.runCtx
		}
		m.spawn(func() {
			def, err := m.gw.Baseline(ctx, e.id)
			switch {
			case errors.Is(err, gateway.ErrNotFound):
				m.post(baselineMissing{gen: e.gen})
			case err != nil:
				m.fail(e.gen, msgFetchFailed, err)
			default:
				m.post(baselineFound{gen: e.gen, def: def})
			}
		})

	case writeBaseline:
		ctx := m.runCtx
		m.spawn(func() {
			if _, err := m.gw.SaveBaseline(ctx, e.id, e.def); err != nil {
				m.fail(e.gen, msgSaveFailed, err)
				return
			}
			if m.observer != nil {
				m.observer.BaselineSaved(e.by, e.id, e.def)
			}
			m.post(baselineSaved{gen: e.gen, def: e.def})
		})

	case removeBaseline:
		ctx := m.runCtx
		m.spawn(func() {
			if _, err := m.gw.DeleteBaseline(ctx, e.id); err != nil {
				m.fail(e.gen, msgDeleteFailed, err)
				return
			}
			if m.observer != nil {
				m.observer.BaselineDeleted(e.by, e.id)
			}
			m.post(baselineDeleted{gen: e.gen})
		})

	case refreshResults:
		ctx := m.runCtx
		m.spawn(func() {
			res, err := m.gw.Results(ctx, e.id)
			if err != nil {
				m.fail(e.gen, msgFetchFailed, err)
				return
			}
			m.post(resultsRefreshed{gen: e.gen, results: res})
		})
	}
}

// resetLoadContext cancels the load in flight, if any, and optionally opens
// a fresh context for the next one.
func (m *Machine) resetLoadContext(open bool) context.Context {
	if m.cancelLoad != nil {
		m.cancelLoad()
		m.cancelLoad, m.loadCtx = nil, nil
	}
	if !open {
		return nil
	}
	m.loadCtx, m.cancelLoad = context.WithCancel(m.runCtx)
	return m.loadCtx
}

func (m *Machine) spawn(fn func()) {
	m.workers.Add(1)
	go func() {
		defer m.workers.Done()
		fn()
	}()
}

// fail reports a failed call. Cancelled calls belong to a superseded load or
// a stopped machine and are dropped.
func (m *Machine) fail(gen Generation, prefix string, err error) {
	if m.runCtx.Err() != nil || errors.Is(err, context.Canceled) {
		return
	}
	if m.log != nil {
		m.log.Warnw("session_gateway_call_failed", "generation", gen, "op", prefix, "error", err)
	}
	m.post(fetchFailed{gen: gen, msg: fmt.Sprintf("%s: %v", prefix, err)})
}

// post enqueues a result from a worker. It gives up once the machine stops.
func (m *Machine) post(ev event) {
	select {
	case m.queue <- envelope{ev: ev}:
	case <-m.runCtx.Done():
	}
}

// dispatch enqueues a command and waits until it has been reduced.
func (m *Machine) dispatch(ctx context.Context, ev event) (State, error) {
	reply := make(chan State, 1)
	select {
	case m.queue <- envelope{ev: ev, reply: reply}:
	case <-m.stopped:
		return m.Snapshot(), ErrStopped
	case <-ctx.Done():
		return m.Snapshot(), ctx.Err()
	}
	select {
	case st := <-reply:
		return st, nil
	case <-m.stopped:
		return m.Snapshot(), ErrStopped
	case <-ctx.Done():
		return m.Snapshot(), ctx.Err()
	}
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe returns a channel carrying the latest state after every change.
// A slow reader only ever misses intermediate snapshots, never the latest one.
// The channel is closed by cancel or when the machine stops.
func (m *Machine) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	m.subsMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	m.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subsMu.Lock()
			defer m.subsMu.Unlock()
			if _, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(ch)
			}
		})
	}
}

func (m *Machine) broadcast(s State) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

func (m *Machine) closeSubscribers() {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
}

// Load selects a category and fetches its records, results and baseline.
// NoCategory clears the session back to Idle.
func (m *Machine) Load(ctx context.Context, id models.CategoryID) (State, error) {
	if id == models.NoCategory {
		return m.dispatch(ctx, cleared{})
	}
	return m.dispatch(ctx, loadRequested{id: id})
}

// SetRange sets the baseline window. Only accepted while unconfigured.
func (m *Machine) SetRange(ctx context.Context, r models.Range) (State, error) {
	return m.dispatch(ctx, rangeSet{r: r})
}

// SetSensitivity sets the sensitivity, clamped into the machine's bounds.
func (m *Machine) SetSensitivity(ctx context.Context, v float64) (State, error) {
	return m.dispatch(ctx, sensitivitySet{v: v})
}

// ToggleExclude flips the exclusion of the record at index.
func (m *Machine) ToggleExclude(ctx context.Context, index int) (State, error) {
	return m.dispatch(ctx, excludeToggled{index: index})
}

// SetInteractionMode switches between range selection and chart operation.
func (m *Machine) SetInteractionMode(ctx context.Context, mode models.InteractionMode) (State, error) {
	return m.dispatch(ctx, modeSet{mode: mode})
}

// ClearError dismisses the current error.
func (m *Machine) ClearError(ctx context.Context) (State, error) {
	return m.dispatch(ctx, errorCleared{})
}

// Save persists the current range, sensitivity and exclusions on behalf of
// the actor attached to ctx.
func (m *Machine) Save(ctx context.Context) (State, error) {
	return m.dispatch(ctx, saveRequested{by: models.ActorFrom(ctx)})
}

// Delete removes the baseline of the selected category on behalf of the
// actor attached to ctx.
func (m *Machine) Delete(ctx context.Context) (State, error) {
	return m.dispatch(ctx, deleteRequested{by: models.ActorFrom(ctx)})
}
