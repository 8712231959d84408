// Package dashboard keeps the per-leaf summary view fresh against
// server-push notifications: debounced refresh while the view is active,
// a stale mark while it is not.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"degradation_monitor/internal/logger"
	"degradation_monitor/internal/models"
)

// DefaultDebounce is the trailing delay between the last notification and the refresh.
const DefaultDebounce = 2 * time.Second

// Gateway is what the agent needs from the analysis API.
type Gateway interface {
	DashboardSummary(ctx context.Context) ([]models.DashboardRow, error)
	RunAnalysis(ctx context.Context) (models.RunAnalysisResponse, error)
	DeleteBaseline(ctx context.Context, id models.CategoryID) (models.DeleteBaselineResponse, error)
	Follow(ctx context.Context) <-chan models.PushEvent
}

// Summarizer produces the summary rows.
type Summarizer interface {
	Summary(ctx context.Context) ([]models.DashboardRow, error)
}

// SummarizerFunc adapts a function to Summarizer.
type SummarizerFunc func(ctx context.Context) ([]models.DashboardRow, error)

func (f SummarizerFunc) Summary(ctx context.Context) ([]models.DashboardRow, error) { return f(ctx) }

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("dashboard agent closed")

// RefreshError reports that an action went through but the refresh that
// follows it failed.
type RefreshError struct{ Err error }

func (e *RefreshError) Error() string { return "refresh after action: " + e.Err.Error() }
func (e *RefreshError) Unwrap() error { return e.Err }

// Snapshot is a copy of the agent's view state.
type Snapshot struct {
	Rows        []models.DashboardRow `json:"rows"`
	Loaded      bool                  `json:"loaded"`
	Stale       bool                  `json:"stale"`
	Active      bool                  `json:"active"`
	Err         string                `json:"error,omitempty"`
	RefreshedAt time.Time             `json:"refreshed_at"`
}

type stopper interface{ Stop() bool }

// Agent tracks one dashboard view.
type Agent struct {
	gw       Gateway
	summary  Summarizer
	debounce time.Duration
	log      *logger.Logger
	now      func() time.Time
	after    func(d time.Duration, fn func()) stopper

	mu          sync.Mutex
	active      bool
	stale       bool
	staleMarks  uint64
	loaded      bool
	rows        []models.DashboardRow
	err         string
	refreshedAt time.Time
	timer       stopper
	timerSeq    uint64
	refreshSeq  uint64
	started     bool
	closed      bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customizes an Agent.
type Option func(*Agent)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.debounce = d
		}
	}
}

// WithSummarizer replaces the gateway's summary endpoint as the row source.
func WithSummarizer(s Summarizer) Option {
	return func(a *Agent) { a.summary = s }
}

// WithLogger attaches a logger.
func WithLogger(log *logger.Logger) Option {
	return func(a *Agent) { a.log = log }
}

// NewAgent builds an inactive agent. Call Start to listen for notifications.
func NewAgent(gw Gateway, opts ...Option) *Agent {
	a := &Agent{
		gw:       gw,
		debounce: DefaultDebounce,
		now:      time.Now,
		after: func(d time.Duration, fn func()) stopper {
			return time.AfterFunc(d, fn)
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.summary == nil {
		a.summary = SummarizerFunc(gw.DashboardSummary)
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	return a
}

// Start follows the push channel until ctx is done or Close is called. The
// channel keeps retrying its own connection, so Start only fails after Close.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = true
	a.wg.Add(1)
	a.mu.Unlock()

	stop := context.AfterFunc(ctx, a.cancel)
	events := a.gw.Follow(a.ctx)
	go func() {
		defer a.wg.Done()
		defer stop()
		for ev := range events {
			if ev.Name == models.PushEventDashboardUpdated {
				a.notify()
			}
		}
	}()
	return nil
}

// Close releases the push subscription, clears a pending refresh and waits
// for the listener. It is safe to call more than once.
func (a *Agent) Close() {
	a.mu.Lock()
	a.closed = true
	a.stopTimerLocked()
	a.mu.Unlock()

	a.cancel()
	a.wg.Wait()
}

// notify handles one dashboard-updated notification.
func (a *Agent) notify() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if !a.active {
		a.markStaleLocked()
		return
	}
	a.stopTimerLocked()
	a.timerSeq++
	seq := a.timerSeq
	a.timer = a.after(a.debounce, func() { a.fire(seq) })
}

// fire runs the debounced refresh unless a newer notification or Close
// superseded this timer.
func (a *Agent) fire(seq uint64) {
	a.mu.Lock()
	if a.closed || seq != a.timerSeq {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	a.wg.Add(1)
	a.mu.Unlock()
	defer a.wg.Done()

	if err := a.Refresh(a.ctx); err != nil && a.log != nil {
		a.log.Warnw("dashboard_refresh_failed", "trigger", "push", "error", err)
	}
}

// markStaleLocked flags the rows as outdated. Only a refresh started after
// the mark clears it.
func (a *Agent) markStaleLocked() {
	a.stale = true
	a.staleMarks++
}

func (a *Agent) stopTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.timerSeq++
}

// SetActive records whether the view is visible. Becoming active refreshes
// immediately when nothing was loaded yet or the rows went stale. Becoming
// inactive with a refresh pending defers it by marking the rows stale.
func (a *Agent) SetActive(ctx context.Context, active bool) error {
	a.mu.Lock()
	a.active = active
	if !active {
		if a.timer != nil {
			a.stopTimerLocked()
			a.markStaleLocked()
		}
		a.mu.Unlock()
		return nil
	}
	needs := !a.loaded || a.stale
	a.mu.Unlock()

	if !needs {
		return nil
	}
	return a.Refresh(ctx)
}

// Refresh reloads the rows. When refreshes overlap, the one started last
// wins. A failed refresh leaves the stale mark in place.
func (a *Agent) Refresh(ctx context.Context) error {
	a.mu.Lock()
	a.refreshSeq++
	seq := a.refreshSeq
	marks := a.staleMarks
	a.mu.Unlock()

	rows, err := a.summary.Summary(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if seq != a.refreshSeq {
		return err
	}
	if err != nil {
		a.err = fmt.Sprintf("data fetch failed: %v", err)
		return err
	}
	a.rows = rows
	a.loaded = true
	a.err = ""
	a.refreshedAt = a.now()
	if marks == a.staleMarks {
		a.stale = false
	}
	return nil
}

// RunAnalysis triggers a batch analysis run and then refreshes, without
// waiting for a push notification.
func (a *Agent) RunAnalysis(ctx context.Context) (models.RunAnalysisResponse, error) {
	resp, err := a.gw.RunAnalysis(ctx)
	if err != nil {
		a.setErr(fmt.Sprintf("analysis run failed: %v", err))
		return resp, err
	}
	return resp, a.refreshAfter(ctx)
}

// DeleteBaseline removes the baseline of id and refreshes.
func (a *Agent) DeleteBaseline(ctx context.Context, id models.CategoryID) error {
	if _, err := a.gw.DeleteBaseline(ctx, id); err != nil {
		a.setErr(fmt.Sprintf("baseline reset failed: %v", err))
		return err
	}
	return a.refreshAfter(ctx)
}

func (a *Agent) refreshAfter(ctx context.Context) error {
	if err := a.Refresh(ctx); err != nil {
		return &RefreshError{Err: err}
	}
	return nil
}

// ClearError dismisses the current error.
func (a *Agent) ClearError() {
	a.setErr("")
}

func (a *Agent) setErr(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = msg
}

// Snapshot returns the current view state.
func (a *Agent) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	rows := make([]models.DashboardRow, len(a.rows))
	copy(rows, a.rows)
	return Snapshot{
		Rows:        rows,
		Loaded:      a.loaded,
		Stale:       a.stale,
		Active:      a.active,
		Err:         a.err,
		RefreshedAt: a.refreshedAt,
	}
}
