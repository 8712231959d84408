package service

import (
	"context"
	"time"

	"degradation_monitor/internal/dashboard"
	"degradation_monitor/internal/logger"
	"degradation_monitor/internal/models"
	"degradation_monitor/internal/repository"
	"degradation_monitor/internal/session"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (models.Actor, error)
	Operator(ctx context.Context, id int) (models.Operator, error)
}

// Session is the live baseline-configuration session. *session.Machine implements it.
type Session interface {
	Snapshot() session.State
	Subscribe() (<-chan session.State, func())
	Load(ctx context.Context, id models.CategoryID) (session.State, error)
	SetRange(ctx context.Context, r models.Range) (session.State, error)
	SetSensitivity(ctx context.Context, v float64) (session.State, error)
	ToggleExclude(ctx context.Context, index int) (session.State, error)
	SetInteractionMode(ctx context.Context, mode models.InteractionMode) (session.State, error)
	Save(ctx context.Context) (session.State, error)
	Delete(ctx context.Context) (session.State, error)
	ClearError(ctx context.Context) (session.State, error)
}

// Dashboard exposes the summary view and its batch actions.
type Dashboard interface {
	Snapshot() dashboard.Snapshot
	SetActive(ctx context.Context, active bool) error
	Refresh(ctx context.Context) error
	RunAnalysis(ctx context.Context) (models.RunAnalysisResponse, error)
	DeleteBaseline(ctx context.Context, id models.CategoryID) error
	ClearError()
}

// Categories exposes the category tree of the analysis API.
type Categories interface {
	Tree(ctx context.Context) ([]models.CategoryNode, error)
	Leaves(ctx context.Context) ([]models.LeafCategory, error)
}

// AuditLog exposes the append-only audit trail with filtering access.
type AuditLog interface {
	List(ctx context.Context, f AuditFilter) ([]models.AuditEvent, error)
}

// Scheduler runs analysis on a cron schedule until ctx is cancelled.
type Scheduler interface {
	Run(ctx context.Context)
	Status(ctx context.Context) (models.AnalysisRunState, error)
}

// Service aggregates all sub-services.
type Service struct {
	Session
	Dashboard
	Categories
	AuditLog
	Scheduler
	Authorization
}

// Deps are the collaborators and settings NewService wires together.
type Deps struct {
	Repos    *repository.Repository
	Gateway  Gateway
	Log      *logger.Logger
	Bounds   session.Bounds
	Debounce time.Duration
	FanOut   int // >0 builds dashboard rows per leaf with this concurrency
	Schedule string
	Auth     AuthConfig
}

// NewService wires the repository layer and the analysis API gateway into
// concrete services. The session machine and the dashboard agent are
// returned unstarted; see Service.Start.
func NewService(d Deps) *Service {
	audit := NewAuditRecorder(d.Repos.Audit, d.Log)
	machine := session.NewMachine(d.Gateway,
		session.WithBounds(d.Bounds),
		session.WithLogger(d.Log),
		session.WithObserver(audit),
	)
	agentOpts := []dashboard.Option{
		dashboard.WithDebounce(d.Debounce),
		dashboard.WithLogger(d.Log),
	}
	if d.FanOut > 0 {
		agentOpts = append(agentOpts, dashboard.WithSummarizer(dashboard.NewFanOutSummarizer(d.Gateway, d.FanOut)))
	}
	agent := dashboard.NewAgent(d.Gateway, agentOpts...)
	dash := NewDashboardService(agent, audit)
	return &Service{
		Session:       machine,
		Dashboard:     dash,
		Categories:    NewCategoryService(d.Gateway),
		AuditLog:      NewAuditLogService(d.Repos.Audit),
		Scheduler:     NewSchedulerService(d.Schedule, dash, d.Repos.RunState, d.Log),
		Authorization: NewAuthService(d.Repos.Auth, d.Auth, d.Log),
	}
}

// Start runs the session machine and the dashboard push listener until ctx
// is cancelled. Cancel ctx, then call stop to wait for both. The listener
// retries the push channel on its own; an error means the dashboard was
// already closed, and stop is usable either way.
func (s *Service) Start(ctx context.Context) (stop func(), err error) {
	machine, ok := s.Session.(*session.Machine)
	if !ok {
		return func() {}, nil
	}
	dash, ok := s.Dashboard.(*DashboardService)
	if !ok {
		return func() {}, nil
	}

	done := make(chan struct{})
	go func() {
		machine.Run(ctx)
		close(done)
	}()

	if err := dash.Start(ctx); err != nil {
		return func() { <-done }, err
	}
	return func() {
		dash.Close()
		<-done
	}, nil
}
