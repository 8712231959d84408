package service

import (
	"context"
	"errors"

	"degradation_monitor/internal/dashboard"
	"degradation_monitor/internal/models"
)

// Analysis run triggers recorded in the audit log.
const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
)

// DashboardService is the dashboard agent with audited batch actions.
type DashboardService struct {
	*dashboard.Agent
	audit *AuditRecorder
}

func NewDashboardService(agent *dashboard.Agent, audit *AuditRecorder) *DashboardService {
	return &DashboardService{Agent: agent, audit: audit}
}

// RunAnalysis triggers a batch analysis on behalf of the operator attached to ctx.
func (s *DashboardService) RunAnalysis(ctx context.Context) (models.RunAnalysisResponse, error) {
	return s.run(ctx, models.ActorFrom(ctx), TriggerManual)
}

// RunScheduled triggers a batch analysis on behalf of the scheduler.
func (s *DashboardService) RunScheduled(ctx context.Context) (models.RunAnalysisResponse, error) {
	return s.run(ctx, models.Actor{}, TriggerSchedule)
}

func (s *DashboardService) run(ctx context.Context, by models.Actor, trigger string) (models.RunAnalysisResponse, error) {
	resp, err := s.Agent.RunAnalysis(ctx)
	if err != nil && !refreshOnly(err) {
		return resp, err
	}
	s.audit.AnalysisRun(by, trigger, resp.ProcessedCategories)
	return resp, err
}

// DeleteBaseline removes a baseline from the dashboard and records it
// against the operator attached to ctx.
func (s *DashboardService) DeleteBaseline(ctx context.Context, id models.CategoryID) error {
	err := s.Agent.DeleteBaseline(ctx, id)
	if err != nil && !refreshOnly(err) {
		return err
	}
	s.audit.BaselineDeleted(models.ActorFrom(ctx), id)
	return err
}

// refreshOnly reports whether err is only the failure of the refresh that
// follows a completed action.
func refreshOnly(err error) bool {
	var re *dashboard.RefreshError
	return errors.As(err, &re)
}
