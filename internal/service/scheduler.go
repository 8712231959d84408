package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"degradation_monitor/internal/logger"
	"degradation_monitor/internal/models"
	"degradation_monitor/internal/repository"
)

// AnalysisRunner triggers one batch analysis run.
type AnalysisRunner interface {
	RunScheduled(ctx context.Context) (models.RunAnalysisResponse, error)
}

// standardParser accepts 5-field cron expressions (minute hour dom month dow).
var standardParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseSchedule validates a 5-field cron expression. Empty disables scheduling.
func ParseSchedule(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	sched, err := standardParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid analysis schedule %q: %w", spec, err)
	}
	return sched, nil
}

// SchedulerService runs the batch analysis on a cron schedule and persists
// the outcome of each run.
type SchedulerService struct {
	spec   string
	runner AnalysisRunner
	repo   repository.RunStateRepo
	log    *logger.Logger
	now    func() time.Time
	wait   func(ctx context.Context, d time.Duration) bool
}

func NewSchedulerService(spec string, runner AnalysisRunner, repo repository.RunStateRepo, log *logger.Logger) *SchedulerService {
	return &SchedulerService{
		spec:   strings.TrimSpace(spec),
		runner: runner,
		repo:   repo,
		log:    log,
		now:    time.Now,
		wait:   sleepCtx,
	}
}

// sleepCtx waits for d or until ctx is done. It reports whether d elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Run blocks until ctx is cancelled, triggering a run at every scheduled time.
// It returns immediately when the schedule is empty or invalid.
func (s *SchedulerService) Run(ctx context.Context) {
	sched, err := ParseSchedule(s.spec)
	if err != nil {
		if s.log != nil {
			s.log.Errorw("analysis_schedule_invalid", "schedule", s.spec, "error", err)
		}
		return
	}
	if sched == nil {
		if s.log != nil {
			s.log.Infow("analysis_schedule_disabled")
		}
		return
	}

	for {
		now := s.now()
		next := sched.Next(now)
		if s.log != nil {
			s.log.Infow("analysis_run_scheduled", "next_run", next.Format(time.RFC3339), "in", next.Sub(now).Round(time.Second))
		}
		if !s.wait(ctx, next.Sub(now)) {
			return
		}
		s.runOnce(ctx)
	}
}

// runOnce performs one scheduled run and records its result.
func (s *SchedulerService) runOnce(ctx context.Context) {
	st, err := s.repo.Load(ctx)
	if err != nil && s.log != nil {
		s.log.Warnw("analysis_run_state_load_failed", "error", err)
	}
	st.Schedule = s.spec
	st.Running = true
	st.UpdatedAt = s.now().UTC()
	s.save(ctx, st)

	resp, err := s.runner.RunScheduled(ctx)
	st.Running = false
	st.LastRunAt = s.now().UTC()
	st.UpdatedAt = st.LastRunAt
	st.Errors = []string{}

	if err == nil || refreshOnly(err) {
		st.ProcessedCategories = resp.ProcessedCategories
	}
	if err != nil {
		st.Errors = append(st.Errors, err.Error())
	}
	if s.log != nil && !errors.Is(err, context.Canceled) {
		s.log.Infow("analysis_run_finished", "processed_categories", st.ProcessedCategories, "errors", len(st.Errors))
	}
	// shutdown must not leave the row marked as running
	s.save(context.WithoutCancel(ctx), st)
}

func (s *SchedulerService) save(ctx context.Context, st models.AnalysisRunState) {
	if err := s.repo.Save(ctx, st); err != nil && s.log != nil {
		s.log.Errorw("analysis_run_state_save_failed", "error", err)
	}
}

// Status returns the persisted runner state together with the active schedule.
func (s *SchedulerService) Status(ctx context.Context) (models.AnalysisRunState, error) {
	st, err := s.repo.Load(ctx)
	if err != nil {
		return models.AnalysisRunState{}, fmt.Errorf("load analysis run state: %w", err)
	}
	st.Schedule = s.spec
	return st, nil
}
