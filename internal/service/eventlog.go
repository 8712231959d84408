package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"degradation_monitor/internal/logger"
	"degradation_monitor/internal/models"
	"degradation_monitor/internal/repository"
)

// AuditFilter supports audit filtering by time range, type and category.
type AuditFilter struct {
	From       time.Time         // inclusive; zero means no lower bound
	To         time.Time         // inclusive; zero means no upper bound
	Type       string            // "", "BASELINE_SAVED", "BASELINE_DELETED", "ANALYSIS_RUN"
	CategoryID models.CategoryID // zero means all categories
	OperatorID int               // zero means every operator and scheduled runs
	Limit      int               // zero means defaultAuditLimit
}

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000

	// auditWriteTimeout bounds an audit insert issued from the session loop.
	auditWriteTimeout = 3 * time.Second
)

// ErrInvalidFilter wraps every audit filter validation failure.
var ErrInvalidFilter = errors.New("invalid audit filter")

var (
	errInvalidTimeRange = fmt.Errorf("%w: From must be <= To", ErrInvalidFilter)
	errInvalidLimit     = fmt.Errorf("%w: limit must be between 0 and %d", ErrInvalidFilter, maxAuditLimit)
	errInvalidOperator  = fmt.Errorf("%w: operator id must not be negative", ErrInvalidFilter)
)

type AuditLogService struct {
	auditRepo repository.AuditRepo
}

func NewAuditLogService(auditRepo repository.AuditRepo) *AuditLogService {
	return &AuditLogService{auditRepo: auditRepo}
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the time range and limit.
func normalizeAndValidateFilter(f AuditFilter) (repository.AuditFilter, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return repository.AuditFilter{}, errInvalidTimeRange
	}
	if f.Limit < 0 || f.Limit > maxAuditLimit {
		return repository.AuditFilter{}, errInvalidLimit
	}
	if f.OperatorID < 0 {
		return repository.AuditFilter{}, errInvalidOperator
	}
	limit := f.Limit
	if limit == 0 {
		limit = defaultAuditLimit
	}

	return repository.AuditFilter{
		From:       from,
		To:         to,
		Type:       normalizeEventType(f.Type),
		CategoryID: f.CategoryID,
		OperatorID: f.OperatorID,
		Limit:      limit,
	}, nil
}

func (s *AuditLogService) List(ctx context.Context, f AuditFilter) ([]models.AuditEvent, error) {
	rf, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.auditRepo.List(ctx, rf)
}

// AuditRecorder appends audit events for committed baseline writes and
// analysis runs, attributed to the operator who issued them. Write failures
// are logged, never returned to the caller.
type AuditRecorder struct {
	auditRepo repository.AuditRepo
	log       *logger.Logger
}

func NewAuditRecorder(auditRepo repository.AuditRepo, log *logger.Logger) *AuditRecorder {
	return &AuditRecorder{auditRepo: auditRepo, log: log}
}

// BaselineSaved implements session.Observer.
func (r *AuditRecorder) BaselineSaved(by models.Actor, id models.CategoryID, def models.BaselineDefinition) {
	r.append(by, models.AuditEvent{
		Type:        models.AuditBaselineSaved,
		CategoryID:  id,
		Description: fmt.Sprintf("baseline %s..%s saved", def.Start, def.End),
		Metadata: map[string]any{
			"baseline_start":  def.Start,
			"baseline_end":    def.End,
			"sensitivity":     def.Sensitivity,
			"excluded_points": len(def.ExcludedPoints),
		},
	})
}

// BaselineDeleted implements session.Observer.
func (r *AuditRecorder) BaselineDeleted(by models.Actor, id models.CategoryID) {
	r.append(by, models.AuditEvent{
		Type:        models.AuditBaselineDeleted,
		CategoryID:  id,
		Description: "baseline deleted",
	})
}

// AnalysisRun records a completed batch analysis run.
func (r *AuditRecorder) AnalysisRun(by models.Actor, trigger string, processed int) {
	r.append(by, models.AuditEvent{
		Type:        models.AuditAnalysisRun,
		Description: fmt.Sprintf("analysis run (%s) processed %d categories", trigger, processed),
		Metadata:    map[string]any{"trigger": trigger, "processed_categories": processed},
	})
}

func (r *AuditRecorder) append(by models.Actor, e models.AuditEvent) {
	if !by.System() {
		e.OperatorID, e.Operator = by.OperatorID, by.Username
	}
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()
	if err := r.auditRepo.Append(ctx, e); err != nil && r.log != nil {
		r.log.Errorw("audit_append_failed", "type", e.Type, "category_id", e.CategoryID, "operator_id", e.OperatorID, "error", err)
	}
}
