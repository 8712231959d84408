package service

import (
	"context"
	"testing"
	"time"

	"degradation_monitor/internal/gateway"
	"degradation_monitor/internal/models"
	"degradation_monitor/internal/repository"
	"degradation_monitor/internal/session"
)

// unconfiguredGatewayStub has two records and no baseline.
type unconfiguredGatewayStub struct {
	categoryGatewayStub
}

func (g *unconfiguredGatewayStub) Records(context.Context, models.CategoryID, models.Timestamp, models.Timestamp) ([]models.WorkRecord, error) {
	return []models.WorkRecord{
		{RecordedAt: "2024-01-01T00:00:00", WorkTime: 10},
		{RecordedAt: "2024-01-02T00:00:00", WorkTime: 12},
	}, nil
}

func (g *unconfiguredGatewayStub) Baseline(context.Context, models.CategoryID) (models.BaselineDefinition, error) {
	return models.BaselineDefinition{}, gateway.ErrNotFound
}

func TestService_SaveThroughSessionIsAudited(t *testing.T) {
	audit := &fakeAuditRepo{}
	svc := NewService(Deps{
		Repos: &repository.Repository{
			RunState: &schedulerRunStateStub{},
			Audit:    audit,
			Auth:     &mockAuthRepo{},
		},
		Gateway: &unconfiguredGatewayStub{},
		Bounds:  session.DefaultBounds,
		Auth:    testAuthConfig,
	})

	base, cancel := context.WithCancel(context.Background())
	ctx := models.WithActor(base, models.Actor{OperatorID: 9, Username: "alice"})
	stop, err := svc.Start(base)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		cancel()
		stop()
	}()

	if _, err := svc.Load(ctx, 4); err != nil {
		t.Fatalf("Load: %v", err)
	}
	waitSession(t, svc, func(s session.State) bool { return s.Phase == session.PhaseLoaded })

	if _, err := svc.SetRange(ctx, models.Range{Start: "2024-01-01T00:00:00", End: "2024-01-02T00:00:00"}); err != nil {
		t.Fatalf("SetRange: %v", err)
	}
	if _, err := svc.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	st := waitSession(t, svc, func(s session.State) bool { return s.Phase == session.PhaseLoaded })
	if st.Status != models.BaselineConfigured {
		t.Fatalf("expected configured, got %+v", st)
	}

	types := audit.appendedTypes()
	if len(types) != 1 || types[0] != models.AuditBaselineSaved {
		t.Fatalf("unexpected audit events: %v", types)
	}
	audit.mu.Lock()
	defer audit.mu.Unlock()
	if ev := audit.appended[0]; ev.OperatorID != 9 || ev.Operator != "alice" {
		t.Fatalf("save not attributed to alice: %+v", ev)
	}
}

func waitSession(t *testing.T, svc *Service, cond func(session.State) bool) session.State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st := svc.Session.Snapshot(); cond(st) {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session did not reach the expected state: %+v", svc.Session.Snapshot())
	return session.State{}
}
