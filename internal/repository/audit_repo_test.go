package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"degradation_monitor/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

func newAuditMock(t *testing.T) (*AuditSQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewAuditSQLite(db), mock
}

func TestAuditAppend_Success_WithDefaults(t *testing.T) {
	t.Parallel()
	repo, mock := newAuditMock(t)

	mock.ExpectExec(regexp.QuoteMeta(insertAuditSQL)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(),
			models.AuditBaselineSaved, int64(4), int64(9), "alice", "baseline saved",
			`{"sensitivity":0.5}`,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(ctx(t), models.AuditEvent{
		Type:        "  baseline_saved ",
		CategoryID:  4,
		OperatorID:  9,
		Operator:    "alice",
		Description: "baseline saved",
		Metadata:    map[string]any{"sensitivity": 0.5},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAuditAppend_ScheduledEventHasNullCategoryAndOperator(t *testing.T) {
	t.Parallel()
	repo, mock := newAuditMock(t)

	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	mock.ExpectExec(regexp.QuoteMeta(insertAuditSQL)).
		WithArgs("e1", "2025-03-01 08:30:00", models.AuditAnalysisRun, nil, nil, nil, "analysis run", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(ctx(t), models.AuditEvent{
		EventID:     "e1",
		OccurredAt:  at,
		Type:        models.AuditAnalysisRun,
		Description: "analysis run",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAuditAppend_DBError(t *testing.T) {
	t.Parallel()
	repo, mock := newAuditMock(t)

	mock.ExpectExec("INSERT INTO audit_events").
		WillReturnError(errors.New("down"))

	err := repo.Append(ctx(t), models.AuditEvent{Type: models.AuditBaselineDeleted, Description: "x"})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAuditList_NoFilters_And_MetadataParsing(t *testing.T) {
	t.Parallel()
	repo, mock := newAuditMock(t)

	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	js, _ := json.Marshal(map[string]any{"a": "b"})

	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "category_id", "operator_id", "operator", "message", "meta"}).
		AddRow("2", now.Add(time.Hour), models.AuditBaselineSaved, int64(4), int64(9), "alice", "m2", string(js)).
		AddRow("1", now, models.AuditAnalysisRun, nil, nil, nil, "m1", nil)

	mock.ExpectQuery(regexp.QuoteMeta(selectAuditSQL + ` ORDER BY occurred_at DESC`)).
		WillReturnRows(rows)

	got, err := repo.List(ctx(t), AuditFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2, got %d", len(got))
	}
	if got[0].CategoryID != 4 || got[1].CategoryID != models.NoCategory {
		t.Fatalf("unexpected categories: %v, %v", got[0].CategoryID, got[1].CategoryID)
	}
	if got[0].OperatorID != 9 || got[0].Operator != "alice" || got[1].OperatorID != 0 || got[1].Operator != "" {
		t.Fatalf("unexpected operators: %+v, %+v", got[0], got[1])
	}
	b1, _ := json.Marshal(got[0].Metadata)
	if string(b1) != string(js) {
		t.Fatalf("metadata mismatch: %s vs %s", string(b1), string(js))
	}
	if got[1].Metadata != nil {
		t.Fatalf("expected nil meta, got %#v", got[1].Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAuditList_WithFilters_OrderAndArgs(t *testing.T) {
	t.Parallel()
	repo, mock := newAuditMock(t)

	from := time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	query := selectAuditSQL + ` WHERE occurred_at >= ? AND occurred_at <= ? AND type = ? AND category_id = ? AND operator_id = ? ORDER BY occurred_at DESC LIMIT ?`

	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "category_id", "operator_id", "operator", "message", "meta"}).
		AddRow("3", to, models.AuditBaselineDeleted, int64(6), int64(2), "bob", "c", nil)

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("2025-01-01 11:00:00", "2025-01-01 12:00:00", models.AuditBaselineDeleted, int64(6), int64(2), 10).
		WillReturnRows(rows)

	got, err := repo.List(ctx(t), AuditFilter{From: from, To: to, Type: " baseline_deleted ", CategoryID: 6, OperatorID: 2, Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].EventID != "3" {
		t.Fatalf("unexpected results: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAuditList_ScanError(t *testing.T) {
	t.Parallel()
	repo, mock := newAuditMock(t)

	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "category_id", "operator_id", "operator", "message", "meta"}).
		// occurred_at wrong type to force scan error
		AddRow("x", 123, "INFO", nil, nil, nil, "msg", nil)

	mock.ExpectQuery(regexp.QuoteMeta(selectAuditSQL)).
		WillReturnRows(rows)

	if _, err := repo.List(ctx(t), AuditFilter{}); err == nil {
		t.Fatalf("expected scan error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAuditList_QueryError(t *testing.T) {
	t.Parallel()
	repo, mock := newAuditMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectAuditSQL)).WillReturnError(sql.ErrConnDone)

	if _, err := repo.List(ctx(t), AuditFilter{}); !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("expected ErrConnDone, got %v", err)
	}
}
