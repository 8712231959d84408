package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"degradation_monitor/internal/models"
	"degradation_monitor/internal/service"
)

func TestAuditHandler_ListAndValidation(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	events := []models.AuditEvent{
		{EventID: "e1", OccurredAt: now, Type: models.AuditBaselineSaved, CategoryID: 4, Description: "saved"},
		{EventID: "e2", OccurredAt: now.Add(time.Second), Type: models.AuditAnalysisRun, Description: "run"},
	}
	audit := &mockAuditLog{resp: events}
	s := &service.Service{
		Authorization: &mockAuth{parseActor: models.Actor{OperatorID: 99, Username: "op"}},
		AuditLog:      audit,
	}
	r := newTestRouter(s)

	bad := []struct {
		name  string
		query string
	}{
		{"invalid from", "from=notatime"},
		{"invalid to", "to=31-08-2025"},
		{"from after to", "from=2025-08-02&to=2025-08-01"},
		{"non numeric category", "category_id=abc"},
		{"zero category", "category_id=0"},
		{"negative limit", "limit=-1"},
		{"zero operator", "operator_id=0"},
		{"non numeric operator", "operator_id=ops"},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			if tc.name == "from after to" {
				audit.err = fmt.Errorf("wrapped: %w", service.ErrInvalidFilter)
				defer func() { audit.err = nil }()
			}
			w := doJSON(r, http.MethodGet, "/api/v1/audit?"+tc.query, "")
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (body=%s)", w.Code, w.Body.String())
			}
		})
	}

	q := fmt.Sprintf("/api/v1/audit?from=%s&to=2025-08-31&type=baseline_saved&category_id=4&operator_id=3&limit=10",
		now.Format(time.RFC3339))
	w := doJSON(r, http.MethodGet, q, "")
	if w.Code != http.StatusOK {
		t.Fatalf("audit status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count  int                 `json:"count"`
		Events []models.AuditEvent `json:"events"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Events) != 2 {
		t.Fatalf("unexpected response: %+v", out)
	}

	f := audit.lastFilter
	if !f.From.Equal(now) {
		t.Fatalf("from: got %v, want %v", f.From, now)
	}
	wantTo := time.Date(2025, 8, 31, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	if !f.To.Equal(wantTo) {
		t.Fatalf("date-only 'to' should be end of day: got %v", f.To)
	}
	if f.Type != "baseline_saved" || f.CategoryID != 4 || f.OperatorID != 3 || f.Limit != 10 {
		t.Fatalf("unexpected filter: %+v", f)
	}
}

func TestAuditHandler_ServiceError(t *testing.T) {
	s := &service.Service{
		Authorization: &mockAuth{parseActor: models.Actor{OperatorID: 1, Username: "op"}},
		AuditLog:      &mockAuditLog{err: errors.New("db down")},
	}
	w := doJSON(newTestRouter(s), http.MethodGet, "/api/v1/audit", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var out map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out["error"] != errListAudit {
		t.Fatalf("error: got %q", out["error"])
	}
}

func TestParseQueryTime(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2025-08-27T15:04:05Z", time.Date(2025, 8, 27, 15, 4, 5, 0, time.UTC), false},
		{"2025-08-27T17:04:05+02:00", time.Date(2025, 8, 27, 15, 4, 5, 0, time.UTC), false},
		{"2025-08-27 15:04:05", time.Date(2025, 8, 27, 15, 4, 5, 0, time.UTC), false},
		{"2025-08-27", time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC), false},
		{"yesterday", time.Time{}, true},
	}
	for _, tc := range cases {
		got, err := parseQueryTime(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%q: err=%v, wantErr=%v", tc.in, err, tc.wantErr)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("%q: got %v, want %v", tc.in, got, tc.want)
		}
	}
}
