package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"degradation_monitor/internal/models"
	"degradation_monitor/internal/repository"
)

// fakeAuditRepo is a minimal stub that satisfies the repository.AuditRepo interface.
type fakeAuditRepo struct {
	mu sync.Mutex

	got      repository.AuditFilter
	appended []models.AuditEvent

	events    []models.AuditEvent
	err       error
	appendErr error

	calls int
}

func (f *fakeAuditRepo) List(_ context.Context, rf repository.AuditFilter) ([]models.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.got = rf
	return f.events, f.err
}

func (f *fakeAuditRepo) Append(_ context.Context, e models.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, e)
	return f.appendErr
}

func (f *fakeAuditRepo) appendedTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.appended))
	for _, e := range f.appended {
		out = append(out, e.Type)
	}
	return out
}

func fixedZone(name string, offsetSec int) *time.Location {
	return time.FixedZone(name, offsetSec)
}

func mustTimeIn(loc *time.Location, y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, loc)
}

func Test_normalizeToUTC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   time.Time
		want func(time.Time) bool
	}{
		{
			name: "zero time remains zero",
			in:   time.Time{},
			want: func(out time.Time) bool { return out.IsZero() },
		},
		{
			name: "non-UTC converted to UTC preserving instant",
			in:   mustTimeIn(fixedZone("UTC+3", 3*3600), 2025, time.August, 1, 12, 34, 56),
			want: func(out time.Time) bool {
				exp := time.Date(2025, time.August, 1, 9, 34, 56, 0, time.UTC)
				return out.Location() == time.UTC && out.Equal(exp)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := normalizeToUTC(tc.in)
			if !tc.want(got) {
				t.Fatalf("unexpected normalizeToUTC result: %v (loc=%v)", got, got.Location())
			}
		})
	}
}

func Test_normalizeEventType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		exp  string
	}{
		{name: "empty stays empty", in: "", exp: ""},
		{name: "trim spaces", in: "  ANALYSIS_RUN ", exp: "ANALYSIS_RUN"},
		{name: "uppercase", in: "baseline_saved", exp: "BASELINE_SAVED"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			if got := normalizeEventType(c.in); got != c.exp {
				t.Fatalf("normalizeEventType(%q) = %q; want %q", c.in, got, c.exp)
			}
		})
	}
}

func Test_normalizeAndValidateFilter(t *testing.T) {
	t.Parallel()

	fromLocal := mustTimeIn(fixedZone("UTC+2", 2*3600), 2025, time.September, 10, 10, 0, 0)
	toUTC := time.Date(2025, time.September, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		in      AuditFilter
		want    repository.AuditFilter
		wantErr error
	}{
		{
			name: "all zero gets default limit",
			in:   AuditFilter{},
			want: repository.AuditFilter{Limit: defaultAuditLimit},
		},
		{
			name: "from after to -> error",
			in: AuditFilter{
				From: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
				To:   time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC),
			},
			wantErr: errInvalidTimeRange,
		},
		{
			name:    "negative limit -> error",
			in:      AuditFilter{Limit: -1},
			wantErr: errInvalidLimit,
		},
		{
			name:    "limit above max -> error",
			in:      AuditFilter{Limit: maxAuditLimit + 1},
			wantErr: errInvalidLimit,
		},
		{
			name: "normalize tz, type and keep category",
			in:   AuditFilter{From: fromLocal, To: toUTC, Type: " baseline_saved ", CategoryID: 4, Limit: 5},
			want: repository.AuditFilter{
				From:       time.Date(2025, time.September, 10, 8, 0, 0, 0, time.UTC),
				To:         toUTC,
				Type:       models.AuditBaselineSaved,
				CategoryID: 4,
				Limit:      5,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := normalizeAndValidateFilter(tc.in)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v; got %v", tc.wantErr, err)
			}
			if tc.wantErr != nil {
				return
			}
			if !got.From.Equal(tc.want.From) || !got.To.Equal(tc.want.To) {
				t.Fatalf("bounds: got %v..%v; want %v..%v", got.From, got.To, tc.want.From, tc.want.To)
			}
			if got.Type != tc.want.Type || got.CategoryID != tc.want.CategoryID || got.Limit != tc.want.Limit {
				t.Fatalf("filter: got %+v; want %+v", got, tc.want)
			}
		})
	}
}

func TestAuditLogService_List_DelegatesNormalizedParams(t *testing.T) {
	t.Parallel()

	frepo := &fakeAuditRepo{events: []models.AuditEvent{{EventID: "1"}}}
	svc := NewAuditLogService(frepo)

	out, err := svc.List(context.Background(), AuditFilter{
		From: mustTimeIn(fixedZone("UTC+5", 5*3600), 2025, time.October, 1, 10, 0, 0),
		Type: "  analysis_run ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].EventID != "1" {
		t.Fatalf("unexpected events: %+v", out)
	}
	if frepo.calls != 1 {
		t.Fatalf("repo List should be called once, got %d", frepo.calls)
	}
	if want := time.Date(2025, time.October, 1, 5, 0, 0, 0, time.UTC); !frepo.got.From.Equal(want) {
		t.Fatalf("repo From=%v; want %v", frepo.got.From, want)
	}
	if frepo.got.Type != models.AuditAnalysisRun {
		t.Fatalf("repo Type=%q; want %q", frepo.got.Type, models.AuditAnalysisRun)
	}
}

func TestAuditLogService_List_ValidationError(t *testing.T) {
	t.Parallel()

	frepo := &fakeAuditRepo{}
	svc := NewAuditLogService(frepo)

	_, err := svc.List(context.Background(), AuditFilter{
		From: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, errInvalidTimeRange) {
		t.Fatalf("expected errInvalidTimeRange; got %v", err)
	}
	if frepo.calls != 0 {
		t.Fatalf("repo should not be called on validation error, calls=%d", frepo.calls)
	}
}

func TestAuditLogService_List_RepoErrorPropagation(t *testing.T) {
	t.Parallel()

	frepo := &fakeAuditRepo{err: errors.New("db down")}
	svc := NewAuditLogService(frepo)

	if _, err := svc.List(context.Background(), AuditFilter{}); !errors.Is(err, frepo.err) {
		t.Fatalf("expected repo error to propagate; got %v", err)
	}
}

func TestAuditRecorder_RecordsBaselineWrites(t *testing.T) {
	t.Parallel()

	frepo := &fakeAuditRepo{}
	rec := NewAuditRecorder(frepo, nil)

	alice := models.Actor{OperatorID: 9, Username: "alice"}
	rec.BaselineSaved(alice, 4, models.BaselineDefinition{
		Start: "2024-01-01", End: "2024-01-31", Sensitivity: 0.6,
		ExcludedPoints: []models.Timestamp{"2024-01-15"},
	})
	rec.BaselineDeleted(alice, 4)
	rec.AnalysisRun(models.Actor{}, TriggerSchedule, 3)

	if len(frepo.appended) != 3 {
		t.Fatalf("expected 3 audit events, got %d", len(frepo.appended))
	}
	saved := frepo.appended[0]
	if saved.Type != models.AuditBaselineSaved || saved.CategoryID != 4 {
		t.Fatalf("unexpected saved event: %+v", saved)
	}
	if saved.OperatorID != 9 || saved.Operator != "alice" {
		t.Fatalf("saved event not attributed to alice: %+v", saved)
	}
	meta, ok := saved.Metadata.(map[string]any)
	if !ok || meta["sensitivity"] != 0.6 || meta["excluded_points"] != 1 {
		t.Fatalf("unexpected saved metadata: %#v", saved.Metadata)
	}
	if frepo.appended[1].Type != models.AuditBaselineDeleted {
		t.Fatalf("unexpected delete event: %+v", frepo.appended[1])
	}
	if run := frepo.appended[2]; run.Type != models.AuditAnalysisRun || run.CategoryID != models.NoCategory || run.OperatorID != 0 || run.Operator != "" {
		t.Fatalf("unexpected run event: %+v", run)
	}
}

func TestAuditRecorder_SwallowsRepoErrors(t *testing.T) {
	t.Parallel()

	frepo := &fakeAuditRepo{appendErr: errors.New("disk full")}
	rec := NewAuditRecorder(frepo, nil)

	// must not panic with a nil logger
	rec.BaselineDeleted(models.Actor{}, 1)
	if len(frepo.appended) != 1 {
		t.Fatalf("expected one append attempt, got %d", len(frepo.appended))
	}
}
