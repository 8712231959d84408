package devbackend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"degradation_monitor/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(DefaultTree())
	s.AppendRecords(3,
		models.WorkRecord{RecordedAt: "2024-01-15", WorkTime: 9},
		models.WorkRecord{RecordedAt: "2024-01-01", WorkTime: 10},
		models.WorkRecord{RecordedAt: "2024-01-08", WorkTime: 12},
	)
	return s
}

func TestStore_RecordsOrderedAndFiltered(t *testing.T) {
	s := seededStore(t)

	all := s.Records(3, "", "")
	require.Len(t, all, 3)
	assert.Equal(t, models.Timestamp("2024-01-01"), all[0].RecordedAt)
	assert.Equal(t, models.Timestamp("2024-01-15"), all[2].RecordedAt)

	window := s.Records(3, "2024-01-05", "2024-01-10")
	require.Len(t, window, 1)
	assert.Equal(t, models.Timestamp("2024-01-08"), window[0].RecordedAt)
}

func TestStore_AppendRecordsUpsertsByTimestamp(t *testing.T) {
	s := seededStore(t)
	s.AppendRecords(3, models.WorkRecord{RecordedAt: "2024-01-08", WorkTime: 99})

	recs := s.Records(3, "", "")
	require.Len(t, recs, 3)
	assert.Equal(t, 99.0, recs[1].WorkTime)
}

func TestStore_BaselineLifecycleDrivesDashboard(t *testing.T) {
	s := seededStore(t)
	rows := s.DashboardRows()
	require.Len(t, rows, 3)
	assert.Equal(t, "Plant A > Line 1 > Press", rows[0].CategoryPath)
	assert.Equal(t, models.BaselineUnconfigured, rows[0].BaselineStatus)

	s.SaveBaseline(3, models.BaselineDefinition{Start: "2024-01-01", End: "2024-01-31", Sensitivity: 0.5})
	def, ok := s.Baseline(3)
	require.True(t, ok)
	assert.Equal(t, []models.Timestamp{}, def.ExcludedPoints)
	assert.Equal(t, models.BaselineConfigured, s.DashboardRows()[0].BaselineStatus)

	assert.True(t, s.DeleteBaseline(3))
	assert.False(t, s.DeleteBaseline(3))
	assert.Empty(t, s.Results(3).Anomalies)
}

func TestComputeTrend(t *testing.T) {
	assert.Nil(t, computeTrend(nil))
	tr := computeTrend([]models.WorkRecord{{WorkTime: 1}, {WorkTime: 2}, {WorkTime: 3}})
	require.NotNil(t, tr)
	assert.InDelta(t, 1.0, tr.Slope, 1e-9)
	assert.InDelta(t, 1.0, tr.Intercept, 1e-9)
	assert.True(t, tr.IsWarning)
}

func TestComputeAnomalies_IgnoresExcludedPointsAndNormalizes(t *testing.T) {
	recs := []models.WorkRecord{
		{RecordedAt: "d1", WorkTime: 10},
		{RecordedAt: "d2", WorkTime: 11},
		{RecordedAt: "d3", WorkTime: 50},
		{RecordedAt: "d4", WorkTime: 10},
		{RecordedAt: "d5", WorkTime: 40},
	}
	got := computeAnomalies(recs, models.BaselineDefinition{Start: "d1", End: "d4", ExcludedPoints: []models.Timestamp{"d3"}})
	require.NotEmpty(t, got)
	for _, a := range got {
		assert.GreaterOrEqual(t, a.AnomalyScore, anomalyFloor)
		assert.Less(t, a.AnomalyScore, 1.0)
	}
	var flagged []models.Timestamp
	for _, a := range got {
		flagged = append(flagged, a.RecordedAt)
	}
	assert.Contains(t, flagged, models.Timestamp("d5"))
}

func TestEventBus_PublishSubscribeCancel(t *testing.T) {
	bus := NewEventBus()
	ch, cancel := bus.Subscribe()
	assert.Equal(t, 1, bus.Subscribers())

	bus.Publish(models.PushEventDashboardUpdated, "")
	select {
	case ev := <-ch:
		assert.Equal(t, models.PushEventDashboardUpdated, ev.Name)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	cancel()
	assert.Equal(t, 0, bus.Subscribers())
	_, open := <-ch
	assert.False(t, open)
}

func TestEventBus_FullSubscriberDoesNotBlock(t *testing.T) {
	bus := NewEventBus()
	_, cancel := bus.Subscribe()
	defer cancel()
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			bus.Publish("x", "")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestRoutes_BaselineNotFoundIs404(t *testing.T) {
	b := New(seededStore(t), NewEventBus(), nil)
	r := b.Routes()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/models/3", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_PutBaselineValidatesAndPublishes(t *testing.T) {
	bus := NewEventBus()
	b := New(seededStore(t), bus, nil)
	r := b.Routes()
	ch, cancel := bus.Subscribe()
	defer cancel()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/models/3",
		strings.NewReader(`{"baseline_start":"2024-02-01","baseline_end":"2024-01-01","sensitivity":0.5}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/models/3",
		strings.NewReader(`{"baseline_start":"2024-01-01","baseline_end":"2024-01-31","sensitivity":0.6,"excluded_points":["2024-01-15"]}`)))
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.SaveBaselineResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Retrained)

	select {
	case ev := <-ch:
		assert.Equal(t, models.PushEventDashboardUpdated, ev.Name)
	case <-time.After(time.Second):
		t.Fatal("expected dashboard-updated after save")
	}
}

func TestFeeder_SeedWritesEveryLeaf(t *testing.T) {
	s := NewStore(DefaultTree())
	f := NewFeeder(s, NewEventBus(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 1)
	f.Seed(5)
	for _, leaf := range s.Leaves() {
		recs := s.Records(leaf.ID, "", "")
		require.Len(t, recs, 5)
		assert.Equal(t, models.Timestamp("2024-01-01T00:00:00"), recs[0].RecordedAt)
		assert.Equal(t, models.Timestamp("2024-01-05T00:00:00"), recs[4].RecordedAt)
	}
	assert.NotNil(t, s.Results(3).Trend)
}
