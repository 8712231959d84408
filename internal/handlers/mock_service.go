package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"degradation_monitor/internal/dashboard"
	"degradation_monitor/internal/models"
	"degradation_monitor/internal/service"
	"degradation_monitor/internal/session"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseActor    models.Actor
	parseErr      error
	operator      models.Operator
	operatorErr   error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
	lastOperatorID     int
}

func (m *mockAuth) SignUp(ctx context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (models.Actor, error) {
	m.lastParseToken = token
	return m.parseActor, m.parseErr
}
func (m *mockAuth) Operator(ctx context.Context, id int) (models.Operator, error) {
	m.lastOperatorID = id
	return m.operator, m.operatorErr
}

// mockSession records the last command and answers with a fixed state.
type mockSession struct {
	mu    sync.Mutex
	state session.State
	err   error
	calls []string

	lastLoad        models.CategoryID
	lastRange       models.Range
	lastSensitivity float64
	lastIndex       int
	lastMode        models.InteractionMode

	updates     chan session.State
	unsubscribe int
}

func (m *mockSession) record(call string) (session.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return m.state, m.err
}

func (m *mockSession) Snapshot() session.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
func (m *mockSession) Subscribe() (<-chan session.State, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updates == nil {
		m.updates = make(chan session.State, 1)
	}
	return m.updates, func() {
		m.mu.Lock()
		m.unsubscribe++
		m.mu.Unlock()
	}
}
func (m *mockSession) subscribed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates != nil
}
func (m *mockSession) Load(ctx context.Context, id models.CategoryID) (session.State, error) {
	m.lastLoad = id
	return m.record("load")
}
func (m *mockSession) SetRange(ctx context.Context, r models.Range) (session.State, error) {
	m.lastRange = r
	return m.record("range")
}
func (m *mockSession) SetSensitivity(ctx context.Context, v float64) (session.State, error) {
	m.lastSensitivity = v
	return m.record("sensitivity")
}
func (m *mockSession) ToggleExclude(ctx context.Context, index int) (session.State, error) {
	m.lastIndex = index
	return m.record("toggle")
}
func (m *mockSession) SetInteractionMode(ctx context.Context, mode models.InteractionMode) (session.State, error) {
	m.lastMode = mode
	return m.record("mode")
}
func (m *mockSession) Save(ctx context.Context) (session.State, error) { return m.record("save") }
func (m *mockSession) Delete(ctx context.Context) (session.State, error) {
	return m.record("delete")
}
func (m *mockSession) ClearError(ctx context.Context) (session.State, error) {
	return m.record("clear_error")
}

func (m *mockSession) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type mockDashboard struct {
	snap       dashboard.Snapshot
	activeErr  error
	runResp    models.RunAnalysisResponse
	runErr     error
	deleteErr  error
	lastActive *bool
	lastDelete models.CategoryID
	cleared    int
}

func (m *mockDashboard) Snapshot() dashboard.Snapshot { return m.snap }
func (m *mockDashboard) SetActive(ctx context.Context, active bool) error {
	m.lastActive = &active
	return m.activeErr
}
func (m *mockDashboard) Refresh(ctx context.Context) error { return nil }
func (m *mockDashboard) RunAnalysis(ctx context.Context) (models.RunAnalysisResponse, error) {
	return m.runResp, m.runErr
}
func (m *mockDashboard) DeleteBaseline(ctx context.Context, id models.CategoryID) error {
	m.lastDelete = id
	return m.deleteErr
}
func (m *mockDashboard) ClearError() { m.cleared++ }

type mockCategories struct {
	tree   []models.CategoryNode
	leaves []models.LeafCategory
	err    error
}

func (m *mockCategories) Tree(ctx context.Context) ([]models.CategoryNode, error) {
	return m.tree, m.err
}
func (m *mockCategories) Leaves(ctx context.Context) ([]models.LeafCategory, error) {
	return m.leaves, m.err
}

type mockAuditLog struct {
	resp       []models.AuditEvent
	err        error
	lastFilter service.AuditFilter
}

func (m *mockAuditLog) List(ctx context.Context, f service.AuditFilter) ([]models.AuditEvent, error) {
	m.lastFilter = f
	return m.resp, m.err
}

type mockScheduler struct {
	status models.AnalysisRunState
	err    error
}

func (m *mockScheduler) Run(ctx context.Context) {}
func (m *mockScheduler) Status(ctx context.Context) (models.AnalysisRunState, error) {
	return m.status, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

// doJSON performs an authenticated request against r and returns the recorder.
func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
