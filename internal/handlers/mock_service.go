package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"controlling_resistances/internal/models"
	"controlling_resistances/internal/service"
	"controlling_resistances/internal/thermal"

	"github.com/gin-gonic/gin"
)

type mockAuth struct {
	signUpOp  models.Operator
	signUpErr error
	token     string
	tokenErr  error
	identity  service.Identity
	parseErr  error
	roleErr   error

	lastUsername string
	lastPassword string
	lastToken    string
	lastRoleID   int
	lastRole     string
}

// operatorAuth accepts any token as account 1 with the operator role.
func operatorAuth() *mockAuth {
	return &mockAuth{identity: service.Identity{OperatorID: 1, Role: models.RoleOperator}}
}

func viewerAuth() *mockAuth {
	return &mockAuth{identity: service.Identity{OperatorID: 2, Role: models.RoleViewer}}
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (models.Operator, error) {
	m.lastUsername, m.lastPassword = username, password
	return m.signUpOp, m.signUpErr
}

func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastUsername, m.lastPassword = username, password
	return m.token, m.tokenErr
}

func (m *mockAuth) ParseToken(token string) (service.Identity, error) {
	m.lastToken = token
	return m.identity, m.parseErr
}

func (m *mockAuth) SetRole(_ context.Context, id int, role string) error {
	m.lastRoleID, m.lastRole = id, role
	return m.roleErr
}

type mockControl struct {
	startErr    error
	stopErr     error
	status      service.ControlStatus
	startCalled int
	stopCalled  int
}

func (m *mockControl) Start(ctx context.Context) error {
	m.startCalled++
	if m.startErr == nil {
		m.status.Running = true
	}
	return m.startErr
}
func (m *mockControl) Stop(ctx context.Context) error {
	m.stopCalled++
	if m.stopErr == nil {
		m.status.Running = false
	}
	return m.stopErr
}
func (m *mockControl) Status() service.ControlStatus { return m.status }
func (m *mockControl) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// mockMonitoring is read by websocket writers while tests update it.
type mockMonitoring struct {
	mu     sync.Mutex
	states []models.HeaterState
	err    error
	lastID int
}

func (m *mockMonitoring) setStates(states []models.HeaterState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = states
}

func (m *mockMonitoring) Heaters(context.Context) ([]models.HeaterState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.HeaterState(nil), m.states...), m.err
}

func (m *mockMonitoring) Heater(_ context.Context, id int) (models.HeaterState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID = id
	if m.err != nil {
		return models.HeaterState{}, m.err
	}
	for _, st := range m.states {
		if st.Heater == id {
			return st, nil
		}
	}
	return models.HeaterState{}, fmt.Errorf("%w: %d", service.ErrHeaterNotFound, id)
}

type mockEventLog struct {
	resp  []models.HeaterEvent
	err   error
	calls int
	last  service.LogFilter
}

func (m *mockEventLog) List(_ context.Context, f service.LogFilter) ([]models.HeaterEvent, error) {
	m.calls++
	m.last = f
	return m.resp, m.err
}

type mockEstimation struct {
	estimates   []models.HeaterEstimate
	trajectory  thermal.Trajectory
	simulateErr error

	lastAmbient  float64
	lastSeries   []thermal.Series
	lastSimulate service.SimulateParams
}

func (m *mockEstimation) EstimateAll(ctx context.Context, ambient float64, series []thermal.Series) []models.HeaterEstimate {
	m.lastAmbient = ambient
	m.lastSeries = series
	return m.estimates
}
func (m *mockEstimation) Simulate(p service.SimulateParams) (thermal.Trajectory, error) {
	m.lastSimulate = p
	return m.trajectory, m.simulateErr
}
func (m *mockEstimation) WriteReconstruction(w io.Writer, series []thermal.Series, estimates []models.HeaterEstimate) error {
	return nil
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authorized(req *http.Request) *http.Request {
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
