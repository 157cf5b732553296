package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"eldom_bridge"
	"eldom_bridge/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
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
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockEntries struct {
	entry     eldom_bridge.Entry
	createErr error
	list      []eldom_bridge.EntryStatus
	listErr   error
	deleteErr error

	lastCreate  service.EntryParams
	lastDeleted string
}

func (m *mockEntries) CreateEntry(ctx context.Context, p service.EntryParams) (eldom_bridge.Entry, error) {
	m.lastCreate = p
	return m.entry, m.createErr
}
func (m *mockEntries) EnsureEntry(ctx context.Context, p service.EntryParams) error {
	_, err := m.CreateEntry(ctx, p)
	return err
}
func (m *mockEntries) ListEntries(ctx context.Context) ([]eldom_bridge.EntryStatus, error) {
	return m.list, m.listErr
}
func (m *mockEntries) DeleteEntry(ctx context.Context, uniqueID string) error {
	m.lastDeleted = uniqueID
	return m.deleteErr
}

type mockControl struct {
	states     []eldom_bridge.EntityState
	listErr    error
	state      eldom_bridge.EntityState
	getErr     error
	execErr    error
	refreshErr error

	lastID     string
	lastAction string
	lastParams service.ActionParams
	refreshes  int

	mu        sync.Mutex
	listeners []service.StatesListener
}

func (m *mockControl) ListEntities(ctx context.Context) ([]eldom_bridge.EntityState, error) {
	return m.states, m.listErr
}
func (m *mockControl) GetEntity(ctx context.Context, uniqueID string) (eldom_bridge.EntityState, error) {
	m.lastID = uniqueID
	return m.state, m.getErr
}
func (m *mockControl) Execute(ctx context.Context, uniqueID, action string, p service.ActionParams) (eldom_bridge.EntityState, error) {
	m.lastID, m.lastAction, m.lastParams = uniqueID, action, p
	return m.state, m.execErr
}
func (m *mockControl) RefreshAll(ctx context.Context) error {
	m.refreshes++
	return m.refreshErr
}
func (m *mockControl) SubscribeStates(fn service.StatesListener) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
	idx := len(m.listeners) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.listeners[idx] = nil
	}
}

// push delivers states to every live subscriber, as a coordinator refresh would.
func (m *mockControl) push(entryID string, states []eldom_bridge.EntityState) {
	m.mu.Lock()
	fns := append([]service.StatesListener(nil), m.listeners...)
	m.mu.Unlock()
	for _, fn := range fns {
		if fn != nil {
			fn(entryID, states)
		}
	}
}

func (m *mockControl) subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, fn := range m.listeners {
		if fn != nil {
			n++
		}
	}
	return n
}

type mockEventLog struct {
	resp     []eldom_bridge.DeviceEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]eldom_bridge.DeviceEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
