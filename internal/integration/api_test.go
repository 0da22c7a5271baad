package integration

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"lab-manager/internal/backend"
	"lab-manager/internal/backend/backendtest"
	"lab-manager/internal/config"
	"lab-manager/internal/handler"
	"lab-manager/internal/metrics"
	"lab-manager/internal/middleware"
	"lab-manager/internal/model"
	"lab-manager/internal/repository"
	"lab-manager/internal/router"
	"lab-manager/internal/service"
	"lab-manager/internal/view"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// mockNotifier records lab notifications for assertions
type mockNotifier struct {
	mu            sync.Mutex
	notifications []service.LabNotification
}

func (m *mockNotifier) SendLabNotification(ctx context.Context, n service.LabNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *mockNotifier) sent() []service.LabNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]service.LabNotification(nil), m.notifications...)
}

// IntegrationTestSuite holds the test dependencies
type IntegrationTestSuite struct {
	Store    *backendtest.Memory
	Service  *service.LabService
	Notifier *mockNotifier
	Metrics  *metrics.Metrics
	Router   http.Handler
}

// setupIntegrationTest wires the real service, handler and router over the
// in-memory backend.
func setupIntegrationTest(t *testing.T) *IntegrationTestSuite {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := backendtest.NewMemory()
	m := metrics.New()
	client := m.InstrumentBackend(store)

	notifier := &mockNotifier{}
	svc := service.NewLabService(
		repository.NewComputerRepository(client),
		repository.NewComponentRepository(client),
		repository.NewIncidentRepository(client),
		notifier,
		logger,
	)

	renderer, err := view.NewRenderer(time.UTC)
	if err != nil {
		t.Fatalf("Failed to build renderer: %v", err)
	}

	cfg := &config.Config{
		Security: config.SecurityConfig{
			RateLimitRPS:    1000,
			RateLimitBurst:  1000,
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Server: config.ServerConfig{
			EnableMetrics: true,
			MetricsPath:   "/metrics",
		},
	}

	h := handler.NewLabHandler(svc, client, nil, renderer, logger)
	r := router.NewRouter(h, middleware.NewSecurityMiddleware(&cfg.Security), cfg, m)

	loggingMW := middleware.NewLoggingMiddleware(logger)

	return &IntegrationTestSuite{
		Store:    store,
		Service:  svc,
		Notifier: notifier,
		Metrics:  m,
		Router:   loggingMW.RequestID(loggingMW.LogRequests(r)),
	}
}

func (s *IntegrationTestSuite) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func (s *IntegrationTestSuite) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "10.0.0.1:1234"
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func (s *IntegrationTestSuite) computers(t *testing.T) []model.Computer {
	t.Helper()
	list, err := s.Service.ListComputers(context.Background())
	if err != nil {
		t.Fatalf("Failed to list computers: %v", err)
	}
	return list
}

func (s *IntegrationTestSuite) seedComponent(t *testing.T, computerID uuid.UUID, typ model.ComponentType) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := s.Store.Insert(context.Background(), backend.TableComponents, backend.Values{
		"id":          id,
		"computer_id": computerID,
		"type":        typ,
		"status":      model.StatusOperational,
	})
	if err != nil {
		t.Fatalf("Failed to seed component: %v", err)
	}
	return id
}

func expectRedirect(t *testing.T, rr *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusSeeOther, rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Location"); got != location {
		t.Errorf("Expected redirect to %q, got %q", location, got)
	}
}

// TestIntegration_ComputerLifecycle drives create, edit, detail and delete
// through the HTTP surface.
func TestIntegration_ComputerLifecycle(t *testing.T) {
	suite := setupIntegrationTest(t)

	t.Run("Empty dashboard", func(t *testing.T) {
		rr := suite.get(t, "/")
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "No hay equipos registrados") {
			t.Error("Expected empty state on a fresh dashboard")
		}
	})

	var created model.Computer

	t.Run("Create computer", func(t *testing.T) {
		rr := suite.post(t, "/computers", url.Values{"name": {"  PC01  "}, "status": {"operational"}})
		expectRedirect(t, rr, "/")

		list := suite.computers(t)
		if len(list) != 1 {
			t.Fatalf("Expected 1 computer, got %d", len(list))
		}
		created = list[0]
		if created.Name != "PC01" {
			t.Errorf("Expected trimmed name PC01, got %q", created.Name)
		}

		body := suite.get(t, "/").Body.String()
		if !strings.Contains(body, "PC01") {
			t.Error("Expected dashboard to list PC01")
		}
		if !strings.Contains(body, "card card-ok") {
			t.Error("Expected operational card styling")
		}
	})

	t.Run("Edit form is prefilled", func(t *testing.T) {
		rr := suite.get(t, "/?edit="+created.ID.String())
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		body := rr.Body.String()
		if !strings.Contains(body, `action="/computers/`+created.ID.String()+`"`) {
			t.Error("Expected the form to post to the update route")
		}
		if !strings.Contains(body, `value="PC01"`) {
			t.Error("Expected the name field to be prefilled")
		}
	})

	t.Run("Update status", func(t *testing.T) {
		rr := suite.post(t, "/computers/"+created.ID.String(), url.Values{"name": {"PC01"}, "status": {"non_operational"}})
		expectRedirect(t, rr, "/")

		list := suite.computers(t)
		if len(list) != 1 || list[0].Status != model.StatusNonOperational {
			t.Fatalf("Expected one non operational computer, got %+v", list)
		}
		if list[0].ID != created.ID {
			t.Error("Expected update to keep the computer id")
		}
		if !strings.Contains(suite.get(t, "/").Body.String(), "card card-down") {
			t.Error("Expected non operational card styling")
		}

		suite.Service.Wait()
		sent := suite.Notifier.sent()
		if len(sent) != 1 || sent[0].Type != service.NotificationTypeComputerDown {
			t.Errorf("Expected one computer_down notification, got %+v", sent)
		}
	})

	t.Run("Details page", func(t *testing.T) {
		suite.seedComponent(t, created.ID, model.ComponentMonitor)

		rr := suite.get(t, "/computer/"+created.ID.String())
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		body := rr.Body.String()
		for _, want := range []string{"PC01", "MONITOR", "No hay incidencias registradas"} {
			if !strings.Contains(body, want) {
				t.Errorf("Expected details page to contain %q", want)
			}
		}
	})

	t.Run("Delete after confirmation", func(t *testing.T) {
		rr := suite.get(t, "/computers/"+created.ID.String()+"/delete")
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected confirmation page, got %d", rr.Code)
		}

		rr = suite.post(t, "/computers/"+created.ID.String()+"/delete", nil)
		expectRedirect(t, rr, "/")

		if n := len(suite.computers(t)); n != 0 {
			t.Errorf("Expected no computers after delete, got %d", n)
		}
		if n := suite.Store.Count(backend.TableComponents); n != 0 {
			t.Errorf("Expected components to be removed with the computer, got %d", n)
		}

		rr = suite.get(t, "/computer/"+created.ID.String())
		if rr.Code != http.StatusNotFound {
			t.Errorf("Expected 404 for a deleted computer, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "Equipo no encontrado") {
			t.Error("Expected not found page")
		}
	})
}

func TestIntegration_DashboardOrdering(t *testing.T) {
	suite := setupIntegrationTest(t)

	for _, name := range []string{"PC03", "PC01", "PC02"} {
		expectRedirect(t, suite.post(t, "/computers", url.Values{"name": {name}, "status": {"operational"}}), "/")
	}

	body := suite.get(t, "/").Body.String()
	i1 := strings.Index(body, "PC01")
	i2 := strings.Index(body, "PC02")
	i3 := strings.Index(body, "PC03")
	if i1 < 0 || i2 < 0 || i3 < 0 {
		t.Fatal("Expected every computer on the dashboard")
	}
	if !(i1 < i2 && i2 < i3) {
		t.Errorf("Expected computers ordered by name, got offsets %d %d %d", i1, i2, i3)
	}
}

func TestIntegration_ListFailureHidesEmptyState(t *testing.T) {
	suite := setupIntegrationTest(t)

	expectRedirect(t, suite.post(t, "/computers", url.Values{"name": {"PC01"}, "status": {"operational"}}), "/")
	suite.Store.Fail(backendtest.OpSelect, backend.TableComputers, errors.New("connection reset by peer"))

	rr := suite.get(t, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Contains(body, "No hay equipos registrados") || strings.Contains(body, "Agregar el primer equipo") {
		t.Error("Expected no empty inventory state when the list fetch fails")
	}
	if strings.Contains(body, "connection reset by peer") {
		t.Error("Expected the fetch error to stay out of the page")
	}
	if !strings.Contains(body, "Cargando...") {
		t.Error("Expected the neutral loading state")
	}
}

func TestIntegration_ValidationErrors(t *testing.T) {
	suite := setupIntegrationTest(t)

	tests := []struct {
		name string
		form url.Values
	}{
		{"Blank name", url.Values{"name": {"   "}, "status": {"operational"}}},
		{"Unknown status", url.Values{"name": {"PC01"}, "status": {"broken"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := suite.post(t, "/computers", tt.form)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Errorf("Expected status 422, got %d", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), `class="banner"`) {
				t.Error("Expected the form to be re-rendered with an error banner")
			}
		})
	}

	if n := len(suite.computers(t)); n != 0 {
		t.Errorf("Expected nothing saved, got %d computers", n)
	}
}

func TestIntegration_BackendFailureKeepsForm(t *testing.T) {
	suite := setupIntegrationTest(t)
	suite.Store.Fail(backendtest.OpInsert, backend.TableComputers, &backend.Error{Message: "permission denied for table computers"})

	rr := suite.post(t, "/computers", url.Values{"name": {"PC01"}, "status": {"operational"}})
	if rr.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "permission denied for table computers") {
		t.Error("Expected the raw backend message in the banner")
	}
	if !strings.Contains(body, `value="PC01"`) {
		t.Error("Expected the form to keep the submitted name")
	}
}

func TestIntegration_IncidentIntake(t *testing.T) {
	suite := setupIntegrationTest(t)

	expectRedirect(t, suite.post(t, "/computers", url.Values{"name": {"PC07"}, "status": {"operational"}}), "/")
	computer := suite.computers(t)[0]
	keyboard := suite.seedComponent(t, computer.ID, model.ComponentKeyboard)
	path := "/computer/" + computer.ID.String()

	t.Run("Files incidents newest first", func(t *testing.T) {
		for _, description := range []string{"Tecla Enter rota", "Falta la tecla Z"} {
			rr := suite.post(t, path+"/incidents", url.Values{
				"student_name": {"Ana"},
				"group_name":   {"2B"},
				"component_id": {keyboard.String()},
				"description":  {description},
				"reported_by":  {"Prof. Ruiz"},
			})
			expectRedirect(t, rr, path)
		}

		body := suite.get(t, path).Body.String()
		first := strings.Index(body, "Falta la tecla Z")
		second := strings.Index(body, "Tecla Enter rota")
		if first < 0 || second < 0 {
			t.Fatal("Expected both incidents on the details page")
		}
		if first > second {
			t.Error("Expected the newest incident first")
		}
		if !strings.Contains(body, "Reportado por: Prof. Ruiz") {
			t.Error("Expected the reporter to be shown")
		}

		suite.Service.Wait()
		var reported int
		for _, n := range suite.Notifier.sent() {
			if n.Type == service.NotificationTypeIncidentReported {
				reported++
			}
		}
		if reported != 2 {
			t.Errorf("Expected 2 incident notifications, got %d", reported)
		}
	})

	t.Run("Missing field keeps the form", func(t *testing.T) {
		rr := suite.post(t, path+"/incidents", url.Values{
			"student_name": {"Luis"},
			"group_name":   {"3A"},
			"component_id": {keyboard.String()},
			"description":  {""},
			"reported_by":  {"Prof. Ruiz"},
		})
		if rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("Expected status 422, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), `value="Luis"`) {
			t.Error("Expected the form to keep the submitted values")
		}
		if n := suite.Store.Count(backend.TableIncidents); n != 2 {
			t.Errorf("Expected 2 incidents stored, got %d", n)
		}
	})
}

func TestIntegration_PartialDetails(t *testing.T) {
	suite := setupIntegrationTest(t)

	expectRedirect(t, suite.post(t, "/computers", url.Values{"name": {"PC09"}, "status": {"operational"}}), "/")
	computer := suite.computers(t)[0]
	suite.Store.Fail(backendtest.OpSelect, backend.TableIncidents, errors.New("connection reset"))

	rr := suite.get(t, "/computer/"+computer.ID.String())
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected the page to render, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "PC09") {
		t.Error("Expected the computer to render despite the incident failure")
	}
}

func TestIntegration_NotFoundEndpoints(t *testing.T) {
	suite := setupIntegrationTest(t)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"Unknown computer", "/computer/" + uuid.New().String(), http.StatusNotFound},
		{"Malformed id", "/computer/not-a-uuid", http.StatusNotFound},
		{"Unknown route", "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := suite.get(t, tt.path)
			if rr.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rr.Code)
			}
		})
	}

	rr := suite.get(t, "/computers/not-a-uuid/delete")
	expectRedirect(t, rr, "/")
}

func TestIntegration_HealthCheck(t *testing.T) {
	suite := setupIntegrationTest(t)

	rr := suite.get(t, "/healthz")
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"healthy"`) {
		t.Errorf("Expected healthy status, got %s", rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"notifier":"disabled"`) {
		t.Errorf("Expected notifier to be reported as disabled, got %s", rr.Body.String())
	}

	suite.Store.Fail(backendtest.OpPing, "", errors.New("down"))
	rr = suite.get(t, "/healthz")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", rr.Code)
	}
}

func TestIntegration_MetricsAndHeaders(t *testing.T) {
	suite := setupIntegrationTest(t)

	rr := suite.get(t, "/")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("Expected a request id header")
	}
	if rr.Header().Get("X-Frame-Options") == "" {
		t.Error("Expected security headers")
	}

	body := suite.get(t, "/metrics").Body.String()
	for _, want := range []string{
		`lab_http_requests_total{method="GET",route="/",status="200"}`,
		`lab_backend_operations_total{operation="select",status="success",table="computers"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected metrics output to contain %s", want)
		}
	}
}
