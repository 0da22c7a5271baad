package router

import (
	"net/http"

	"lab-manager/internal/config"
	"lab-manager/internal/handler"
	"lab-manager/internal/metrics"
	"lab-manager/internal/middleware"
	"lab-manager/internal/view"

	"github.com/gorilla/mux"
)

// NewRouter creates a new router and sets up the routes with security
// middleware. m may be nil, in which case no metrics are collected.
func NewRouter(h handler.LabHandlerInterface, securityMW *middleware.SecurityMiddleware, cfg *config.Config, m *metrics.Metrics) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware in order
	if m != nil {
		r.Use(m.Middleware)
	}
	r.Use(securityMW.SecurityHeaders)
	r.Use(securityMW.CORS)
	r.Use(securityMW.TrustedProxy)
	r.Use(securityMW.RateLimit)
	r.Use(securityMW.RequestTimeout)

	// Dashboard and computer form
	r.HandleFunc("/", h.DashboardHandler).Methods(http.MethodGet)
	r.HandleFunc("/computers", h.CreateComputerHandler).Methods(http.MethodPost)
	r.HandleFunc("/computers/{id}", h.UpdateComputerHandler).Methods(http.MethodPost)
	r.HandleFunc("/computers/{id}/delete", h.ConfirmDeleteHandler).Methods(http.MethodGet)
	r.HandleFunc("/computers/{id}/delete", h.DeleteComputerHandler).Methods(http.MethodPost)

	// Detail view and incident intake
	r.HandleFunc("/computer/{id}", h.ComputerDetailsHandler).Methods(http.MethodGet)
	r.HandleFunc("/computer/{id}/incidents", h.CreateIncidentHandler).Methods(http.MethodPost)

	r.PathPrefix("/static/").Handler(view.StaticHandler()).Methods(http.MethodGet, http.MethodHead)

	// Health and monitoring
	r.HandleFunc("/healthz", h.HealthHandler).Methods(http.MethodGet)
	if m != nil && cfg.Server.EnableMetrics {
		r.Handle(cfg.Server.MetricsPath, m.Handler()).Methods(http.MethodGet)
	}

	return r
}
