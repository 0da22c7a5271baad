package handler

import (
	"context"
	"net/http"

	"lab-manager/internal/model"
	"lab-manager/internal/service"
	"lab-manager/pkg/validation"

	"github.com/google/uuid"
)

// LabHandlerInterface defines the contract for the lab HTTP handlers.
type LabHandlerInterface interface {
	// Dashboard and computer form
	DashboardHandler(w http.ResponseWriter, r *http.Request)
	CreateComputerHandler(w http.ResponseWriter, r *http.Request)
	UpdateComputerHandler(w http.ResponseWriter, r *http.Request)
	ConfirmDeleteHandler(w http.ResponseWriter, r *http.Request)
	DeleteComputerHandler(w http.ResponseWriter, r *http.Request)

	// Detail view and incident intake
	ComputerDetailsHandler(w http.ResponseWriter, r *http.Request)
	CreateIncidentHandler(w http.ResponseWriter, r *http.Request)

	// Health and monitoring
	HealthHandler(w http.ResponseWriter, r *http.Request)
}

// LabService is the part of the service layer the handlers drive.
type LabService interface {
	ListComputers(ctx context.Context) ([]model.Computer, error)
	GetComputer(ctx context.Context, id uuid.UUID) (*model.Computer, error)
	SaveComputer(ctx context.Context, in service.ComputerInput) (*model.Computer, error)
	DeleteComputer(ctx context.Context, id uuid.UUID) error
	LoadDetails(ctx context.Context, id uuid.UUID) *service.Details
	FileIncident(ctx context.Context, computerID uuid.UUID, in validation.IncidentInput) (*model.Incident, error)
}

// HealthChecker reports whether the table backend answers.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// NotifierChecker reports whether the notification webhook answers.
type NotifierChecker interface {
	IsHealthy(ctx context.Context) bool
}

// Ensure LabHandler implements LabHandlerInterface at compile time
var _ LabHandlerInterface = (*LabHandler)(nil)

var _ LabService = (*service.LabService)(nil)
