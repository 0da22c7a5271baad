package repository

import (
	"context"
	"fmt"

	"lab-manager/internal/backend"
	"lab-manager/internal/model"

	"github.com/google/uuid"
)

// IncidentRepository appends and lists incident reports.
type IncidentRepository interface {
	// ListByComputer returns the incidents of a computer, newest first.
	ListByComputer(ctx context.Context, computerID uuid.UUID) ([]model.Incident, error)
	CreateIncident(ctx context.Context, incident model.Incident) error
	DeleteByComputer(ctx context.Context, computerID uuid.UUID) (int64, error)
}

type incidentRepository struct {
	client backend.Client
}

// NewIncidentRepository creates a new IncidentRepository.
func NewIncidentRepository(client backend.Client) IncidentRepository {
	return &incidentRepository{client: client}
}

func (r *incidentRepository) ListByComputer(ctx context.Context, computerID uuid.UUID) ([]model.Incident, error) {
	q := backend.From(backend.TableIncidents).
		Select(model.IncidentColumns...).
		Where("computer_id", computerID).
		OrderBy("created_at", false)

	var incidents []model.Incident
	if err := r.client.Select(ctx, q, &incidents); err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	return incidents, nil
}

// CreateIncident inserts one incident row. created_at is set by the backend.
func (r *incidentRepository) CreateIncident(ctx context.Context, incident model.Incident) error {
	row := backend.Values{
		"id":           incident.ID,
		"computer_id":  incident.ComputerID,
		"component_id": incident.ComponentID,
		"student_name": incident.StudentName,
		"group_name":   incident.GroupName,
		"description":  incident.Description,
		"reported_by":  incident.ReportedBy,
	}
	if err := r.client.Insert(ctx, backend.TableIncidents, row); err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

func (r *incidentRepository) DeleteByComputer(ctx context.Context, computerID uuid.UUID) (int64, error) {
	n, err := r.client.Delete(ctx, backend.TableIncidents, backend.Eq("computer_id", computerID))
	if err != nil {
		return 0, fmt.Errorf("failed to delete incidents: %w", err)
	}
	return n, nil
}
