package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lab-manager/internal/backend"
	"lab-manager/internal/model"

	"github.com/google/uuid"
)

// Custom errors for better error handling
var (
	ErrComputerNotFound  = errors.New("computer not found")
	ErrAmbiguousComputer = errors.New("more than one computer matches this id")
)

// ComputerRepository is an interface for interacting with computer data.
type ComputerRepository interface {
	ListComputers(ctx context.Context) ([]model.Computer, error)
	GetComputerByID(ctx context.Context, id uuid.UUID) (*model.Computer, error)
	CreateComputer(ctx context.Context, computer model.Computer) error
	UpdateComputer(ctx context.Context, id uuid.UUID, name string, status model.Status) error
	DeleteComputer(ctx context.Context, id uuid.UUID) error
}

// computerRepository is the concrete implementation of the ComputerRepository interface.
type computerRepository struct {
	client backend.Client
	now    func() time.Time
}

// NewComputerRepository creates a new ComputerRepository.
func NewComputerRepository(client backend.Client) ComputerRepository {
	return &computerRepository{client: client, now: time.Now}
}

// ListComputers retrieves all computers ordered by name.
func (r *computerRepository) ListComputers(ctx context.Context) ([]model.Computer, error) {
	q := backend.From(backend.TableComputers).
		Select(model.ComputerColumns...).
		OrderBy("name", true)

	var computers []model.Computer
	if err := r.client.Select(ctx, q, &computers); err != nil {
		return nil, fmt.Errorf("failed to query computers: %w", err)
	}
	return computers, nil
}

// GetComputerByID retrieves a single computer by its ID.
func (r *computerRepository) GetComputerByID(ctx context.Context, id uuid.UUID) (*model.Computer, error) {
	q := backend.From(backend.TableComputers).
		Select(model.ComputerColumns...).
		Where("id", id)

	var c model.Computer
	if err := r.client.Single(ctx, q, &c); err != nil {
		switch {
		case errors.Is(err, backend.ErrNoRows):
			return nil, ErrComputerNotFound
		case errors.Is(err, backend.ErrMultipleRows):
			return nil, ErrAmbiguousComputer
		}
		return nil, fmt.Errorf("failed to get computer by ID: %w", err)
	}
	return &c, nil
}

// CreateComputer adds a new computer. Timestamps are left to the backend.
func (r *computerRepository) CreateComputer(ctx context.Context, computer model.Computer) error {
	row := backend.Values{
		"id":     computer.ID,
		"name":   computer.Name,
		"status": computer.Status,
	}
	if err := r.client.Insert(ctx, backend.TableComputers, row); err != nil {
		return fmt.Errorf("failed to create computer: %w", err)
	}
	return nil
}

// UpdateComputer sets the name and status of a computer.
func (r *computerRepository) UpdateComputer(ctx context.Context, id uuid.UUID, name string, status model.Status) error {
	values := backend.Values{
		"name":       name,
		"status":     status,
		"updated_at": r.now().UTC(),
	}
	affected, err := r.client.Update(ctx, backend.TableComputers, values, backend.Eq("id", id))
	if err != nil {
		return fmt.Errorf("failed to update computer: %w", err)
	}
	if affected == 0 {
		return ErrComputerNotFound
	}
	return nil
}

// DeleteComputer deletes a computer row. Dependent rows are the caller's concern.
func (r *computerRepository) DeleteComputer(ctx context.Context, id uuid.UUID) error {
	affected, err := r.client.Delete(ctx, backend.TableComputers, backend.Eq("id", id))
	if err != nil {
		return fmt.Errorf("failed to delete computer: %w", err)
	}
	if affected == 0 {
		return ErrComputerNotFound
	}
	return nil
}
