package repository

import (
	"context"
	"fmt"

	"lab-manager/internal/backend"
	"lab-manager/internal/model"

	"github.com/google/uuid"
)

// ComponentRepository reads the components of a computer. Components are
// provisioned elsewhere, so the only write is the cascade on computer delete.
type ComponentRepository interface {
	ListByComputer(ctx context.Context, computerID uuid.UUID) ([]model.Component, error)
	DeleteByComputer(ctx context.Context, computerID uuid.UUID) (int64, error)
}

type componentRepository struct {
	client backend.Client
}

// NewComponentRepository creates a new ComponentRepository.
func NewComponentRepository(client backend.Client) ComponentRepository {
	return &componentRepository{client: client}
}

func (r *componentRepository) ListByComputer(ctx context.Context, computerID uuid.UUID) ([]model.Component, error) {
	q := backend.From(backend.TableComponents).
		Select(model.ComponentColumns...).
		Where("computer_id", computerID)

	var components []model.Component
	if err := r.client.Select(ctx, q, &components); err != nil {
		return nil, fmt.Errorf("failed to query components: %w", err)
	}
	return components, nil
}

func (r *componentRepository) DeleteByComputer(ctx context.Context, computerID uuid.UUID) (int64, error) {
	n, err := r.client.Delete(ctx, backend.TableComponents, backend.Eq("computer_id", computerID))
	if err != nil {
		return 0, fmt.Errorf("failed to delete components: %w", err)
	}
	return n, nil
}
