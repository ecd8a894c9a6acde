package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns patients whose name contains query (case-insensitive);
	// an empty query matches everyone.
	List(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error)
	AddVisit(ctx context.Context, v *Visit) error
	ListVisits(ctx context.Context, patientID uuid.UUID) ([]Visit, error)
}
