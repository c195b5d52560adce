package repositories

import (
	"context"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
)

// DoctorRepository defines read access to doctors
type DoctorRepository interface {
	// List retrieves active doctors ordered by name
	List(ctx context.Context, limit int) ([]*entities.Doctor, error)

	// GetByID retrieves a doctor by ID
	GetByID(ctx context.Context, id string) (*entities.Doctor, error)

	// GetByIDs retrieves doctors by IDs; missing IDs are omitted
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Doctor, error)
}
