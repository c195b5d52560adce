package repositories

import (
	"context"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
)

// PrescriptionRepository defines prescription data operations
type PrescriptionRepository interface {
	// Create stores a prescription
	Create(ctx context.Context, prescription *entities.Prescription) error

	// ListByPatient retrieves a patient's prescriptions, newest first
	ListByPatient(ctx context.Context, patientID string, limit int) ([]*entities.Prescription, error)

	// Count returns the number of prescriptions within the scope
	Count(ctx context.Context, scope entities.StatsScope) (int, error)
}
