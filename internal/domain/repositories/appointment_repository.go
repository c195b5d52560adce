package repositories

import (
	"context"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
)

// AppointmentRepository defines the interface for appointment data operations
type AppointmentRepository interface {
	// Create creates a new appointment
	Create(ctx context.Context, appointment *entities.Appointment) error

	// GetByID retrieves an appointment by ID
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	// List retrieves appointments matching the filter, newest first
	List(ctx context.Context, filter AppointmentFilter) ([]*entities.Appointment, error)

	// UpdateStatus moves an appointment from one status to another. It fails
	// with a conflict if the stored status is no longer from. Payment mode is never written.
	UpdateStatus(ctx context.Context, id string, from, to entities.AppointmentStatus, cancellationReason *string) error

	// SetConsultationActive flags whether a consultation is in progress
	SetConsultationActive(ctx context.Context, id string, active bool) error

	// CountByStatus returns appointment counts per status within the scope
	CountByStatus(ctx context.Context, scope entities.StatsScope) (map[entities.AppointmentStatus]int, error)

	// CountActiveConsultations returns the number of consultations in progress within the scope
	CountActiveConsultations(ctx context.Context, scope entities.StatsScope) (int, error)
}

// AppointmentFilter defines filters for listing appointments
type AppointmentFilter struct {
	PatientID string
	DoctorID  string
	Status    entities.AppointmentStatus
	Limit     int
	Offset    int
}
