package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/providers"
	"github.com/zatekoja/patientcare/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/patientcare/backend/pkg/errors"
)

const defaultPrescriptionLimit = 50

// PrescriptionService issues prescriptions against appointments
type PrescriptionService struct {
	repo            repositories.PrescriptionRepository
	appointmentRepo repositories.AppointmentRepository
	eventBus        providers.EventBus
}

// NewPrescriptionService creates a new prescription service
func NewPrescriptionService(
	repo repositories.PrescriptionRepository,
	appointmentRepo repositories.AppointmentRepository,
	eventBus providers.EventBus,
) *PrescriptionService {
	return &PrescriptionService{
		repo:            repo,
		appointmentRepo: appointmentRepo,
		eventBus:        eventBus,
	}
}

// Create stores a prescription. Patient and doctor are taken from the
// appointment, which must not be cancelled or a no-show.
func (s *PrescriptionService) Create(ctx context.Context, prescription *entities.Prescription) (*entities.Prescription, error) {
	if len(prescription.Medications) == 0 {
		return nil, apperrors.NewValidationError("at least one medication is required")
	}
	for _, m := range prescription.Medications {
		if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Dosage) == "" {
			return nil, apperrors.NewValidationError("every medication needs a name and dosage")
		}
	}

	appointment, err := s.appointmentRepo.GetByID(ctx, prescription.AppointmentID)
	if err != nil {
		return nil, err
	}
	switch appointment.Status {
	case entities.AppointmentStatusCancelled, entities.AppointmentStatusNoShow:
		return nil, apperrors.NewConflictError("cannot prescribe for a " + string(appointment.Status) + " appointment")
	}

	prescription.ID = uuid.New().String()
	prescription.PatientID = appointment.PatientID
	prescription.DoctorID = appointment.DoctorID
	prescription.CreatedAt = time.Now().UTC()

	if err := s.repo.Create(ctx, prescription); err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		event, err := entities.NewPortalEvent(entities.EventPrescriptionCreated, appointment.ID, appointment.PatientID, appointment.DoctorID, prescription)
		if err == nil {
			err = s.eventBus.Publish(ctx, providers.EventChannelPortal, event)
		}
		if err != nil {
			log.Warn().Err(err).Str("prescription_id", prescription.ID).Msg("failed to publish prescription event")
		}
	}

	return prescription, nil
}

// ListByPatient returns a patient's prescriptions, newest first
func (s *PrescriptionService) ListByPatient(ctx context.Context, patientID string, limit int) ([]*entities.Prescription, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, apperrors.NewValidationError("patient_id is required")
	}
	if limit <= 0 {
		limit = defaultPrescriptionLimit
	}
	return s.repo.ListByPatient(ctx, patientID, limit)
}
