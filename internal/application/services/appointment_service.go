package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/patientcare/backend/internal/application/loaders"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/providers"
	"github.com/zatekoja/patientcare/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/patientcare/backend/pkg/errors"
)

const (
	defaultAppointmentLimit = 100
	maxAppointmentLimit     = 500
)

// AppointmentService handles appointment booking and lifecycle logic
type AppointmentService struct {
	repo        repositories.AppointmentRepository
	doctorRepo  repositories.DoctorRepository
	paymentRepo repositories.PaymentRepository
	eventBus    providers.EventBus
	now         func() time.Time
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(
	repo repositories.AppointmentRepository,
	doctorRepo repositories.DoctorRepository,
	paymentRepo repositories.PaymentRepository,
	eventBus providers.EventBus,
) *AppointmentService {
	return &AppointmentService{
		repo:        repo,
		doctorRepo:  doctorRepo,
		paymentRepo: paymentRepo,
		eventBus:    eventBus,
		now:         time.Now,
	}
}

// Create books an appointment. New appointments always start pending; online
// bookings must carry a verified payment, which is linked to the appointment.
func (s *AppointmentService) Create(ctx context.Context, req entities.CreateAppointmentRequest) (*entities.Appointment, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, apperrors.NewValidationError("reason is required")
	}
	if req.Type == "" {
		req.Type = entities.AppointmentTypeInPerson
	}
	if !req.Type.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown appointment type %q", req.Type))
	}
	if !req.PaymentMode.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown payment mode %q", req.PaymentMode))
	}

	appointment := &entities.Appointment{
		ID:          uuid.New().String(),
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		Date:        req.Date,
		Time:        req.Time,
		Reason:      strings.TrimSpace(req.Reason),
		Notes:       req.Notes,
		Type:        req.Type,
		PaymentMode: req.PaymentMode,
		Status:      entities.AppointmentStatusPending,
	}

	scheduledAt, err := appointment.ScheduledAt(time.Local)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	today := s.now().Format(entities.DateLayout)
	if scheduledAt.Format(entities.DateLayout) < today {
		return nil, apperrors.NewValidationError("cannot book appointment in the past")
	}

	doctor, err := s.doctorRepo.GetByID(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	appointment.Doctor = doctor.Summary()

	var payment *entities.PaymentRecord
	if req.PaymentMode == entities.PaymentModeOnline {
		if req.PaymentDetails == nil || req.PaymentDetails.PaymentID == "" {
			return nil, apperrors.NewValidationError("payment_details are required for online payment")
		}
		payment, err = s.paymentRepo.GetByPaymentID(ctx, req.PaymentDetails.PaymentID)
		if err != nil {
			if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
				return nil, apperrors.NewValidationError("payment has not been verified")
			}
			return nil, err
		}
		if payment.OrderID != req.PaymentDetails.OrderID {
			return nil, apperrors.NewValidationError("payment does not belong to the given order")
		}
		if payment.DoctorID != "" && payment.DoctorID != req.DoctorID {
			return nil, apperrors.NewValidationError("payment was made for a different doctor")
		}
		if payment.PatientID != "" && payment.PatientID != req.PatientID {
			return nil, apperrors.NewValidationError("payment was made by a different patient")
		}
		if payment.Status != entities.PaymentRecordVerified {
			return nil, apperrors.NewConflictError("payment is already linked to an appointment")
		}
		appointment.PaymentDetails = req.PaymentDetails
	}

	now := s.now().UTC()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	if err := s.repo.Create(ctx, appointment); err != nil {
		return nil, err
	}

	if payment != nil {
		if err := s.paymentRepo.LinkAppointment(ctx, payment.PaymentID, appointment.ID); err != nil {
			// The appointment exists; the payment stays listed as unreconciled.
			log.Error().Err(err).
				Str("appointment_id", appointment.ID).
				Str("payment_id", payment.PaymentID).
				Msg("failed to link payment to appointment")
		}
	}

	s.publish(ctx, entities.EventAppointmentCreated, appointment)
	return appointment, nil
}

// Get returns one appointment with its doctor
func (s *AppointmentService) Get(ctx context.Context, id string) (*entities.Appointment, error) {
	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.hydrateDoctors(ctx, []*entities.Appointment{appointment})
	return appointment, nil
}

// List returns appointments matching the filter with doctors attached
func (s *AppointmentService) List(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultAppointmentLimit
	}
	if filter.Limit > maxAppointmentLimit {
		filter.Limit = maxAppointmentLimit
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown status %q", filter.Status))
	}

	appointments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.hydrateDoctors(ctx, appointments)
	return appointments, nil
}

func (s *AppointmentService) hydrateDoctors(ctx context.Context, appointments []*entities.Appointment) {
	l := loaders.For(ctx)
	if l == nil {
		l = loaders.NewLoaders(s.doctorRepo)
	}

	seen := make(map[string]bool)
	ids := make([]string, 0, len(appointments))
	for _, a := range appointments {
		if a.DoctorID != "" && !seen[a.DoctorID] {
			seen[a.DoctorID] = true
			ids = append(ids, a.DoctorID)
		}
	}

	doctors := l.LoadDoctors(ctx, ids)
	for _, a := range appointments {
		if d, ok := doctors[a.DoctorID]; ok {
			a.Doctor = d.Summary()
		}
	}
}

// UpdateStatus moves an appointment along the status graph. Payment mode is
// never touched.
func (s *AppointmentService) UpdateStatus(ctx context.Context, id string, req entities.StatusUpdateRequest) (*entities.Appointment, error) {
	if !req.Status.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown status %q", req.Status))
	}

	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appointment.Status.CanTransitionTo(req.Status) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("cannot move appointment from %s to %s", appointment.Status, req.Status))
	}

	var reason *string
	if req.Status == entities.AppointmentStatusCancelled {
		trimmed := strings.TrimSpace(req.CancellationReason)
		if trimmed != "" {
			reason = &trimmed
		}
	}

	if err := s.repo.UpdateStatus(ctx, id, appointment.Status, req.Status, reason); err != nil {
		return nil, err
	}

	appointment.Status = req.Status
	appointment.CancellationReason = reason
	if req.Status.Terminal() {
		appointment.ConsultationActive = false
	}
	appointment.UpdatedAt = s.now().UTC()
	s.hydrateDoctors(ctx, []*entities.Appointment{appointment})

	s.publish(ctx, entities.EventAppointmentUpdated, appointment)
	return appointment, nil
}

// StartConsultation flags a scheduled or confirmed appointment as in progress
func (s *AppointmentService) StartConsultation(ctx context.Context, id string) (*entities.Appointment, error) {
	return s.setConsultation(ctx, id, true)
}

// EndConsultation clears the in-progress flag
func (s *AppointmentService) EndConsultation(ctx context.Context, id string) (*entities.Appointment, error) {
	return s.setConsultation(ctx, id, false)
}

func (s *AppointmentService) setConsultation(ctx context.Context, id string, active bool) (*entities.Appointment, error) {
	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if active {
		switch appointment.Status {
		case entities.AppointmentStatusScheduled, entities.AppointmentStatusConfirmed:
		default:
			return nil, apperrors.NewConflictError(fmt.Sprintf("cannot start a consultation for a %s appointment", appointment.Status))
		}
		if appointment.ConsultationActive {
			return nil, apperrors.NewConflictError("consultation already in progress")
		}
	} else if !appointment.ConsultationActive {
		return nil, apperrors.NewConflictError("no consultation in progress")
	}

	if err := s.repo.SetConsultationActive(ctx, id, active); err != nil {
		return nil, err
	}
	appointment.ConsultationActive = active

	eventType := entities.EventConsultationEnded
	if active {
		eventType = entities.EventConsultationStarted
	}
	s.publish(ctx, eventType, appointment)
	return appointment, nil
}

func (s *AppointmentService) publish(ctx context.Context, eventType entities.PortalEventType, appointment *entities.Appointment) {
	if s.eventBus == nil {
		return
	}

	event, err := entities.NewPortalEvent(eventType, appointment.ID, appointment.PatientID, appointment.DoctorID, appointment)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build portal event")
		return
	}
	if eventType == entities.EventConsultationStarted || eventType == entities.EventConsultationEnded {
		event.ConsultationID = appointment.ID
	}

	if err := s.eventBus.Publish(ctx, providers.EventChannelPortal, event); err != nil {
		log.Warn().Err(err).
			Str("event_type", string(eventType)).
			Str("appointment_id", appointment.ID).
			Msg("failed to publish portal event")
	}
}
