package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/repositories"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/observability"
)

// AppointmentService defines the interface for appointment operations
type AppointmentService interface {
	Create(ctx context.Context, req entities.CreateAppointmentRequest) (*entities.Appointment, error)
	Get(ctx context.Context, id string) (*entities.Appointment, error)
	List(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, error)
	UpdateStatus(ctx context.Context, id string, req entities.StatusUpdateRequest) (*entities.Appointment, error)
	StartConsultation(ctx context.Context, id string) (*entities.Appointment, error)
	EndConsultation(ctx context.Context, id string) (*entities.Appointment, error)
}

// AppointmentHandler handles appointment requests
type AppointmentHandler struct {
	service AppointmentService
	metrics *observability.Metrics
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(service AppointmentService, metrics *observability.Metrics) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		metrics: metrics,
	}
}

// ListAppointments handles GET /api/appointments
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	query := r.URL.Query()
	appointments, err := h.service.List(r.Context(), repositories.AppointmentFilter{
		PatientID: query.Get("patient_id"),
		DoctorID:  query.Get("doctor_id"),
		Status:    entities.AppointmentStatus(query.Get("status")),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, appointments)
}

// BookAppointment handles POST /api/appointments
func (h *AppointmentHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req entities.CreateAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	appointment, err := h.service.Create(r.Context(), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	observability.RecordAppointmentCreated(r.Context(), h.metrics, string(appointment.PaymentMode))
	respondWithJSON(w, http.StatusCreated, appointment)
}

// GetAppointment handles GET /api/appointments/{id}
func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	appointment, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointment)
}

// UpdateStatus handles PATCH /api/appointments/{id}/status
func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req entities.StatusUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	appointment, err := h.service.UpdateStatus(r.Context(), r.PathValue("id"), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointment)
}

// StartConsultation handles POST /api/appointments/{id}/consultation/start
func (h *AppointmentHandler) StartConsultation(w http.ResponseWriter, r *http.Request) {
	appointment, err := h.service.StartConsultation(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointment)
}

// EndConsultation handles POST /api/appointments/{id}/consultation/end
func (h *AppointmentHandler) EndConsultation(w http.ResponseWriter, r *http.Request) {
	appointment, err := h.service.EndConsultation(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointment)
}
