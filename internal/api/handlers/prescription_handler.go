package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
)

// PrescriptionService defines the interface for prescription operations
type PrescriptionService interface {
	Create(ctx context.Context, prescription *entities.Prescription) (*entities.Prescription, error)
	ListByPatient(ctx context.Context, patientID string, limit int) ([]*entities.Prescription, error)
}

// PrescriptionHandler handles prescription requests
type PrescriptionHandler struct {
	service PrescriptionService
}

// NewPrescriptionHandler creates a new prescription handler
func NewPrescriptionHandler(service PrescriptionService) *PrescriptionHandler {
	return &PrescriptionHandler{service: service}
}

// CreatePrescription handles POST /api/prescriptions
func (h *PrescriptionHandler) CreatePrescription(w http.ResponseWriter, r *http.Request) {
	var prescription entities.Prescription
	if err := decodeJSON(w, r, &prescription); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	created, err := h.service.Create(r.Context(), &prescription)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

// ListPrescriptions handles GET /api/prescriptions?patient_id=
func (h *PrescriptionHandler) ListPrescriptions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	prescriptions, err := h.service.ListByPatient(r.Context(), r.URL.Query().Get("patient_id"), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, prescriptions)
}
