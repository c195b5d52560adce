package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
)

// DoctorService defines the interface for doctor lookups
type DoctorService interface {
	List(ctx context.Context, limit int) ([]*entities.Doctor, error)
	Get(ctx context.Context, id string) (*entities.Doctor, error)
}

// DoctorHandler handles doctor requests
type DoctorHandler struct {
	service DoctorService
}

// NewDoctorHandler creates a new doctor handler
func NewDoctorHandler(service DoctorService) *DoctorHandler {
	return &DoctorHandler{service: service}
}

// ListDoctors handles GET /api/doctors
func (h *DoctorHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	doctors, err := h.service.List(r.Context(), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, doctors)
}

// GetDoctor handles GET /api/doctors/{id}
func (h *DoctorHandler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	doctor, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, doctor)
}
