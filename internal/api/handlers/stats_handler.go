package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
)

// StatsService defines the interface for dashboard counts
type StatsService interface {
	DashboardStats(ctx context.Context, scope entities.StatsScope) (*entities.DashboardStats, error)
}

// StatsHandler handles dashboard stats requests
type StatsHandler struct {
	service StatsService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(service StatsService) *StatsHandler {
	return &StatsHandler{service: service}
}

// GetDashboardStats handles GET /api/dashboard/stats
func (h *StatsHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	stats, err := h.service.DashboardStats(r.Context(), entities.StatsScope{
		PatientID: query.Get("patient_id"),
		DoctorID:  query.Get("doctor_id"),
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}
