package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/patientcare/backend/pkg/errors"
)

const defaultReconciliationGrace = 10 * time.Minute

// PaymentService defines the interface for payment operations
type PaymentService interface {
	CreateOrder(ctx context.Context, req entities.CreateOrderRequest) (*entities.PaymentOrder, error)
	Verify(ctx context.Context, req entities.VerifyPaymentRequest) (*entities.PaymentRecord, error)
	ListUnreconciled(ctx context.Context, grace time.Duration, limit int) ([]*entities.PaymentRecord, error)
}

// PaymentHandler handles payment requests
type PaymentHandler struct {
	service PaymentService
	metrics *observability.Metrics
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(service PaymentService, metrics *observability.Metrics) *PaymentHandler {
	return &PaymentHandler{service: service, metrics: metrics}
}

// CreateOrder handles POST /api/payment/order
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req entities.CreateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, order)
}

// VerifyPayment handles POST /api/payment/verify
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req entities.VerifyPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	record, err := h.service.Verify(r.Context(), req)
	observability.RecordPaymentVerification(r.Context(), h.metrics, err == nil)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"verified":   true,
		"payment_id": record.PaymentID,
		"order_id":   record.OrderID,
	})
}

// ListUnreconciled handles GET /api/admin/payments/unreconciled
func (h *PaymentHandler) ListUnreconciled(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	grace := defaultReconciliationGrace
	if raw := r.URL.Query().Get("older_than"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed < 0 {
			respondWithAppError(w, r, apperrors.NewValidationError("older_than must be a duration such as 10m"))
			return
		}
		grace = parsed
	}

	records, err := h.service.ListUnreconciled(r.Context(), grace, limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"payments": records,
		"count":    len(records),
	})
}
