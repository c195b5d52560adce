package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
)

// PaymentRepository persists verified payments for reconciliation
type PaymentRepository interface {
	// SaveOrder stores a gateway order so verification can recover who it was for
	SaveOrder(ctx context.Context, order *entities.PaymentOrder) error

	// GetOrder retrieves a stored gateway order
	GetOrder(ctx context.Context, orderID string) (*entities.PaymentOrder, error)

	// Create stores a verified payment
	Create(ctx context.Context, record *entities.PaymentRecord) error

	// GetByPaymentID retrieves a payment by gateway payment ID
	GetByPaymentID(ctx context.Context, paymentID string) (*entities.PaymentRecord, error)

	// LinkAppointment marks a payment as consumed by an appointment
	LinkAppointment(ctx context.Context, paymentID, appointmentID string) error

	// ListUnreconciled lists verified payments with no appointment, verified before the cutoff
	ListUnreconciled(ctx context.Context, verifiedBefore time.Time, limit int) ([]*entities.PaymentRecord, error)
}
