package providers

import (
	"context"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
)

// PaymentGateway defines the interface for the external payment provider (Razorpay)
type PaymentGateway interface {
	// CreateOrder registers an order for amount minor units of currency
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*entities.PaymentOrder, error)

	// VerifySignature checks the signed confirmation returned by checkout
	VerifySignature(confirmation entities.PaymentConfirmation) bool

	// KeyID is the public key checkout is opened with
	KeyID() string
}
