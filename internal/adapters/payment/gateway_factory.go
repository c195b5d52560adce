package payment

import (
	"fmt"

	"github.com/zatekoja/patientcare/backend/internal/domain/providers"
	"github.com/zatekoja/patientcare/backend/pkg/config"
)

// NewGateway picks the gateway named by the payment configuration
func NewGateway(cfg config.PaymentConfig) (providers.PaymentGateway, error) {
	switch cfg.Provider {
	case "", "mock":
		return NewMockGateway(), nil
	case "razorpay":
		if cfg.KeyID == "" || cfg.KeySecret == "" {
			return nil, fmt.Errorf("razorpay requires key id and key secret")
		}
		return NewRazorpayAdapter(cfg.KeyID, cfg.KeySecret), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}
