package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
)

// ErrCheckoutDismissed is returned by Checkout.Open when the user closes the
// checkout without paying
var ErrCheckoutDismissed = errors.New("checkout dismissed")

// PaymentFailedError is the provider's payment.failed outcome (e.g. card declined)
type PaymentFailedError struct {
	Code        string
	Description string
}

func (e *PaymentFailedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment failed (%s): %s", e.Code, e.Description)
	}
	return "payment failed: " + e.Description
}

// Prefill is shown in the checkout so the patient does not retype contact details
type Prefill struct {
	Name  string
	Email string
	Phone string
}

// Checkout collects payment for an order. Open blocks until the checkout
// reaches a terminal outcome: a signed confirmation on success,
// ErrCheckoutDismissed, or a *PaymentFailedError.
type Checkout interface {
	Open(ctx context.Context, order *entities.PaymentOrder, prefill Prefill) (*entities.PaymentConfirmation, error)
}

// CheckoutFunc adapts a function to Checkout
type CheckoutFunc func(ctx context.Context, order *entities.PaymentOrder, prefill Prefill) (*entities.PaymentConfirmation, error)

// Open implements Checkout
func (f CheckoutFunc) Open(ctx context.Context, order *entities.PaymentOrder, prefill Prefill) (*entities.PaymentConfirmation, error) {
	return f(ctx, order, prefill)
}
