package payment

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/providers"
)

// RazorpayAdapter implements PaymentGateway against the Razorpay Orders API
type RazorpayAdapter struct {
	client    *razorpay.Client
	keyID     string
	keySecret string
}

// NewRazorpayAdapter creates a Razorpay-backed gateway
func NewRazorpayAdapter(keyID, keySecret string) providers.PaymentGateway {
	return &RazorpayAdapter{
		client:    razorpay.NewClient(keyID, keySecret),
		keyID:     keyID,
		keySecret: keySecret,
	}
}

// CreateOrder registers an order for amount minor units of currency
func (a *RazorpayAdapter) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*entities.PaymentOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	body, err := a.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay order create: %w", err)
	}

	orderID, ok := body["id"].(string)
	if !ok || orderID == "" {
		return nil, fmt.Errorf("razorpay order create: response has no order id")
	}

	order := &entities.PaymentOrder{
		OrderID:  orderID,
		Amount:   amount,
		Currency: currency,
		KeyID:    a.keyID,
		Receipt:  receipt,
	}
	if v, ok := body["amount"].(float64); ok {
		order.Amount = int64(v)
	}
	if v, ok := body["currency"].(string); ok && v != "" {
		order.Currency = v
	}

	log.Info().Str("order_id", orderID).Int64("amount", order.Amount).Str("currency", order.Currency).Msg("razorpay order created")
	return order, nil
}

// VerifySignature checks HMAC-SHA256(order_id|payment_id) against the checkout signature
func (a *RazorpayAdapter) VerifySignature(confirmation entities.PaymentConfirmation) bool {
	if confirmation.OrderID == "" || confirmation.PaymentID == "" || confirmation.Signature == "" {
		return false
	}
	return verifyCheckoutSignature(confirmation, a.keySecret)
}

// verifyCheckoutSignature checks a checkout confirmation against secret
func verifyCheckoutSignature(confirmation entities.PaymentConfirmation, secret string) bool {
	return utils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   confirmation.OrderID,
		"razorpay_payment_id": confirmation.PaymentID,
	}, confirmation.Signature, secret)
}

// KeyID is the public key checkout is opened with
func (a *RazorpayAdapter) KeyID() string {
	return a.keyID
}
