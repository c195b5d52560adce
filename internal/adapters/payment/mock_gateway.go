package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/providers"
)

const (
	mockKeyID  = "rzp_test_mock"
	mockSecret = "mock_secret"
)

// MockGateway issues local orders and verifies signatures made with a fixed
// development secret. It never moves money.
type MockGateway struct{}

// NewMockGateway creates a mock payment gateway for local development
func NewMockGateway() providers.PaymentGateway {
	return &MockGateway{}
}

// CreateOrder returns a locally generated order
func (m *MockGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, _ map[string]string) (*entities.PaymentOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &entities.PaymentOrder{
		OrderID:  "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		Amount:   amount,
		Currency: currency,
		KeyID:    mockKeyID,
		Receipt:  receipt,
	}, nil
}

// VerifySignature accepts signatures produced by MockSignature
func (m *MockGateway) VerifySignature(confirmation entities.PaymentConfirmation) bool {
	if confirmation.OrderID == "" || confirmation.PaymentID == "" || confirmation.Signature == "" {
		return false
	}
	return verifyCheckoutSignature(confirmation, mockSecret)
}

// KeyID is the public key checkout is opened with
func (m *MockGateway) KeyID() string {
	return mockKeyID
}

// MockSignature signs an order/payment pair the way checkout would for the mock gateway
func MockSignature(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(mockSecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
