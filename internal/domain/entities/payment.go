package entities

import "time"

// PaymentOrder is a gateway-issued order that must be collected before an
// online appointment is created. Amount is in the currency's minor unit.
type PaymentOrder struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key"`
	DoctorID string `json:"doctor_id"`
	Receipt  string `json:"receipt,omitempty"`

	PatientID string    `json:"-"`
	CreatedAt time.Time `json:"-"`
}

// PaymentConfirmation is the signed payload returned by checkout on success
type PaymentConfirmation struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// PaymentRecordStatus tracks a verified payment through reconciliation
type PaymentRecordStatus string

const (
	// PaymentRecordVerified means money moved but no appointment is linked yet
	PaymentRecordVerified PaymentRecordStatus = "verified"
	// PaymentRecordLinked means an appointment references the payment
	PaymentRecordLinked PaymentRecordStatus = "linked"
)

// PaymentRecord is persisted when a confirmation verifies
type PaymentRecord struct {
	ID            string              `json:"id" db:"id"`
	OrderID       string              `json:"order_id" db:"order_id"`
	PaymentID     string              `json:"payment_id" db:"payment_id"`
	PatientID     string              `json:"patient_id,omitempty" db:"patient_id"`
	DoctorID      string              `json:"doctor_id,omitempty" db:"doctor_id"`
	Amount        int64               `json:"amount" db:"amount"`
	Currency      string              `json:"currency" db:"currency"`
	Status        PaymentRecordStatus `json:"status" db:"status"`
	AppointmentID *string             `json:"appointment_id,omitempty" db:"appointment_id"`
	VerifiedAt    time.Time           `json:"verified_at" db:"verified_at"`
	UpdatedAt     time.Time           `json:"updated_at" db:"updated_at"`
}

// CreateOrderRequest is the body of POST /api/payment/order
type CreateOrderRequest struct {
	DoctorID  string `json:"doctor_id" validate:"required"`
	PatientID string `json:"patient_id,omitempty"`
}

// VerifyPaymentRequest is the body of POST /api/payment/verify
type VerifyPaymentRequest struct {
	PaymentConfirmation
	PatientID    string `json:"patient_id,omitempty"`
	PatientPhone string `json:"patient_phone,omitempty"`
}
