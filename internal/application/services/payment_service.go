package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/providers"
	"github.com/zatekoja/patientcare/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/patientcare/backend/pkg/errors"
)

const (
	orderKeyPrefix = "payment:order:"
	orderTTL       = 24 * time.Hour

	defaultUnreconciledLimit = 100
)

var minorUnitsPerMajor = decimal.NewFromInt(100)

// ReceiptNotifier delivers a receipt for a verified payment
type ReceiptNotifier interface {
	SendPaymentReceipt(ctx context.Context, receipt *ReceiptContext) error
}

// pendingOrder is the cached form of a stored order
type pendingOrder struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	DoctorID  string `json:"doctor_id"`
	PatientID string `json:"patient_id,omitempty"`
}

// PaymentService creates gateway orders and verifies checkout confirmations
type PaymentService struct {
	gateway        providers.PaymentGateway
	doctorRepo     repositories.DoctorRepository
	paymentRepo    repositories.PaymentRepository
	cache          providers.CacheProvider
	notifier       ReceiptNotifier
	currency       string
	receiptTimeout time.Duration
	now            func() time.Time
	receipts       sync.WaitGroup
}

// NewPaymentService creates a new payment service. cache and notifier may be nil.
func NewPaymentService(
	gateway providers.PaymentGateway,
	doctorRepo repositories.DoctorRepository,
	paymentRepo repositories.PaymentRepository,
	cache providers.CacheProvider,
	notifier ReceiptNotifier,
	currency string,
	receiptTimeout time.Duration,
) *PaymentService {
	if currency == "" {
		currency = "INR"
	}
	if receiptTimeout <= 0 {
		receiptTimeout = 15 * time.Second
	}
	return &PaymentService{
		gateway:        gateway,
		doctorRepo:     doctorRepo,
		paymentRepo:    paymentRepo,
		cache:          cache,
		notifier:       notifier,
		currency:       currency,
		receiptTimeout: receiptTimeout,
		now:            time.Now,
	}
}

// FeeToMinorUnits converts a consultation fee to the gateway's minor unit
func FeeToMinorUnits(fee decimal.Decimal) int64 {
	return fee.Mul(minorUnitsPerMajor).Round(0).IntPart()
}

// CreateOrder registers an order for the doctor's consultation fee
func (s *PaymentService) CreateOrder(ctx context.Context, req entities.CreateOrderRequest) (*entities.PaymentOrder, error) {
	if strings.TrimSpace(req.DoctorID) == "" {
		return nil, apperrors.NewValidationError("doctor_id is required")
	}

	doctor, err := s.doctorRepo.GetByID(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	amount := FeeToMinorUnits(doctor.ConsultationFee)
	if amount <= 0 {
		return nil, apperrors.NewValidationError("doctor has no consultation fee configured")
	}

	receipt := "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	notes := map[string]string{"doctor_id": doctor.ID}
	if req.PatientID != "" {
		notes["patient_id"] = req.PatientID
	}

	order, err := s.gateway.CreateOrder(ctx, amount, s.currency, receipt, notes)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to create payment order", err)
	}
	order.DoctorID = doctor.ID
	if order.KeyID == "" {
		order.KeyID = s.gateway.KeyID()
	}

	if err := s.rememberOrder(ctx, order, req.PatientID); err != nil {
		return nil, err
	}

	log.Info().
		Str("order_id", order.OrderID).
		Str("doctor_id", doctor.ID).
		Int64("amount", order.Amount).
		Msg("payment order created")
	return order, nil
}

func (s *PaymentService) rememberOrder(ctx context.Context, order *entities.PaymentOrder, patientID string) error {
	stored := *order
	stored.PatientID = patientID
	stored.CreatedAt = s.now().UTC()
	if err := s.paymentRepo.SaveOrder(ctx, &stored); err != nil {
		return err
	}

	if s.cache == nil {
		return nil
	}
	data, err := json.Marshal(pendingOrder{
		Amount:    order.Amount,
		Currency:  order.Currency,
		DoctorID:  order.DoctorID,
		PatientID: patientID,
	})
	if err != nil {
		return nil
	}
	if err := s.cache.Set(ctx, orderKeyPrefix+order.OrderID, data, int(orderTTL.Seconds())); err != nil {
		log.Warn().Err(err).Str("order_id", order.OrderID).Msg("failed to cache payment order")
	}
	return nil
}

// lookupOrder reads the cache first and falls back to the stored order
func (s *PaymentService) lookupOrder(ctx context.Context, orderID string) (*pendingOrder, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, orderKeyPrefix+orderID); err == nil {
			var order pendingOrder
			if err := json.Unmarshal(data, &order); err == nil && order.DoctorID != "" {
				return &order, nil
			}
		}
	}

	stored, err := s.paymentRepo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &pendingOrder{
		Amount:    stored.Amount,
		Currency:  stored.Currency,
		DoctorID:  stored.DoctorID,
		PatientID: stored.PatientID,
	}, nil
}

// Verify checks a checkout confirmation and records the payment. Verifying
// the same payment twice returns the stored record.
func (s *PaymentService) Verify(ctx context.Context, req entities.VerifyPaymentRequest) (*entities.PaymentRecord, error) {
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return nil, apperrors.NewValidationError("razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
	}
	if !s.gateway.VerifySignature(req.PaymentConfirmation) {
		log.Warn().Str("order_id", req.OrderID).Str("payment_id", req.PaymentID).Msg("payment signature mismatch")
		return nil, apperrors.NewValidationError("invalid payment signature")
	}

	order, err := s.lookupOrder(ctx, req.OrderID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewValidationError("unknown payment order")
		}
		return nil, err
	}
	if req.PatientID != "" && order.PatientID != "" && req.PatientID != order.PatientID {
		return nil, apperrors.NewValidationError("payment order belongs to a different patient")
	}

	record := &entities.PaymentRecord{
		ID:         uuid.New().String(),
		OrderID:    req.OrderID,
		PaymentID:  req.PaymentID,
		PatientID:  req.PatientID,
		DoctorID:   order.DoctorID,
		Amount:     order.Amount,
		Currency:   order.Currency,
		Status:     entities.PaymentRecordVerified,
		VerifiedAt: s.now().UTC(),
	}
	record.UpdatedAt = record.VerifiedAt
	if record.PatientID == "" {
		record.PatientID = order.PatientID
	}
	if record.Currency == "" {
		record.Currency = s.currency
	}

	if err := s.paymentRepo.Create(ctx, record); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			existing, getErr := s.paymentRepo.GetByPaymentID(ctx, req.PaymentID)
			if getErr != nil {
				return nil, getErr
			}
			if existing.OrderID != req.OrderID {
				return nil, apperrors.NewConflictError("payment already recorded for a different order")
			}
			return existing, nil
		}
		return nil, err
	}

	log.Info().
		Str("order_id", record.OrderID).
		Str("payment_id", record.PaymentID).
		Msg("payment verified")

	s.sendReceiptAsync(record, req.PatientPhone)
	return record, nil
}

// sendReceiptAsync notifies the patient out-of-band; failures never reach the caller
func (s *PaymentService) sendReceiptAsync(record *entities.PaymentRecord, phone string) {
	if s.notifier == nil {
		return
	}

	s.receipts.Add(1)
	go func() {
		defer s.receipts.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.receiptTimeout)
		defer cancel()

		var doctorName string
		if record.DoctorID != "" {
			if doctor, err := s.doctorRepo.GetByID(ctx, record.DoctorID); err == nil {
				doctorName = doctor.User.Name
			}
		}

		receipt := NewReceiptContext(record, "", phone, doctorName)
		if err := s.notifier.SendPaymentReceipt(ctx, receipt); err != nil {
			log.Warn().Err(err).Str("payment_id", record.PaymentID).Msg("payment receipt not delivered")
		}
	}()
}

// WaitForReceipts blocks until in-flight receipt notifications finish
func (s *PaymentService) WaitForReceipts() {
	s.receipts.Wait()
}

// ListUnreconciled returns verified payments that no appointment consumed
// within grace
func (s *PaymentService) ListUnreconciled(ctx context.Context, grace time.Duration, limit int) ([]*entities.PaymentRecord, error) {
	if limit <= 0 {
		limit = defaultUnreconciledLimit
	}
	if grace < 0 {
		grace = 0
	}
	return s.paymentRepo.ListUnreconciled(ctx, s.now().Add(-grace), limit)
}
