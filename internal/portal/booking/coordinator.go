package booking

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/portal/toast"
)

var (
	// ErrPaymentOrder means the order request failed and nothing else happened
	ErrPaymentOrder = errors.New("could not create payment order")
	// ErrBookingFailed means the appointment could not be created
	ErrBookingFailed = errors.New("could not book appointment")
	// ErrSubmissionInFlight is returned when a submission is already running
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
)

// ReconciliationError means the payment may have been captured but no
// appointment exists for it. It needs manual follow-up with the ids it carries.
type ReconciliationError struct {
	OrderID   string
	PaymentID string
	Err       error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("booking failed after payment (order %s, payment %s): %v", e.OrderID, e.PaymentID, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

// AppointmentAPI creates appointments on the backend
type AppointmentAPI interface {
	CreateAppointment(ctx context.Context, req entities.CreateAppointmentRequest) (*entities.Appointment, error)
}

// PaymentAPI issues and verifies payment orders on the backend
type PaymentAPI interface {
	CreatePaymentOrder(ctx context.Context, req entities.CreateOrderRequest) (*entities.PaymentOrder, error)
	VerifyPayment(ctx context.Context, req entities.VerifyPaymentRequest) error
}

// Coordinator turns a completed booking form into an appointment
type Coordinator struct {
	appointments AppointmentAPI
	payments     PaymentAPI
	checkout     Checkout
	toaster      toast.Toaster
	onBooked     func(ctx context.Context, appt *entities.Appointment)

	inFlight atomic.Bool
}

// CoordinatorOption configures a Coordinator
type CoordinatorOption func(*Coordinator)

// WithToaster sets where user-visible notifications go
func WithToaster(t toast.Toaster) CoordinatorOption {
	return func(c *Coordinator) {
		if t != nil {
			c.toaster = t
		}
	}
}

// WithOnBooked sets the hook run after a successful booking, typically a list refresh
func WithOnBooked(fn func(ctx context.Context, appt *entities.Appointment)) CoordinatorOption {
	return func(c *Coordinator) {
		c.onBooked = fn
	}
}

// NewCoordinator creates a submission coordinator
func NewCoordinator(appointments AppointmentAPI, payments PaymentAPI, checkout Checkout, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		appointments: appointments,
		payments:     payments,
		checkout:     checkout,
		toaster:      toast.Discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submitting reports whether a submission is in flight; the submit control is
// disabled while it is true
func (c *Coordinator) Submitting() bool {
	return c.inFlight.Load()
}

// Submit books the form's appointment for patient. On success the form is
// reset and the OnBooked hook runs; on any failure the form is left intact.
func (c *Coordinator) Submit(ctx context.Context, form *Form, patient entities.PatientSummary) (*entities.Appointment, error) {
	sub, err := form.Submission()
	if err != nil {
		return nil, err
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInFlight
	}
	defer c.inFlight.Store(false)

	var appt *entities.Appointment
	switch sub.PaymentMode {
	case entities.PaymentModeOnline:
		appt, err = c.submitOnline(ctx, sub, patient)
	default:
		appt, err = c.submitOffline(ctx, sub, patient)
	}
	if err != nil {
		return nil, err
	}

	form.Reset()
	c.toaster.Notify(toast.Notification{
		Level:   toast.LevelSuccess,
		Title:   "Appointment booked",
		Message: fmt.Sprintf("Your appointment on %s at %s is %s", appt.Date, appt.Time, appt.Status),
	})
	if c.onBooked != nil {
		c.onBooked(ctx, appt)
	}
	return appt, nil
}

func (c *Coordinator) submitOffline(ctx context.Context, sub Submission, patient entities.PatientSummary) (*entities.Appointment, error) {
	appt, err := c.appointments.CreateAppointment(ctx, createRequest(sub, patient, nil))
	if err != nil {
		log.Warn().Err(err).Str("doctor_id", sub.DoctorID).Msg("offline booking failed")
		c.fail("Could not book appointment", err.Error())
		return nil, fmt.Errorf("%w: %v", ErrBookingFailed, err)
	}
	return appt, nil
}

func (c *Coordinator) submitOnline(ctx context.Context, sub Submission, patient entities.PatientSummary) (*entities.Appointment, error) {
	order, err := c.payments.CreatePaymentOrder(ctx, entities.CreateOrderRequest{
		DoctorID:  sub.DoctorID,
		PatientID: patient.ID,
	})
	if err != nil {
		log.Warn().Err(err).Str("doctor_id", sub.DoctorID).Msg("payment order creation failed")
		c.fail("Could not create payment order", err.Error())
		return nil, fmt.Errorf("%w: %v", ErrPaymentOrder, err)
	}

	confirmation, err := c.checkout.Open(ctx, order, Prefill{
		Name:  patient.Name,
		Email: patient.Email,
		Phone: patient.Phone,
	})
	if err == nil && confirmation == nil {
		// a checkout that closes without a result was dismissed
		err = ErrCheckoutDismissed
	}
	if err != nil {
		var failed *PaymentFailedError
		switch {
		case errors.Is(err, ErrCheckoutDismissed):
			log.Info().Str("order_id", order.OrderID).Msg("checkout dismissed")
		case errors.As(err, &failed):
			c.fail("Payment failed", failed.Description)
		default:
			c.fail("Payment failed", err.Error())
		}
		return nil, err
	}

	err = c.payments.VerifyPayment(ctx, entities.VerifyPaymentRequest{
		PaymentConfirmation: *confirmation,
		PatientID:           patient.ID,
		PatientPhone:        patient.Phone,
	})
	if err != nil {
		return nil, c.reconciliationFailure(confirmation, err)
	}

	appt, err := c.appointments.CreateAppointment(ctx, createRequest(sub, patient, confirmation))
	if err != nil {
		return nil, c.reconciliationFailure(confirmation, err)
	}
	return appt, nil
}

func (c *Coordinator) reconciliationFailure(confirmation *entities.PaymentConfirmation, err error) error {
	log.Error().Err(err).
		Str("order_id", confirmation.OrderID).
		Str("payment_id", confirmation.PaymentID).
		Msg("booking failed after payment, needs reconciliation")
	c.fail("Booking failed after payment",
		"Your payment reference is "+confirmation.PaymentID+". Please contact the clinic.")
	return &ReconciliationError{
		OrderID:   confirmation.OrderID,
		PaymentID: confirmation.PaymentID,
		Err:       err,
	}
}

func (c *Coordinator) fail(title, message string) {
	c.toaster.Notify(toast.Notification{
		Level:   toast.LevelError,
		Title:   title,
		Message: message,
	})
}

func createRequest(sub Submission, patient entities.PatientSummary, confirmation *entities.PaymentConfirmation) entities.CreateAppointmentRequest {
	return entities.CreateAppointmentRequest{
		PatientID:      patient.ID,
		DoctorID:       sub.DoctorID,
		Date:           sub.Date,
		Time:           sub.Time,
		Reason:         sub.Reason,
		Notes:          sub.Notes,
		Type:           sub.Type,
		PaymentMode:    sub.PaymentMode,
		PaymentDetails: confirmation,
	}
}
