package booking_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/portal/booking"
	"github.com/zatekoja/patientcare/backend/internal/portal/toast"
)

type MockAppointmentAPI struct {
	mock.Mock
}

func (m *MockAppointmentAPI) CreateAppointment(ctx context.Context, req entities.CreateAppointmentRequest) (*entities.Appointment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

type MockPaymentAPI struct {
	mock.Mock
}

func (m *MockPaymentAPI) CreatePaymentOrder(ctx context.Context, req entities.CreateOrderRequest) (*entities.PaymentOrder, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentOrder), args.Error(1)
}

func (m *MockPaymentAPI) VerifyPayment(ctx context.Context, req entities.VerifyPaymentRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

type MockCheckout struct {
	mock.Mock
}

func (m *MockCheckout) Open(ctx context.Context, order *entities.PaymentOrder, prefill booking.Prefill) (*entities.PaymentConfirmation, error) {
	args := m.Called(ctx, order, prefill)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentConfirmation), args.Error(1)
}

var patient = entities.PatientSummary{ID: "pat-1", Name: "Asha Rao", Email: "asha@example.com", Phone: "+919800000000"}

func onlineForm(t *testing.T) *booking.Form {
	t.Helper()
	f := filledForm(t)
	require.NoError(t, f.SetPaymentMode(entities.PaymentModeOnline))
	return f
}

func TestCoordinator_OfflineBooking(t *testing.T) {
	appts := new(MockAppointmentAPI)
	payments := new(MockPaymentAPI)
	checkout := new(MockCheckout)
	toasts := &toast.Recorder{}

	var refreshed *entities.Appointment
	c := booking.NewCoordinator(appts, payments, checkout,
		booking.WithToaster(toasts),
		booking.WithOnBooked(func(_ context.Context, a *entities.Appointment) { refreshed = a }),
	)

	created := &entities.Appointment{ID: "appt-1", Date: "2026-03-11", Time: "10:00", Status: entities.AppointmentStatusPending}
	appts.On("CreateAppointment", mock.Anything, mock.MatchedBy(func(req entities.CreateAppointmentRequest) bool {
		return req.PatientID == "pat-1" &&
			req.DoctorID == "doc-1" &&
			req.Reason == "Checkup" &&
			req.PaymentMode == entities.PaymentModeOffline &&
			req.PaymentDetails == nil
	})).Return(created, nil).Once()

	form := filledForm(t)
	got, err := c.Submit(context.Background(), form, patient)

	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, created, refreshed)
	assert.Equal(t, booking.StageSelectDoctor, form.Stage())
	assert.Empty(t, form.Doctor().DoctorID)
	assert.False(t, c.Submitting())
	assert.Empty(t, toasts.Errors())

	appts.AssertExpectations(t)
	payments.AssertNotCalled(t, "CreatePaymentOrder", mock.Anything, mock.Anything)
	payments.AssertNotCalled(t, "VerifyPayment", mock.Anything, mock.Anything)
	checkout.AssertNotCalled(t, "Open", mock.Anything, mock.Anything, mock.Anything)
}

func TestCoordinator_OfflineFailureKeepsForm(t *testing.T) {
	appts := new(MockAppointmentAPI)
	toasts := &toast.Recorder{}
	c := booking.NewCoordinator(appts, new(MockPaymentAPI), new(MockCheckout), booking.WithToaster(toasts))

	appts.On("CreateAppointment", mock.Anything, mock.Anything).Return(nil, errors.New("503 service unavailable"))

	form := filledForm(t)
	_, err := c.Submit(context.Background(), form, patient)

	assert.ErrorIs(t, err, booking.ErrBookingFailed)
	assert.Equal(t, booking.StagePayment, form.Stage())
	assert.Equal(t, "doc-1", form.Doctor().DoctorID)
	assert.Len(t, toasts.Errors(), 1)
	assert.False(t, c.Submitting())
}

func TestCoordinator_OrderCreationFails(t *testing.T) {
	appts := new(MockAppointmentAPI)
	payments := new(MockPaymentAPI)
	checkout := new(MockCheckout)
	toasts := &toast.Recorder{}
	c := booking.NewCoordinator(appts, payments, checkout, booking.WithToaster(toasts))

	payments.On("CreatePaymentOrder", mock.Anything, entities.CreateOrderRequest{DoctorID: "doc-1", PatientID: "pat-1"}).
		Return(nil, errors.New("gateway timeout"))

	form := onlineForm(t)
	_, err := c.Submit(context.Background(), form, patient)

	assert.ErrorIs(t, err, booking.ErrPaymentOrder)
	errs := toasts.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "Could not create payment order", errs[0].Title)
	assert.False(t, c.Submitting())
	assert.Equal(t, booking.StagePayment, form.Stage())

	appts.AssertNotCalled(t, "CreateAppointment", mock.Anything, mock.Anything)
	checkout.AssertNotCalled(t, "Open", mock.Anything, mock.Anything, mock.Anything)
}

func TestCoordinator_CheckoutDismissed(t *testing.T) {
	appts := new(MockAppointmentAPI)
	payments := new(MockPaymentAPI)
	checkout := new(MockCheckout)
	toasts := &toast.Recorder{}
	c := booking.NewCoordinator(appts, payments, checkout, booking.WithToaster(toasts))

	order := &entities.PaymentOrder{OrderID: "order_1", Amount: 50000, Currency: "INR", KeyID: "rzp_test"}
	payments.On("CreatePaymentOrder", mock.Anything, mock.Anything).Return(order, nil)
	checkout.On("Open", mock.Anything, order, booking.Prefill{Name: patient.Name, Email: patient.Email, Phone: patient.Phone}).
		Return(nil, booking.ErrCheckoutDismissed)

	_, err := c.Submit(context.Background(), onlineForm(t), patient)

	assert.ErrorIs(t, err, booking.ErrCheckoutDismissed)
	assert.Empty(t, toasts.All())
	assert.False(t, c.Submitting())
	appts.AssertNotCalled(t, "CreateAppointment", mock.Anything, mock.Anything)
	payments.AssertNotCalled(t, "VerifyPayment", mock.Anything, mock.Anything)
}

func TestCoordinator_CheckoutWithoutResultCountsAsDismissed(t *testing.T) {
	appts := new(MockAppointmentAPI)
	payments := new(MockPaymentAPI)
	toasts := &toast.Recorder{}
	checkout := booking.CheckoutFunc(func(context.Context, *entities.PaymentOrder, booking.Prefill) (*entities.PaymentConfirmation, error) {
		return nil, nil
	})
	c := booking.NewCoordinator(appts, payments, checkout, booking.WithToaster(toasts))

	payments.On("CreatePaymentOrder", mock.Anything, mock.Anything).
		Return(&entities.PaymentOrder{OrderID: "order_1", Amount: 50000, Currency: "INR"}, nil)

	var err error
	require.NotPanics(t, func() {
		_, err = c.Submit(context.Background(), onlineForm(t), patient)
	})

	assert.ErrorIs(t, err, booking.ErrCheckoutDismissed)
	assert.Empty(t, toasts.All())
	assert.False(t, c.Submitting())
	payments.AssertNotCalled(t, "VerifyPayment", mock.Anything, mock.Anything)
	appts.AssertNotCalled(t, "CreateAppointment", mock.Anything, mock.Anything)
}

func TestCoordinator_PaymentFailed(t *testing.T) {
	appts := new(MockAppointmentAPI)
	payments := new(MockPaymentAPI)
	checkout := new(MockCheckout)
	toasts := &toast.Recorder{}
	c := booking.NewCoordinator(appts, payments, checkout, booking.WithToaster(toasts))

	payments.On("CreatePaymentOrder", mock.Anything, mock.Anything).Return(&entities.PaymentOrder{OrderID: "order_1"}, nil)
	checkout.On("Open", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &booking.PaymentFailedError{Code: "BAD_REQUEST_ERROR", Description: "Card declined by issuer"})

	_, err := c.Submit(context.Background(), onlineForm(t), patient)

	var failed *booking.PaymentFailedError
	require.ErrorAs(t, err, &failed)
	errs := toasts.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "Card declined by issuer", errs[0].Message)
	assert.False(t, c.Submitting())
	appts.AssertNotCalled(t, "CreateAppointment", mock.Anything, mock.Anything)
}

func TestCoordinator_VerificationFailureNeedsReconciliation(t *testing.T) {
	appts := new(MockAppointmentAPI)
	payments := new(MockPaymentAPI)
	checkout := new(MockCheckout)
	toasts := &toast.Recorder{}
	c := booking.NewCoordinator(appts, payments, checkout, booking.WithToaster(toasts))

	confirmation := &entities.PaymentConfirmation{OrderID: "order_1", PaymentID: "pay_1", Signature: "bad"}
	payments.On("CreatePaymentOrder", mock.Anything, mock.Anything).Return(&entities.PaymentOrder{OrderID: "order_1"}, nil)
	checkout.On("Open", mock.Anything, mock.Anything, mock.Anything).Return(confirmation, nil)
	payments.On("VerifyPayment", mock.Anything, mock.Anything).Return(errors.New("signature mismatch"))

	form := onlineForm(t)
	_, err := c.Submit(context.Background(), form, patient)

	var recon *booking.ReconciliationError
	require.ErrorAs(t, err, &recon)
	assert.Equal(t, "pay_1", recon.PaymentID)
	assert.Contains(t, err.Error(), "booking failed after payment")
	errs := toasts.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "Booking failed after payment", errs[0].Title)
	assert.Equal(t, booking.StagePayment, form.Stage())
	appts.AssertNotCalled(t, "CreateAppointment", mock.Anything, mock.Anything)
}

func TestCoordinator_OnlineBookingCreatesAfterVerify(t *testing.T) {
	appts := new(MockAppointmentAPI)
	payments := new(MockPaymentAPI)
	checkout := new(MockCheckout)
	c := booking.NewCoordinator(appts, payments, checkout)

	var calls []string
	confirmation := &entities.PaymentConfirmation{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig"}
	payments.On("CreatePaymentOrder", mock.Anything, mock.Anything).
		Return(&entities.PaymentOrder{OrderID: "order_1"}, nil).
		Run(func(mock.Arguments) { calls = append(calls, "order") })
	checkout.On("Open", mock.Anything, mock.Anything, mock.Anything).
		Return(confirmation, nil).
		Run(func(mock.Arguments) { calls = append(calls, "checkout") })
	payments.On("VerifyPayment", mock.Anything, mock.MatchedBy(func(req entities.VerifyPaymentRequest) bool {
		return req.PaymentConfirmation == *confirmation && req.PatientPhone == patient.Phone
	})).Return(nil).Run(func(mock.Arguments) { calls = append(calls, "verify") })
	appts.On("CreateAppointment", mock.Anything, mock.MatchedBy(func(req entities.CreateAppointmentRequest) bool {
		return req.PaymentMode == entities.PaymentModeOnline && req.PaymentDetails != nil && req.PaymentDetails.PaymentID == "pay_1"
	})).Return(&entities.Appointment{ID: "appt-2", Status: entities.AppointmentStatusPending}, nil).Run(func(mock.Arguments) { calls = append(calls, "create") })

	form := onlineForm(t)
	_, err := c.Submit(context.Background(), form, patient)

	require.NoError(t, err)
	assert.Equal(t, []string{"order", "checkout", "verify", "create"}, calls)
	assert.Equal(t, booking.StageSelectDoctor, form.Stage())
	mock.AssertExpectationsForObjects(t, appts, payments, checkout)
}

func TestCoordinator_SingleSubmissionInFlight(t *testing.T) {
	payments := new(MockPaymentAPI)
	release := make(chan struct{})
	opened := make(chan struct{})

	checkout := booking.CheckoutFunc(func(ctx context.Context, _ *entities.PaymentOrder, _ booking.Prefill) (*entities.PaymentConfirmation, error) {
		close(opened)
		<-release
		return nil, booking.ErrCheckoutDismissed
	})
	c := booking.NewCoordinator(new(MockAppointmentAPI), payments, checkout)
	payments.On("CreatePaymentOrder", mock.Anything, mock.Anything).Return(&entities.PaymentOrder{OrderID: "order_1"}, nil)

	form := onlineForm(t)
	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), form, patient)
		done <- err
	}()

	<-opened
	assert.True(t, c.Submitting())
	_, err := c.Submit(context.Background(), form, patient)
	assert.ErrorIs(t, err, booking.ErrSubmissionInFlight)

	close(release)
	assert.ErrorIs(t, <-done, booking.ErrCheckoutDismissed)
	assert.False(t, c.Submitting())
}

func TestCoordinator_IncompleteFormNeverCallsBackend(t *testing.T) {
	appts := new(MockAppointmentAPI)
	c := booking.NewCoordinator(appts, new(MockPaymentAPI), new(MockCheckout))

	form := booking.NewForm(fixedNow)
	form.SetDoctor(booking.DoctorStep{DoctorID: "doc-1"})

	_, err := c.Submit(context.Background(), form, patient)
	assert.ErrorIs(t, err, booking.ErrNotAtPayment)
	appts.AssertNotCalled(t, "CreateAppointment", mock.Anything, mock.Anything)
}
