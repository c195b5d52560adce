package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/patientcare/backend/internal/api/handlers"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/patientcare/backend/pkg/errors"
)

// MockAppointmentService defines the mock service
type MockAppointmentService struct {
	mock.Mock
}

func (m *MockAppointmentService) Create(ctx context.Context, req entities.CreateAppointmentRequest) (*entities.Appointment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentService) Get(ctx context.Context, id string) (*entities.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentService) List(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentService) UpdateStatus(ctx context.Context, id string, req entities.StatusUpdateRequest) (*entities.Appointment, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentService) StartConsultation(ctx context.Context, id string) (*entities.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentService) EndConsultation(ctx context.Context, id string) (*entities.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["error"]
}

func TestAppointmentHandler_BookAppointment(t *testing.T) {
	t.Run("successfully books appointment", func(t *testing.T) {
		mockService := new(MockAppointmentService)
		handler := handlers.NewAppointmentHandler(mockService, nil)

		body := jsonBody(t, map[string]interface{}{
			"patient_id":   "pat-1",
			"doctor_id":    "doc-1",
			"date":         "2030-05-01",
			"time":         "10:30",
			"reason":       "Chest pain",
			"type":         "video",
			"payment_mode": "offline",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/appointments", body)
		w := httptest.NewRecorder()

		mockService.On("Create", mock.Anything, mock.MatchedBy(func(r entities.CreateAppointmentRequest) bool {
			return r.DoctorID == "doc-1" && r.PaymentMode == entities.PaymentModeOffline && r.PaymentDetails == nil
		})).Return(&entities.Appointment{ID: "appt-1", Status: entities.AppointmentStatusPending, PaymentMode: entities.PaymentModeOffline}, nil)

		handler.BookAppointment(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var appt entities.Appointment
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &appt))
		assert.Equal(t, "appt-1", appt.ID)
		assert.Equal(t, entities.AppointmentStatusPending, appt.Status)
	})

	t.Run("online booking forwards payment details", func(t *testing.T) {
		mockService := new(MockAppointmentService)
		handler := handlers.NewAppointmentHandler(mockService, nil)

		body := jsonBody(t, map[string]interface{}{
			"patient_id":   "pat-1",
			"doctor_id":    "doc-1",
			"date":         "2030-05-01",
			"time":         "10:30",
			"reason":       "Chest pain",
			"payment_mode": "online",
			"payment_details": map[string]string{
				"razorpay_order_id":   "order_1",
				"razorpay_payment_id": "pay_1",
				"razorpay_signature":  "sig",
			},
		})
		req := httptest.NewRequest(http.MethodPost, "/api/appointments", body)
		w := httptest.NewRecorder()

		mockService.On("Create", mock.Anything, mock.MatchedBy(func(r entities.CreateAppointmentRequest) bool {
			return r.PaymentDetails != nil && r.PaymentDetails.PaymentID == "pay_1"
		})).Return(&entities.Appointment{ID: "appt-2"}, nil)

		handler.BookAppointment(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("missing fields fail validation", func(t *testing.T) {
		mockService := new(MockAppointmentService)
		handler := handlers.NewAppointmentHandler(mockService, nil)

		body := jsonBody(t, map[string]interface{}{
			"doctor_id":    "doc-1",
			"date":         "05/01/2030",
			"payment_mode": "card",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/appointments", body)
		w := httptest.NewRecorder()

		handler.BookAppointment(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		msg := errorMessage(t, w)
		assert.Contains(t, msg, "patient_id is required")
		assert.Contains(t, msg, "date must match 2006-01-02")
		assert.Contains(t, msg, "payment_mode must be one of")
		mockService.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		handler := handlers.NewAppointmentHandler(new(MockAppointmentService), nil)
		req := httptest.NewRequest(http.MethodPost, "/api/appointments", bytes.NewBufferString("{"))
		w := httptest.NewRecorder()

		handler.BookAppointment(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("service errors map to status codes", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
			want int
		}{
			{"not found", apperrors.NewNotFoundError("doctor not found"), http.StatusNotFound},
			{"conflict", apperrors.NewConflictError("payment is already linked to an appointment"), http.StatusConflict},
			{"internal", apperrors.NewInternalError("failed to create appointment", assert.AnError), http.StatusInternalServerError},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mockService := new(MockAppointmentService)
				handler := handlers.NewAppointmentHandler(mockService, nil)
				mockService.On("Create", mock.Anything, mock.Anything).Return(nil, tt.err)

				body := jsonBody(t, map[string]interface{}{
					"patient_id": "pat-1", "doctor_id": "doc-1", "date": "2030-05-01",
					"time": "10:30", "reason": "x", "payment_mode": "offline",
				})
				w := httptest.NewRecorder()
				handler.BookAppointment(w, httptest.NewRequest(http.MethodPost, "/api/appointments", body))

				assert.Equal(t, tt.want, w.Code)
				if tt.want == http.StatusInternalServerError {
					assert.Equal(t, "internal server error", errorMessage(t, w))
				}
			})
		}
	})
}

func TestAppointmentHandler_ListAppointments(t *testing.T) {
	mockService := new(MockAppointmentService)
	handler := handlers.NewAppointmentHandler(mockService, nil)

	mockService.On("List", mock.Anything, repositories.AppointmentFilter{PatientID: "pat-1", Limit: 100}).
		Return([]*entities.Appointment{{ID: "a1"}, {ID: "a2"}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/appointments?limit=100&patient_id=pat-1", nil)
	w := httptest.NewRecorder()
	handler.ListAppointments(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var appts []entities.Appointment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &appts))
	assert.Len(t, appts, 2)

	w = httptest.NewRecorder()
	handler.ListAppointments(w, httptest.NewRequest(http.MethodGet, "/api/appointments?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentHandler_UpdateStatus(t *testing.T) {
	mockService := new(MockAppointmentService)
	handler := handlers.NewAppointmentHandler(mockService, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /api/appointments/{id}/status", handler.UpdateStatus)

	mockService.On("UpdateStatus", mock.Anything, "a1", entities.StatusUpdateRequest{
		Status:             entities.AppointmentStatusCancelled,
		CancellationReason: "Travelling",
	}).Return(&entities.Appointment{ID: "a1", Status: entities.AppointmentStatusCancelled}, nil)
	mockService.On("UpdateStatus", mock.Anything, "a2", mock.Anything).
		Return(nil, apperrors.NewConflictError("cannot move appointment from completed to pending"))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/appointments/a1/status",
		jsonBody(t, map[string]string{"status": "cancelled", "cancellation_reason": "Travelling"})))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/appointments/a2/status",
		jsonBody(t, map[string]string{"status": "pending"})))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, errorMessage(t, w), "cannot move appointment")
}

func TestAppointmentHandler_Consultation(t *testing.T) {
	mockService := new(MockAppointmentService)
	handler := handlers.NewAppointmentHandler(mockService, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/appointments/{id}/consultation/start", handler.StartConsultation)
	mux.HandleFunc("POST /api/appointments/{id}/consultation/end", handler.EndConsultation)

	mockService.On("StartConsultation", mock.Anything, "a1").Return(&entities.Appointment{ID: "a1", ConsultationActive: true}, nil)
	mockService.On("EndConsultation", mock.Anything, "a1").Return(nil, apperrors.NewConflictError("no consultation in progress"))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/appointments/a1/consultation/start", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/appointments/a1/consultation/end", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}
