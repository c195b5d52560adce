package portalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/patientcare/backend/pkg/errors"
)

// HTTPClient talks to the portal REST API. It satisfies the booking,
// live and dashboard API interfaces.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *HTTPClient {
	trimmed := strings.TrimRight(baseURL, "/")
	return &HTTPClient{
		baseURL: trimmed,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// BaseURL returns the API root the client was built with
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

func (c *HTTPClient) CreateAppointment(ctx context.Context, req entities.CreateAppointmentRequest) (*entities.Appointment, error) {
	out := &entities.Appointment{}
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/appointments", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ListAppointments(ctx context.Context, filter repositories.AppointmentFilter) ([]entities.Appointment, error) {
	parsed, err := url.Parse(c.baseURL + "/api/appointments")
	if err != nil {
		return nil, err
	}

	query := parsed.Query()
	if filter.PatientID != "" {
		query.Set("patient_id", filter.PatientID)
	}
	if filter.DoctorID != "" {
		query.Set("doctor_id", filter.DoctorID)
	}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		query.Set("offset", strconv.Itoa(filter.Offset))
	}
	parsed.RawQuery = query.Encode()

	var out []entities.Appointment
	if err := c.doJSON(ctx, http.MethodGet, parsed.String(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) UpdateAppointmentStatus(ctx context.Context, id string, req entities.StatusUpdateRequest) (*entities.Appointment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("appointment id is required")
	}
	endpoint := fmt.Sprintf("%s/api/appointments/%s/status", c.baseURL, url.PathEscape(id))
	out := &entities.Appointment{}
	if err := c.doJSON(ctx, http.MethodPatch, endpoint, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ListDoctors(ctx context.Context, limit int) ([]entities.Doctor, error) {
	endpoint := c.baseURL + "/api/doctors"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var out []entities.Doctor
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) CreatePaymentOrder(ctx context.Context, req entities.CreateOrderRequest) (*entities.PaymentOrder, error) {
	out := &entities.PaymentOrder{}
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/payment/order", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// VerifyPayment succeeds only when the backend answers verified=true
func (c *HTTPClient) VerifyPayment(ctx context.Context, req entities.VerifyPaymentRequest) error {
	var out struct {
		Verified bool `json:"verified"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/payment/verify", req, &out); err != nil {
		return err
	}
	if !out.Verified {
		return apperrors.NewValidationError("payment was not verified")
	}
	return nil
}

func (c *HTTPClient) DashboardStats(ctx context.Context, scope entities.StatsScope) (*entities.DashboardStats, error) {
	parsed, err := url.Parse(c.baseURL + "/api/dashboard/stats")
	if err != nil {
		return nil, err
	}
	query := parsed.Query()
	if scope.PatientID != "" {
		query.Set("patient_id", scope.PatientID)
	}
	if scope.DoctorID != "" {
		query.Set("doctor_id", scope.DoctorID)
	}
	parsed.RawQuery = query.Encode()

	out := &entities.DashboardStats{}
	if err := c.doJSON(ctx, http.MethodGet, parsed.String(), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, endpoint string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "application/json")
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// statusError turns a non-2xx response into the matching AppError so callers
// can branch on apperrors.IsType the same way server code does
func statusError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)

	msg := payload.Error
	if msg == "" {
		msg = fmt.Sprintf("portal api returned status %d", resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return apperrors.NewNotFoundError(msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.NewValidationError(msg)
	case http.StatusConflict:
		return apperrors.NewConflictError(msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.NewUnauthorizedError(msg)
	default:
		return apperrors.NewExternalError(msg, fmt.Errorf("status %d", resp.StatusCode))
	}
}
