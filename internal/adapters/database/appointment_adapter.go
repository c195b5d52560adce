package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/repositories"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/patientcare/backend/pkg/errors"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var appointmentColumns = []interface{}{
	"a.id", "a.patient_id", "a.doctor_id", "a.date", "a.time",
	"a.reason", "a.notes", "a.type", "a.payment_mode", "a.status",
	"a.cancellation_reason", "a.payment_order_id", "a.payment_id", "a.payment_signature",
	"a.consultation_active", "a.created_at", "a.updated_at",
	"p.name", "p.email", "p.phone",
}

func (a *AppointmentAdapter) selectAppointments() *goqu.SelectDataset {
	return a.db.From(goqu.T("appointments").As("a")).
		LeftJoin(goqu.T("patients").As("p"), goqu.On(goqu.Ex{"p.id": goqu.I("a.patient_id")})).
		Select(appointmentColumns...)
}

// Create creates a new appointment
func (a *AppointmentAdapter) Create(ctx context.Context, appointment *entities.Appointment) error {
	record := goqu.Record{
		"id":                  appointment.ID,
		"patient_id":          appointment.PatientID,
		"doctor_id":           appointment.DoctorID,
		"date":                appointment.Date,
		"time":                appointment.Time,
		"reason":              appointment.Reason,
		"notes":               appointment.Notes,
		"type":                appointment.Type,
		"payment_mode":        appointment.PaymentMode,
		"status":              appointment.Status,
		"consultation_active": appointment.ConsultationActive,
		"created_at":          appointment.CreatedAt,
		"updated_at":          appointment.UpdatedAt,
	}
	if pd := appointment.PaymentDetails; pd != nil {
		record["payment_order_id"] = pd.OrderID
		record["payment_id"] = pd.PaymentID
		record["payment_signature"] = pd.Signature
	}

	query, args, err := a.db.Insert("appointments").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create appointment", err)
	}

	return nil
}

// GetByID retrieves an appointment by ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, args, err := a.selectAppointments().
		Where(goqu.Ex{"a.id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointment, err := scanAppointment(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment", err)
	}

	return appointment, nil
}

// List retrieves appointments matching the filter, newest first
func (a *AppointmentAdapter) List(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	ds := a.selectAppointments()

	if filter.PatientID != "" {
		ds = ds.Where(goqu.Ex{"a.patient_id": filter.PatientID})
	}
	if filter.DoctorID != "" {
		ds = ds.Where(goqu.Ex{"a.doctor_id": filter.DoctorID})
	}
	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"a.status": filter.Status})
	}

	ds = ds.Order(goqu.I("a.date").Desc(), goqu.I("a.time").Desc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list appointments", err)
	}
	defer rows.Close()

	var appointments []*entities.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate appointments", err)
	}

	return appointments, nil
}

// UpdateStatus moves an appointment between statuses using the expected
// current status as an optimistic lock
func (a *AppointmentAdapter) UpdateStatus(ctx context.Context, id string, from, to entities.AppointmentStatus, cancellationReason *string) error {
	record := goqu.Record{
		"status":              to,
		"cancellation_reason": nil,
		"updated_at":          time.Now().UTC(),
	}
	if to == entities.AppointmentStatusCancelled && cancellationReason != nil {
		record["cancellation_reason"] = *cancellationReason
	}
	if to.Terminal() {
		record["consultation_active"] = false
	}

	query, args, err := a.db.Update("appointments").
		Set(record).
		Where(goqu.Ex{"id": id, "status": from}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update appointment status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewConflictError(fmt.Sprintf("appointment %s is no longer %s", id, from))
	}

	return nil
}

// SetConsultationActive flags whether a consultation is in progress
func (a *AppointmentAdapter) SetConsultationActive(ctx context.Context, id string, active bool) error {
	query, args, err := a.db.Update("appointments").
		Set(goqu.Record{
			"consultation_active": active,
			"updated_at":          time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update consultation flag", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}

	return nil
}

// CountByStatus returns appointment counts per status within the scope
func (a *AppointmentAdapter) CountByStatus(ctx context.Context, scope entities.StatsScope) (map[entities.AppointmentStatus]int, error) {
	query, args, err := a.db.From("appointments").
		Select(goqu.C("status"), goqu.COUNT("*")).
		Where(scopeExpression(scope)).
		GroupBy("status").
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build count query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to count appointments", err)
	}
	defer rows.Close()

	counts := make(map[entities.AppointmentStatus]int)
	for rows.Next() {
		var status entities.AppointmentStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, apperrors.NewInternalError("failed to scan count", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate counts", err)
	}

	return counts, nil
}

// CountActiveConsultations returns the number of consultations in progress within the scope
func (a *AppointmentAdapter) CountActiveConsultations(ctx context.Context, scope entities.StatsScope) (int, error) {
	ex := scopeExpression(scope)
	ex["consultation_active"] = true

	query, args, err := a.db.From("appointments").
		Select(goqu.COUNT("*")).
		Where(ex).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var n int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, apperrors.NewInternalError("failed to count active consultations", err)
	}
	return n, nil
}

func scopeExpression(scope entities.StatsScope) goqu.Ex {
	ex := goqu.Ex{}
	if scope.PatientID != "" {
		ex["patient_id"] = scope.PatientID
	}
	if scope.DoctorID != "" {
		ex["doctor_id"] = scope.DoctorID
	}
	return ex
}

func scanAppointment(row rowScanner) (*entities.Appointment, error) {
	appointment := &entities.Appointment{}
	var notes, cancellationReason sql.NullString
	var orderID, paymentID, signature sql.NullString
	var patientName, patientEmail, patientPhone sql.NullString

	err := row.Scan(
		&appointment.ID,
		&appointment.PatientID,
		&appointment.DoctorID,
		&appointment.Date,
		&appointment.Time,
		&appointment.Reason,
		&notes,
		&appointment.Type,
		&appointment.PaymentMode,
		&appointment.Status,
		&cancellationReason,
		&orderID,
		&paymentID,
		&signature,
		&appointment.ConsultationActive,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
		&patientName,
		&patientEmail,
		&patientPhone,
	)
	if err != nil {
		return nil, err
	}

	appointment.Notes = notes.String
	if cancellationReason.Valid && appointment.Status == entities.AppointmentStatusCancelled {
		appointment.CancellationReason = &cancellationReason.String
	}
	if paymentID.Valid {
		appointment.PaymentDetails = &entities.PaymentConfirmation{
			OrderID:   orderID.String,
			PaymentID: paymentID.String,
			Signature: signature.String,
		}
	}
	if patientName.Valid {
		appointment.Patient = &entities.PatientSummary{
			ID:    appointment.PatientID,
			Name:  patientName.String,
			Email: patientEmail.String,
			Phone: patientPhone.String,
		}
	}

	return appointment, nil
}
