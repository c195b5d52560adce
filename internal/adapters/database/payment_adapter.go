package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/repositories"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/patientcare/backend/pkg/errors"
)

const uniqueViolation = "23505"

// PaymentAdapter implements the PaymentRepository interface
type PaymentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPaymentAdapter creates a new payment adapter
func NewPaymentAdapter(client *postgres.Client) repositories.PaymentRepository {
	return &PaymentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var paymentColumns = []interface{}{
	"id", "order_id", "payment_id", "patient_id", "doctor_id", "amount",
	"currency", "status", "appointment_id", "verified_at", "updated_at",
}

// SaveOrder stores a gateway order. Saving the same order twice is a no-op.
func (a *PaymentAdapter) SaveOrder(ctx context.Context, order *entities.PaymentOrder) error {
	query, args, err := a.db.Insert("payment_orders").Rows(goqu.Record{
		"order_id":   order.OrderID,
		"doctor_id":  order.DoctorID,
		"patient_id": nullable(order.PatientID),
		"amount":     order.Amount,
		"currency":   order.Currency,
		"created_at": order.CreatedAt,
	}).OnConflict(goqu.DoNothing()).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to save payment order", err)
	}
	return nil
}

// GetOrder retrieves a stored gateway order
func (a *PaymentAdapter) GetOrder(ctx context.Context, orderID string) (*entities.PaymentOrder, error) {
	query, args, err := a.db.From("payment_orders").
		Select("order_id", "doctor_id", "patient_id", "amount", "currency", "created_at").
		Where(goqu.Ex{"order_id": orderID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	order := &entities.PaymentOrder{}
	var patientID sql.NullString
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&order.OrderID,
		&order.DoctorID,
		&patientID,
		&order.Amount,
		&order.Currency,
		&order.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("payment order %s not found", orderID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get payment order", err)
	}
	order.PatientID = patientID.String
	return order, nil
}

// Create stores a verified payment
func (a *PaymentAdapter) Create(ctx context.Context, record *entities.PaymentRecord) error {
	query, args, err := a.db.Insert("payments").Rows(goqu.Record{
		"id":             record.ID,
		"order_id":       record.OrderID,
		"payment_id":     record.PaymentID,
		"patient_id":     nullable(record.PatientID),
		"doctor_id":      nullable(record.DoctorID),
		"amount":         record.Amount,
		"currency":       record.Currency,
		"status":         record.Status,
		"appointment_id": record.AppointmentID,
		"verified_at":    record.VerifiedAt,
		"updated_at":     record.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return apperrors.NewConflictError(fmt.Sprintf("payment %s already recorded", record.PaymentID))
		}
		return apperrors.NewInternalError("failed to create payment record", err)
	}
	return nil
}

// GetByPaymentID retrieves a payment by gateway payment ID
func (a *PaymentAdapter) GetByPaymentID(ctx context.Context, paymentID string) (*entities.PaymentRecord, error) {
	query, args, err := a.db.From("payments").
		Select(paymentColumns...).
		Where(goqu.Ex{"payment_id": paymentID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	record, err := scanPayment(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("payment %s not found", paymentID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get payment", err)
	}
	return record, nil
}

// LinkAppointment marks a verified payment as consumed by an appointment.
// A payment can be linked once.
func (a *PaymentAdapter) LinkAppointment(ctx context.Context, paymentID, appointmentID string) error {
	query, args, err := a.db.Update("payments").
		Set(goqu.Record{
			"appointment_id": appointmentID,
			"status":         entities.PaymentRecordLinked,
			"updated_at":     time.Now().UTC(),
		}).
		Where(goqu.Ex{
			"payment_id": paymentID,
			"status":     entities.PaymentRecordVerified,
		}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to link payment", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewConflictError(fmt.Sprintf("payment %s is not verified or already linked", paymentID))
	}
	return nil
}

// ListUnreconciled lists verified payments with no appointment, oldest first
func (a *PaymentAdapter) ListUnreconciled(ctx context.Context, verifiedBefore time.Time, limit int) ([]*entities.PaymentRecord, error) {
	ds := a.db.From("payments").
		Select(paymentColumns...).
		Where(
			goqu.Ex{"status": entities.PaymentRecordVerified, "appointment_id": nil},
			goqu.C("verified_at").Lt(verifiedBefore),
		).
		Order(goqu.I("verified_at").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list unreconciled payments", err)
	}
	defer rows.Close()

	var records []*entities.PaymentRecord
	for rows.Next() {
		record, err := scanPayment(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan payment", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate payments", err)
	}
	return records, nil
}

func scanPayment(row rowScanner) (*entities.PaymentRecord, error) {
	record := &entities.PaymentRecord{}
	var patientID, doctorID, appointmentID sql.NullString

	err := row.Scan(
		&record.ID,
		&record.OrderID,
		&record.PaymentID,
		&patientID,
		&doctorID,
		&record.Amount,
		&record.Currency,
		&record.Status,
		&appointmentID,
		&record.VerifiedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.PatientID = patientID.String
	record.DoctorID = doctorID.String
	if appointmentID.Valid {
		record.AppointmentID = &appointmentID.String
	}
	return record, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
