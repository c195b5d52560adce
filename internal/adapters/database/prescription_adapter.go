package database

import (
	"context"
	"encoding/json"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/repositories"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/patientcare/backend/pkg/errors"
)

// PrescriptionAdapter implements the PrescriptionRepository interface
type PrescriptionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPrescriptionAdapter creates a new prescription adapter
func NewPrescriptionAdapter(client *postgres.Client) repositories.PrescriptionRepository {
	return &PrescriptionAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create stores a prescription; medications are kept as a JSONB array
func (a *PrescriptionAdapter) Create(ctx context.Context, prescription *entities.Prescription) error {
	medications, err := json.Marshal(prescription.Medications)
	if err != nil {
		return apperrors.NewInternalError("failed to encode medications", err)
	}

	query, args, err := a.db.Insert("prescriptions").Rows(goqu.Record{
		"id":             prescription.ID,
		"appointment_id": prescription.AppointmentID,
		"patient_id":     prescription.PatientID,
		"doctor_id":      prescription.DoctorID,
		"medications":    string(medications),
		"notes":          prescription.Notes,
		"created_at":     prescription.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create prescription", err)
	}
	return nil
}

// ListByPatient retrieves a patient's prescriptions, newest first
func (a *PrescriptionAdapter) ListByPatient(ctx context.Context, patientID string, limit int) ([]*entities.Prescription, error) {
	ds := a.db.From("prescriptions").
		Select("id", "appointment_id", "patient_id", "doctor_id", "medications", "notes", "created_at").
		Where(goqu.Ex{"patient_id": patientID}).
		Order(goqu.I("created_at").Desc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list prescriptions", err)
	}
	defer rows.Close()

	var prescriptions []*entities.Prescription
	for rows.Next() {
		p := &entities.Prescription{}
		var medications []byte
		if err := rows.Scan(&p.ID, &p.AppointmentID, &p.PatientID, &p.DoctorID, &medications, &p.Notes, &p.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan prescription", err)
		}
		if err := json.Unmarshal(medications, &p.Medications); err != nil {
			return nil, apperrors.NewInternalError("failed to decode medications", err)
		}
		prescriptions = append(prescriptions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate prescriptions", err)
	}
	return prescriptions, nil
}

// Count returns the number of prescriptions within the scope
func (a *PrescriptionAdapter) Count(ctx context.Context, scope entities.StatsScope) (int, error) {
	query, args, err := a.db.From("prescriptions").
		Select(goqu.COUNT("*")).
		Where(scopeExpression(scope)).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var n int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, apperrors.NewInternalError("failed to count prescriptions", err)
	}
	return n, nil
}
