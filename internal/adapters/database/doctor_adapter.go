package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/repositories"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/patientcare/backend/pkg/errors"
)

// DoctorAdapter implements the DoctorRepository interface
type DoctorAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewDoctorAdapter creates a new doctor adapter
func NewDoctorAdapter(client *postgres.Client) repositories.DoctorRepository {
	return &DoctorAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func (a *DoctorAdapter) selectDoctors() *goqu.SelectDataset {
	return a.db.From(goqu.T("doctors").As("d")).
		Join(goqu.T("users").As("u"), goqu.On(goqu.Ex{"u.id": goqu.I("d.user_id")})).
		Select(
			"d.id", "d.user_id", "u.name", "u.email", "d.specialization",
			"d.consultation_fee", "d.is_active", "d.created_at", "d.updated_at",
		)
}

// List retrieves active doctors ordered by name
func (a *DoctorAdapter) List(ctx context.Context, limit int) ([]*entities.Doctor, error) {
	ds := a.selectDoctors().
		Where(goqu.Ex{"d.is_active": true}).
		Order(goqu.I("u.name").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	return a.query(ctx, ds)
}

// GetByID retrieves a doctor by ID
func (a *DoctorAdapter) GetByID(ctx context.Context, id string) (*entities.Doctor, error) {
	query, args, err := a.selectDoctors().Where(goqu.Ex{"d.id": id}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	doctor, err := scanDoctor(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("doctor with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get doctor", err)
	}
	return doctor, nil
}

// GetByIDs retrieves doctors by IDs; missing IDs are omitted
func (a *DoctorAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Doctor, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return a.query(ctx, a.selectDoctors().Where(goqu.Ex{"d.id": ids}))
}

func (a *DoctorAdapter) query(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.Doctor, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build doctor query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query doctors", err)
	}
	defer rows.Close()

	var doctors []*entities.Doctor
	for rows.Next() {
		doctor, err := scanDoctor(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan doctor", err)
		}
		doctors = append(doctors, doctor)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate doctors", err)
	}

	return doctors, nil
}

func scanDoctor(row rowScanner) (*entities.Doctor, error) {
	doctor := &entities.Doctor{}
	var email sql.NullString

	err := row.Scan(
		&doctor.ID,
		&doctor.UserID,
		&doctor.User.Name,
		&email,
		&doctor.Specialization,
		&doctor.ConsultationFee,
		&doctor.IsActive,
		&doctor.CreatedAt,
		&doctor.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doctor.User.Email = email.String
	return doctor, nil
}
