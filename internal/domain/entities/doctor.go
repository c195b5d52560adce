package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserProfile is the account profile a doctor is attached to
type UserProfile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Doctor is a bookable practitioner
type Doctor struct {
	ID              string          `json:"id" db:"id"`
	UserID          string          `json:"user_id" db:"user_id"`
	User            UserProfile     `json:"user"`
	Specialization  string          `json:"specialization" db:"specialization"`
	ConsultationFee decimal.Decimal `json:"consultation_fee" db:"consultation_fee"`
	IsActive        bool            `json:"is_active" db:"is_active"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// Summary returns the nested view embedded in appointments
func (d *Doctor) Summary() *DoctorSummary {
	return &DoctorSummary{
		ID:             d.ID,
		User:           d.User,
		Specialization: d.Specialization,
	}
}
