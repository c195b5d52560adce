package entities

import "time"

// Medication is one line of a prescription
type Medication struct {
	Name      string `json:"name" validate:"required"`
	Dosage    string `json:"dosage" validate:"required"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

// Prescription is issued by a doctor at the end of a consultation
type Prescription struct {
	ID            string       `json:"id" db:"id"`
	AppointmentID string       `json:"appointment_id" db:"appointment_id" validate:"required"`
	PatientID     string       `json:"patient_id" db:"patient_id"`
	DoctorID      string       `json:"doctor_id" db:"doctor_id"`
	Medications   []Medication `json:"medications" db:"medications" validate:"required,min=1,dive"`
	Notes         string       `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}
