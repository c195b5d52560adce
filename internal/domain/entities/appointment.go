package entities

import (
	"fmt"
	"time"
)

// Date and time layouts used on the wire and in the booking form
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// AppointmentStatus represents the lifecycle status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no-show"
)

// allowedTransitions is the status graph; statuses absent as keys are terminal.
var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending: {
		AppointmentStatusScheduled,
		AppointmentStatusConfirmed,
		AppointmentStatusCancelled,
	},
	AppointmentStatusScheduled: {
		AppointmentStatusConfirmed,
		AppointmentStatusCompleted,
		AppointmentStatusCancelled,
		AppointmentStatusNoShow,
	},
	AppointmentStatusConfirmed: {
		AppointmentStatusCompleted,
		AppointmentStatusCancelled,
		AppointmentStatusNoShow,
	},
}

// Valid reports whether s is a known status
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusScheduled, AppointmentStatusConfirmed,
		AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible
func (s AppointmentStatus) Terminal() bool {
	_, ok := allowedTransitions[s]
	return !ok
}

// CanTransitionTo reports whether the status graph allows s -> next
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AppointmentType is the consultation medium
type AppointmentType string

const (
	AppointmentTypeVideo    AppointmentType = "video"
	AppointmentTypePhone    AppointmentType = "phone"
	AppointmentTypeInPerson AppointmentType = "in-person"
)

// Valid reports whether t is a known appointment type
func (t AppointmentType) Valid() bool {
	switch t {
	case AppointmentTypeVideo, AppointmentTypePhone, AppointmentTypeInPerson:
		return true
	}
	return false
}

// PaymentMode says whether the consultation is paid online before booking or at the clinic
type PaymentMode string

const (
	PaymentModeOnline  PaymentMode = "online"
	PaymentModeOffline PaymentMode = "offline"
)

// Valid reports whether m is a known payment mode
func (m PaymentMode) Valid() bool {
	return m == PaymentModeOnline || m == PaymentModeOffline
}

// PatientSummary is the nested patient view embedded in appointment payloads
type PatientSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// DoctorSummary is the nested doctor view embedded in appointment payloads
type DoctorSummary struct {
	ID             string      `json:"id"`
	User           UserProfile `json:"user"`
	Specialization string      `json:"specialization"`
}

// Appointment is a scheduled patient-doctor encounter
type Appointment struct {
	ID                 string               `json:"id" db:"id"`
	PatientID          string               `json:"patient_id" db:"patient_id"`
	DoctorID           string               `json:"doctor_id" db:"doctor_id"`
	Patient            *PatientSummary      `json:"patient,omitempty"`
	Doctor             *DoctorSummary       `json:"doctor,omitempty"`
	Date               string               `json:"date" db:"date"`
	Time               string               `json:"time" db:"time"`
	Reason             string               `json:"reason" db:"reason"`
	Notes              string               `json:"notes,omitempty" db:"notes"`
	Type               AppointmentType      `json:"type" db:"type"`
	PaymentMode        PaymentMode          `json:"payment_mode" db:"payment_mode"`
	Status             AppointmentStatus    `json:"status" db:"status"`
	CancellationReason *string              `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	PaymentDetails     *PaymentConfirmation `json:"payment_details,omitempty" db:"payment_details"`
	ConsultationActive bool                 `json:"consultation_active" db:"consultation_active"`
	CreatedAt          time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at" db:"updated_at"`
}

// ScheduledAt combines Date and Time in the given location
func (a *Appointment) ScheduledAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, a.Date+" "+a.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid appointment date/time %q %q: %w", a.Date, a.Time, err)
	}
	return t, nil
}

// DoctorName returns the nested doctor's full name, if loaded
func (a *Appointment) DoctorName() string {
	if a.Doctor == nil {
		return ""
	}
	return a.Doctor.User.Name
}

// DoctorSpecialization returns the nested doctor's specialization, if loaded
func (a *Appointment) DoctorSpecialization() string {
	if a.Doctor == nil {
		return ""
	}
	return a.Doctor.Specialization
}

// CreateAppointmentRequest is the body of POST /api/appointments
type CreateAppointmentRequest struct {
	PatientID      string               `json:"patient_id" validate:"required"`
	DoctorID       string               `json:"doctor_id" validate:"required"`
	Date           string               `json:"date" validate:"required,datetime=2006-01-02"`
	Time           string               `json:"time" validate:"required,datetime=15:04"`
	Reason         string               `json:"reason" validate:"required"`
	Notes          string               `json:"notes"`
	Type           AppointmentType      `json:"type" validate:"omitempty,oneof=video phone in-person"`
	PaymentMode    PaymentMode          `json:"payment_mode" validate:"required,oneof=online offline"`
	PaymentDetails *PaymentConfirmation `json:"payment_details,omitempty"`
}

// StatusUpdateRequest is the body of PATCH /api/appointments/{id}/status
type StatusUpdateRequest struct {
	Status             AppointmentStatus `json:"status" validate:"required"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`
}
