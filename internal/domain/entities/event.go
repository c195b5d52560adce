package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PortalEventType names an event delivered over the push channel
type PortalEventType string

const (
	EventAppointmentCreated  PortalEventType = "appointment_created"
	EventAppointmentUpdated  PortalEventType = "appointment_updated"
	EventConsultationStarted PortalEventType = "consultationStarted"
	EventConsultationEnded   PortalEventType = "consultationEnded"
	EventPrescriptionCreated PortalEventType = "prescriptionCreated"
)

// Push-channel topic names
const (
	TopicStaff         = "staff"
	TopicPatientPrefix = "patient:"
	TopicDoctorPrefix  = "doctor:"
)

// PatientTopic returns the topic a patient's dashboard subscribes to
func PatientTopic(patientID string) string {
	return TopicPatientPrefix + patientID
}

// DoctorTopic returns the topic a doctor's dashboard subscribes to
func DoctorTopic(doctorID string) string {
	return TopicDoctorPrefix + doctorID
}

// PortalEvent is a real-time update about an appointment, consultation or prescription
type PortalEvent struct {
	ID             string          `json:"id"`
	Type           PortalEventType `json:"type"`
	Topics         []string        `json:"topics,omitempty"`
	AppointmentID  string          `json:"appointment_id,omitempty"`
	ConsultationID string          `json:"consultation_id,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// NewPortalEvent creates an event addressed to the patient, the doctor and staff
func NewPortalEvent(eventType PortalEventType, appointmentID, patientID, doctorID string, payload interface{}) (*PortalEvent, error) {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = raw
	}

	topics := []string{TopicStaff}
	if patientID != "" {
		topics = append(topics, PatientTopic(patientID))
	}
	if doctorID != "" {
		topics = append(topics, DoctorTopic(doctorID))
	}

	return &PortalEvent{
		ID:            uuid.New().String(),
		Type:          eventType,
		Topics:        topics,
		AppointmentID: appointmentID,
		Data:          data,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// DecodeAppointment unmarshals the event payload as an appointment
func (e *PortalEvent) DecodeAppointment() (*Appointment, error) {
	if len(e.Data) == 0 {
		return nil, nil
	}
	var appt Appointment
	if err := json.Unmarshal(e.Data, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

// DashboardStats are the aggregate counts shown on dashboards
type DashboardStats struct {
	TotalAppointments   int       `json:"total_appointments"`
	Pending             int       `json:"pending"`
	Upcoming            int       `json:"upcoming"`
	Completed           int       `json:"completed"`
	Cancelled           int       `json:"cancelled"`
	Prescriptions       int       `json:"prescriptions"`
	ActiveConsultations int       `json:"active_consultations"`
	GeneratedAt         time.Time `json:"generated_at"`
}

// StatsScope narrows stats to one patient or doctor; empty means clinic-wide
type StatsScope struct {
	PatientID string
	DoctorID  string
}
