package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
)

// Stage is one step of the booking wizard
type Stage int

const (
	StageSelectDoctor Stage = iota
	StageScheduleTime
	StagePayment
)

func (s Stage) String() string {
	switch s {
	case StageSelectDoctor:
		return "select-doctor"
	case StageScheduleTime:
		return "schedule-time"
	case StagePayment:
		return "payment"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

var (
	// ErrStageIncomplete is returned when moving forward with required fields empty
	ErrStageIncomplete = errors.New("stage is incomplete")
	// ErrNotAtPayment is returned when submission is requested before the payment stage
	ErrNotAtPayment = errors.New("submission is only possible from the payment stage")
	// ErrDateInPast is returned when the chosen date is before today
	ErrDateInPast = errors.New("date must be today or later")
)

// DoctorStep holds the first stage's fields
type DoctorStep struct {
	DoctorID string
	Reason   string
	Notes    string
	Type     entities.AppointmentType
}

// Complete reports whether the stage may be left forward
func (s DoctorStep) Complete() bool {
	return strings.TrimSpace(s.DoctorID) != "" && strings.TrimSpace(s.Reason) != ""
}

// ScheduleStep holds the second stage's fields
type ScheduleStep struct {
	Date string
	Time string
}

// Complete reports whether the stage may be left forward
func (s ScheduleStep) Complete() bool {
	return strings.TrimSpace(s.Date) != "" && strings.TrimSpace(s.Time) != ""
}

// PaymentStep holds the final stage's fields
type PaymentStep struct {
	Mode entities.PaymentMode
}

// Submission is a completed form ready for the coordinator
type Submission struct {
	DoctorID    string
	Date        string
	Time        string
	Reason      string
	Notes       string
	Type        entities.AppointmentType
	PaymentMode entities.PaymentMode
}

// Form is the three-stage booking wizard. It is not safe for concurrent use;
// the owning view drives it from one goroutine.
type Form struct {
	stage    Stage
	doctor   DoctorStep
	schedule ScheduleStep
	payment  PaymentStep
	now      func() time.Time
}

// NewForm creates a form at the first stage. now may be nil.
func NewForm(now func() time.Time) *Form {
	if now == nil {
		now = time.Now
	}
	f := &Form{now: now}
	f.Reset()
	return f
}

// Stage returns the current stage
func (f *Form) Stage() Stage { return f.stage }

// Doctor returns the first stage's fields
func (f *Form) Doctor() DoctorStep { return f.doctor }

// Schedule returns the second stage's fields
func (f *Form) Schedule() ScheduleStep { return f.schedule }

// Payment returns the final stage's fields
func (f *Form) Payment() PaymentStep { return f.payment }

// SetDoctor replaces the first stage's fields
func (f *Form) SetDoctor(step DoctorStep) {
	if step.Type == "" {
		step.Type = entities.AppointmentTypeInPerson
	}
	f.doctor = step
}

// MinDate is the earliest selectable date
func (f *Form) MinDate() string {
	return f.now().Format(entities.DateLayout)
}

// SetSchedule replaces the second stage's fields. Like a date input
// restricted to today-or-later, it rejects malformed or past values and
// leaves the previous values in place.
func (f *Form) SetSchedule(step ScheduleStep) error {
	if step.Date != "" {
		day, err := time.Parse(entities.DateLayout, step.Date)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", step.Date, err)
		}
		if day.Format(entities.DateLayout) < f.MinDate() {
			return ErrDateInPast
		}
	}
	if step.Time != "" {
		if _, err := time.Parse(entities.TimeLayout, step.Time); err != nil {
			return fmt.Errorf("invalid time %q: %w", step.Time, err)
		}
	}
	f.schedule = step
	return nil
}

// SetPaymentMode selects how the consultation is paid
func (f *Form) SetPaymentMode(mode entities.PaymentMode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid payment mode %q", mode)
	}
	f.payment.Mode = mode
	return nil
}

// CanAdvance reports whether Next would succeed
func (f *Form) CanAdvance() bool {
	switch f.stage {
	case StageSelectDoctor:
		return f.doctor.Complete()
	case StageScheduleTime:
		return f.schedule.Complete() && !f.dateStale()
	default:
		return false
	}
}

// dateStale reports whether the chosen date fell behind MinDate after it was
// set, e.g. when the form stayed open past midnight
func (f *Form) dateStale() bool {
	return f.schedule.Date != "" && f.schedule.Date < f.MinDate()
}

// Next moves one stage forward when the current stage is complete
func (f *Form) Next() error {
	if f.stage == StagePayment {
		return fmt.Errorf("%w: already at the last stage", ErrStageIncomplete)
	}
	if f.stage == StageScheduleTime && f.dateStale() {
		return ErrDateInPast
	}
	if !f.CanAdvance() {
		return fmt.Errorf("%w: %s", ErrStageIncomplete, f.stage)
	}
	f.stage++
	return nil
}

// Back moves one stage backward, keeping entered values
func (f *Form) Back() {
	if f.stage > StageSelectDoctor {
		f.stage--
	}
}

// CanSubmit reports whether Submission would succeed
func (f *Form) CanSubmit() bool {
	return f.stage == StagePayment &&
		f.doctor.Complete() &&
		f.schedule.Complete() &&
		!f.dateStale() &&
		f.payment.Mode.Valid()
}

// Submission returns the completed form
func (f *Form) Submission() (Submission, error) {
	if f.stage != StagePayment {
		return Submission{}, ErrNotAtPayment
	}
	if !f.CanSubmit() {
		return Submission{}, ErrStageIncomplete
	}
	return Submission{
		DoctorID:    f.doctor.DoctorID,
		Date:        f.schedule.Date,
		Time:        f.schedule.Time,
		Reason:      f.doctor.Reason,
		Notes:       f.doctor.Notes,
		Type:        f.doctor.Type,
		PaymentMode: f.payment.Mode,
	}, nil
}

// Reset returns to the first stage with every field cleared
func (f *Form) Reset() {
	f.stage = StageSelectDoctor
	f.doctor = DoctorStep{Type: entities.AppointmentTypeInPerson}
	f.schedule = ScheduleStep{}
	f.payment = PaymentStep{Mode: entities.PaymentModeOffline}
}
