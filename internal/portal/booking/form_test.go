package booking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/portal/booking"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
}

func filledForm(t *testing.T) *booking.Form {
	t.Helper()
	f := booking.NewForm(fixedNow)
	f.SetDoctor(booking.DoctorStep{DoctorID: "doc-1", Reason: "Checkup"})
	require.NoError(t, f.Next())
	require.NoError(t, f.SetSchedule(booking.ScheduleStep{Date: "2026-03-11", Time: "10:00"}))
	require.NoError(t, f.Next())
	return f
}

func TestForm_StageGating(t *testing.T) {
	t.Run("cannot leave doctor stage without doctor and reason", func(t *testing.T) {
		f := booking.NewForm(fixedNow)
		assert.ErrorIs(t, f.Next(), booking.ErrStageIncomplete)

		f.SetDoctor(booking.DoctorStep{DoctorID: "doc-1"})
		assert.ErrorIs(t, f.Next(), booking.ErrStageIncomplete)

		f.SetDoctor(booking.DoctorStep{DoctorID: "doc-1", Reason: "   "})
		assert.ErrorIs(t, f.Next(), booking.ErrStageIncomplete)
		assert.Equal(t, booking.StageSelectDoctor, f.Stage())
	})

	t.Run("cannot leave schedule stage without date and time", func(t *testing.T) {
		f := booking.NewForm(fixedNow)
		f.SetDoctor(booking.DoctorStep{DoctorID: "doc-1", Reason: "Checkup"})
		require.NoError(t, f.Next())

		require.NoError(t, f.SetSchedule(booking.ScheduleStep{Date: "2026-03-11"}))
		assert.ErrorIs(t, f.Next(), booking.ErrStageIncomplete)
		assert.Equal(t, booking.StageScheduleTime, f.Stage())
	})

	t.Run("reaches payment with default offline mode", func(t *testing.T) {
		f := filledForm(t)
		assert.Equal(t, booking.StagePayment, f.Stage())
		assert.Equal(t, entities.PaymentModeOffline, f.Payment().Mode)
		assert.True(t, f.CanSubmit())
		assert.Error(t, f.Next())
	})
}

func TestForm_BackKeepsValues(t *testing.T) {
	f := filledForm(t)

	f.Back()
	assert.Equal(t, booking.StageScheduleTime, f.Stage())
	f.Back()
	assert.Equal(t, booking.StageSelectDoctor, f.Stage())
	f.Back()
	assert.Equal(t, booking.StageSelectDoctor, f.Stage())

	assert.Equal(t, "doc-1", f.Doctor().DoctorID)
	assert.Equal(t, "2026-03-11", f.Schedule().Date)

	require.NoError(t, f.Next())
	require.NoError(t, f.Next())
	assert.Equal(t, booking.StagePayment, f.Stage())
}

func TestForm_SetSchedule(t *testing.T) {
	f := booking.NewForm(fixedNow)
	assert.Equal(t, "2026-03-10", f.MinDate())

	assert.ErrorIs(t, f.SetSchedule(booking.ScheduleStep{Date: "2026-03-09", Time: "10:00"}), booking.ErrDateInPast)
	assert.Error(t, f.SetSchedule(booking.ScheduleStep{Date: "10/03/2026", Time: "10:00"}))
	assert.Error(t, f.SetSchedule(booking.ScheduleStep{Date: "2026-03-10", Time: "25:00"}))
	assert.Empty(t, f.Schedule().Date)

	assert.NoError(t, f.SetSchedule(booking.ScheduleStep{Date: "2026-03-10", Time: "18:15"}))
	assert.Equal(t, "18:15", f.Schedule().Time)
}

func TestForm_DateGoesStaleOvernight(t *testing.T) {
	now := fixedNow()
	f := booking.NewForm(func() time.Time { return now })
	f.SetDoctor(booking.DoctorStep{DoctorID: "doc-1", Reason: "Checkup"})
	require.NoError(t, f.Next())
	require.NoError(t, f.SetSchedule(booking.ScheduleStep{Date: "2026-03-10", Time: "23:30"}))
	assert.True(t, f.CanAdvance())

	now = now.Add(15 * time.Hour)
	assert.Equal(t, "2026-03-11", f.MinDate())
	assert.False(t, f.CanAdvance())
	assert.ErrorIs(t, f.Next(), booking.ErrDateInPast)
	assert.Equal(t, booking.StageScheduleTime, f.Stage())

	require.NoError(t, f.SetSchedule(booking.ScheduleStep{Date: "2026-03-11", Time: "10:00"}))
	require.NoError(t, f.Next())
	assert.True(t, f.CanSubmit())

	now = now.Add(24 * time.Hour)
	assert.False(t, f.CanSubmit())
	_, err := f.Submission()
	assert.ErrorIs(t, err, booking.ErrStageIncomplete)
}

func TestForm_Submission(t *testing.T) {
	t.Run("not reachable before payment stage", func(t *testing.T) {
		f := booking.NewForm(fixedNow)
		f.SetDoctor(booking.DoctorStep{DoctorID: "doc-1", Reason: "Checkup"})
		_, err := f.Submission()
		assert.ErrorIs(t, err, booking.ErrNotAtPayment)
	})

	t.Run("carries every field", func(t *testing.T) {
		f := filledForm(t)
		require.NoError(t, f.SetPaymentMode(entities.PaymentModeOnline))

		sub, err := f.Submission()
		require.NoError(t, err)
		assert.Equal(t, booking.Submission{
			DoctorID:    "doc-1",
			Date:        "2026-03-11",
			Time:        "10:00",
			Reason:      "Checkup",
			Type:        entities.AppointmentTypeInPerson,
			PaymentMode: entities.PaymentModeOnline,
		}, sub)
	})

	t.Run("rejects unknown payment mode", func(t *testing.T) {
		f := filledForm(t)
		assert.Error(t, f.SetPaymentMode("cash"))
		assert.Equal(t, entities.PaymentModeOffline, f.Payment().Mode)
	})
}

func TestForm_Reset(t *testing.T) {
	f := filledForm(t)
	require.NoError(t, f.SetPaymentMode(entities.PaymentModeOnline))

	f.Reset()

	assert.Equal(t, booking.StageSelectDoctor, f.Stage())
	assert.Empty(t, f.Doctor().DoctorID)
	assert.Empty(t, f.Schedule().Date)
	assert.Equal(t, entities.PaymentModeOffline, f.Payment().Mode)
	assert.False(t, f.CanSubmit())
}
