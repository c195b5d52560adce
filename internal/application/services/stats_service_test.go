package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/patientcare/backend/internal/application/services"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
)

func TestStatsService_DashboardStats(t *testing.T) {
	appts := new(MockAppointmentRepository)
	prescriptions := new(MockPrescriptionRepository)
	cache := NewMockCacheProvider()
	service := services.NewStatsService(appts, prescriptions, cache, 30*time.Second)
	scope := entities.StatsScope{PatientID: "pat-1"}

	appts.On("CountByStatus", mock.Anything, scope).Return(map[entities.AppointmentStatus]int{
		entities.AppointmentStatusPending:   2,
		entities.AppointmentStatusScheduled: 1,
		entities.AppointmentStatusConfirmed: 3,
		entities.AppointmentStatusCompleted: 4,
		entities.AppointmentStatusCancelled: 1,
		entities.AppointmentStatusNoShow:    1,
	}, nil).Once()
	appts.On("CountActiveConsultations", mock.Anything, scope).Return(1, nil).Once()
	prescriptions.On("Count", mock.Anything, scope).Return(5, nil).Once()

	stats, err := service.DashboardStats(context.Background(), scope)
	require.NoError(t, err)

	assert.Equal(t, 12, stats.TotalAppointments)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 4, stats.Upcoming)
	assert.Equal(t, 4, stats.Completed)
	assert.Equal(t, 1, stats.Cancelled)
	assert.Equal(t, 5, stats.Prescriptions)
	assert.Equal(t, 1, stats.ActiveConsultations)
	assert.True(t, cache.Has("stats:patient:pat-1"))

	cached, err := service.DashboardStats(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, stats.TotalAppointments, cached.TotalAppointments)
	appts.AssertNumberOfCalls(t, "CountByStatus", 1)
}

func TestStatsService_DashboardStats_Error(t *testing.T) {
	appts := new(MockAppointmentRepository)
	prescriptions := new(MockPrescriptionRepository)
	service := services.NewStatsService(appts, prescriptions, nil, 0)
	scope := entities.StatsScope{}

	appts.On("CountByStatus", mock.Anything, scope).Return(nil, errors.New("db down"))
	appts.On("CountActiveConsultations", mock.Anything, scope).Return(0, nil)
	prescriptions.On("Count", mock.Anything, scope).Return(0, nil)

	_, err := service.DashboardStats(context.Background(), scope)

	assert.EqualError(t, err, "db down")
}

func TestStatsCacheKey(t *testing.T) {
	assert.Equal(t, "stats:all", services.StatsCacheKey(entities.StatsScope{}))
	assert.Equal(t, "stats:patient:p1", services.StatsCacheKey(entities.StatsScope{PatientID: "p1"}))
	assert.Equal(t, "stats:doctor:d1", services.StatsCacheKey(entities.StatsScope{DoctorID: "d1"}))
}
