package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/patientcare/backend/internal/application/services"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
)

func TestDoctorService_List_ReadThrough(t *testing.T) {
	repo := new(MockDoctorRepository)
	cache := NewMockCacheProvider()
	service := services.NewDoctorService(repo, cache, 5*time.Minute)

	repo.On("List", mock.Anything, 100).Return([]*entities.Doctor{testDoctor()}, nil).Once()

	first, err := service.List(context.Background(), 0)
	require.NoError(t, err)
	second, err := service.List(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, "Dr. Asha Rao", second[0].User.Name)
	repo.AssertNumberOfCalls(t, "List", 1)

	require.NoError(t, service.InvalidateList(context.Background()))
	assert.False(t, cache.Has("doctors:list:100"))
}

func TestDoctorService_List_WithoutCache(t *testing.T) {
	repo := new(MockDoctorRepository)
	service := services.NewDoctorService(repo, nil, 0)
	repo.On("List", mock.Anything, 500).Return([]*entities.Doctor{}, nil)

	doctors, err := service.List(context.Background(), 10000)

	require.NoError(t, err)
	assert.Empty(t, doctors)
	assert.NoError(t, service.InvalidateList(context.Background()))
}
