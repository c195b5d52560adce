package services_test

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/providers"
	"github.com/zatekoja/patientcare/backend/internal/domain/repositories"
)

// Mocks

type MockAppointmentRepository struct {
	mock.Mock
}

func (m *MockAppointmentRepository) Create(ctx context.Context, appointment *entities.Appointment) error {
	args := m.Called(ctx, appointment)
	return args.Error(0)
}

func (m *MockAppointmentRepository) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) List(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) UpdateStatus(ctx context.Context, id string, from, to entities.AppointmentStatus, cancellationReason *string) error {
	args := m.Called(ctx, id, from, to, cancellationReason)
	return args.Error(0)
}

func (m *MockAppointmentRepository) SetConsultationActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockAppointmentRepository) CountByStatus(ctx context.Context, scope entities.StatsScope) (map[entities.AppointmentStatus]int, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[entities.AppointmentStatus]int), args.Error(1)
}

func (m *MockAppointmentRepository) CountActiveConsultations(ctx context.Context, scope entities.StatsScope) (int, error) {
	args := m.Called(ctx, scope)
	return args.Int(0), args.Error(1)
}

type MockDoctorRepository struct {
	mock.Mock
}

func (m *MockDoctorRepository) List(ctx context.Context, limit int) ([]*entities.Doctor, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Doctor), args.Error(1)
}

func (m *MockDoctorRepository) GetByID(ctx context.Context, id string) (*entities.Doctor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Doctor), args.Error(1)
}

func (m *MockDoctorRepository) GetByIDs(ctx context.Context, ids []string) ([]*entities.Doctor, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Doctor), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) SaveOrder(ctx context.Context, order *entities.PaymentOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetOrder(ctx context.Context, orderID string) (*entities.PaymentOrder, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentOrder), args.Error(1)
}

func (m *MockPaymentRepository) Create(ctx context.Context, record *entities.PaymentRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*entities.PaymentRecord, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentRecord), args.Error(1)
}

func (m *MockPaymentRepository) LinkAppointment(ctx context.Context, paymentID, appointmentID string) error {
	args := m.Called(ctx, paymentID, appointmentID)
	return args.Error(0)
}

func (m *MockPaymentRepository) ListUnreconciled(ctx context.Context, verifiedBefore time.Time, limit int) ([]*entities.PaymentRecord, error) {
	args := m.Called(ctx, verifiedBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PaymentRecord), args.Error(1)
}

type MockPrescriptionRepository struct {
	mock.Mock
}

func (m *MockPrescriptionRepository) Create(ctx context.Context, prescription *entities.Prescription) error {
	args := m.Called(ctx, prescription)
	return args.Error(0)
}

func (m *MockPrescriptionRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]*entities.Prescription, error) {
	args := m.Called(ctx, patientID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Prescription), args.Error(1)
}

func (m *MockPrescriptionRepository) Count(ctx context.Context, scope entities.StatsScope) (int, error) {
	args := m.Called(ctx, scope)
	return args.Int(0), args.Error(1)
}

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*entities.PaymentOrder, error) {
	args := m.Called(ctx, amount, currency, receipt, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentOrder), args.Error(1)
}

func (m *MockPaymentGateway) VerifySignature(confirmation entities.PaymentConfirmation) bool {
	args := m.Called(confirmation)
	return args.Bool(0)
}

func (m *MockPaymentGateway) KeyID() string {
	return "rzp_test_key"
}

// MockCacheProvider for testing
type MockCacheProvider struct {
	mu      sync.RWMutex
	data    map[string][]byte
	deleted []string
}

func NewMockCacheProvider() *MockCacheProvider {
	return &MockCacheProvider{data: make(map[string][]byte)}
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if val, ok := m.data[key]; ok {
		return val, nil
	}
	return nil, providers.ErrCacheMiss
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *MockCacheProvider) DeletePattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.data {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.data, key)
			m.deleted = append(m.deleted, key)
		}
	}
	return nil
}

func (m *MockCacheProvider) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok
}

func (m *MockCacheProvider) Deleted() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.deleted...)
}

// recordingBus captures published events
type recordingBus struct {
	mu        sync.Mutex
	published []*entities.PortalEvent
}

func (b *recordingBus) Publish(_ context.Context, _ string, event *entities.PortalEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context, _ string) (<-chan *entities.PortalEvent, error) {
	ch := make(chan *entities.PortalEvent)
	return ch, nil
}

func (b *recordingBus) Unsubscribe(context.Context, string) error { return nil }

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) Events() []*entities.PortalEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*entities.PortalEvent(nil), b.published...)
}
