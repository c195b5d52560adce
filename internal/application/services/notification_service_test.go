package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	db := sqlx.NewDb(mockDB, "postgres")
	return db, mock
}

type stubSender struct {
	to, body string
	id       string
	err      error
}

func (s *stubSender) SendText(_ context.Context, to, body string) (string, error) {
	s.to, s.body = to, body
	return s.id, s.err
}

func testReceipt(phone string) *ReceiptContext {
	return NewReceiptContext(&entities.PaymentRecord{
		OrderID:    "order_1",
		PaymentID:  "pay_1",
		Amount:     50000,
		Currency:   "INR",
		VerifiedAt: time.Date(2026, 3, 4, 14, 5, 0, 0, time.UTC),
	}, "Meera", phone, "Dr. Asha Rao")
}

func TestNotificationService_RenderTemplate(t *testing.T) {
	service := &NotificationService{}

	tests := []struct {
		name     string
		template string
		context  *ReceiptContext
		want     string
	}{
		{
			name:     "Replace all placeholders",
			template: DefaultReceiptTemplate,
			context:  testReceipt("+919800000000"),
			want:     "Hi Meera, we received INR 500.00 for your consultation with Dr. Asha Rao. Payment ID: pay_1, order order_1, paid Mar 4, 2026 2:05 PM.",
		},
		{
			name:     "Drop doctor section when unknown",
			template: DefaultReceiptTemplate,
			context: &ReceiptContext{
				PatientName: "there",
				Amount:      "1.50",
				Currency:    "INR",
				PaymentID:   "pay_2",
				OrderID:     "order_2",
				PaidAt:      "today",
			},
			want: "Hi there, we received INR 1.50 for your consultation. Payment ID: pay_2, order order_2, paid today.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, service.renderTemplate(tt.template, tt.context))
		})
	}
}

func TestNotificationService_SendPaymentReceipt(t *testing.T) {
	t.Run("sent receipts are logged with the message id", func(t *testing.T) {
		db, mock := setupMockDB(t)
		defer db.Close()
		sender := &stubSender{id: "wamid.1"}
		service := NewNotificationService(db, sender)

		mock.ExpectExec("INSERT INTO receipt_notifications").
			WithArgs(sqlmock.AnyArg(), "pay_1", "order_1", "whatsapp", "+919800000000", "sent", "wamid.1", nil, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := service.SendPaymentReceipt(context.Background(), testReceipt("+919800000000"))

		require.NoError(t, err)
		assert.Equal(t, "+919800000000", sender.to)
		assert.Contains(t, sender.body, "INR 500.00")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("send failure is logged and returned", func(t *testing.T) {
		db, mock := setupMockDB(t)
		defer db.Close()
		service := NewNotificationService(db, &stubSender{err: errors.New("rate limited")})

		mock.ExpectExec("INSERT INTO receipt_notifications").
			WithArgs(sqlmock.AnyArg(), "pay_1", "order_1", "whatsapp", "+919800000000", "failed", nil, "rate limited", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := service.SendPaymentReceipt(context.Background(), testReceipt("+919800000000"))

		assert.ErrorContains(t, err, "rate limited")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing phone is skipped", func(t *testing.T) {
		db, mock := setupMockDB(t)
		defer db.Close()
		sender := &stubSender{}
		service := NewNotificationService(db, sender)

		mock.ExpectExec("INSERT INTO receipt_notifications").
			WithArgs(sqlmock.AnyArg(), "pay_1", "order_1", "whatsapp", "", "skipped", nil, nil, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		require.NoError(t, service.SendPaymentReceipt(context.Background(), testReceipt("")))
		assert.Empty(t, sender.body)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("log write failure does not fail delivery", func(t *testing.T) {
		db, mock := setupMockDB(t)
		defer db.Close()
		service := NewNotificationService(db, &stubSender{id: "wamid.2"})

		mock.ExpectExec("INSERT INTO receipt_notifications").WillReturnError(errors.New("disk full"))

		assert.NoError(t, service.SendPaymentReceipt(context.Background(), testReceipt("+919800000000")))
	})

	t.Run("without a database", func(t *testing.T) {
		service := NewNotificationService(nil, &stubSender{})
		assert.NoError(t, service.SendPaymentReceipt(context.Background(), testReceipt("+919800000000")))
	})
}

func TestNotificationService_ListReceipts(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	service := NewNotificationService(db, &stubSender{})

	rows := sqlmock.NewRows([]string{"id", "payment_id", "order_id", "channel", "recipient", "status", "message_id", "error_message", "created_at"}).
		AddRow("n1", "pay_1", "order_1", "whatsapp", "+919800000000", "sent", "wamid.1", nil, time.Now())
	mock.ExpectQuery("SELECT (.+) FROM receipt_notifications WHERE payment_id = \\$1").
		WithArgs("pay_1").
		WillReturnRows(rows)

	list, err := service.ListReceipts(context.Background(), "pay_1")

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entities.NotificationStatusSent, list[0].Status)
	require.NotNil(t, list[0].MessageID)
	assert.Equal(t, "wamid.1", *list[0].MessageID)
}
