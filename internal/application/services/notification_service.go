package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/providers"
)

// DefaultReceiptTemplate is the WhatsApp receipt body
const DefaultReceiptTemplate = "Hi {{patient_name}}, we received {{currency}} {{amount}} for your consultation{{#if doctor_name}} with {{doctor_name}}{{/if}}. Payment ID: {{payment_id}}, order {{order_id}}, paid {{paid_at}}."

// NotificationService sends payment receipts and keeps a delivery log
type NotificationService struct {
	db       *sqlx.DB
	sender   providers.ReceiptSender
	template string
}

// NewNotificationService creates a new notification service. db may be nil,
// in which case delivery attempts are only logged.
func NewNotificationService(db *sqlx.DB, sender providers.ReceiptSender) *NotificationService {
	return &NotificationService{
		db:       db,
		sender:   sender,
		template: DefaultReceiptTemplate,
	}
}

// ReceiptContext contains all data needed for receipt rendering
type ReceiptContext struct {
	PatientName  string
	PatientPhone string
	DoctorName   string
	Amount       string
	Currency     string
	PaymentID    string
	OrderID      string
	PaidAt       string
}

// NewReceiptContext builds the render context for a verified payment
func NewReceiptContext(record *entities.PaymentRecord, patientName, phone, doctorName string) *ReceiptContext {
	if patientName == "" {
		patientName = "there"
	}
	return &ReceiptContext{
		PatientName:  patientName,
		PatientPhone: phone,
		DoctorName:   doctorName,
		Amount:       decimal.New(record.Amount, -2).StringFixed(2),
		Currency:     record.Currency,
		PaymentID:    record.PaymentID,
		OrderID:      record.OrderID,
		PaidAt:       record.VerifiedAt.Format("Jan 2, 2006 3:04 PM"),
	}
}

// SendPaymentReceipt renders and delivers a receipt. A missing phone number
// is recorded as skipped, not an error.
func (n *NotificationService) SendPaymentReceipt(ctx context.Context, receipt *ReceiptContext) error {
	notification := &entities.ReceiptNotification{
		ID:        uuid.New().String(),
		PaymentID: receipt.PaymentID,
		OrderID:   receipt.OrderID,
		Channel:   entities.ChannelWhatsApp,
		Recipient: receipt.PatientPhone,
		CreatedAt: time.Now().UTC(),
	}

	var sendErr error
	if strings.TrimSpace(receipt.PatientPhone) == "" {
		notification.Status = entities.NotificationStatusSkipped
	} else {
		body := n.renderTemplate(n.template, receipt)
		messageID, err := n.sender.SendText(ctx, receipt.PatientPhone, body)
		if err != nil {
			errMsg := err.Error()
			notification.Status = entities.NotificationStatusFailed
			notification.ErrorMessage = &errMsg
			sendErr = fmt.Errorf("failed to send receipt: %w", err)
		} else {
			notification.Status = entities.NotificationStatusSent
			if messageID != "" {
				notification.MessageID = &messageID
			}
		}
	}

	if err := n.recordNotification(ctx, notification); err != nil {
		log.Warn().Err(err).Str("payment_id", receipt.PaymentID).Msg("failed to record receipt notification")
	}

	return sendErr
}

// renderTemplate replaces placeholders in template
func (n *NotificationService) renderTemplate(template string, ctx *ReceiptContext) string {
	replacements := map[string]string{
		"{{patient_name}}": ctx.PatientName,
		"{{doctor_name}}":  ctx.DoctorName,
		"{{amount}}":       ctx.Amount,
		"{{currency}}":     ctx.Currency,
		"{{payment_id}}":   ctx.PaymentID,
		"{{order_id}}":     ctx.OrderID,
		"{{paid_at}}":      ctx.PaidAt,
	}

	if ctx.DoctorName != "" {
		template = strings.ReplaceAll(template, "{{#if doctor_name}}", "")
		template = strings.ReplaceAll(template, "{{/if}}", "")
	} else {
		start := strings.Index(template, "{{#if doctor_name}}")
		if start >= 0 {
			end := strings.Index(template[start:], "{{/if}}")
			if end >= 0 {
				template = template[:start] + template[start+end+len("{{/if}}"):]
			}
		}
	}

	result := template
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

func (n *NotificationService) recordNotification(ctx context.Context, notification *entities.ReceiptNotification) error {
	if n.db == nil {
		log.Info().
			Str("payment_id", notification.PaymentID).
			Str("status", string(notification.Status)).
			Msg("receipt notification")
		return nil
	}

	query := `
		INSERT INTO receipt_notifications
		(id, payment_id, order_id, channel, recipient, status, message_id, error_message, created_at)
		VALUES (:id, :payment_id, :order_id, :channel, :recipient, :status, :message_id, :error_message, :created_at)
	`
	_, err := n.db.NamedExecContext(ctx, query, notification)
	return err
}

// ListReceipts returns the delivery log for a payment, oldest first
func (n *NotificationService) ListReceipts(ctx context.Context, paymentID string) ([]entities.ReceiptNotification, error) {
	if n.db == nil {
		return nil, nil
	}
	var out []entities.ReceiptNotification
	query := `SELECT id, payment_id, order_id, channel, recipient, status, message_id, error_message, created_at
		FROM receipt_notifications WHERE payment_id = $1 ORDER BY created_at`
	if err := n.db.SelectContext(ctx, &out, query, paymentID); err != nil {
		return nil, err
	}
	return out, nil
}
