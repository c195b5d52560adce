package entities

import "time"

// NotificationChannel represents the delivery channel
type NotificationChannel string

const (
	ChannelWhatsApp NotificationChannel = "whatsapp"
)

// NotificationStatus represents the delivery status
type NotificationStatus string

const (
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
	NotificationStatusSkipped NotificationStatus = "skipped"
)

// ReceiptNotification records one payment receipt delivery attempt
type ReceiptNotification struct {
	ID           string              `json:"id" db:"id"`
	PaymentID    string              `json:"payment_id" db:"payment_id"`
	OrderID      string              `json:"order_id" db:"order_id"`
	Channel      NotificationChannel `json:"channel" db:"channel"`
	Recipient    string              `json:"recipient" db:"recipient"`
	Status       NotificationStatus  `json:"status" db:"status"`
	MessageID    *string             `json:"message_id,omitempty" db:"message_id"`
	ErrorMessage *string             `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time           `json:"created_at" db:"created_at"`
}
