package providers

import "context"

// ReceiptSender delivers a rendered receipt message to a patient
type ReceiptSender interface {
	// SendText sends a freeform message and returns the provider message ID
	SendText(ctx context.Context, to, body string) (string, error)
}
