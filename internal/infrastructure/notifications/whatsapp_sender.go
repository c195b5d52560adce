package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/patientcare/backend/internal/domain/providers"
	"github.com/zatekoja/patientcare/backend/pkg/config"
)

const defaultWhatsAppBaseURL = "https://graph.facebook.com/v18.0"

// WhatsAppCloudSender sends messages via WhatsApp Cloud API
type WhatsAppCloudSender struct {
	accessToken   string
	phoneNumberID string
	httpClient    *http.Client
	baseURL       string
}

// NewReceiptSender returns a WhatsApp sender when credentials are configured,
// otherwise a sender that only logs
func NewReceiptSender(cfg config.WhatsAppConfig) providers.ReceiptSender {
	sender, err := NewWhatsAppCloudSender(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("WhatsApp receipts disabled, logging instead")
		return LogSender{}
	}
	return sender
}

// NewWhatsAppCloudSender creates a new WhatsApp sender
func NewWhatsAppCloudSender(cfg config.WhatsAppConfig) (*WhatsAppCloudSender, error) {
	if cfg.AccessToken == "" || cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("WHATSAPP_ACCESS_TOKEN and WHATSAPP_PHONE_NUMBER_ID must be set")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultWhatsAppBaseURL
	}

	return &WhatsAppCloudSender{
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// WhatsAppTextMessage represents a text message
type WhatsAppTextMessage struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		PreviewURL bool   `json:"preview_url"`
		Body       string `json:"body"`
	} `json:"text"`
}

// WhatsAppResponse represents the API response
type WhatsAppResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Messages         []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendText sends a text message and returns the WhatsApp message ID
func (w *WhatsAppCloudSender) SendText(ctx context.Context, to, body string) (string, error) {
	message := WhatsAppTextMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               strings.TrimPrefix(to, "+"),
		Type:             "text",
	}
	message.Text.Body = body

	return w.sendMessage(ctx, message)
}

func (w *WhatsAppCloudSender) sendMessage(ctx context.Context, message interface{}) (string, error) {
	url := fmt.Sprintf("%s/%s/messages", w.baseURL, w.phoneNumberID)

	jsonData, err := json.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+w.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("WhatsApp API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var whatsappResp WhatsAppResponse
	if err := json.Unmarshal(respBody, &whatsappResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(whatsappResp.Messages) > 0 {
		return whatsappResp.Messages[0].ID, nil
	}

	return "", fmt.Errorf("no message ID in response")
}

// LogSender writes receipts to the log instead of delivering them
type LogSender struct{}

// SendText logs the message
func (LogSender) SendText(_ context.Context, to, body string) (string, error) {
	log.Info().Str("to", to).Str("body", body).Msg("receipt (not delivered)")
	return "", nil
}
