package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// SignatureHeader is the request header carrying the webhook HMAC.
const SignatureHeader = "x-paystack-signature"

// EventChargeSuccess is the push notification sent when a charge settles.
const EventChargeSuccess = "charge.success"

type WebhookEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type WebhookCharge struct {
	Reference       string `json:"reference"`
	Status          string `json:"status"`
	Amount          int64  `json:"amount"`
	GatewayResponse string `json:"gateway_response"`
}

// ValidSignature checks the HMAC-SHA512 of the raw request body against the
// signature header using the shared secret.
func ValidSignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign computes the webhook signature for a body. Used by tests and by any
// internal tooling that replays webhooks.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("paystack: decode webhook: %w", err)
	}
	if event.Event == "" {
		return nil, fmt.Errorf("paystack: webhook missing event type")
	}
	return &event, nil
}

func (e *WebhookEvent) Charge() (*WebhookCharge, error) {
	var charge WebhookCharge
	if err := json.Unmarshal(e.Data, &charge); err != nil {
		return nil, fmt.Errorf("paystack: decode webhook charge: %w", err)
	}
	if charge.Reference == "" {
		return nil, fmt.Errorf("paystack: webhook charge missing reference")
	}
	return &charge, nil
}
