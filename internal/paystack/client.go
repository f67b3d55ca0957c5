package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Emmanard/eventwave/config"
	"github.com/shopspring/decimal"
)

// Gateway is the surface the booking orchestrator needs from the hosted
// payment API. The amount crosses this boundary as a decimal major unit; the
// client converts to the gateway's minor unit internally.
type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error)
	Verify(ctx context.Context, reference string) (*VerifyResponse, error)
}

type InitializeRequest struct {
	Email     string
	Amount    decimal.Decimal
	Reference string
	Metadata  map[string]any
}

type InitializeResponse struct {
	AuthorizationURL string
	AccessCode       string
	Raw              []byte
}

type VerifyResponse struct {
	// Status is the gateway's transaction status: "success", "failed" or
	// "abandoned".
	Status          string
	GatewayResponse string
	PaidAt          string
	Amount          int64
	Raw             []byte
}

func (r *VerifyResponse) Succeeded() bool {
	return r.Status == "success"
}

type Client struct {
	baseURL     string
	secretKey   string
	callbackURL string
	hc          *http.Client
}

func NewClient(cfg *config.PaystackConfig) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		secretKey:   cfg.SecretKey,
		callbackURL: cfg.CallbackURL,
		hc: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type initializePayload struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Reference   string         `json:"reference"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize creates a hosted transaction for the given reference and returns
// the URL the payer is redirected to.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	payload := initializePayload{
		Email:       req.Email,
		Amount:      toMinorUnits(req.Amount),
		Reference:   req.Reference,
		CallbackURL: c.callbackURL,
		Metadata:    req.Metadata,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("paystack: marshal initialize payload: %w", err)
	}

	raw, err := c.post(ctx, "/transaction/initialize", body)
	if err != nil {
		return nil, err
	}

	envelope, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("paystack: decode initialize data: %w", err)
	}
	if data.AuthorizationURL == "" {
		return nil, fmt.Errorf("paystack: initialize response missing authorization url")
	}

	return &InitializeResponse{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Raw:              raw,
	}, nil
}

// Verify fetches the authoritative transaction status by reference. Every
// money-affecting field the caller uses must come from this response, never
// from client-supplied query parameters.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResponse, error) {
	raw, err := c.get(ctx, "/transaction/verify/"+reference)
	if err != nil {
		return nil, err
	}

	envelope, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}

	var data struct {
		Status          string `json:"status"`
		GatewayResponse string `json:"gateway_response"`
		PaidAt          string `json:"paid_at"`
		Amount          int64  `json:"amount"`
	}
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("paystack: decode verify data: %w", err)
	}

	return &VerifyResponse{
		Status:          data.Status,
		GatewayResponse: data.GatewayResponse,
		PaidAt:          data.PaidAt,
		Amount:          data.Amount,
		Raw:             raw,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("paystack: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("paystack: build request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paystack: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("paystack: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("paystack: %s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	return raw, nil
}

func parseEnvelope(raw []byte) (*apiEnvelope, error) {
	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("paystack: decode response: %w", err)
	}
	if !envelope.Status {
		return nil, fmt.Errorf("paystack: request rejected: %s", envelope.Message)
	}
	return &envelope, nil
}

// toMinorUnits converts a major-unit decimal amount to the gateway's integer
// minor unit. This is the only place that conversion happens.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
