package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Emmanard/eventwave/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	return NewClient(&config.PaystackConfig{
		SecretKey:   "sk_test_secret",
		BaseURL:     baseURL,
		CallbackURL: "https://eventwave.test/payments/callback",
	})
}

func TestInitializeSendsMinorUnitsAndAuth(t *testing.T) {
	var captured map[string]any

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc123","access_code":"abc123","reference":"EVW-1"}}`))
	}))
	defer gateway.Close()

	client := testClient(gateway.URL)

	resp, err := client.Initialize(context.Background(), InitializeRequest{
		Email:     "ada@example.com",
		Amount:    decimal.RequireFromString("150.50"),
		Reference: "EVW-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://checkout.paystack.com/abc123", resp.AuthorizationURL)
	assert.Equal(t, "abc123", resp.AccessCode)
	assert.NotEmpty(t, resp.Raw)

	// 150.50 major units become 15050 minor units at the boundary.
	assert.Equal(t, float64(15050), captured["amount"])
	assert.Equal(t, "EVW-1", captured["reference"])
	assert.Equal(t, "https://eventwave.test/payments/callback", captured["callback_url"])
}

func TestInitializeRejectedByGateway(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":false,"message":"Invalid key"}`))
	}))
	defer gateway.Close()

	client := testClient(gateway.URL)

	_, err := client.Initialize(context.Background(), InitializeRequest{
		Email:     "ada@example.com",
		Amount:    decimal.NewFromInt(10),
		Reference: "EVW-2",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid key")
}

func TestInitializeGatewayError(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer gateway.Close()

	client := testClient(gateway.URL)

	_, err := client.Initialize(context.Background(), InitializeRequest{
		Email:     "ada@example.com",
		Amount:    decimal.NewFromInt(10),
		Reference: "EVW-3",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestVerifyParsesTransactionStatus(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/EVW-4", r.URL.Path)
		w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"status":"success","gateway_response":"Successful","paid_at":"2025-03-01T10:00:00.000Z","amount":5000}}`))
	}))
	defer gateway.Close()

	client := testClient(gateway.URL)

	resp, err := client.Verify(context.Background(), "EVW-4")
	require.NoError(t, err)

	assert.True(t, resp.Succeeded())
	assert.Equal(t, "Successful", resp.GatewayResponse)
	assert.Equal(t, int64(5000), resp.Amount)
	assert.Equal(t, "2025-03-01T10:00:00.000Z", resp.PaidAt)
}

func TestVerifyFailedTransaction(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"status":"failed","gateway_response":"Declined"}}`))
	}))
	defer gateway.Close()

	client := testClient(gateway.URL)

	resp, err := client.Verify(context.Background(), "EVW-5")
	require.NoError(t, err)

	assert.False(t, resp.Succeeded())
	assert.Equal(t, "Declined", resp.GatewayResponse)
}

func TestValidSignature(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"EVW-6"}}`)
	secret := "whsec_test"

	assert.True(t, ValidSignature(body, Sign(body, secret), secret))
	assert.False(t, ValidSignature(body, Sign(body, "other_secret"), secret))
	assert.False(t, ValidSignature(body, "not-a-signature", secret))

	tampered := []byte(`{"event":"charge.success","data":{"reference":"EVW-9999"}}`)
	assert.False(t, ValidSignature(tampered, Sign(body, secret), secret))
}

func TestParseWebhook(t *testing.T) {
	event, err := ParseWebhook([]byte(`{"event":"charge.success","data":{"reference":"EVW-7","status":"success","amount":5000}}`))
	require.NoError(t, err)
	assert.Equal(t, EventChargeSuccess, event.Event)

	charge, err := event.Charge()
	require.NoError(t, err)
	assert.Equal(t, "EVW-7", charge.Reference)
	assert.Equal(t, int64(5000), charge.Amount)

	_, err = ParseWebhook([]byte(`{`))
	assert.Error(t, err)

	_, err = ParseWebhook([]byte(`{"data":{}}`))
	assert.Error(t, err)
}
