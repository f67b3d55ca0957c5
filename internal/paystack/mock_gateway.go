package paystack

import (
	"context"
	"fmt"
	"sync"
)

// MockGateway implements Gateway for tests and local development. Each
// initialized reference is remembered so Verify can answer for it; the
// scripted fields steer the outcome.
type MockGateway struct {
	mu            sync.Mutex
	initialized   map[string]InitializeRequest
	verifyCalls   map[string]int
	InitializeErr error
	VerifyErr     error
	// VerifyStatus is returned for every verified reference. Defaults to
	// "success" when empty.
	VerifyStatus    string
	GatewayResponse string
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		initialized: make(map[string]InitializeRequest),
		verifyCalls: make(map[string]int),
	}
}

func (g *MockGateway) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	if g.InitializeErr != nil {
		return nil, g.InitializeErr
	}

	g.mu.Lock()
	g.initialized[req.Reference] = req
	g.mu.Unlock()

	return &InitializeResponse{
		AuthorizationURL: "https://checkout.test/" + req.Reference,
		AccessCode:       "mock_" + req.Reference,
		Raw:              []byte(fmt.Sprintf(`{"status":true,"data":{"reference":%q}}`, req.Reference)),
	}, nil
}

func (g *MockGateway) Verify(ctx context.Context, reference string) (*VerifyResponse, error) {
	if g.VerifyErr != nil {
		return nil, g.VerifyErr
	}

	g.mu.Lock()
	g.verifyCalls[reference]++
	g.mu.Unlock()

	status := g.VerifyStatus
	if status == "" {
		status = "success"
	}

	return &VerifyResponse{
		Status:          status,
		GatewayResponse: g.GatewayResponse,
		PaidAt:          "2025-01-01T00:00:00.000Z",
		Raw:             []byte(fmt.Sprintf(`{"status":true,"data":{"reference":%q,"status":%q}}`, reference, status)),
	}, nil
}

// InitializeCalls reports how many hosted transactions were created.
func (g *MockGateway) InitializeCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.initialized)
}

// VerifyCalls reports how often a reference was verified against the mock,
// used to assert idempotency.
func (g *MockGateway) VerifyCalls(reference string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verifyCalls[reference]
}

// Initialized reports whether a hosted transaction was created for the
// reference.
func (g *MockGateway) Initialized(reference string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.initialized[reference]
	return ok
}
