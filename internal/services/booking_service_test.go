package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Emmanard/eventwave/internal/models"
	"github.com/Emmanard/eventwave/internal/paystack"
	"github.com/Emmanard/eventwave/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

type bookingFixture struct {
	service  *BookingService
	events   *repository.MemoryEventRepository
	payments *repository.MemoryPaymentRepository
	gateway  *paystack.MockGateway
}

func newBookingFixture() *bookingFixture {
	events := repository.NewMemoryEventRepository()
	payments := repository.NewMemoryPaymentRepository()
	gateway := paystack.NewMockGateway()
	return &bookingFixture{
		service:  NewBookingService(events, payments, gateway, testWebhookSecret),
		events:   events,
		payments: payments,
		gateway:  gateway,
	}
}

func (f *bookingFixture) putEvent(seats int, status string, date time.Time) *models.Event {
	event := &models.Event{
		ID:          uuid.New(),
		Title:       "Harmattan Music Fest",
		Category:    "music",
		Date:        date,
		TicketPrice: decimal.NewFromInt(50),
		Seats:       seats,
		Status:      status,
		OrganizerID: uuid.New(),
	}
	f.events.Put(event)
	return event
}

func details(quantity int) BookingDetails {
	return BookingDetails{
		Quantity: quantity,
		FullName: "Ada Obi",
		Email:    "ada@example.com",
		Phone:    "+2348012345678",
	}
}

func TestInitializeCreatesPendingPayment(t *testing.T) {
	f := newBookingFixture()
	event := f.putEvent(2, models.EventStatusPublished, time.Now().Add(48*time.Hour))
	userID := uuid.New()

	result, err := f.service.Initialize(context.Background(), event.ID, userID, details(2))
	require.NoError(t, err)

	assert.Equal(t, "Harmattan Music Fest", result.EventTitle)
	assert.NotEmpty(t, result.Reference)
	assert.Contains(t, result.PaymentURL, result.Reference)
	assert.True(t, result.Amount.Equal(decimal.NewFromInt(100)), "amount must be price x quantity, got %s", result.Amount)
	assert.True(t, f.gateway.Initialized(result.Reference))

	payment, err := f.payments.FindByReference(context.Background(), result.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, userID, payment.UserID)
	assert.Equal(t, 2, payment.Quantity)
	assert.NotEmpty(t, payment.GatewayPayload)
}

func TestInitializeUnknownEvent(t *testing.T) {
	f := newBookingFixture()

	_, err := f.service.Initialize(context.Background(), uuid.New(), uuid.New(), details(1))
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestInitializeRejectsUnbookableEvents(t *testing.T) {
	f := newBookingFixture()

	draft := f.putEvent(10, models.EventStatusDraft, time.Now().Add(48*time.Hour))
	_, err := f.service.Initialize(context.Background(), draft.ID, uuid.New(), details(1))
	assert.ErrorIs(t, err, ErrNotBookable)

	closed := f.putEvent(10, models.EventStatusClosed, time.Now().Add(48*time.Hour))
	_, err = f.service.Initialize(context.Background(), closed.ID, uuid.New(), details(1))
	assert.ErrorIs(t, err, ErrNotBookable)

	past := f.putEvent(10, models.EventStatusPublished, time.Now().Add(-time.Hour))
	_, err = f.service.Initialize(context.Background(), past.ID, uuid.New(), details(1))
	assert.ErrorIs(t, err, ErrEventExpired)
}

func TestInitializeInsufficientSeats(t *testing.T) {
	f := newBookingFixture()
	event := f.putEvent(2, models.EventStatusPublished, time.Now().Add(48*time.Hour))

	_, err := f.service.Initialize(context.Background(), event.ID, uuid.New(), details(3))

	var seatsErr *InsufficientSeatsError
	require.ErrorAs(t, err, &seatsErr)
	assert.Equal(t, 2, seatsErr.Remaining)
	assert.Equal(t, 3, seatsErr.Requested)
	assert.Zero(t, f.gateway.InitializeCalls(), "gateway must not be contacted")
}

func TestInitializeGatewayFailurePersistsNothing(t *testing.T) {
	f := newBookingFixture()
	event := f.putEvent(2, models.EventStatusPublished, time.Now().Add(48*time.Hour))
	f.gateway.InitializeErr = errors.New("connection refused")

	userID := uuid.New()
	_, err := f.service.Initialize(context.Background(), event.ID, userID, details(1))
	assert.ErrorIs(t, err, ErrGatewayUnavailable)

	payments, total, err := f.payments.ListByUser(context.Background(), userID, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, payments)
}

func TestVerifyCommitsSeats(t *testing.T) {
	f := newBookingFixture()
	event := f.putEvent(2, models.EventStatusPublished, time.Now().Add(48*time.Hour))

	init, err := f.service.Initialize(context.Background(), event.ID, uuid.New(), details(2))
	require.NoError(t, err)

	result, err := f.service.Verify(context.Background(), init.Reference)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusSuccessful, result.Status)
	assert.Equal(t, []int{1, 2}, result.SeatNumbers)
	assert.Equal(t, 0, result.SeatsRemaining)

	stored, err := f.events.FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	require.Len(t, stored.SeatsBooked, 2)
	assert.Equal(t, init.Reference, stored.SeatsBooked[0].Reference)
	assert.Equal(t, "paid", stored.SeatsBooked[0].PaymentStatus)

	payment, err := f.payments.FindByReference(context.Background(), init.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccessful, payment.Status)
}

func TestVerifyIsIdempotent(t *testing.T) {
	f := newBookingFixture()
	event := f.putEvent(2, models.EventStatusPublished, time.Now().Add(48*time.Hour))

	init, err := f.service.Initialize(context.Background(), event.ID, uuid.New(), details(1))
	require.NoError(t, err)

	first, err := f.service.Verify(context.Background(), init.Reference)
	require.NoError(t, err)

	second, err := f.service.Verify(context.Background(), init.Reference)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.SeatNumbers, second.SeatNumbers)
	assert.Equal(t, 1, f.gateway.VerifyCalls(init.Reference), "terminal record must not be re-verified against the gateway")

	stored, err := f.events.FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Len(t, stored.SeatsBooked, 1, "second verify must not grow seatsBooked")
}

func TestVerifyUnknownReference(t *testing.T) {
	f := newBookingFixture()

	_, err := f.service.Verify(context.Background(), "EVW-MISSING")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestVerifyGatewayFailureKeepsReason(t *testing.T) {
	f := newBookingFixture()
	event := f.putEvent(2, models.EventStatusPublished, time.Now().Add(48*time.Hour))

	init, err := f.service.Initialize(context.Background(), event.ID, uuid.New(), details(1))
	require.NoError(t, err)

	f.gateway.VerifyStatus = "failed"
	f.gateway.GatewayResponse = "Declined by issuer"

	result, err := f.service.Verify(context.Background(), init.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, result.Status)
	assert.Equal(t, "Declined by issuer", result.Message)

	payment, err := f.payments.FindByReference(context.Background(), init.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)
	assert.Equal(t, "Declined by issuer", payment.FailureReason)
	assert.False(t, payment.RefundRequired)

	stored, err := f.events.FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.SeatsBooked)
}

func TestVerifyAbandonedTransaction(t *testing.T) {
	f := newBookingFixture()
	event := f.putEvent(2, models.EventStatusPublished, time.Now().Add(48*time.Hour))

	init, err := f.service.Initialize(context.Background(), event.ID, uuid.New(), details(1))
	require.NoError(t, err)

	f.gateway.VerifyStatus = "abandoned"

	result, err := f.service.Verify(context.Background(), init.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusAbandoned, result.Status)

	payment, err := f.payments.FindByReference(context.Background(), init.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusAbandoned, payment.Status)
}

func TestConcurrentVerifiesForLastSeat(t *testing.T) {
	f := newBookingFixture()
	event := f.putEvent(1, models.EventStatusPublished, time.Now().Add(48*time.Hour))

	// Both initializations are told "seats available": no hold is taken.
	first, err := f.service.Initialize(context.Background(), event.ID, uuid.New(), details(1))
	require.NoError(t, err)
	second, err := f.service.Initialize(context.Background(), event.ID, uuid.New(), details(1))
	require.NoError(t, err)

	references := []string{first.Reference, second.Reference}
	results := make([]error, len(references))

	var wg sync.WaitGroup
	wg.Add(len(references))
	for i, reference := range references {
		go func(i int, reference string) {
			defer wg.Done()
			_, err := f.service.Verify(context.Background(), reference)
			results[i] = err
		}(i, reference)
	}
	wg.Wait()

	var committed, refunds int
	for _, err := range results {
		if err == nil {
			committed++
			continue
		}
		var refundErr *ShouldRefundError
		if errors.As(err, &refundErr) {
			refunds++
			assert.True(t, refundErr.Amount.Equal(decimal.NewFromInt(50)))
		}
	}
	assert.Equal(t, 1, committed, "exactly one verify must commit the last seat")
	assert.Equal(t, 1, refunds, "the losing verify must surface a refund obligation")

	stored, err := f.events.FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Len(t, stored.SeatsBooked, 1)
	assert.Equal(t, 1, stored.SeatsBooked[0].SeatNumber)
}

// barrierGateway holds every Verify call until all expected callers have
// arrived, forcing concurrent verifies of one reference past the ledger's
// terminal check before either can commit.
type barrierGateway struct {
	*paystack.MockGateway
	arrived *sync.WaitGroup
}

func (g *barrierGateway) Verify(ctx context.Context, reference string) (*paystack.VerifyResponse, error) {
	g.arrived.Done()
	g.arrived.Wait()
	return g.MockGateway.Verify(ctx, reference)
}

func TestConcurrentVerifiesOfSameReferenceCommitOnce(t *testing.T) {
	events := repository.NewMemoryEventRepository()
	payments := repository.NewMemoryPaymentRepository()

	var arrived sync.WaitGroup
	arrived.Add(2)
	gateway := &barrierGateway{MockGateway: paystack.NewMockGateway(), arrived: &arrived}
	service := NewBookingService(events, payments, gateway, testWebhookSecret)

	event := &models.Event{
		ID:          uuid.New(),
		Title:       "Harmattan Music Fest",
		Category:    "music",
		Date:        time.Now().Add(48 * time.Hour),
		TicketPrice: decimal.NewFromInt(50),
		Seats:       5,
		Status:      models.EventStatusPublished,
		OrganizerID: uuid.New(),
	}
	events.Put(event)

	init, err := service.Initialize(context.Background(), event.ID, uuid.New(), details(1))
	require.NoError(t, err)

	// Redirect and webhook verifying the same reference at once: both find
	// the record pending and both reach the gateway.
	results := make([]*VerifyResult, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = service.Verify(context.Background(), init.Reference)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		assert.Equal(t, models.PaymentStatusSuccessful, results[i].Status)
		assert.Equal(t, []int{1}, results[i].SeatNumbers)
	}

	stored, err := events.FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	require.Len(t, stored.SeatsBooked, 1, "one charge must never book more than its quantity")
	assert.Equal(t, init.Reference, stored.SeatsBooked[0].Reference)
}

func TestVerifyRefundObligationSticks(t *testing.T) {
	f := newBookingFixture()
	event := f.putEvent(1, models.EventStatusPublished, time.Now().Add(48*time.Hour))

	winner, err := f.service.Initialize(context.Background(), event.ID, uuid.New(), details(1))
	require.NoError(t, err)
	loser, err := f.service.Initialize(context.Background(), event.ID, uuid.New(), details(1))
	require.NoError(t, err)

	_, err = f.service.Verify(context.Background(), winner.Reference)
	require.NoError(t, err)

	_, err = f.service.Verify(context.Background(), loser.Reference)
	var refundErr *ShouldRefundError
	require.ErrorAs(t, err, &refundErr)
	assert.Equal(t, loser.Reference, refundErr.Reference)

	// Re-verifying the flagged record reports the same obligation without
	// another gateway call.
	calls := f.gateway.VerifyCalls(loser.Reference)
	_, err = f.service.Verify(context.Background(), loser.Reference)
	require.ErrorAs(t, err, &refundErr)
	assert.Equal(t, calls, f.gateway.VerifyCalls(loser.Reference))
}

func TestSeatNumbersStrictlyIncreaseAcrossVerifies(t *testing.T) {
	f := newBookingFixture()
	event := f.putEvent(5, models.EventStatusPublished, time.Now().Add(48*time.Hour))

	var seen []int
	for i := 0; i < 2; i++ {
		init, err := f.service.Initialize(context.Background(), event.ID, uuid.New(), details(2))
		require.NoError(t, err)
		result, err := f.service.Verify(context.Background(), init.Reference)
		require.NoError(t, err)
		seen = append(seen, result.SeatNumbers...)
	}

	assert.Equal(t, []int{1, 2, 3, 4}, seen)
}

func TestWebhookCommitsThroughVerifyPath(t *testing.T) {
	f := newBookingFixture()
	event := f.putEvent(2, models.EventStatusPublished, time.Now().Add(48*time.Hour))

	init, err := f.service.Initialize(context.Background(), event.ID, uuid.New(), details(1))
	require.NoError(t, err)

	body, err := json.Marshal(map[string]any{
		"event": paystack.EventChargeSuccess,
		"data":  map[string]any{"reference": init.Reference, "status": "success"},
	})
	require.NoError(t, err)

	result, err := f.service.HandleWebhook(context.Background(), body, paystack.Sign(body, testWebhookSecret))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, models.PaymentStatusSuccessful, result.Status)
	assert.Equal(t, []int{1}, result.SeatNumbers)

	stored, err := f.events.FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Len(t, stored.SeatsBooked, 1)
}

func TestWebhookRejectsTamperedSignature(t *testing.T) {
	f := newBookingFixture()
	event := f.putEvent(2, models.EventStatusPublished, time.Now().Add(48*time.Hour))

	init, err := f.service.Initialize(context.Background(), event.ID, uuid.New(), details(1))
	require.NoError(t, err)

	body := []byte(`{"event":"charge.success","data":{"reference":"` + init.Reference + `"}}`)

	_, err = f.service.HandleWebhook(context.Background(), body, "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	payment, err := f.payments.FindByReference(context.Background(), init.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, payment.Status, "tampered webhook must not mutate the record")

	stored, err := f.events.FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.SeatsBooked)
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	f := newBookingFixture()

	body := []byte(`{"event":"transfer.success","data":{"reference":"EVW-X"}}`)

	result, err := f.service.HandleWebhook(context.Background(), body, paystack.Sign(body, testWebhookSecret))
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestStatusHidesOtherUsersRecords(t *testing.T) {
	f := newBookingFixture()
	event := f.putEvent(2, models.EventStatusPublished, time.Now().Add(48*time.Hour))
	owner := uuid.New()

	init, err := f.service.Initialize(context.Background(), event.ID, owner, details(1))
	require.NoError(t, err)

	payment, err := f.service.Status(context.Background(), init.Reference, owner)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)

	_, err = f.service.Status(context.Background(), init.Reference, uuid.New())
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}
