package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Emmanard/eventwave/internal/helpers"
	"github.com/Emmanard/eventwave/internal/models"
	"github.com/Emmanard/eventwave/internal/paystack"
	"github.com/Emmanard/eventwave/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxReferenceAttempts bounds regeneration on reference collisions.
const maxReferenceAttempts = 3

// BookingService orchestrates the booking-and-payment flow: validate
// bookability, create a hosted gateway transaction, persist the pending
// ledger record, and commit seats once the gateway confirms payment.
//
// No seats are held at initialize time. Availability is checked again,
// authoritatively, inside the seat-commit transaction at verify time; a
// verify that loses the race reports ShouldRefundError.
type BookingService struct {
	events        repository.EventRepository
	payments      repository.PaymentRepository
	gateway       paystack.Gateway
	webhookSecret string
	now           func() time.Time
}

func NewBookingService(events repository.EventRepository, payments repository.PaymentRepository, gateway paystack.Gateway, webhookSecret string) *BookingService {
	return &BookingService{
		events:        events,
		payments:      payments,
		gateway:       gateway,
		webhookSecret: webhookSecret,
		now:           time.Now,
	}
}

type BookingDetails struct {
	Quantity int
	FullName string
	Email    string
	Phone    string
}

type InitializeResult struct {
	PaymentURL string
	Reference  string
	Amount     decimal.Decimal
	EventTitle string
}

// Initialize validates the event and seat availability, creates a hosted
// gateway transaction and persists a pending payment record. The amount is
// always derived from the stored ticket price, never from the caller. The
// pending record is the only side effect; nothing is written on gateway
// failure.
func (s *BookingService) Initialize(ctx context.Context, eventID, userID uuid.UUID, details BookingDetails) (*InitializeResult, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	if event.Status != models.EventStatusPublished {
		return nil, ErrNotBookable
	}
	if event.Date.Before(s.now()) {
		return nil, ErrEventExpired
	}

	remaining := event.SeatsRemaining()
	if remaining < details.Quantity {
		return nil, &InsufficientSeatsError{Remaining: remaining, Requested: details.Quantity}
	}

	amount := event.TicketPrice.Mul(decimal.NewFromInt(int64(details.Quantity)))

	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		reference, err := helpers.GenerateReference()
		if err != nil {
			return nil, err
		}

		resp, err := s.gateway.Initialize(ctx, paystack.InitializeRequest{
			Email:     details.Email,
			Amount:    amount,
			Reference: reference,
			Metadata: map[string]any{
				"event_id": event.ID.String(),
				"quantity": details.Quantity,
			},
		})
		if err != nil {
			log.Printf("booking: gateway initialize for event %s: %v", event.ID, err)
			return nil, ErrGatewayUnavailable
		}

		payment := &models.Payment{
			Reference:      reference,
			Amount:         amount,
			Status:         models.PaymentStatusPending,
			EventID:        event.ID,
			UserID:         userID,
			Quantity:       details.Quantity,
			FullName:       details.FullName,
			Email:          details.Email,
			Phone:          details.Phone,
			GatewayPayload: resp.Raw,
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			if errors.Is(err, repository.ErrDuplicateReference) {
				continue
			}
			return nil, err
		}

		return &InitializeResult{
			PaymentURL: resp.AuthorizationURL,
			Reference:  reference,
			Amount:     amount,
			EventTitle: event.Title,
		}, nil
	}

	return nil, fmt.Errorf("booking: could not allocate a unique payment reference")
}

type VerifyResult struct {
	Reference      string
	Status         string
	Message        string
	EventID        uuid.UUID
	Amount         decimal.Decimal
	SeatNumbers    []int
	SeatsRemaining int
}

// Verify settles a payment record against the gateway's authoritative
// transaction status and, on success, commits the seats. It is idempotent on
// the reference: terminal records are answered from the ledger without
// another gateway call. The ledger check alone is not a race guard —
// duplicate verifies (client redirect plus webhook) can both find the record
// pending — so CommitSeats itself refuses to commit a reference twice and
// hands the loser the original bookings.
func (s *BookingService) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	payment, err := s.payments.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	if payment.Terminal() {
		return s.storedResult(ctx, payment)
	}

	resp, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		log.Printf("booking: gateway verify for %s: %v", reference, err)
		return nil, ErrGatewayUnavailable
	}

	payment.GatewayPayload = resp.Raw

	if !resp.Succeeded() {
		status := models.PaymentStatusFailed
		if resp.Status == "abandoned" {
			status = models.PaymentStatusAbandoned
		}
		payment.Status = status
		payment.FailureReason = resp.GatewayResponse
		if err := s.payments.Update(ctx, payment); err != nil {
			return nil, err
		}
		return &VerifyResult{
			Reference: reference,
			Status:    status,
			Message:   failureMessage(resp.GatewayResponse),
			EventID:   payment.EventID,
			Amount:    payment.Amount,
		}, nil
	}

	entry := models.Booking{
		UserID:        payment.UserID,
		FullName:      payment.FullName,
		Email:         payment.Email,
		Phone:         payment.Phone,
		BookingDate:   s.now(),
		Reference:     reference,
		PaymentStatus: "paid",
	}

	booked, remaining, err := s.events.CommitSeats(ctx, payment.EventID, payment.Quantity, entry)
	if err != nil {
		if errors.Is(err, repository.ErrCapacityExceeded) {
			payment.Status = models.PaymentStatusFailed
			payment.RefundRequired = true
			payment.FailureReason = "sold out before payment confirmation"
			if updateErr := s.payments.Update(ctx, payment); updateErr != nil {
				return nil, updateErr
			}
			return nil, &ShouldRefundError{Reference: reference, Amount: payment.Amount}
		}
		return nil, err
	}

	payment.Status = models.PaymentStatusSuccessful
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, err
	}

	return &VerifyResult{
		Reference:      reference,
		Status:         models.PaymentStatusSuccessful,
		Message:        "payment verified and seats booked",
		EventID:        payment.EventID,
		Amount:         payment.Amount,
		SeatNumbers:    seatNumbers(booked),
		SeatsRemaining: remaining,
	}, nil
}

// storedResult rebuilds the outcome of an already-terminal record. A record
// that failed after a successful charge keeps surfacing ShouldRefundError
// until the refund is handled out of band.
func (s *BookingService) storedResult(ctx context.Context, payment *models.Payment) (*VerifyResult, error) {
	switch payment.Status {
	case models.PaymentStatusSuccessful:
		result := &VerifyResult{
			Reference: payment.Reference,
			Status:    payment.Status,
			Message:   "payment verified and seats booked",
			EventID:   payment.EventID,
			Amount:    payment.Amount,
		}
		event, err := s.events.FindByID(ctx, payment.EventID)
		if err != nil {
			return nil, err
		}
		for _, booking := range event.SeatsBooked {
			if booking.Reference == payment.Reference {
				result.SeatNumbers = append(result.SeatNumbers, booking.SeatNumber)
			}
		}
		result.SeatsRemaining = event.SeatsRemaining()
		return result, nil

	case models.PaymentStatusFailed:
		if payment.RefundRequired {
			return nil, &ShouldRefundError{Reference: payment.Reference, Amount: payment.Amount}
		}
		return &VerifyResult{
			Reference: payment.Reference,
			Status:    payment.Status,
			Message:   failureMessage(payment.FailureReason),
			EventID:   payment.EventID,
			Amount:    payment.Amount,
		}, nil

	default:
		return &VerifyResult{
			Reference: payment.Reference,
			Status:    payment.Status,
			Message:   "payment was not completed",
			EventID:   payment.EventID,
			Amount:    payment.Amount,
		}, nil
	}
}

// HandleWebhook authenticates a gateway push notification and funnels
// charge.success events into the same idempotent Verify path used by the
// client redirect, so both entry points share one commit function.
func (s *BookingService) HandleWebhook(ctx context.Context, body []byte, signature string) (*VerifyResult, error) {
	if !paystack.ValidSignature(body, signature, s.webhookSecret) {
		return nil, ErrInvalidSignature
	}

	event, err := paystack.ParseWebhook(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	if event.Event != paystack.EventChargeSuccess {
		return nil, nil
	}

	charge, err := event.Charge()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}

	return s.Verify(ctx, charge.Reference)
}

// Status returns the caller's payment record snapshot. Records belonging to
// other users are reported as not found.
func (s *BookingService) Status(ctx context.Context, reference string, userID uuid.UUID) (*models.Payment, error) {
	payment, err := s.payments.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if payment.UserID != userID {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// History lists the caller's payment records, newest first.
func (s *BookingService) History(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Payment, int64, error) {
	return s.payments.ListByUser(ctx, userID, page, limit)
}

func seatNumbers(bookings []models.Booking) []int {
	numbers := make([]int, 0, len(bookings))
	for _, booking := range bookings {
		numbers = append(numbers, booking.SeatNumber)
	}
	return numbers
}

func failureMessage(gatewayReason string) string {
	if gatewayReason == "" {
		return "payment failed"
	}
	return gatewayReason
}
