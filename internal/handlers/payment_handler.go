package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/Emmanard/eventwave/internal/helpers"
	"github.com/Emmanard/eventwave/internal/models"
	"github.com/Emmanard/eventwave/internal/paystack"
	"github.com/Emmanard/eventwave/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PaymentHandler struct {
	bookings *services.BookingService
}

func NewPaymentHandler(bookings *services.BookingService) *PaymentHandler {
	return &PaymentHandler{bookings: bookings}
}

type InitializePaymentRequest struct {
	Quantity int    `json:"quantity" binding:"required,min=1"`
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
}

func (h *PaymentHandler) Initialize(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event ID.")
		return
	}

	var req InitializePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	result, err := h.bookings.Initialize(c.Request.Context(), eventID, userID.(uuid.UUID), services.BookingDetails{
		Quantity: req.Quantity,
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
	})
	if err != nil {
		respondBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Payment initialized. Redirect the user to the payment URL.",
		"data": gin.H{
			"paymentUrl": result.PaymentURL,
			"reference":  result.Reference,
			"amount":     result.Amount,
			"eventTitle": result.EventTitle,
		},
	})
}

func (h *PaymentHandler) Verify(c *gin.Context) {
	reference := c.Param("reference")

	result, err := h.bookings.Verify(c.Request.Context(), reference)
	if err != nil {
		respondBookingError(c, err)
		return
	}

	if result.Status != models.PaymentStatusSuccessful {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": result.Message,
			"data": gin.H{
				"reference": result.Reference,
				"status":    result.Status,
				"amount":    result.Amount,
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": result.Message,
		"data": gin.H{
			"reference":      result.Reference,
			"status":         result.Status,
			"amount":         result.Amount,
			"eventId":        result.EventID,
			"seatNumbers":    result.SeatNumbers,
			"seatsRemaining": result.SeatsRemaining,
		},
	})
}

func (h *PaymentHandler) Status(c *gin.Context) {
	reference := c.Param("reference")

	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	payment, err := h.bookings.Status(c.Request.Context(), reference, userID.(uuid.UUID))
	if err != nil {
		respondBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"reference":       payment.Reference,
			"status":          payment.Status,
			"amount":          payment.Amount,
			"quantity":        payment.Quantity,
			"eventId":         payment.EventID,
			"failure_reason":  payment.FailureReason,
			"refund_required": payment.RefundRequired,
			"created_at":      payment.CreatedAt,
		},
	})
}

func (h *PaymentHandler) History(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	pageNum, err := helpers.StringToInt(c.DefaultQuery("page", "1"))
	if err != nil || pageNum < 1 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid page number.")
		return
	}
	limitNum, err := helpers.StringToInt(c.DefaultQuery("limit", "10"))
	if err != nil || limitNum < 1 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid limit.")
		return
	}

	payments, total, err := h.bookings.History(c.Request.Context(), userID.(uuid.UUID), pageNum, limitNum)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving payment history.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"payments":    payments,
		"total":       total,
		"page":        pageNum,
		"limit":       limitNum,
		"total_pages": (total + int64(limitNum) - 1) / int64(limitNum),
	})
}

// Webhook receives gateway push notifications. Deliveries that reached a
// settled outcome (committed, refund-flagged, unknown or already-terminal
// reference) are acknowledged with 200 so the gateway stops retrying;
// transient processing failures answer 5xx so the gateway redelivers and the
// record does not stay pending with no backstop left.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Failed to read webhook body.")
		return
	}

	signature := c.GetHeader(paystack.SignatureHeader)

	result, err := h.bookings.HandleWebhook(c.Request.Context(), body, signature)
	if err != nil {
		var refundErr *services.ShouldRefundError
		switch {
		case errors.Is(err, services.ErrInvalidSignature):
			helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid webhook signature.")
		case errors.Is(err, services.ErrMalformedWebhook):
			helpers.RespondWithError(c, http.StatusBadRequest, "Malformed webhook payload.")
		case errors.As(err, &refundErr):
			log.Printf("webhook: %v", refundErr)
			c.JSON(http.StatusOK, gin.H{"success": true, "message": "Webhook processed; refund flagged."})
		case errors.Is(err, services.ErrPaymentNotFound):
			log.Printf("webhook: %v", err)
			c.JSON(http.StatusOK, gin.H{"success": true, "message": "Webhook received."})
		case errors.Is(err, services.ErrGatewayUnavailable):
			log.Printf("webhook: %v", err)
			helpers.RespondWithError(c, http.StatusBadGateway, "Webhook deferred; delivery will be retried.")
		default:
			log.Printf("webhook: %v", err)
			helpers.RespondWithError(c, http.StatusInternalServerError, "Webhook deferred; delivery will be retried.")
		}
		return
	}

	message := "Webhook received."
	if result != nil {
		message = "Webhook processed."
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

// respondBookingError maps orchestrator errors to HTTP responses. A refund
// obligation is surfaced distinctly from plain validation failures so
// operators can tell "never charged" from "charged but not fulfilled".
func respondBookingError(c *gin.Context, err error) {
	var seatsErr *services.InsufficientSeatsError
	if errors.As(err, &seatsErr) {
		helpers.RespondWithError(c, http.StatusConflict, seatsErr.Error())
		return
	}

	var refundErr *services.ShouldRefundError
	if errors.As(err, &refundErr) {
		c.JSON(http.StatusConflict, gin.H{
			"success":         false,
			"error":           "ShouldRefund",
			"message":         refundErr.Error(),
			"reference":       refundErr.Reference,
			"amount":          refundErr.Amount,
			"refund_required": true,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrEventNotFound), errors.Is(err, services.ErrPaymentNotFound):
		helpers.RespondWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrNotBookable), errors.Is(err, services.ErrEventExpired):
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrGatewayUnavailable):
		helpers.RespondWithError(c, http.StatusBadGateway, err.Error())
	default:
		helpers.RespondWithError(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}
