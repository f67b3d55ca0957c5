package handlers

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/Emmanard/eventwave/internal/helpers"
	"github.com/Emmanard/eventwave/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"
)

func bookingQRData(booking *models.Booking) string {
	secretKey := os.Getenv("JWT_SECRET")
	signature := helpers.SignBooking(booking.ID, booking.EventID, booking.SeatNumber, secretKey)
	return fmt.Sprintf("booking:%s;event:%s;seat:%d;signature:%s",
		booking.ID.String(),
		booking.EventID.String(),
		booking.SeatNumber,
		signature,
	)
}

func extractBookingIDFromQRData(qrData string) (uuid.UUID, error) {
	parts := strings.Split(qrData, ";")
	if len(parts) != 4 || !strings.HasPrefix(parts[0], "booking:") || !strings.HasPrefix(parts[3], "signature:") {
		return uuid.Nil, fmt.Errorf("invalid QR data format")
	}
	return uuid.Parse(strings.TrimPrefix(parts[0], "booking:"))
}

func validBookingQRSignature(booking *models.Booking, qrData string) bool {
	parts := strings.Split(qrData, ";")
	if len(parts) != 4 || !strings.HasPrefix(parts[3], "signature:") {
		return false
	}

	secretKey := os.Getenv("JWT_SECRET")
	signature := strings.TrimPrefix(parts[3], "signature:")
	return helpers.ValidBookingSignature(booking.ID, booking.EventID, booking.SeatNumber, secretKey, signature)
}

// GenerateBookingQR renders the signed entry ticket for one committed seat.
func GenerateBookingQR(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event ID.")
		return
	}

	seatNumber, err := helpers.StringToInt(c.Param("seatNumber"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid seat number.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var booking models.Booking
	if err := gormDB.Where("event_id = ? AND seat_number = ?", eventID, seatNumber).First(&booking).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Booking not found.")
		return
	}

	if booking.UserID != userID {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to generate a QR code for this booking.")
		return
	}

	if booking.IsUsed {
		helpers.RespondWithError(c, http.StatusForbidden, "Ticket already used.")
		return
	}

	qrImage, err := qrcode.Encode(bookingQRData(&booking), qrcode.Medium, 256)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate QR code.")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}

// ValidateBooking lets the event's organizer scan a ticket at the door and
// mark it used.
func ValidateBooking(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var validationRequest struct {
		QRData string `json:"qr_data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&validationRequest); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	bookingID, err := extractBookingIDFromQRData(validationRequest.QRData)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid QR code format.")
		return
	}

	var booking models.Booking
	if err := gormDB.First(&booking, "id = ?", bookingID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Booking not found.")
		return
	}

	if !validBookingQRSignature(&booking, validationRequest.QRData) {
		helpers.RespondWithError(c, http.StatusForbidden, "Invalid QR code signature.")
		return
	}

	var event models.Event
	if err := gormDB.First(&event, "id = ?", booking.EventID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
		return
	}

	if event.OrganizerID != userID {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to validate this ticket.")
		return
	}

	if booking.IsUsed {
		helpers.RespondWithError(c, http.StatusForbidden, "Ticket already used.")
		return
	}

	if err := gormDB.Model(&booking).Update("is_used", true).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to validate ticket.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Ticket validated successfully.",
		"ticket": gin.H{
			"event_title": event.Title,
			"seat_number": booking.SeatNumber,
			"full_name":   booking.FullName,
		},
	})
}
