package helpers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// SignBooking produces the HMAC-SHA256 signature embedded in ticket QR
// payloads so validation can detect tampered codes.
func SignBooking(bookingID, eventID uuid.UUID, seatNumber int, secretKey string) string {
	data := fmt.Sprintf("%s:%s:%d", bookingID.String(), eventID.String(), seatNumber)
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func ValidBookingSignature(bookingID, eventID uuid.UUID, seatNumber int, secretKey, signature string) bool {
	expected := SignBooking(bookingID, eventID, seatNumber, secretKey)
	return hmac.Equal([]byte(expected), []byte(signature))
}
