package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Booking is one confirmed seat on an event. Rows are only ever inserted by
// the verify-commit path; they never shrink the event's capacity back.
type Booking struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	EventID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_event_seat"`
	SeatNumber    int       `gorm:"not null;uniqueIndex:idx_event_seat"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index"`
	FullName      string    `gorm:"not null"`
	Email         string    `gorm:"not null"`
	Phone         string
	BookingDate   time.Time `gorm:"not null"`
	Reference     string    `gorm:"not null;index"`
	PaymentStatus string    `gorm:"not null;default:'paid'"`
	IsUsed        bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (booking *Booking) BeforeCreate(tx *gorm.DB) (err error) {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	return
}
