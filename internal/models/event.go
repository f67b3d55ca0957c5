package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	EventStatusDraft     = "draft"
	EventStatusPublished = "published"
	EventStatusClosed    = "closed"
	EventStatusDeleted   = "deleted"
)

type Event struct {
	gorm.Model
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	Title       string          `gorm:"not null"`
	Description string          `gorm:"not null"`
	Category    string          `gorm:"not null;index"`
	Date        time.Time       `gorm:"not null"`
	Country     string          `gorm:"not null"`
	City        string          `gorm:"not null;index"`
	Venue       string          `gorm:"not null"`
	TicketPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Seats       int             `gorm:"not null"`
	Status      string          `gorm:"not null;default:'draft';index"`
	OrganizerID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Organizer   *User           `gorm:"foreignKey:OrganizerID"`
	SeatsBooked []Booking       `gorm:"foreignKey:EventID"`
}

func (event *Event) BeforeCreate(tx *gorm.DB) (err error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return
}

// SeatsRemaining is advisory; the authoritative count is taken inside the
// seat-commit transaction.
func (event *Event) SeatsRemaining() int {
	return event.Seats - len(event.SeatsBooked)
}
