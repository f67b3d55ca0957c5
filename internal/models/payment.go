package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PaymentStatusPending    = "pending"
	PaymentStatusSuccessful = "successful"
	PaymentStatusFailed     = "failed"
	PaymentStatusAbandoned  = "abandoned"
)

// Payment is the authoritative transaction ledger, keyed by a unique
// human-inspectable reference. Records transition pending -> successful or
// pending -> failed exactly once and are never deleted.
type Payment struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primary_key"`
	Reference      string          `gorm:"not null;unique"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Status         string          `gorm:"not null;default:'pending'"`
	EventID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Event          *Event          `gorm:"foreignKey:EventID"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	User           *User           `gorm:"foreignKey:UserID"`
	Quantity       int             `gorm:"not null"`
	FullName       string          `gorm:"not null"`
	Email          string          `gorm:"not null"`
	Phone          string
	GatewayPayload []byte `gorm:"type:jsonb"`
	FailureReason  string
	RefundRequired bool `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

// Terminal reports whether the record has left the pending state. Terminal
// records must never be re-verified against the gateway or recommitted.
func (payment *Payment) Terminal() bool {
	return payment.Status != PaymentStatusPending
}
