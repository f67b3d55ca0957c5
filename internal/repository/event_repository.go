package repository

import (
	"context"
	"errors"

	"github.com/Emmanard/eventwave/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventRepository is the capacity ledger. CommitSeats is the only mutator of
// an event's booked seats and must be atomic: the remaining-capacity check
// and the append happen under one transaction so concurrent verifies cannot
// over-commit. Committing a reference that already holds seats returns the
// original bookings instead of appending again, making the commit idempotent
// per reference even when duplicate verifies race past the ledger check.
type EventRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	CommitSeats(ctx context.Context, eventID uuid.UUID, quantity int, entry models.Booking) ([]models.Booking, int, error)
	ListPublished(ctx context.Context) ([]models.Event, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

type GormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).
		Preload("SeatsBooked", func(db *gorm.DB) *gorm.DB {
			return db.Order("seat_number")
		}).
		First(&event, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}

// CommitSeats appends quantity bookings stamped from entry, assigning the
// next sequential seat numbers. The event row is locked for the duration of
// the transaction so the count-check-append sequence is serialized per event;
// a reference that already committed under a previous lock holder gets its
// existing bookings back instead of new ones. Returns the bookings and the
// seats remaining afterwards.
func (r *GormEventRepository) CommitSeats(ctx context.Context, eventID uuid.UUID, quantity int, entry models.Booking) ([]models.Booking, int, error) {
	var booked []models.Booking
	var remaining int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&event, "id = ?", eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.Booking{}).
			Where("event_id = ?", eventID).
			Count(&count).Error; err != nil {
			return err
		}

		var existing []models.Booking
		if err := tx.Where("event_id = ? AND reference = ?", eventID, entry.Reference).
			Order("seat_number").
			Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) > 0 {
			booked = existing
			remaining = event.Seats - int(count)
			return nil
		}

		if int(count)+quantity > event.Seats {
			return ErrCapacityExceeded
		}

		booked = make([]models.Booking, 0, quantity)
		for i := 0; i < quantity; i++ {
			booking := entry
			booking.ID = uuid.New()
			booking.EventID = eventID
			booking.SeatNumber = int(count) + i + 1
			booked = append(booked, booking)
		}

		if err := tx.Create(&booked).Error; err != nil {
			return err
		}

		remaining = event.Seats - int(count) - quantity
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return booked, remaining, nil
}

func (r *GormEventRepository) ListPublished(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := r.db.WithContext(ctx).
		Where("status = ?", models.EventStatusPublished).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *GormEventRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
