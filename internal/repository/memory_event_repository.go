package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/Emmanard/eventwave/internal/models"
	"github.com/google/uuid"
)

// MemoryEventRepository implements EventRepository with in-memory storage.
// The mutex gives CommitSeats the same all-or-nothing, once-per-reference
// semantics the gorm implementation gets from its transaction and row lock.
// Used by tests.
type MemoryEventRepository struct {
	mu       sync.Mutex
	events   map[uuid.UUID]*models.Event
	bookings map[uuid.UUID][]models.Booking
}

func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{
		events:   make(map[uuid.UUID]*models.Event),
		bookings: make(map[uuid.UUID][]models.Booking),
	}
}

// Put stores an event, replacing any previous version.
func (r *MemoryEventRepository) Put(event *models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *event
	r.events[event.ID] = &copied
}

func (r *MemoryEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *event
	copied.SeatsBooked = append([]models.Booking(nil), r.bookings[id]...)
	sort.Slice(copied.SeatsBooked, func(i, j int) bool {
		return copied.SeatsBooked[i].SeatNumber < copied.SeatsBooked[j].SeatNumber
	})
	return &copied, nil
}

func (r *MemoryEventRepository) CommitSeats(ctx context.Context, eventID uuid.UUID, quantity int, entry models.Booking) ([]models.Booking, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[eventID]
	if !ok {
		return nil, 0, ErrNotFound
	}

	count := len(r.bookings[eventID])

	var existing []models.Booking
	for _, booking := range r.bookings[eventID] {
		if booking.Reference == entry.Reference {
			existing = append(existing, booking)
		}
	}
	if len(existing) > 0 {
		return existing, event.Seats - count, nil
	}

	if count+quantity > event.Seats {
		return nil, 0, ErrCapacityExceeded
	}

	booked := make([]models.Booking, 0, quantity)
	for i := 0; i < quantity; i++ {
		booking := entry
		booking.ID = uuid.New()
		booking.EventID = eventID
		booking.SeatNumber = count + i + 1
		booked = append(booked, booking)
	}

	r.bookings[eventID] = append(r.bookings[eventID], booked...)
	remaining := event.Seats - count - quantity
	return booked, remaining, nil
}

func (r *MemoryEventRepository) ListPublished(ctx context.Context) ([]models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var events []models.Event
	for _, event := range r.events {
		if event.Status == models.EventStatusPublished {
			events = append(events, *event)
		}
	}
	return events, nil
}

func (r *MemoryEventRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return ErrNotFound
	}
	event.Status = status
	return nil
}
