package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Emmanard/eventwave/internal/models"
	"github.com/google/uuid"
)

// MemoryPaymentRepository implements PaymentRepository with in-memory
// storage. Used by tests.
type MemoryPaymentRepository struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
}

func NewMemoryPaymentRepository() *MemoryPaymentRepository {
	return &MemoryPaymentRepository{
		payments: make(map[string]*models.Payment),
	}
}

func (r *MemoryPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.payments[payment.Reference]; exists {
		return ErrDuplicateReference
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now()
	}

	copied := *payment
	r.payments[payment.Reference] = &copied
	return nil
}

func (r *MemoryPaymentRepository) FindByReference(ctx context.Context, reference string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment, ok := r.payments[reference]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *payment
	return &copied, nil
}

func (r *MemoryPaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.payments[payment.Reference]; !ok {
		return ErrNotFound
	}

	copied := *payment
	r.payments[payment.Reference] = &copied
	return nil
}

func (r *MemoryPaymentRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Payment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.Payment
	for _, payment := range r.payments {
		if payment.UserID == userID {
			matched = append(matched, *payment)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	offset := (page - 1) * limit
	if offset >= len(matched) {
		return []models.Payment{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}
