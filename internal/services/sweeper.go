package services

import (
	"context"
	"log"
	"time"

	"github.com/Emmanard/eventwave/internal/models"
	"github.com/Emmanard/eventwave/internal/repository"
)

// StatusSweeper periodically closes published events whose date has passed.
// The clock is injectable for tests.
type StatusSweeper struct {
	events   repository.EventRepository
	interval time.Duration
	now      func() time.Time
}

func NewStatusSweeper(events repository.EventRepository, interval time.Duration) *StatusSweeper {
	return &StatusSweeper{
		events:   events,
		interval: interval,
		now:      time.Now,
	}
}

// Run ticks until the context is cancelled. Sweep errors are logged, not
// fatal; the next tick retries the full scan.
func (s *StatusSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				log.Printf("status sweeper: %v", err)
			}
		}
	}
}

// Sweep loads the published set and closes every event already in the past.
func (s *StatusSweeper) Sweep(ctx context.Context) error {
	events, err := s.events.ListPublished(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	for _, event := range events {
		if !event.Date.Before(now) {
			continue
		}
		if err := s.events.SetStatus(ctx, event.ID, models.EventStatusClosed); err != nil {
			log.Printf("status sweeper: close event %s: %v", event.ID, err)
		}
	}
	return nil
}
