package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dt2patel/traveller/internal/model"
	"github.com/dt2patel/traveller/internal/residency"
	"github.com/dt2patel/traveller/internal/store"
)

const (
	// Alert before the 182-day presence threshold is actually crossed so
	// the traveller still has time to act.
	thresholdDays = 182
	alertAtDays   = 170

	// At most one threshold alert per subscription per day.
	alertCooldown = 24 * time.Hour

	defaultInterval = time.Hour
)

// sender abstracts Service.Send for tests.
type sender interface {
	Send(sub *model.PushSubscription, payload Payload) error
}

// Scheduler periodically checks each subscribed owner's rolling presence
// count and sends a warning push when it approaches the residency threshold.
type Scheduler struct {
	mu       sync.RWMutex
	service  sender
	push     *store.PushStore
	events   *store.EventStore
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a threshold alert scheduler.
func NewScheduler(svc *Service, pushStore *store.PushStore, eventStore *store.EventStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:  svc,
		push:     pushStore,
		events:   eventStore,
		interval: defaultInterval,
		now:      time.Now,
		logger:   logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	ownerIDs, err := s.push.ListOwnerIDs()
	if err != nil {
		s.logger.Error("push scheduler: list owners", "error", err)
		return
	}

	for _, ownerID := range ownerIDs {
		s.checkThreshold(ctx, ownerID)
	}
}

func (s *Scheduler) checkThreshold(ctx context.Context, ownerID string) {
	now := s.now().UTC()

	events, err := s.events.ListByOwner(ownerID)
	if err != nil {
		s.logger.Error("push scheduler: list events", "owner_id", ownerID, "error", err)
		return
	}

	trips, err := residency.PairTrips(events, now)
	if err != nil {
		s.logger.Error("push scheduler: pair trips", "owner_id", ownerID, "error", err)
		return
	}

	days := residency.RollingWindowDays(trips, thresholdDays, now)
	if days < alertAtDays {
		return
	}

	subs, err := s.push.ListByOwner(ownerID)
	if err != nil {
		s.logger.Error("push scheduler: list subscriptions", "owner_id", ownerID, "error", err)
		return
	}

	payload := Payload{
		Title: "Residency Threshold Warning",
		Body:  fmt.Sprintf("You have %.0f presence days in the last %d. The %d-day threshold is close.", days, thresholdDays, thresholdDays),
		URL:   "/summary",
		Tag:   "threshold-warning",
	}

	for _, sub := range subs {
		if sub.LastAlert != nil && now.Sub(*sub.LastAlert) < alertCooldown {
			continue
		}

		if err := s.sendWithRetry(ctx, &sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				s.push.Delete(sub.Endpoint)
			} else {
				s.logger.Error("push scheduler: send threshold warning", "endpoint", sub.Endpoint, "error", err)
			}
			continue
		}

		if err := s.push.SetLastAlert(sub.ID, now); err != nil {
			s.logger.Error("push scheduler: record alert", "error", err)
		}
	}
}

// sendWithRetry retries transient push service failures. Expired
// subscriptions are not retried.
func (s *Scheduler) sendWithRetry(ctx context.Context, sub *model.PushSubscription, payload Payload) error {
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.service.Send(sub, payload)
		if err == nil || errors.Is(err, ErrExpired) {
			return err
		}
		return retry.RetryableError(err)
	})
}
