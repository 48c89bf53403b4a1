// Package service is the mutation and accounting API surface consumed by the
// HTTP handlers. Local mutations always succeed immediately regardless of
// connectivity; only eventual remote consistency is delayed.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dt2patel/traveller/internal/model"
	"github.com/dt2patel/traveller/internal/store"
	syncengine "github.com/dt2patel/traveller/internal/sync"
)

type EventService struct {
	events *store.EventStore
	cache  *store.CacheStore
	engine *syncengine.Engine
	logger *slog.Logger
	now    func() time.Time
}

func NewEventService(events *store.EventStore, cache *store.CacheStore, engine *syncengine.Engine, logger *slog.Logger) *EventService {
	return &EventService{
		events: events,
		cache:  cache,
		engine: engine,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateEventInput carries the caller-supplied fields of a new event. ID is
// optional; clients that pre-generate ids keep them stable across sync.
type CreateEventInput struct {
	ID           string
	Kind         model.EventKind
	OccurredAt   time.Time
	OccurredZone string
	Origin       model.EventOrigin
	Notes        string
}

// UpdateEventInput is a partial patch; nil fields are left unchanged.
type UpdateEventInput struct {
	Kind         *model.EventKind
	OccurredAt   *time.Time
	OccurredZone *string
	Notes        *string
}

// Create validates and applies a new event optimistically: local write,
// queue append, cache invalidation, then a background flush kick.
func (s *EventService) Create(ctx context.Context, ownerID string, in CreateEventInput) (*model.Event, error) {
	if ownerID == "" {
		return nil, ErrAuthRequired
	}
	if !model.ValidKind(in.Kind) {
		return nil, fmt.Errorf("%w: kind must be ENTRY or EXIT", ErrValidation)
	}
	if in.OccurredAt.IsZero() {
		return nil, fmt.Errorf("%w: occurred_at is required", ErrValidation)
	}
	zone, err := normalizeZone(in.OccurredZone)
	if err != nil {
		return nil, err
	}
	if in.Origin == "" {
		in.Origin = model.OriginManual
	}
	if !model.ValidOrigin(in.Origin) {
		return nil, fmt.Errorf("%w: unknown origin %q", ErrValidation, in.Origin)
	}

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	} else if existing, err := s.events.GetByID(id); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%w: event id %s already exists", ErrValidation, id)
	}

	now := s.now()
	e := model.Event{
		ID:           id,
		OwnerID:      ownerID,
		Kind:         in.Kind,
		OccurredAt:   in.OccurredAt.UTC(),
		OccurredZone: zone,
		CreatedAt:    now,
		UpdatedAt:    now,
		Origin:       in.Origin,
		Notes:        in.Notes,
		SyncMarker:   model.MarkerQueued,
	}

	if err := s.events.Put(e); err != nil {
		return nil, err
	}
	if err := s.engine.Enqueue(model.ActionCreate, e); err != nil {
		return nil, err
	}
	s.afterMutation(ownerID)

	return &e, nil
}

// Update applies a partial patch. The event re-enters the queued state; its
// bumped updated_at is the conflict tie-breaker against other devices.
func (s *EventService) Update(ctx context.Context, ownerID, id string, in UpdateEventInput) (*model.Event, error) {
	if ownerID == "" {
		return nil, ErrAuthRequired
	}

	e, err := s.ownedEvent(ownerID, id)
	if err != nil {
		return nil, err
	}

	if in.Kind != nil {
		if !model.ValidKind(*in.Kind) {
			return nil, fmt.Errorf("%w: kind must be ENTRY or EXIT", ErrValidation)
		}
		e.Kind = *in.Kind
	}
	if in.OccurredAt != nil {
		if in.OccurredAt.IsZero() {
			return nil, fmt.Errorf("%w: occurred_at must not be zero", ErrValidation)
		}
		e.OccurredAt = in.OccurredAt.UTC()
	}
	if in.OccurredZone != nil {
		zone, err := normalizeZone(*in.OccurredZone)
		if err != nil {
			return nil, err
		}
		e.OccurredZone = zone
	}
	if in.Notes != nil {
		e.Notes = *in.Notes
	}

	e.UpdatedAt = s.now()
	e.SyncMarker = model.MarkerQueued

	if err := s.events.Put(*e); err != nil {
		return nil, err
	}
	if err := s.engine.Enqueue(model.ActionUpdate, *e); err != nil {
		return nil, err
	}
	s.afterMutation(ownerID)

	return e, nil
}

// Delete removes the event locally and queues the remote delete.
func (s *EventService) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return ErrAuthRequired
	}

	if _, err := s.ownedEvent(ownerID, id); err != nil {
		return err
	}

	if err := s.events.Delete(id); err != nil {
		return err
	}
	if err := s.engine.Enqueue(model.ActionDelete, model.Event{ID: id, OwnerID: ownerID}); err != nil {
		return err
	}
	s.afterMutation(ownerID)

	return nil
}

// List returns the owner's events. With forceRefresh, the remote snapshot is
// pulled and reconciled first; a failed pull degrades to local data.
func (s *EventService) List(ctx context.Context, ownerID string, forceRefresh bool) ([]model.Event, error) {
	if ownerID == "" {
		return nil, ErrAuthRequired
	}

	if forceRefresh {
		if err := s.engine.Refresh(ctx, ownerID); err != nil {
			s.logger.Warn("remote refresh failed, serving local data", "owner", ownerID, "error", err)
		} else if err := s.cache.Invalidate(ownerID); err != nil {
			return nil, err
		}
	}

	return s.events.ListByOwner(ownerID)
}

// SyncStatus returns the derived global sync state.
func (s *EventService) SyncStatus(ctx context.Context) syncengine.Status {
	return s.engine.Status(ctx)
}

func (s *EventService) ownedEvent(ownerID, id string) (*model.Event, error) {
	e, err := s.events.GetByID(id)
	if err != nil {
		return nil, err
	}
	if e == nil || e.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// afterMutation invalidates the derived-result cache and kicks a background
// flush, mirroring the optimistic-write contract: the caller never waits on
// the network.
func (s *EventService) afterMutation(ownerID string) {
	if err := s.cache.Invalidate(ownerID); err != nil {
		s.logger.Error("invalidate summary cache", "owner", ownerID, "error", err)
	}
	go func() {
		if _, err := s.engine.Flush(context.Background()); err != nil {
			s.logger.Warn("background flush", "error", err)
		}
	}()
}

func normalizeZone(zone string) (string, error) {
	if zone == "" {
		return "UTC", nil
	}
	if _, err := time.LoadLocation(zone); err != nil {
		return "", fmt.Errorf("%w: unknown timezone %q", ErrValidation, zone)
	}
	return zone, nil
}
