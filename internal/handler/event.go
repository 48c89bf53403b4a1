package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dt2patel/traveller/internal/auth"
	"github.com/dt2patel/traveller/internal/model"
	"github.com/dt2patel/traveller/internal/service"
	"github.com/dt2patel/traveller/internal/websocket"
)

type EventHandler struct {
	service *service.EventService
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewEventHandler(svc *service.EventService, hub *websocket.Hub, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: svc, hub: hub, logger: logger}
}

func (h *EventHandler) broadcast(ownerID string, msg websocket.Message) {
	if h.hub != nil {
		h.hub.BroadcastToOwner(ownerID, msg)
	}
}

type createEventRequest struct {
	ID           string     `json:"id"`
	Kind         string     `json:"kind"`
	OccurredAt   *time.Time `json:"occurred_at"`
	OccurredZone string     `json:"occurred_zone"`
	Origin       string     `json:"origin"`
	Notes        string     `json:"notes"`
}

type updateEventRequest struct {
	Kind         *string    `json:"kind"`
	OccurredAt   *time.Time `json:"occurred_at"`
	OccurredZone *string    `json:"occurred_zone"`
	Notes        *string    `json:"notes"`
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	in := service.CreateEventInput{
		ID:           req.ID,
		Kind:         model.EventKind(req.Kind),
		OccurredZone: req.OccurredZone,
		Origin:       model.EventOrigin(req.Origin),
		Notes:        req.Notes,
	}
	if req.OccurredAt != nil {
		in.OccurredAt = *req.OccurredAt
	}

	event, err := h.service.Create(r.Context(), auth.OwnerID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(event.OwnerID, websocket.NewMessage("event", "created", event.ID, nil))
	writeJSON(w, http.StatusCreated, event)
}

// QuickLog records a crossing stamped with the server clock. This is the
// one-tap path: the only required field is the direction.
func (h *EventHandler) QuickLog(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind         string `json:"kind"`
		OccurredZone string `json:"occurred_zone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	event, err := h.service.Create(r.Context(), auth.OwnerID(r.Context()), service.CreateEventInput{
		Kind:         model.EventKind(req.Kind),
		OccurredAt:   time.Now().UTC(),
		OccurredZone: req.OccurredZone,
		Origin:       model.OriginQuick,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(event.OwnerID, websocket.NewMessage("event", "created", event.ID, nil))
	writeJSON(w, http.StatusCreated, event)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "true"

	events, err := h.service.List(r.Context(), auth.OwnerID(r.Context()), refresh)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	in := service.UpdateEventInput{
		OccurredAt:   req.OccurredAt,
		OccurredZone: req.OccurredZone,
		Notes:        req.Notes,
	}
	if req.Kind != nil {
		kind := model.EventKind(*req.Kind)
		in.Kind = &kind
	}

	event, err := h.service.Update(r.Context(), auth.OwnerID(r.Context()), id, in)
	if err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(event.OwnerID, websocket.NewMessage("event", "updated", event.ID, nil))
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ownerID := auth.OwnerID(r.Context())

	if err := h.service.Delete(r.Context(), ownerID, id); err != nil {
		writeError(w, err)
		return
	}

	h.broadcast(ownerID, websocket.NewMessage("event", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
