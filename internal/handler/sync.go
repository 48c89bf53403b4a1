package handler

import (
	"log/slog"
	"net/http"

	"github.com/dt2patel/traveller/internal/service"
	syncengine "github.com/dt2patel/traveller/internal/sync"
)

type SyncHandler struct {
	service *service.EventService
	engine  *syncengine.Engine
	logger  *slog.Logger
}

func NewSyncHandler(svc *service.EventService, engine *syncengine.Engine, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{service: svc, engine: engine, logger: logger}
}

func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": string(h.service.SyncStatus(r.Context())),
	})
}

// Flush triggers an immediate queue drain. If a flush is already running the
// call returns without waiting for it.
func (h *SyncHandler) Flush(w http.ResponseWriter, r *http.Request) {
	drained, err := h.engine.Flush(r.Context())
	if err != nil {
		h.logger.Error("manual flush", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"drained": drained,
		"status":  string(h.service.SyncStatus(r.Context())),
	})
}
