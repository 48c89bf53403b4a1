package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dt2patel/traveller/internal/handler"
	"github.com/dt2patel/traveller/internal/middleware"
	"github.com/dt2patel/traveller/internal/push"
	"github.com/dt2patel/traveller/internal/remote"
	"github.com/dt2patel/traveller/internal/service"
	"github.com/dt2patel/traveller/internal/store"
	syncengine "github.com/dt2patel/traveller/internal/sync"
	ws "github.com/dt2patel/traveller/internal/websocket"
)

// Config carries the externally supplied pieces of the server.
type Config struct {
	Remote          remote.Store
	VAPIDPublicKey  string
	VAPIDPrivateKey string
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	engine        *syncengine.Engine
	eventH        *handler.EventHandler
	summaryH      *handler.SummaryHandler
	syncH         *handler.SyncHandler
	authH         *handler.AuthHandler
	pushH         *handler.PushHandler
	sessionStore  *store.SessionStore
	userStore     *store.UserStore
	pushScheduler *push.Scheduler
	logger        *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	eventStore := store.NewEventStore(db)
	queueStore := store.NewQueueStore(db)
	cacheStore := store.NewCacheStore(db)
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	pushStore := store.NewPushStore(db)

	// Every derived-status change fans out to connected clients.
	engine := syncengine.NewEngine(eventStore, queueStore, cfg.Remote, nil, func(status syncengine.Status) {
		hub.Broadcast(ws.StatusMessage(string(status)))
	}, logger.With("component", "sync"))

	svc := service.NewEventService(eventStore, cacheStore, engine, logger.With("component", "service"))

	var pushSvc *push.Service
	var pushSched *push.Scheduler
	var pushH *handler.PushHandler
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
		pushSched = push.NewScheduler(pushSvc, pushStore, eventStore, logger.With("component", "push"))
		pushH = handler.NewPushHandler(pushSvc, pushStore, logger.With("component", "push_handler"))
	}

	return &Server{
		db:            db,
		hub:           hub,
		engine:        engine,
		eventH:        handler.NewEventHandler(svc, hub, logger.With("component", "event")),
		summaryH:      handler.NewSummaryHandler(svc),
		syncH:         handler.NewSyncHandler(svc, engine, logger.With("component", "sync_handler")),
		authH:         handler.NewAuthHandler(userStore, sessionStore, logger.With("component", "auth")),
		pushH:         pushH,
		sessionStore:  sessionStore,
		userStore:     userStore,
		pushScheduler: pushSched,
		logger:        logger,
	}
}

// Engine returns the sync engine for lifecycle management.
func (s *Server) Engine() *syncengine.Engine {
	return s.engine
}

// PushScheduler returns the push scheduler, or nil when push is not configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /api/auth/register", s.authH.Register)
	outerMux.HandleFunc("POST /api/auth/login", s.authH.Login)
	outerMux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes behind the session check
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/api/", authMiddleware(protectedMux))
	outerMux.Handle("GET /ws", authMiddleware(ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket"))))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// Event log
	mux.HandleFunc("POST /api/events", s.eventH.Create)
	mux.HandleFunc("POST /api/events/quick", s.eventH.QuickLog)
	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("PUT /api/events/{id}", s.eventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.eventH.Delete)

	// Residency accounting
	mux.HandleFunc("GET /api/summary", s.summaryH.Summary)
	mux.HandleFunc("GET /api/summary/trips", s.summaryH.Trips)
	mux.HandleFunc("GET /api/summary/rolling", s.summaryH.Rolling)
	mux.HandleFunc("GET /api/summary/fiscal-year", s.summaryH.FiscalYear)
	mux.HandleFunc("GET /api/summary/forecast", s.summaryH.Forecast)
	mux.HandleFunc("GET /api/summary/anomalies", s.summaryH.Anomalies)

	// Sync
	mux.HandleFunc("GET /api/sync/status", s.syncH.Status)
	mux.HandleFunc("POST /api/sync/flush", s.syncH.Flush)

	// Push notifications
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDPublicKey)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
	}
}
