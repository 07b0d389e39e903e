package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/room8/internal/backup"
	"github.com/dukerupert/room8/internal/calendar"
	"github.com/dukerupert/room8/internal/handler"
	"github.com/dukerupert/room8/internal/middleware"
	"github.com/dukerupert/room8/internal/notify"
	"github.com/dukerupert/room8/internal/orchestrator"
	"github.com/dukerupert/room8/internal/storage"
	"github.com/dukerupert/room8/internal/store"
	ws "github.com/dukerupert/room8/internal/websocket"
)

// Config collects what the server needs beyond the database handle.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Backup          backup.Config
}

// Server wires the store, sync orchestrator, and HTTP surface together.
type Server struct {
	hub           *ws.Hub
	store         *store.Store
	auth          *calendar.AuthManager
	orchestrator  *orchestrator.Orchestrator
	scheduler     *notify.Scheduler
	backupManager *backup.Manager
	choreH        *handler.ChoreHandler
	roommateH     *handler.RoommateHandler
	syncH         *handler.SyncHandler
	logger        *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	st := store.New(storage.New(db, logger.With("component", "storage")), logger.With("component", "store"))

	auth := calendar.NewAuthManager()
	gcal := calendar.NewGoogleClient(auth)

	notifySvc := notify.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	scheduler := notify.NewScheduler(notifySvc, logger.With("component", "notify"))

	// Sync failures surface to connected clients as advisories; they
	// never fail the originating request.
	advise := func(a orchestrator.Advisory) {
		hub.Broadcast(ws.NewAdvisory(a.Channel, a.ChoreID, a.Message))
	}
	orch := orchestrator.New(scheduler, gcal, st, advise, logger.With("component", "orchestrator"))
	st.SetSyncer(orch)

	backupMgr := backup.NewManager(cfg.Backup, db, func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(s.State),
			Extra: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	}, logger.With("component", "backup"))

	return &Server{
		hub:           hub,
		store:         st,
		auth:          auth,
		orchestrator:  orch,
		scheduler:     scheduler,
		backupManager: backupMgr,
		choreH:        handler.NewChoreHandler(st, hub, logger.With("component", "chore")),
		roommateH:     handler.NewRoommateHandler(st, hub, logger.With("component", "roommate")),
		syncH:         handler.NewSyncHandler(auth, scheduler, notifySvc, logger.With("component", "sync")),
		logger:        logger,
	}
}

// Start launches the background workers.
func (s *Server) Start(ctx context.Context) {
	s.orchestrator.Start(ctx)
	s.scheduler.Start(ctx)
	s.backupManager.Start(ctx)
}

// Stop halts the background workers, draining none of their queues.
func (s *Server) Stop() {
	s.orchestrator.Stop()
	s.scheduler.Stop()
	s.backupManager.Stop()
}

// BackupManager exposes the manager for CLI-driven restores.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Chore API routes
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.HandleFunc("PUT /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)
	mux.HandleFunc("POST /api/chores/{id}/toggle", s.choreH.Toggle)
	mux.HandleFunc("POST /api/chores/{id}/complete", s.choreH.Complete)
	mux.HandleFunc("GET /api/chores/{id}/completions", s.choreH.Completions)
	mux.HandleFunc("POST /api/chores/{id}/assign", s.choreH.Assign)
	mux.HandleFunc("DELETE /api/chores/{id}/assign", s.choreH.Unassign)

	// Roommate API routes
	mux.HandleFunc("GET /api/roommates", s.roommateH.List)
	mux.HandleFunc("POST /api/roommates", s.roommateH.Create)
	mux.HandleFunc("GET /api/roommates/{id}", s.roommateH.Get)
	mux.HandleFunc("PUT /api/roommates/{id}", s.roommateH.Update)
	mux.HandleFunc("DELETE /api/roommates/{id}", s.roommateH.Delete)
	mux.HandleFunc("GET /api/roommates/{id}/chores", s.roommateH.Chores)

	// Calendar authorization
	mux.HandleFunc("GET /api/calendar/status", s.syncH.CalendarStatus)
	mux.HandleFunc("POST /api/calendar/authorize", s.syncH.CalendarAuthorize)
	mux.HandleFunc("POST /api/calendar/signout", s.syncH.CalendarSignOut)

	// Push subscriptions
	mux.HandleFunc("GET /api/push/vapid-key", s.syncH.VAPIDPublicKey)
	mux.HandleFunc("POST /api/push/subscribe", s.syncH.Subscribe)
	mux.HandleFunc("POST /api/push/unsubscribe", s.syncH.Unsubscribe)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
