package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/room8/internal/calendar"
	"github.com/dukerupert/room8/internal/notify"
)

// SyncHandler exposes the calendar authorization flow and web push
// subscription management. Chore mutations sync implicitly through the
// orchestrator; these endpoints only manage the credentials it uses.
type SyncHandler struct {
	auth      *calendar.AuthManager
	scheduler *notify.Scheduler
	service   *notify.Service
	logger    *slog.Logger
}

func NewSyncHandler(auth *calendar.AuthManager, scheduler *notify.Scheduler, service *notify.Service, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{auth: auth, scheduler: scheduler, service: service, logger: logger}
}

func (h *SyncHandler) CalendarStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"authorized": h.auth.IsAuthorized()})
}

func (h *SyncHandler) CalendarAuthorize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "access_token is required")
		return
	}

	var expiry time.Time
	if req.ExpiresIn > 0 {
		expiry = time.Now().Add(time.Duration(req.ExpiresIn) * time.Second)
	}
	h.auth.SetToken(req.AccessToken, expiry)
	h.logger.Info("calendar authorized", "expires_in", req.ExpiresIn)
	writeJSON(w, http.StatusOK, map[string]bool{"authorized": true})
}

func (h *SyncHandler) CalendarSignOut(w http.ResponseWriter, r *http.Request) {
	h.auth.SignOut()
	h.logger.Info("calendar signed out")
	w.WriteHeader(http.StatusNoContent)
}

func (h *SyncHandler) VAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

func (h *SyncHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var sub notify.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if sub.Endpoint == "" || sub.P256dhKey == "" || sub.AuthKey == "" {
		writeError(w, http.StatusBadRequest, "endpoint, p256dh and auth keys are required")
		return
	}

	h.scheduler.Subscribe(sub)
	h.logger.Info("push subscription added", "endpoint", sub.Endpoint)
	w.WriteHeader(http.StatusCreated)
}

func (h *SyncHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "endpoint is required")
		return
	}

	h.scheduler.Unsubscribe(req.Endpoint)
	w.WriteHeader(http.StatusNoContent)
}
