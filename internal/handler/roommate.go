package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/room8/internal/model"
	"github.com/dukerupert/room8/internal/store"
	"github.com/dukerupert/room8/internal/websocket"
)

type RoommateHandler struct {
	store  *store.Store
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewRoommateHandler(s *store.Store, hub *websocket.Hub, logger *slog.Logger) *RoommateHandler {
	return &RoommateHandler{store: s, hub: hub, logger: logger}
}

func (h *RoommateHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type roommateRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (r *roommateRequest) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return "name is required"
	}
	return ""
}

func (h *RoommateHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Roommates())
}

func (h *RoommateHandler) Get(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.store.GetRoommate(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "roommate not found")
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

func (h *RoommateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req roommateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	rm := h.store.AddRoommate(model.Roommate{Name: req.Name, Email: req.Email, Phone: req.Phone})
	h.broadcast(websocket.NewMessage("roommate", "created", rm.ID, nil))
	writeJSON(w, http.StatusCreated, rm)
}

func (h *RoommateHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.store.GetRoommate(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "roommate not found")
		return
	}

	var req roommateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	existing.Name = req.Name
	existing.Email = req.Email
	existing.Phone = req.Phone

	rm, ok := h.store.UpdateRoommate(existing)
	if !ok {
		writeError(w, http.StatusNotFound, "roommate not found")
		return
	}
	h.broadcast(websocket.NewMessage("roommate", "updated", rm.ID, nil))
	writeJSON(w, http.StatusOK, rm)
}

func (h *RoommateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.store.DeleteRoommate(id) {
		writeError(w, http.StatusNotFound, "roommate not found")
		return
	}
	h.broadcast(websocket.NewMessage("roommate", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *RoommateHandler) Chores(w http.ResponseWriter, r *http.Request) {
	chores := h.store.ChoresAssignedTo(r.PathValue("id"))
	if chores == nil {
		chores = []model.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}
