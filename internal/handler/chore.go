package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/room8/internal/chore"
	"github.com/dukerupert/room8/internal/model"
	"github.com/dukerupert/room8/internal/store"
	"github.com/dukerupert/room8/internal/websocket"
)

type ChoreHandler struct {
	store  *store.Store
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewChoreHandler(s *store.Store, hub *websocket.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{store: s, hub: hub, logger: logger}
}

func (h *ChoreHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type choreRequest struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Frequency        model.Frequency `json:"frequency"`
	EstimatedMinutes int             `json:"estimated_minutes"`
	Priority         model.Priority  `json:"priority"`
	AssignedTo       *string         `json:"assigned_to"`
	ScheduledAt      *time.Time      `json:"scheduled_at"`
}

func (r *choreRequest) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return "name is required"
	}
	switch r.Frequency {
	case model.FrequencyDaily, model.FrequencyWeekly, model.FrequencyBiweekly, model.FrequencyMonthly, model.FrequencyAsNeeded:
	default:
		return "invalid frequency"
	}
	switch r.Priority {
	case "":
		r.Priority = model.PriorityMedium
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityUrgent:
	default:
		return "invalid priority"
	}
	if r.EstimatedMinutes <= 0 {
		r.EstimatedMinutes = 30
	}
	return ""
}

func (r *choreRequest) apply(c model.Chore) model.Chore {
	c.Name = r.Name
	c.Description = r.Description
	c.Frequency = r.Frequency
	c.EstimatedMinutes = r.EstimatedMinutes
	c.Priority = r.Priority
	c.AssignedTo = r.AssignedTo
	if r.ScheduledAt != nil {
		c.ScheduledAt = *r.ScheduledAt
	}
	return c
}

// choreView is a chore plus its computed due status.
type choreView struct {
	model.Chore
	Status   chore.Status `json:"status"`
	Overdue  bool         `json:"overdue"`
	DueToday bool         `json:"due_today"`
}

func (h *ChoreHandler) view(c model.Chore) choreView {
	now := time.Now()
	return choreView{
		Chore:    c,
		Status:   chore.Evaluate(c, now),
		Overdue:  chore.IsOverdue(c, now),
		DueToday: chore.IsDueToday(c, now),
	}
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	chores := h.store.Chores()
	views := make([]choreView, 0, len(chores))
	for _, c := range chores {
		v := h.view(c)
		switch r.URL.Query().Get("due") {
		case "overdue":
			if !v.Overdue {
				continue
			}
		case "today":
			if !v.DueToday {
				continue
			}
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.store.GetChore(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}
	writeJSON(w, http.StatusOK, h.view(c))
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.AssignedTo != nil {
		if _, ok := h.store.GetRoommate(*req.AssignedTo); !ok {
			writeError(w, http.StatusBadRequest, "roommate not found")
			return
		}
	}

	c := h.store.CreateChore(req.apply(model.Chore{}))
	h.broadcast(websocket.NewMessage("chore", "created", c.ID, nil))
	writeJSON(w, http.StatusCreated, h.view(c))
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.store.GetChore(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c, ok := h.store.UpdateChore(req.apply(existing))
	if !ok {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}
	h.broadcast(websocket.NewMessage("chore", "updated", c.ID, nil))
	writeJSON(w, http.StatusOK, h.view(c))
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.store.DeleteChore(id) {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}
	h.broadcast(websocket.NewMessage("chore", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChoreHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	c, ok := h.store.ToggleCompletion(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}
	h.broadcast(websocket.NewMessage("chore", "toggled", c.ID, map[string]any{"is_completed": c.IsCompleted}))
	writeJSON(w, http.StatusOK, h.view(c))
}

func (h *ChoreHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		CompletedBy string `json:"completed_by"`
		Notes       string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.CompletedBy == "" {
		writeError(w, http.StatusBadRequest, "completed_by is required")
		return
	}
	if _, ok := h.store.GetRoommate(req.CompletedBy); !ok {
		writeError(w, http.StatusBadRequest, "roommate not found")
		return
	}

	rec, ok := h.store.CompleteChore(id, req.CompletedBy, req.Notes)
	if !ok {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}
	h.broadcast(websocket.NewMessage("chore", "completed", id, nil))
	writeJSON(w, http.StatusCreated, rec)
}

func (h *ChoreHandler) Completions(w http.ResponseWriter, r *http.Request) {
	recs := h.store.CompletionsForChore(r.PathValue("id"))
	if recs == nil {
		recs = []model.ChoreCompletion{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *ChoreHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		RoommateID string `json:"roommate_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if _, ok := h.store.GetRoommate(req.RoommateID); !ok {
		writeError(w, http.StatusBadRequest, "roommate not found")
		return
	}

	if !h.store.AssignChore(id, req.RoommateID) {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}
	h.broadcast(websocket.NewMessage("chore", "assigned", id, map[string]any{"roommate_id": req.RoommateID}))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChoreHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.store.UnassignChore(id) {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}
	h.broadcast(websocket.NewMessage("chore", "unassigned", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
