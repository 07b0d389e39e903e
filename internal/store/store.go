// Package store owns the authoritative in-memory collections of chores,
// roommates, and completion records. Every mutation is applied atomically
// under the store lock and persisted through the Storage collaborator.
// Chore mutations that affect external systems are also handed to the
// Syncer without blocking the caller.
package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/room8/internal/model"
)

// Storage persists whole collections. Loads are lenient: implementations
// return an empty collection when no prior state exists or the persisted
// state cannot be read, never an error.
type Storage interface {
	SaveChores([]model.Chore) error
	LoadChores() []model.Chore
	SaveRoommates([]model.Roommate) error
	LoadRoommates() []model.Roommate
	SaveCompletions([]model.ChoreCompletion) error
	LoadCompletions() []model.ChoreCompletion
}

// Syncer receives chore mutations for propagation to the notification and
// calendar systems. Both methods must return without blocking; the work
// happens on the syncer's own worker.
type Syncer interface {
	EnqueueUpsert(c model.Chore)
	EnqueueRemove(choreID, choreName, calendarEventID string)
}

// Store is the single owner of the in-memory state. All reads hand out
// copies; no caller ever observes a half-applied mutation.
type Store struct {
	mu      sync.RWMutex
	storage Storage
	syncer  Syncer
	logger  *slog.Logger
	now     func() time.Time

	chores      []model.Chore
	roommates   []model.Roommate
	completions []model.ChoreCompletion
}

// New creates a Store and loads prior state from storage.
func New(storage Storage, logger *slog.Logger) *Store {
	return &Store{
		storage:     storage,
		logger:      logger,
		now:         time.Now,
		chores:      storage.LoadChores(),
		roommates:   storage.LoadRoommates(),
		completions: storage.LoadCompletions(),
	}
}

// SetSyncer attaches the sync orchestrator. Wired once at startup, after
// both sides exist; a nil syncer disables propagation (used in tests).
func (s *Store) SetSyncer(sy Syncer) {
	s.mu.Lock()
	s.syncer = sy
	s.mu.Unlock()
}

// Chores returns a copy of all chores.
func (s *Store) Chores() []model.Chore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Chore, len(s.chores))
	copy(out, s.chores)
	return out
}

// GetChore returns the chore with the given id, or false.
func (s *Store) GetChore(id string) (model.Chore, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.chores {
		if c.ID == id {
			return c, true
		}
	}
	return model.Chore{}, false
}

// Roommates returns a copy of all roommates.
func (s *Store) Roommates() []model.Roommate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Roommate, len(s.roommates))
	copy(out, s.roommates)
	return out
}

// GetRoommate returns the roommate with the given id, or false.
func (s *Store) GetRoommate(id string) (model.Roommate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roommates {
		if r.ID == id {
			return r, true
		}
	}
	return model.Roommate{}, false
}

// Completions returns a copy of the full completion history.
func (s *Store) Completions() []model.ChoreCompletion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ChoreCompletion, len(s.completions))
	copy(out, s.completions)
	return out
}

// CompletionsForChore returns the completion history for one chore,
// newest first.
func (s *Store) CompletionsForChore(choreID string) []model.ChoreCompletion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ChoreCompletion
	for i := len(s.completions) - 1; i >= 0; i-- {
		if s.completions[i].ChoreID == choreID {
			out = append(out, s.completions[i])
		}
	}
	return out
}

// persistChores saves the chore collection. Persistence failures are
// logged and swallowed: the in-memory mutation always stands.
func (s *Store) persistChores() {
	if err := s.storage.SaveChores(s.chores); err != nil {
		s.logger.Warn("persist chores failed", "error", err)
	}
}

func (s *Store) persistRoommates() {
	if err := s.storage.SaveRoommates(s.roommates); err != nil {
		s.logger.Warn("persist roommates failed", "error", err)
	}
}

func (s *Store) persistCompletions() {
	if err := s.storage.SaveCompletions(s.completions); err != nil {
		s.logger.Warn("persist completions failed", "error", err)
	}
}

func (s *Store) choreIndex(id string) int {
	for i := range s.chores {
		if s.chores[i].ID == id {
			return i
		}
	}
	return -1
}
