package store

import (
	"github.com/google/uuid"

	"github.com/dukerupert/room8/internal/model"
)

// AddRoommate assigns an id and creation time if absent and appends.
func (s *Store) AddRoommate(r model.Roommate) model.Roommate {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.roommates = append(s.roommates, r)
	s.persistRoommates()
	return r
}

// UpdateRoommate replaces the roommate with a matching id. An unknown id
// is a logged no-op.
func (s *Store) UpdateRoommate(r model.Roommate) (model.Roommate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.roommates {
		if s.roommates[i].ID == r.ID {
			s.roommates[i] = r
			s.persistRoommates()
			return r, true
		}
	}
	s.logger.Info("update for unknown roommate ignored", "roommate_id", r.ID)
	return model.Roommate{}, false
}

// DeleteRoommate removes the roommate and clears the assignment on every
// chore that referenced them, persisting both collections together so no
// chore is ever left pointing at a missing roommate.
func (s *Store) DeleteRoommate(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for i := range s.roommates {
		if s.roommates[i].ID == id {
			s.roommates = append(s.roommates[:i], s.roommates[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return false
	}

	for i := range s.chores {
		if s.chores[i].AssignedTo != nil && *s.chores[i].AssignedTo == id {
			s.chores[i].AssignedTo = nil
		}
	}

	s.persistRoommates()
	s.persistChores()
	return true
}

// ChoresAssignedTo returns the chores currently assigned to a roommate.
func (s *Store) ChoresAssignedTo(roommateID string) []model.Chore {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Chore
	for _, c := range s.chores {
		if c.AssignedTo != nil && *c.AssignedTo == roommateID {
			out = append(out, c)
		}
	}
	return out
}
