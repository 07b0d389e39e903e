package store

import (
	"github.com/google/uuid"

	"github.com/dukerupert/room8/internal/model"
)

// CreateChore assigns an id and creation time if absent, appends the
// chore, persists, and enqueues a sync. Returns the stored chore.
func (s *Store) CreateChore(c model.Chore) model.Chore {
	s.mu.Lock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	if c.ScheduledAt.IsZero() {
		c.ScheduledAt = c.CreatedAt
	}
	s.chores = append(s.chores, c)
	s.persistChores()
	syncer := s.syncer
	s.mu.Unlock()

	if syncer != nil {
		syncer.EnqueueUpsert(c)
	}
	return c
}

// UpdateChore replaces the chore with a matching id. An unknown id is a
// logged no-op, not an error.
func (s *Store) UpdateChore(c model.Chore) (model.Chore, bool) {
	s.mu.Lock()
	i := s.choreIndex(c.ID)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Info("update for unknown chore ignored", "chore_id", c.ID)
		return model.Chore{}, false
	}
	s.chores[i] = c
	s.persistChores()
	syncer := s.syncer
	s.mu.Unlock()

	if syncer != nil {
		syncer.EnqueueUpsert(c)
	}
	return c, true
}

// DeleteChore removes the chore and enqueues cleanup of its reminders and
// remote calendar event. The local removal never waits on that cleanup.
// Deleting an absent id is a no-op.
func (s *Store) DeleteChore(id string) bool {
	s.mu.Lock()
	i := s.choreIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	removed := s.chores[i]
	s.chores = append(s.chores[:i], s.chores[i+1:]...)
	s.persistChores()
	syncer := s.syncer
	s.mu.Unlock()

	if syncer != nil {
		syncer.EnqueueRemove(removed.ID, removed.Name, removed.CalendarEventID)
	}
	return true
}

// ToggleCompletion flips the completed flag. Completing sets
// LastCompletedAt; un-completing leaves it untouched. This is the quick
// checkbox path: it does not write a completion record (see
// CompleteChore) and does not re-sync.
func (s *Store) ToggleCompletion(id string) (model.Chore, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.choreIndex(id)
	if i < 0 {
		s.logger.Info("toggle for unknown chore ignored", "chore_id", id)
		return model.Chore{}, false
	}
	s.chores[i].IsCompleted = !s.chores[i].IsCompleted
	if s.chores[i].IsCompleted {
		now := s.now()
		s.chores[i].LastCompletedAt = &now
	}
	s.persistChores()
	return s.chores[i], true
}

// CompleteChore appends an audit record of who completed the chore and
// updates the chore's fast-path LastCompletedAt, then enqueues a sync.
// It deliberately does not touch the IsCompleted flag: the toggle and the
// audited completion are separate paths.
func (s *Store) CompleteChore(choreID, roommateID, notes string) (model.ChoreCompletion, bool) {
	s.mu.Lock()
	i := s.choreIndex(choreID)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Info("completion for unknown chore ignored", "chore_id", choreID)
		return model.ChoreCompletion{}, false
	}

	now := s.now()
	rec := model.ChoreCompletion{
		ID:          uuid.NewString(),
		ChoreID:     choreID,
		CompletedBy: roommateID,
		CompletedAt: now,
		Notes:       notes,
	}
	s.completions = append(s.completions, rec)
	s.chores[i].LastCompletedAt = &now
	updated := s.chores[i]

	s.persistChores()
	s.persistCompletions()
	syncer := s.syncer
	s.mu.Unlock()

	if syncer != nil {
		syncer.EnqueueUpsert(updated)
	}
	return rec, true
}

// AssignChore assigns the chore to a roommate. Re-assigning the same
// roommate is a safe overwrite.
func (s *Store) AssignChore(choreID, roommateID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.choreIndex(choreID)
	if i < 0 {
		return false
	}
	s.chores[i].AssignedTo = &roommateID
	s.persistChores()
	return true
}

// UnassignChore clears the chore's assignment.
func (s *Store) UnassignChore(choreID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.choreIndex(choreID)
	if i < 0 {
		return false
	}
	s.chores[i].AssignedTo = nil
	s.persistChores()
	return true
}

// CalendarEventID returns the chore's current remote event id. The bool
// is false when the chore no longer exists. The orchestrator reads this
// at sync time rather than trusting the queued snapshot, so back-to-back
// syncs of a freshly created chore update the one event instead of
// creating duplicates.
func (s *Store) CalendarEventID(choreID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.choreIndex(choreID)
	if i < 0 {
		return "", false
	}
	return s.chores[i].CalendarEventID, true
}

// SetCalendarEventID records the remote event id on a chore. This is the
// orchestrator's write-back after a successful calendar create: a
// single-field patch, so a stale sync result can never clobber newer
// local fields, and it does not re-enqueue a sync.
func (s *Store) SetCalendarEventID(choreID, eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.choreIndex(choreID)
	if i < 0 {
		// Chore deleted while its sync was in flight.
		return false
	}
	s.chores[i].CalendarEventID = eventID
	s.persistChores()
	return true
}
