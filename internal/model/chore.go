package model

import "time"

// Frequency is the cadence at which a chore recurs.
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyAsNeeded Frequency = "as_needed"
)

// Priority controls how aggressively a chore is surfaced in reminders.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Chore struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Frequency        Frequency  `json:"frequency"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	Priority         Priority   `json:"priority"`
	AssignedTo       *string    `json:"assigned_to"`
	CreatedAt        time.Time  `json:"created_at"`
	LastCompletedAt  *time.Time `json:"last_completed_at"`
	ScheduledAt      time.Time  `json:"scheduled_at"`
	IsCompleted      bool       `json:"is_completed"`
	// CalendarEventID is the remote calendar event mirroring this chore.
	// Empty until the first successful calendar sync.
	CalendarEventID string `json:"calendar_event_id,omitempty"`
}

// ChoreCompletion is an append-only audit record of who completed a chore
// and when. It is never mutated or deleted.
type ChoreCompletion struct {
	ID          string    `json:"id"`
	ChoreID     string    `json:"chore_id"`
	CompletedBy string    `json:"completed_by"`
	CompletedAt time.Time `json:"completed_at"`
	Notes       string    `json:"notes,omitempty"`
}
