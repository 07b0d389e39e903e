// Package calendar mirrors chores into a remote calendar. The engine
// talks to it through the orchestrator's Calendar contract; this package
// provides the event representation and a Google Calendar binding.
package calendar

import (
	"time"

	"github.com/dukerupert/room8/internal/model"
	"github.com/dukerupert/room8/internal/recurrence"
)

// Event is the external event representation sent to the calendar API.
type Event struct {
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Start       EventTime  `json:"start"`
	End         EventTime  `json:"end"`
	Recurrence  []string   `json:"recurrence,omitempty"`
	Reminders   *Reminders `json:"reminders,omitempty"`
}

type EventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type Reminders struct {
	UseDefault bool               `json:"useDefault"`
	Overrides  []ReminderOverride `json:"overrides,omitempty"`
}

type ReminderOverride struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

// EventFromChore builds the calendar event for a chore: the scheduled
// occurrence with the estimated duration, the matching recurrence rule
// (none for as-needed chores), and popup reminders 30 minutes and one day
// ahead.
func EventFromChore(c model.Chore) Event {
	tz := time.Local.String()
	start := c.ScheduledAt
	end := start.Add(time.Duration(c.EstimatedMinutes) * time.Minute)

	ev := Event{
		Summary:     c.Name,
		Description: c.Description,
		Start:       EventTime{DateTime: start.Format(time.RFC3339), TimeZone: tz},
		End:         EventTime{DateTime: end.Format(time.RFC3339), TimeZone: tz},
		Reminders: &Reminders{
			UseDefault: false,
			Overrides: []ReminderOverride{
				{Method: "popup", Minutes: 30},
				{Method: "popup", Minutes: 1440},
			},
		},
	}

	if rule, ok := recurrence.RRule(c.Frequency); ok {
		ev.Recurrence = []string{rule}
	}
	return ev
}
