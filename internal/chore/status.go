package chore

import (
	"time"

	"github.com/dukerupert/room8/internal/model"
	"github.com/dukerupert/room8/internal/recurrence"
)

type Status string

const (
	StatusOverdue  Status = "overdue"
	StatusDueToday Status = "due_today"
	StatusUpcoming Status = "upcoming"
)

const day = 24 * time.Hour

// IsOverdue reports whether more than one full recurrence interval has
// elapsed since the chore was last completed (or created, if never
// completed). The comparison is strict: a chore is not overdue at exactly
// anchor + interval.
//
// As-needed chores have no interval; they count as overdue once a day has
// passed since creation without a first completion, and never again after
// that first completion.
func IsOverdue(c model.Chore, now time.Time) bool {
	days, ok := recurrence.IntervalDays(c.Frequency)
	if !ok {
		if c.LastCompletedAt != nil {
			return false
		}
		return now.After(c.CreatedAt.Add(day))
	}

	anchor := c.CreatedAt
	if c.LastCompletedAt != nil {
		anchor = *c.LastCompletedAt
	}
	return now.Sub(anchor) > time.Duration(days)*day
}

// IsDueToday reports whether the chore's next occurrence falls on the same
// local calendar day as now. Evaluated independently of IsOverdue: the
// overdue check is a strict elapsed-time comparison while this one spans a
// whole day, so the two can disagree either way.
func IsDueToday(c model.Chore, now time.Time) bool {
	days, ok := recurrence.IntervalDays(c.Frequency)
	if !ok {
		return false
	}

	anchor := c.CreatedAt
	if c.LastCompletedAt != nil {
		anchor = *c.LastCompletedAt
	}
	next := anchor.Add(time.Duration(days) * day)
	return sameDay(next, now)
}

// Evaluate classifies a chore relative to now. Overdue takes precedence
// over due-today; use the predicates directly when both facts matter.
func Evaluate(c model.Chore, now time.Time) Status {
	if IsOverdue(c, now) {
		return StatusOverdue
	}
	if IsDueToday(c, now) {
		return StatusDueToday
	}
	return StatusUpcoming
}

func sameDay(a, b time.Time) bool {
	a, b = a.Local(), b.Local()
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
