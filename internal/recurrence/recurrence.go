// Package recurrence maps chore frequencies to their recurrence interval
// and to the RRULE form the calendar API expects.
package recurrence

import "github.com/dukerupert/room8/internal/model"

// IntervalDays returns the number of days between occurrences of a chore
// with the given frequency. The second return is false for frequencies
// with no fixed interval (as-needed chores).
func IntervalDays(f model.Frequency) (int, bool) {
	switch f {
	case model.FrequencyDaily:
		return 1, true
	case model.FrequencyWeekly:
		return 7, true
	case model.FrequencyBiweekly:
		return 14, true
	case model.FrequencyMonthly:
		return 30, true
	default:
		return 0, false
	}
}

// RRule returns the RFC 5545 recurrence rule for the given frequency.
// Biweekly is expressed as weekly with a two-week interval. The second
// return is false when the frequency has no recurrence rule.
func RRule(f model.Frequency) (string, bool) {
	switch f {
	case model.FrequencyDaily:
		return "RRULE:FREQ=DAILY", true
	case model.FrequencyWeekly:
		return "RRULE:FREQ=WEEKLY", true
	case model.FrequencyBiweekly:
		return "RRULE:FREQ=WEEKLY;INTERVAL=2", true
	case model.FrequencyMonthly:
		return "RRULE:FREQ=MONTHLY", true
	default:
		return "", false
	}
}
