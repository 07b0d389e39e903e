// Package orchestrator propagates chore mutations to the notification
// scheduler and the remote calendar. Mutations commit locally first; the
// orchestrator's worker performs the external calls afterwards, so a slow
// or failing adapter can never block or roll back a store operation.
//
// All tasks flow through a single worker goroutine. That serializes the
// calendar event-id write-backs per chore without any per-id locking: two
// syncs for the same chore can never race each other's create/update.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/room8/internal/calendar"
	"github.com/dukerupert/room8/internal/model"
)

// Notifier schedules and cancels chore reminders.
type Notifier interface {
	Schedule(choreID, title, body string, times []time.Time) error
	Cancel(choreIDPrefix string) error
}

// Calendar mirrors chores into the remote calendar service.
type Calendar interface {
	IsAuthorized() bool
	CreateEvent(ctx context.Context, ev calendar.Event) (string, error)
	UpdateEvent(ctx context.Context, eventID string, ev calendar.Event) (string, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// EventIDRecorder is the orchestrator's window onto a chore's remote
// event id: read at sync time to pick create versus update, and written
// back after a successful create. The store serves both under its lock;
// the write-back stays a single-field patch.
type EventIDRecorder interface {
	CalendarEventID(choreID string) (string, bool)
	SetCalendarEventID(choreID, eventID string) bool
}

// Advisory channels.
const (
	ChannelNotification = "notification"
	ChannelCalendar     = "calendar"
)

// Advisory is a non-fatal, user-visible sync warning. Sync failures never
// unwind the local mutation; they surface here instead.
type Advisory struct {
	Channel string `json:"channel"`
	ChoreID string `json:"chore_id"`
	Message string `json:"message"`
}

// AdvisoryFunc receives advisories as they happen. May be nil.
type AdvisoryFunc func(Advisory)

type taskKind int

const (
	taskUpsert taskKind = iota
	taskRemove
)

type task struct {
	kind  taskKind
	chore model.Chore

	// remove-task fields, captured before the chore left the store
	choreID   string
	choreName string
	eventID   string
}

// Orchestrator drives best-effort sync of chores to external systems.
type Orchestrator struct {
	notifier Notifier
	calendar Calendar
	recorder EventIDRecorder
	advise   AdvisoryFunc
	logger   *slog.Logger
	now      func() time.Time

	tasks  chan task
	cancel context.CancelFunc
	done   chan struct{}
}

func New(n Notifier, c Calendar, r EventIDRecorder, advise AdvisoryFunc, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		notifier: n,
		calendar: c,
		recorder: r,
		advise:   advise,
		logger:   logger,
		now:      time.Now,
		tasks:    make(chan task, 64),
	}
}

// EnqueueUpsert queues a sync for a just-created-or-updated chore. Never
// blocks: if the queue is full the task is dropped (the next mutation of
// the chore is the implicit retry anyway).
func (o *Orchestrator) EnqueueUpsert(c model.Chore) {
	o.enqueue(task{kind: taskUpsert, chore: c})
}

// EnqueueRemove queues cleanup for a chore already removed from the
// store: cancel its reminders and, if it was synced, delete its remote
// event.
func (o *Orchestrator) EnqueueRemove(choreID, choreName, calendarEventID string) {
	o.enqueue(task{kind: taskRemove, choreID: choreID, choreName: choreName, eventID: calendarEventID})
}

func (o *Orchestrator) enqueue(t task) {
	select {
	case o.tasks <- t:
	default:
		o.logger.Warn("sync queue full, dropping task", "chore_id", t.choreOrID())
	}
}

func (t task) choreOrID() string {
	if t.kind == taskRemove {
		return t.choreID
	}
	return t.chore.ID
}

// Start launches the sync worker.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)
	o.done = make(chan struct{})

	go func() {
		defer close(o.done)
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-o.tasks:
				o.process(ctx, t)
			}
		}
	}()
}

// Stop halts the worker. Queued tasks are abandoned; external systems
// catch up on the next mutation after restart.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	if o.done != nil {
		<-o.done
	}
}

func (o *Orchestrator) process(ctx context.Context, t task) {
	switch t.kind {
	case taskUpsert:
		o.syncUpsert(ctx, t.chore)
	case taskRemove:
		o.syncRemove(ctx, t)
	}
}

// syncUpsert runs the two sync channels for one chore. Each fails
// independently: a calendar error never suppresses a scheduled
// notification and vice versa.
func (o *Orchestrator) syncUpsert(ctx context.Context, c model.Chore) {
	o.syncNotifications(c)
	o.syncCalendar(ctx, c)
}

func (o *Orchestrator) syncNotifications(c model.Chore) {
	if err := o.notifier.Cancel(c.ID); err != nil {
		o.logger.Warn("cancel reminders failed", "chore_id", c.ID, "error", err)
	}

	times := ReminderTimes(c.Priority, c.ScheduledAt, o.now())
	if len(times) == 0 {
		return
	}

	title := "Chore Due: " + c.Name
	body := c.Description
	if body == "" {
		body = "Time to complete your chore!"
	}

	if err := o.notifier.Schedule(c.ID, title, body, times); err != nil {
		o.logger.Warn("schedule reminders failed", "chore_id", c.ID, "error", err)
		o.advisory(ChannelNotification, c.ID, "Could not schedule reminders for "+c.Name)
	}
}

func (o *Orchestrator) syncCalendar(ctx context.Context, c model.Chore) {
	if !o.calendar.IsAuthorized() {
		// Routine state, not a failure: calendar sync is simply skipped.
		return
	}

	// The snapshot's event id can be stale: a second sync queued before
	// the first one's write-back landed would still see it empty and
	// create a duplicate event. The create-vs-update choice must come
	// from the store's current state.
	eventID, ok := o.recorder.CalendarEventID(c.ID)
	if !ok {
		// Chore already deleted; its remove task owns the cleanup.
		return
	}

	ev := calendar.EventFromChore(c)

	if eventID != "" {
		if _, err := o.calendar.UpdateEvent(ctx, eventID, ev); err != nil {
			o.logger.Warn("update calendar event failed", "chore_id", c.ID, "event_id", eventID, "error", err)
			o.advisory(ChannelCalendar, c.ID, "Calendar update failed for "+c.Name)
		}
		return
	}

	eventID, err := o.calendar.CreateEvent(ctx, ev)
	if err != nil {
		o.logger.Warn("create calendar event failed", "chore_id", c.ID, "error", err)
		o.advisory(ChannelCalendar, c.ID, "Calendar sync failed for "+c.Name)
		return
	}
	if !o.recorder.SetCalendarEventID(c.ID, eventID) {
		// Chore was deleted while the create was in flight; clean up the
		// event we just made rather than leaving an orphan.
		if err := o.calendar.DeleteEvent(ctx, eventID); err != nil {
			o.logger.Warn("cleanup of orphaned event failed", "event_id", eventID, "error", err)
		}
	}
}

// syncRemove cancels reminders and deletes the remote event concurrently.
// Both are fire-and-forget relative to the already-completed local
// removal; a failed remote delete leaves an orphaned event behind.
func (o *Orchestrator) syncRemove(ctx context.Context, t task) {
	var g errgroup.Group

	g.Go(func() error {
		if err := o.notifier.Cancel(t.choreID); err != nil {
			o.logger.Warn("cancel reminders failed", "chore_id", t.choreID, "error", err)
		}
		return nil
	})

	if t.eventID != "" {
		g.Go(func() error {
			if err := o.calendar.DeleteEvent(ctx, t.eventID); err != nil {
				o.logger.Warn("delete calendar event failed", "chore_id", t.choreID, "event_id", t.eventID, "error", err)
				o.advisory(ChannelCalendar, t.choreID, "Could not remove calendar event for "+t.choreName)
			}
			return nil
		})
	}

	g.Wait()
}

func (o *Orchestrator) advisory(channel, choreID, message string) {
	if o.advise != nil {
		o.advise(Advisory{Channel: channel, ChoreID: choreID, Message: message})
	}
}

// ReminderTimes computes the reminder ladder for a priority: urgent
// chores remind a day ahead, an hour ahead, and at the scheduled time;
// high a day ahead and at time; medium and low at time only. Times that
// have already elapsed are dropped.
func ReminderTimes(p model.Priority, scheduledAt, now time.Time) []time.Time {
	var candidates []time.Time
	switch p {
	case model.PriorityUrgent:
		candidates = []time.Time{scheduledAt.Add(-24 * time.Hour), scheduledAt.Add(-time.Hour), scheduledAt}
	case model.PriorityHigh:
		candidates = []time.Time{scheduledAt.Add(-24 * time.Hour), scheduledAt}
	default:
		candidates = []time.Time{scheduledAt}
	}

	times := candidates[:0]
	for _, t := range candidates {
		if t.After(now) {
			times = append(times, t)
		}
	}
	return times
}
