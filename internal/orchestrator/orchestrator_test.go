package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/room8/internal/calendar"
	"github.com/dukerupert/room8/internal/model"
)

type fakeNotifier struct {
	mu        sync.Mutex
	scheduled [][]time.Time
	choreIDs  []string
	cancels   []string
	schedErr  error
}

func (f *fakeNotifier) Schedule(choreID, title, body string, times []time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.schedErr != nil {
		return f.schedErr
	}
	f.choreIDs = append(f.choreIDs, choreID)
	f.scheduled = append(f.scheduled, times)
	return nil
}

func (f *fakeNotifier) Cancel(prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, prefix)
	return nil
}

type fakeCalendar struct {
	mu         sync.Mutex
	authorized bool
	createErr  error
	creates    int
	updates    []string
	deletes    []string
	nextID     string
}

func (f *fakeCalendar) IsAuthorized() bool { return f.authorized }

func (f *fakeCalendar) CreateEvent(ctx context.Context, ev calendar.Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.creates++
	return f.nextID, nil
}

func (f *fakeCalendar) UpdateEvent(ctx context.Context, id string, ev calendar.Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, id)
	return id, nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return nil
}

type fakeRecorder struct {
	mu          sync.Mutex
	patched     map[string]string
	goneAtRead  bool // chore absent when the sync starts
	goneAtWrite bool // chore deleted between create and write-back
}

func (f *fakeRecorder) CalendarEventID(choreID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.goneAtRead {
		return "", false
	}
	return f.patched[choreID], true
}

func (f *fakeRecorder) SetCalendarEventID(choreID, eventID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.goneAtRead || f.goneAtWrite {
		return false
	}
	if f.patched == nil {
		f.patched = make(map[string]string)
	}
	f.patched[choreID] = eventID
	return true
}

type advisoryLog struct {
	mu   sync.Mutex
	list []Advisory
}

func (a *advisoryLog) record(adv Advisory) {
	a.mu.Lock()
	a.list = append(a.list, adv)
	a.mu.Unlock()
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeNotifier, *fakeCalendar, *fakeRecorder, *advisoryLog) {
	t.Helper()
	n := &fakeNotifier{}
	c := &fakeCalendar{authorized: true, nextID: "evt-123"}
	r := &fakeRecorder{}
	a := &advisoryLog{}
	o := New(n, c, r, a.record, slog.Default())
	return o, n, c, r, a
}

func TestReminderTimesLadder(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	scheduled := now.Add(3 * 24 * time.Hour)

	if got := ReminderTimes(model.PriorityUrgent, scheduled, now); len(got) != 3 {
		t.Errorf("urgent, 3 days out: %d times, want 3", len(got))
	}
	if got := ReminderTimes(model.PriorityHigh, scheduled, now); len(got) != 2 {
		t.Errorf("high, 3 days out: %d times, want 2", len(got))
	}
	if got := ReminderTimes(model.PriorityMedium, scheduled, now); len(got) != 1 {
		t.Errorf("medium: %d times, want 1", len(got))
	}
	if got := ReminderTimes(model.PriorityLow, scheduled, now); len(got) != 1 {
		t.Errorf("low: %d times, want 1", len(got))
	}
}

func TestReminderTimesFiltersElapsed(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	// 30 minutes out: the day-before and hour-before slots have passed.
	got := ReminderTimes(model.PriorityUrgent, now.Add(30*time.Minute), now)
	if len(got) != 1 {
		t.Fatalf("urgent, 30 min out: %d times, want 1", len(got))
	}
	if !got[0].Equal(now.Add(30 * time.Minute)) {
		t.Errorf("remaining time = %v, want the at-time reminder", got[0])
	}

	// Fully in the past: nothing to schedule.
	if got := ReminderTimes(model.PriorityUrgent, now.Add(-time.Hour), now); len(got) != 0 {
		t.Errorf("past chore: %d times, want 0", len(got))
	}
}

func testChore(eventID string) model.Chore {
	return model.Chore{
		ID:               "chore-1",
		Name:             "Mow lawn",
		Frequency:        model.FrequencyWeekly,
		EstimatedMinutes: 60,
		Priority:         model.PriorityUrgent,
		ScheduledAt:      time.Now().Add(3 * 24 * time.Hour),
		CalendarEventID:  eventID,
	}
}

func TestUpsertSchedulesAndCreates(t *testing.T) {
	o, n, c, r, a := newTestOrchestrator(t)

	o.syncUpsert(context.Background(), testChore(""))

	if len(n.cancels) != 1 || n.cancels[0] != "chore-1" {
		t.Errorf("cancels = %v, want existing reminders cleared first", n.cancels)
	}
	if len(n.scheduled) != 1 || len(n.scheduled[0]) != 3 {
		t.Fatalf("scheduled = %v, want one call with 3 times", n.scheduled)
	}
	if c.creates != 1 {
		t.Errorf("creates = %d, want 1", c.creates)
	}
	if r.patched["chore-1"] != "evt-123" {
		t.Errorf("event id not written back: %v", r.patched)
	}
	if len(a.list) != 0 {
		t.Errorf("unexpected advisories: %v", a.list)
	}
}

func TestUpsertWithEventIDUpdatesNeverCreates(t *testing.T) {
	o, _, c, r, _ := newTestOrchestrator(t)
	r.patched = map[string]string{"chore-1": "evt-123"}

	o.syncUpsert(context.Background(), testChore("evt-123"))

	if c.creates != 0 {
		t.Errorf("creates = %d, want 0", c.creates)
	}
	if len(c.updates) != 1 || c.updates[0] != "evt-123" {
		t.Errorf("updates = %v, want [evt-123]", c.updates)
	}
}

func TestStaleSnapshotDoesNotDuplicateCreate(t *testing.T) {
	o, _, c, r, _ := newTestOrchestrator(t)

	// Both tasks queue before the worker runs, so both snapshots carry
	// an empty event id. The second must see the first's write-back and
	// update rather than create again.
	o.EnqueueUpsert(testChore(""))
	o.EnqueueUpsert(testChore(""))
	o.Start(context.Background())

	deadline := time.After(2 * time.Second)
	for {
		c.mu.Lock()
		creates, updates := c.creates, len(c.updates)
		c.mu.Unlock()
		if creates+updates == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("worker did not process both syncs: creates=%d updates=%d", creates, updates)
		case <-time.After(10 * time.Millisecond):
		}
	}
	o.Stop()

	if c.creates != 1 {
		t.Errorf("creates = %d, want 1", c.creates)
	}
	if len(c.updates) != 1 || c.updates[0] != "evt-123" {
		t.Errorf("updates = %v, want the existing event updated", c.updates)
	}
	if r.patched["chore-1"] != "evt-123" {
		t.Errorf("event id = %q, want the original evt-123 kept", r.patched["chore-1"])
	}
}

func TestUpsertForDeletedChoreSkipsCalendar(t *testing.T) {
	o, _, c, r, _ := newTestOrchestrator(t)
	r.goneAtRead = true

	o.syncUpsert(context.Background(), testChore(""))

	if c.creates != 0 || len(c.updates) != 0 {
		t.Errorf("creates=%d updates=%v, want no calendar calls for a deleted chore", c.creates, c.updates)
	}
}

func TestCalendarFailureIsIsolated(t *testing.T) {
	o, n, c, r, a := newTestOrchestrator(t)
	c.createErr = errors.New("quota exceeded")

	o.syncUpsert(context.Background(), testChore(""))

	// Notifications unaffected.
	if len(n.scheduled) != 1 {
		t.Error("calendar failure suppressed notification scheduling")
	}
	// No event id recorded.
	if len(r.patched) != 0 {
		t.Errorf("event id recorded despite failure: %v", r.patched)
	}
	// Advisory surfaced.
	if len(a.list) != 1 || a.list[0].Channel != ChannelCalendar {
		t.Errorf("advisories = %v, want one calendar advisory", a.list)
	}
}

func TestNotificationFailureIsIsolated(t *testing.T) {
	o, n, c, _, a := newTestOrchestrator(t)
	n.schedErr = errors.New("push service down")

	o.syncUpsert(context.Background(), testChore(""))

	if c.creates != 1 {
		t.Error("notification failure suppressed calendar sync")
	}
	if len(a.list) != 1 || a.list[0].Channel != ChannelNotification {
		t.Errorf("advisories = %v, want one notification advisory", a.list)
	}
}

func TestUnauthorizedSkipsCalendarSilently(t *testing.T) {
	o, n, c, _, a := newTestOrchestrator(t)
	c.authorized = false

	o.syncUpsert(context.Background(), testChore(""))

	if c.creates != 0 || len(c.updates) != 0 {
		t.Error("calendar called while unauthorized")
	}
	if len(n.scheduled) != 1 {
		t.Error("notifications should still be scheduled")
	}
	if len(a.list) != 0 {
		t.Errorf("unauthorized is routine, not an advisory: %v", a.list)
	}
}

func TestRemoveCancelsAndDeletes(t *testing.T) {
	o, n, c, _, _ := newTestOrchestrator(t)

	o.syncRemove(context.Background(), task{kind: taskRemove, choreID: "chore-1", choreName: "Mow lawn", eventID: "evt-123"})

	if len(n.cancels) != 1 || n.cancels[0] != "chore-1" {
		t.Errorf("cancels = %v", n.cancels)
	}
	if len(c.deletes) != 1 || c.deletes[0] != "evt-123" {
		t.Errorf("deletes = %v, want exactly one for evt-123", c.deletes)
	}
}

func TestRemoveWithoutEventIDSkipsCalendar(t *testing.T) {
	o, n, c, _, _ := newTestOrchestrator(t)

	o.syncRemove(context.Background(), task{kind: taskRemove, choreID: "chore-1", choreName: "Mow lawn"})

	if len(n.cancels) != 1 {
		t.Errorf("cancels = %v", n.cancels)
	}
	if len(c.deletes) != 0 {
		t.Errorf("deletes = %v, want none", c.deletes)
	}
}

func TestCreateRacingDeleteCleansUpOrphan(t *testing.T) {
	o, _, c, r, _ := newTestOrchestrator(t)
	r.goneAtWrite = true // chore deleted while the create was in flight

	o.syncUpsert(context.Background(), testChore(""))

	if len(c.deletes) != 1 || c.deletes[0] != "evt-123" {
		t.Errorf("deletes = %v, want the freshly created event removed", c.deletes)
	}
}

func TestWorkerDrainsQueue(t *testing.T) {
	o, n, c, _, _ := newTestOrchestrator(t)

	o.Start(context.Background())
	o.EnqueueUpsert(testChore(""))
	o.EnqueueRemove("chore-2", "Old chore", "evt-9")

	deadline := time.After(2 * time.Second)
	for {
		n.mu.Lock()
		cancels := len(n.cancels)
		n.mu.Unlock()
		c.mu.Lock()
		deletes := len(c.deletes)
		c.mu.Unlock()
		if cancels == 2 && deletes == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("worker did not drain queue: cancels=%d deletes=%d", cancels, deletes)
		case <-time.After(10 * time.Millisecond):
		}
	}
	o.Stop()
}
