package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/room8/internal/model"
)

func TestEventFromChore(t *testing.T) {
	start := time.Date(2026, 4, 10, 18, 0, 0, 0, time.Local)
	c := model.Chore{
		Name:             "Deep clean fridge",
		Description:      "Shelves and drawers",
		Frequency:        model.FrequencyBiweekly,
		EstimatedMinutes: 45,
		ScheduledAt:      start,
	}

	ev := EventFromChore(c)
	if ev.Summary != "Deep clean fridge" {
		t.Errorf("summary = %q", ev.Summary)
	}
	if ev.Start.DateTime != start.Format(time.RFC3339) {
		t.Errorf("start = %q", ev.Start.DateTime)
	}
	wantEnd := start.Add(45 * time.Minute).Format(time.RFC3339)
	if ev.End.DateTime != wantEnd {
		t.Errorf("end = %q, want %q", ev.End.DateTime, wantEnd)
	}
	if len(ev.Recurrence) != 1 || ev.Recurrence[0] != "RRULE:FREQ=WEEKLY;INTERVAL=2" {
		t.Errorf("recurrence = %v", ev.Recurrence)
	}
	if ev.Reminders == nil || len(ev.Reminders.Overrides) != 2 {
		t.Error("expected two reminder overrides")
	}
}

func TestEventFromChoreAsNeededHasNoRecurrence(t *testing.T) {
	ev := EventFromChore(model.Chore{
		Name:             "Fix squeaky door",
		Frequency:        model.FrequencyAsNeeded,
		EstimatedMinutes: 15,
		ScheduledAt:      time.Now(),
	})
	if ev.Recurrence != nil {
		t.Errorf("as-needed chore got recurrence %v", ev.Recurrence)
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*GoogleClient, *AuthManager) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	auth := NewAuthManager()
	auth.SetToken("tok-1", time.Time{})
	c := NewGoogleClient(auth)
	c.baseURL = srv.URL
	return c, auth
}

func TestCreateEvent(t *testing.T) {
	var gotMethod, gotPath, gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotAuth = r.Method, r.URL.Path, r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{"id": "evt-123"})
	})

	id, err := client.CreateEvent(context.Background(), Event{Summary: "Trash"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != "evt-123" {
		t.Errorf("id = %q", id)
	}
	if gotMethod != http.MethodPost || gotPath != "/calendars/primary/events" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("auth header = %q", gotAuth)
	}
}

func TestUpdateEventTargetsExistingID(t *testing.T) {
	var gotMethod, gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		json.NewEncoder(w).Encode(map[string]string{"id": "evt-123"})
	})

	id, err := client.UpdateEvent(context.Background(), "evt-123", Event{Summary: "Trash"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if id != "evt-123" {
		t.Errorf("id = %q", id)
	}
	if gotMethod != http.MethodPut || gotPath != "/calendars/primary/events/evt-123" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
}

func TestDeleteEvent(t *testing.T) {
	var gotMethod, gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.DeleteEvent(context.Background(), "evt-123"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/calendars/primary/events/evt-123" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "insufficient permissions"}})
	})

	if _, err := client.CreateEvent(context.Background(), Event{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	client, auth := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent without a token")
	})
	auth.SignOut()

	if client.IsAuthorized() {
		t.Error("client reports authorized after sign-out")
	}
	if _, err := client.CreateEvent(context.Background(), Event{}); err != ErrUnauthorized {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	auth := NewAuthManager()
	auth.SetToken("tok", time.Now().Add(-time.Minute))
	if auth.IsAuthorized() {
		t.Error("expired token reported as authorized")
	}
	auth.SetToken("tok", time.Now().Add(time.Hour))
	if !auth.IsAuthorized() {
		t.Error("valid token reported as unauthorized")
	}
}
