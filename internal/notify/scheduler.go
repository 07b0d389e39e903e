package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// reminder is one pending notification. Its id is the chore id plus an
// index, so all reminders for a chore share the chore-id prefix and can
// be canceled together.
type reminder struct {
	id      string
	choreID string
	payload Payload
	at      time.Time
}

// Scheduler implements the orchestrator's Notifier contract on top of the
// push Service: Schedule queues timed reminders, Cancel drops them by
// chore-id prefix, and a ticker loop delivers whatever has come due.
type Scheduler struct {
	mu       sync.Mutex
	service  *Service
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	subs    map[string]Subscription // keyed by endpoint
	pending []reminder

	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(svc *Service, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:  svc,
		logger:   logger,
		interval: 30 * time.Second,
		now:      time.Now,
		subs:     make(map[string]Subscription),
	}
}

// Subscribe registers a push subscription, replacing any previous
// registration for the same endpoint.
func (s *Scheduler) Subscribe(sub Subscription) {
	s.mu.Lock()
	s.subs[sub.Endpoint] = sub
	s.mu.Unlock()
}

// Unsubscribe removes a subscription by endpoint.
func (s *Scheduler) Unsubscribe(endpoint string) {
	s.mu.Lock()
	delete(s.subs, endpoint)
	s.mu.Unlock()
}

// Schedule queues one reminder per time, each carrying the chore id and
// name for later targeted cancellation. Times already in the past are the
// orchestrator's job to filter; any that slip through fire on the next
// tick rather than erroring.
func (s *Scheduler) Schedule(choreID, title, body string, times []time.Time) error {
	if choreID == "" {
		return errors.New("notify: empty chore id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, at := range times {
		s.pending = append(s.pending, reminder{
			id:      fmt.Sprintf("%s-%d", choreID, i),
			choreID: choreID,
			payload: Payload{Title: title, Body: body, ChoreID: choreID, Tag: choreID},
			at:      at,
		})
	}
	return nil
}

// Cancel drops every pending reminder whose id starts with the given
// chore-id prefix.
func (s *Scheduler) Cancel(choreIDPrefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.pending[:0]
	for _, r := range s.pending {
		if !strings.HasPrefix(r.id, choreIDPrefix) {
			kept = append(kept, r)
		}
	}
	s.pending = kept
	return nil
}

// PendingCount returns the number of queued reminders.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Start begins the delivery loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.deliverDue()
			}
		}
	}()
}

// Stop gracefully stops the delivery loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) deliverDue() {
	now := s.now()

	s.mu.Lock()
	var due []reminder
	kept := s.pending[:0]
	for _, r := range s.pending {
		if !r.at.After(now) {
			due = append(due, r)
		} else {
			kept = append(kept, r)
		}
	}
	s.pending = kept

	subs := make([]Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, r := range due {
		for _, sub := range subs {
			if err := s.service.Send(sub, r.payload); err != nil {
				if errors.Is(err, ErrExpired) {
					s.Unsubscribe(sub.Endpoint)
				} else {
					s.logger.Warn("send reminder failed", "chore_id", r.choreID, "error", err)
				}
			}
		}
	}
}
