package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrUnauthorized is returned when a call is attempted without a token.
// Callers are expected to check IsAuthorized first, so hitting this means
// the token was cleared mid-flight.
var ErrUnauthorized = errors.New("calendar: not authorized")

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// GoogleClient talks to the Google Calendar v3 API. Events are created on
// the user's primary calendar.
type GoogleClient struct {
	baseURL    string
	calendarID string
	auth       *AuthManager
	httpClient *http.Client
}

func NewGoogleClient(auth *AuthManager) *GoogleClient {
	return &GoogleClient{
		baseURL:    defaultBaseURL,
		calendarID: "primary",
		auth:       auth,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// IsAuthorized reports whether calendar sync may be attempted.
func (c *GoogleClient) IsAuthorized() bool {
	return c.auth.IsAuthorized()
}

type eventResponse struct {
	ID string `json:"id"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CreateEvent creates an event and returns its id.
func (c *GoogleClient) CreateEvent(ctx context.Context, ev Event) (string, error) {
	return c.writeEvent(ctx, http.MethodPost, c.eventsURL(""), ev)
}

// UpdateEvent replaces the event with the given id and returns the id the
// server reports back (stable across updates).
func (c *GoogleClient) UpdateEvent(ctx context.Context, eventID string, ev Event) (string, error) {
	return c.writeEvent(ctx, http.MethodPut, c.eventsURL(eventID), ev)
}

// DeleteEvent removes the event. Deleting an already-deleted event
// returns an error; callers treat it as best-effort cleanup.
func (c *GoogleClient) DeleteEvent(ctx context.Context, eventID string) error {
	token, ok := c.auth.Token()
	if !ok {
		return ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.eventsURL(eventID), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp)
	}
	return nil
}

func (c *GoogleClient) writeEvent(ctx context.Context, method, url string, ev Event) (string, error) {
	token, ok := c.auth.Token()
	if !ok {
		return "", ErrUnauthorized
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s event: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.statusError(resp)
	}

	var er eventResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if er.ID == "" {
		return "", fmt.Errorf("event id missing from response")
	}
	return er.ID, nil
}

func (c *GoogleClient) statusError(resp *http.Response) error {
	var ae apiError
	if err := json.NewDecoder(resp.Body).Decode(&ae); err == nil && ae.Error.Message != "" {
		return fmt.Errorf("calendar API: %s (status %d)", ae.Error.Message, resp.StatusCode)
	}
	return fmt.Errorf("calendar API: status %d", resp.StatusCode)
}

func (c *GoogleClient) eventsURL(eventID string) string {
	u := c.baseURL + "/calendars/" + url.PathEscape(c.calendarID) + "/events"
	if eventID != "" {
		u += "/" + url.PathEscape(eventID)
	}
	return u
}
