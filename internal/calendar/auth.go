package calendar

import (
	"sync"
	"time"
)

// AuthManager owns the process-wide calendar authorization state. Only
// the authorization flow sets or clears the token; everything else (the
// sync orchestrator included) just reads it.
type AuthManager struct {
	mu     sync.RWMutex
	token  string
	expiry time.Time
}

func NewAuthManager() *AuthManager {
	return &AuthManager{}
}

// SetToken stores a bearer token. A zero expiry means the token does not
// expire as far as this process is concerned.
func (a *AuthManager) SetToken(token string, expiry time.Time) {
	a.mu.Lock()
	a.token = token
	a.expiry = expiry
	a.mu.Unlock()
}

// SignOut clears the stored token.
func (a *AuthManager) SignOut() {
	a.mu.Lock()
	a.token = ""
	a.expiry = time.Time{}
	a.mu.Unlock()
}

// IsAuthorized reports whether a usable token is present.
func (a *AuthManager) IsAuthorized() bool {
	_, ok := a.Token()
	return ok
}

// Token returns the current bearer token if present and unexpired.
func (a *AuthManager) Token() (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.token == "" {
		return "", false
	}
	if !a.expiry.IsZero() && time.Now().After(a.expiry) {
		return "", false
	}
	return a.token, true
}
