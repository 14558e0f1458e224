package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/tartampluch/go-moodgrid/internal/config"
)

// Session is the credential issued by the mood service.
type Session struct {
	AccessToken string     `json:"accessToken"`
	UserID      string     `json:"userId"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// Expired reports whether the session has an expiry in the past relative to now.
func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// Provider supplies the current bearer token. An empty token with a nil error
// means no session is available.
type Provider interface {
	AccessToken(ctx context.Context) (string, error)
}

// Rotator replaces the token of the current session in place.
type Rotator interface {
	RotateAccessToken(token string) error
}

// Refresher exchanges a still-valid token for a new session.
type Refresher interface {
	RefreshSession(ctx context.Context, token string) (Session, error)
}

// expiresWithin reports whether the session expires before now+margin.
func (s Session) expiresWithin(now time.Time, margin time.Duration) bool {
	return s.ExpiresAt != nil && now.Add(margin).After(*s.ExpiresAt)
}

// MemoryProvider keeps the session in process memory.
type MemoryProvider struct {
	mu      sync.RWMutex
	session *Session
	now     func() time.Time
}

// NewMemoryProvider creates a provider holding s (nil means signed out).
func NewMemoryProvider(s *Session) *MemoryProvider {
	p := &MemoryProvider{now: time.Now}
	if s != nil {
		cp := *s
		p.session = &cp
	}
	return p
}

// AccessToken returns the token of a non-expired session.
func (p *MemoryProvider) AccessToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.session == nil || p.session.Expired(p.now()) {
		return "", nil
	}
	return p.session.AccessToken, nil
}

// RotateAccessToken swaps the token value, keeping the rest of the session.
// A signed-out provider stays signed out.
func (p *MemoryProvider) RotateAccessToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New(config.ErrTokenEmpty)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return errors.New(config.ErrRotateSignedOut)
	}
	p.session.AccessToken = token
	return nil
}

// Set replaces the whole session; nil signs out.
func (p *MemoryProvider) Set(s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s == nil {
		p.session = nil
		return
	}
	cp := *s
	p.session = &cp
}
