package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tartampluch/go-moodgrid/internal/config"
	"github.com/zalando/go-keyring"
)

// KeyringProvider persists the session as JSON in the OS keyring.
type KeyringProvider struct {
	Service string
	User    string

	mu        sync.Mutex
	now       func() time.Time
	refresher Refresher
}

// NewKeyringProvider uses the application's keyring service entry.
func NewKeyringProvider() *KeyringProvider {
	return &KeyringProvider{
		Service: config.KeyringService,
		User:    config.KeyringUser,
		now:     time.Now,
	}
}

// SetRefresher enables renewal of sessions close to their expiry.
func (p *KeyringProvider) SetRefresher(r Refresher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refresher = r
}

// Load returns the stored session, or nil when none is stored.
func (p *KeyringProvider) Load() (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadLocked()
}

func (p *KeyringProvider) loadLocked() (*Session, error) {
	raw, err := keyring.Get(p.Service, p.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSessionLoad, err)
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSessionDecode, err)
	}
	return &s, nil
}

// Save stores s, replacing any previous session.
func (p *KeyringProvider) Save(s Session) error {
	if strings.TrimSpace(s.AccessToken) == "" {
		return errors.New(config.ErrTokenEmpty)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saveLocked(s)
}

func (p *KeyringProvider) saveLocked(s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrSessionSave, err)
	}
	if err := keyring.Set(p.Service, p.User, string(data)); err != nil {
		return fmt.Errorf("%s: %w", config.ErrSessionSave, err)
	}
	return nil
}

// Clear removes the stored session. Clearing an absent session is not an error.
func (p *KeyringProvider) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := keyring.Delete(p.Service, p.User); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%s: %w", config.ErrSessionDelete, err)
	}
	return nil
}

// AccessToken returns the token of a stored, non-expired session. A session
// within config.SessionRefreshMargin of its expiry is renewed first when a
// refresher is set; a failed renewal falls back to the old token while it is
// still valid.
func (p *KeyringProvider) AccessToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	s, err := p.loadLocked()
	refresher := p.refresher
	p.mu.Unlock()
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", nil
	}

	now := p.now()
	if refresher == nil || !s.expiresWithin(now, config.SessionRefreshMargin) {
		if s.Expired(now) {
			return "", nil
		}
		return s.AccessToken, nil
	}

	renewed, err := p.refresh(ctx, refresher, *s)
	if err == nil {
		return renewed.AccessToken, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	slog.Warn(config.ErrSessionRefresh,
		config.LogKeyComponent, config.CompSession,
		config.LogKeyError, err,
	)
	if s.Expired(p.now()) {
		return "", nil
	}
	return s.AccessToken, nil
}

// refresh runs the network call without holding the lock and stores the result.
func (p *KeyringProvider) refresh(ctx context.Context, r Refresher, old Session) (Session, error) {
	renewed, err := r.RefreshSession(ctx, old.AccessToken)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", config.ErrSessionRefresh, err)
	}
	if strings.TrimSpace(renewed.AccessToken) == "" {
		return Session{}, fmt.Errorf("%s: %s", config.ErrSessionRefresh, config.ErrTokenEmpty)
	}
	if renewed.UserID == "" {
		renewed.UserID = old.UserID
	}
	if err := p.Save(renewed); err != nil {
		return Session{}, err
	}

	slog.Debug(config.MsgSessionRenewed,
		config.LogKeyComponent, config.CompSession,
		config.LogKeyKey, p.User,
	)
	return renewed, nil
}

// RotateAccessToken rewrites the stored session with a refreshed token.
func (p *KeyringProvider) RotateAccessToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New(config.ErrTokenEmpty)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.loadLocked()
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrTokenRotate, err)
	}
	if s == nil {
		return errors.New(config.ErrRotateSignedOut)
	}
	s.AccessToken = token
	if err := p.saveLocked(*s); err != nil {
		return fmt.Errorf("%s: %w", config.ErrTokenRotate, err)
	}

	slog.Debug(config.MsgTokenRotated,
		config.LogKeyComponent, config.CompSession,
		config.LogKeyKey, p.User,
	)
	return nil
}
