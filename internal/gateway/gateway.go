package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tartampluch/go-moodgrid/internal/calendar"
	"github.com/tartampluch/go-moodgrid/internal/config"
	"github.com/tartampluch/go-moodgrid/internal/mood"
	"github.com/tartampluch/go-moodgrid/internal/session"
)

// Gateway is the remote source of truth for moods, theme and the wallpaper link.
// Every call takes the bearer token explicitly; failures carrying an HTTP status
// are returned as *Error.
type Gateway interface {
	FetchYearMoods(ctx context.Context, year int, token string) ([]mood.Record, error)
	UpsertMood(ctx context.Context, date calendar.DateKey, entry mood.Entry, token string) (mood.Record, error)
	DeleteMood(ctx context.Context, date calendar.DateKey, token string) error
	FetchTheme(ctx context.Context, token string) (mood.ThemeSettings, error)
	UpdateTheme(ctx context.Context, patch mood.ThemePatch, token string) (mood.ThemeSettings, error)
	FetchWallpaperURL(ctx context.Context, token string) (string, error)
	RotateWallpaperURL(ctx context.Context, token string) (string, error)
}

// RefreshNotifier is implemented by gateways able to report a refreshed
// credential handed back by the service.
type RefreshNotifier interface {
	OnTokenRefresh(fn func(token string))
}

// SessionService renews and revokes the credential itself.
type SessionService interface {
	session.Refresher
	DeleteSession(ctx context.Context, token string) error
}

// Error is a non-success response of the service.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf(config.ErrRequestFailed, e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// IsAuthorization reports whether err is a 401 or 403 response.
func IsAuthorization(err error) bool {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return false
	}
	return gwErr.Status == http.StatusUnauthorized || gwErr.Status == http.StatusForbidden
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Status
	}
	return 0
}
