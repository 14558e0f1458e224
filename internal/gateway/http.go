package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tartampluch/go-moodgrid/internal/calendar"
	"github.com/tartampluch/go-moodgrid/internal/config"
	"github.com/tartampluch/go-moodgrid/internal/mood"
	"github.com/tartampluch/go-moodgrid/internal/session"
)

// HTTPGateway implements Gateway against the mood service REST API.
type HTTPGateway struct {
	BaseURL       string
	WallpaperBase string // Base used when the service returns a bare wallpaper token.
	Client        *http.Client

	mu        sync.RWMutex
	onRefresh func(token string)
}

// NewHTTPGateway creates a gateway with configured timeouts.
func NewHTTPGateway(baseURL, wallpaperBase string) *HTTPGateway {
	if wallpaperBase == "" {
		wallpaperBase = baseURL
	}
	return &HTTPGateway{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		WallpaperBase: strings.TrimRight(wallpaperBase, "/"),
		Client: &http.Client{
			Timeout: config.HTTPTimeout,
		},
	}
}

// OnTokenRefresh registers fn to receive credentials refreshed by the service.
func (g *HTTPGateway) OnTokenRefresh(fn func(token string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onRefresh = fn
}

// FetchYearMoods lists the entries of year.
func (g *HTTPGateway) FetchYearMoods(ctx context.Context, year int, token string) ([]mood.Record, error) {
	var out moodListDTO
	q := url.Values{config.QueryYear: {strconv.Itoa(year)}}
	if err := g.do(ctx, http.MethodGet, config.RouteMoods, q, token, nil, &out); err != nil {
		return nil, err
	}
	records := make([]mood.Record, 0, len(out.Moods))
	for _, m := range out.Moods {
		records = append(records, m.record())
	}
	return records, nil
}

// UpsertMood creates or overwrites the entry of date and returns the stored row.
func (g *HTTPGateway) UpsertMood(ctx context.Context, date calendar.DateKey, entry mood.Entry, token string) (mood.Record, error) {
	var out moodDTO
	path := config.RouteMoods + "/" + url.PathEscape(string(date))
	if err := g.do(ctx, http.MethodPut, path, nil, token, toMoodPut(entry), &out); err != nil {
		return mood.Record{}, err
	}
	r := out.record()
	if r.Date == "" {
		r.Date = date
	}
	return r, nil
}

// DeleteMood removes the entry of date.
func (g *HTTPGateway) DeleteMood(ctx context.Context, date calendar.DateKey, token string) error {
	path := config.RouteMoods + "/" + url.PathEscape(string(date))
	return g.do(ctx, http.MethodDelete, path, nil, token, nil, nil)
}

// FetchTheme returns the stored theme.
func (g *HTTPGateway) FetchTheme(ctx context.Context, token string) (mood.ThemeSettings, error) {
	var out themeDTO
	if err := g.do(ctx, http.MethodGet, config.RouteTheme, nil, token, nil, &out); err != nil {
		return mood.ThemeSettings{}, err
	}
	return out.theme(), nil
}

// UpdateTheme sends a partial theme and returns the merged theme stored by the service.
func (g *HTTPGateway) UpdateTheme(ctx context.Context, patch mood.ThemePatch, token string) (mood.ThemeSettings, error) {
	var out themeDTO
	if err := g.do(ctx, http.MethodPut, config.RouteTheme, nil, token, themePatchBody(patch), &out); err != nil {
		return mood.ThemeSettings{}, err
	}
	return out.theme(), nil
}

// FetchWallpaperURL returns the current wallpaper delivery URL.
func (g *HTTPGateway) FetchWallpaperURL(ctx context.Context, token string) (string, error) {
	var out tokenDTO
	if err := g.do(ctx, http.MethodGet, config.RouteToken, nil, token, nil, &out); err != nil {
		return "", err
	}
	return mood.ResolveWallpaperURL(g.WallpaperBase, out.Token, out.URL), nil
}

// RotateWallpaperURL asks the service for a fresh wallpaper token.
func (g *HTTPGateway) RotateWallpaperURL(ctx context.Context, token string) (string, error) {
	var out tokenDTO
	if err := g.do(ctx, http.MethodPost, config.RouteTokenRotate, nil, token, nil, &out); err != nil {
		return "", err
	}
	return mood.ResolveWallpaperURL(g.WallpaperBase, out.Token, out.URL), nil
}

// RefreshSession exchanges token for a new session.
func (g *HTTPGateway) RefreshSession(ctx context.Context, token string) (session.Session, error) {
	var out sessionDTO
	if err := g.do(ctx, http.MethodPost, config.RouteSessionRefresh, nil, token, nil, &out); err != nil {
		return session.Session{}, err
	}
	return out.session()
}

// DeleteSession revokes the server side of the session.
func (g *HTTPGateway) DeleteSession(ctx context.Context, token string) error {
	if err := g.do(ctx, http.MethodDelete, config.RouteSession, nil, token, nil, nil); err != nil {
		return err
	}
	slog.Debug(config.MsgSessionRevoked, config.LogKeyComponent, config.CompGateway)
	return nil
}

// do performs one JSON round trip. Non-2xx responses become *Error.
func (g *HTTPGateway) do(ctx context.Context, method, path string, query url.Values, token string, body, out any) error {
	u, err := url.Parse(g.BaseURL + path)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	requestID := uuid.NewString()
	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompGateway),
		slog.String(config.LogKeyMethod, method),
		slog.String(config.LogKeyURL, u.Scheme+"://"+u.Host+u.Path),
		slog.String(config.LogKeyRequestID, requestID),
	)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: %w", config.ErrEncodeRequest, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	req.Header.Set(config.HeaderAccept, config.MimeJSON)
	req.Header.Set(config.HeaderRequestID, requestID)
	if body != nil {
		req.Header.Set(config.HeaderContentType, config.MimeJSON)
	}
	if token != "" {
		req.Header.Set(config.HeaderAuthorization, config.BearerPrefix+token)
	}

	log.Debug(config.MsgRequest)

	resp, err := g.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	g.notifyRefresh(resp.Header.Get(config.HeaderRefreshedToken))

	limited := io.LimitReader(resp.Body, config.MaxHTTPResponseSize)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var detail errorDTO
		if data, readErr := io.ReadAll(limited); readErr == nil && len(data) > 0 {
			_ = json.Unmarshal(data, &detail)
		}
		log.Warn(config.MsgRequestFailed, slog.Int(config.LogKeyStatus, resp.StatusCode))
		return &Error{Status: resp.StatusCode, Message: detail.message()}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return fmt.Errorf("%s: %w", config.ErrDecodeResponse, err)
	}
	return nil
}

func (g *HTTPGateway) notifyRefresh(token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	g.mu.RLock()
	fn := g.onRefresh
	g.mu.RUnlock()
	if fn != nil {
		fn(token)
	}
}
