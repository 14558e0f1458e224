package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tartampluch/go-moodgrid/internal/calendar"
	"github.com/tartampluch/go-moodgrid/internal/config"
	"github.com/tartampluch/go-moodgrid/internal/mood"
	"github.com/tartampluch/go-moodgrid/internal/session"
)

// JSON shapes of the mood service.

type moodDTO struct {
	Date  string  `json:"date"`
	Level int     `json:"level"`
	Note  *string `json:"note,omitempty"`
}

type moodListDTO struct {
	Moods []moodDTO `json:"moods"`
}

type moodPutDTO struct {
	Level int     `json:"level"`
	Note  *string `json:"note,omitempty"`
}

type themeDTO struct {
	BgColor           string            `json:"bg_color"`
	MoodColors        map[string]string `json:"mood_colors"`
	EmptyColor        *string           `json:"empty_color"`
	Shape             string            `json:"shape"`
	Spacing           string            `json:"spacing"`
	Position          string            `json:"position"`
	AvoidLockScreenUI bool              `json:"avoid_lock_screen_ui"`
	Columns           int               `json:"columns"`
	BgImageURL        *string           `json:"bg_image_url"`
}

type tokenDTO struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

type sessionDTO struct {
	AccessToken string  `json:"accessToken"`
	UserID      string  `json:"userId"`
	ExpiresAt   *string `json:"expiresAt"`
}

type errorDTO struct {
	Detail json.RawMessage `json:"detail"`
}

func (d moodDTO) record() mood.Record {
	r := mood.Record{Date: calendar.DateKey(strings.TrimSpace(d.Date)), Level: d.Level}
	if d.Note != nil {
		r.Note = mood.NormalizeNote(*d.Note)
	}
	return r
}

func (d sessionDTO) session() (session.Session, error) {
	s := session.Session{
		AccessToken: strings.TrimSpace(d.AccessToken),
		UserID:      strings.TrimSpace(d.UserID),
	}
	if d.ExpiresAt != nil && strings.TrimSpace(*d.ExpiresAt) != "" {
		at, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(*d.ExpiresAt))
		if err != nil {
			return session.Session{}, fmt.Errorf("%s: %w", config.ErrDecodeResponse, err)
		}
		s.ExpiresAt = &at
	}
	return s, nil
}

func toMoodPut(e mood.Entry) moodPutDTO {
	dto := moodPutDTO{Level: e.Level}
	if note := mood.NormalizeNote(e.Note); note != "" {
		dto.Note = &note
	}
	return dto
}

// theme converts the wire form, filling anything missing with defaults.
func (d themeDTO) theme() mood.ThemeSettings {
	t := mood.ThemeSettings{
		BgColor:           d.BgColor,
		Shape:             mood.Shape(d.Shape),
		Spacing:           mood.Spacing(d.Spacing),
		Position:          mood.Position(d.Position),
		AvoidLockScreenUI: d.AvoidLockScreenUI,
		Columns:           d.Columns,
	}
	for level := mood.MinLevel; level <= mood.MaxLevel; level++ {
		t.MoodColors[level-mood.MinLevel] = d.MoodColors[strconv.Itoa(level)]
	}
	if d.EmptyColor != nil {
		t.EmptyColor = *d.EmptyColor
	}
	if d.BgImageURL != nil {
		t.BgImageURL = strings.TrimSpace(*d.BgImageURL)
	}
	return t.Complete()
}

// themePatchBody builds the PUT /theme payload. Cleared nullable fields are
// sent as explicit nulls, untouched fields are omitted.
func themePatchBody(p mood.ThemePatch) map[string]any {
	body := make(map[string]any)
	if p.BgColor != nil {
		body["bg_color"] = *p.BgColor
	}
	if len(p.MoodColors) > 0 {
		colors := make(map[string]string, len(p.MoodColors))
		for level, c := range p.MoodColors {
			if mood.ValidLevel(level) {
				colors[strconv.Itoa(level)] = c
			}
		}
		body["mood_colors"] = colors
	}
	if p.EmptyColor != nil {
		body["empty_color"] = nullable(*p.EmptyColor)
	}
	if p.Shape != nil {
		body["shape"] = string(*p.Shape)
	}
	if p.Spacing != nil {
		body["spacing"] = string(*p.Spacing)
	}
	if p.Position != nil {
		body["position"] = string(*p.Position)
	}
	if p.AvoidLockScreenUI != nil {
		body["avoid_lock_screen_ui"] = *p.AvoidLockScreenUI
	}
	if p.Columns != nil {
		body["columns"] = *p.Columns
	}
	if p.BgImageURL != nil {
		body["bg_image_url"] = nullable(*p.BgImageURL)
	}
	return body
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// message extracts a readable detail from an error body. The service sends
// either a string or a list of validation issues.
func (d errorDTO) message() string {
	if len(d.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(d.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var issues []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(d.Detail, &issues); err == nil {
		msgs := make([]string, 0, len(issues))
		for _, i := range issues {
			if i.Msg != "" {
				msgs = append(msgs, i.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
