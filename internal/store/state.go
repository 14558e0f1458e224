package store

import (
	"github.com/tartampluch/go-moodgrid/internal/calendar"
	"github.com/tartampluch/go-moodgrid/internal/mood"
)

// State is everything the UI reads from the store.
type State struct {
	Entries      mood.Entries
	Theme        mood.ThemeSettings
	WallpaperURL string // "" when the service has not provided one.

	IsHydrating     bool
	IsSavingMood    bool
	IsUpdatingTheme bool
	IsRotatingToken bool
	HasHydrated     bool

	// AuthRequired means the session cannot be trusted: act as signed out.
	AuthRequired bool
	// LastError is a human-readable message kept until cleared or replaced.
	LastError string

	SelectedDateKey calendar.DateKey // "" when the picker is closed.
}

func initialState() State {
	return State{
		Entries: make(mood.Entries),
		Theme:   mood.DefaultTheme(),
	}
}

// clone deep-copies the parts of the state that are shared by reference.
func (s State) clone() State {
	s.Entries = s.Entries.Clone()
	return s
}

// resetRemote drops every value obtained from the service.
func (s *State) resetRemote() {
	s.Entries = make(mood.Entries)
	s.Theme = mood.DefaultTheme()
	s.WallpaperURL = ""
}
