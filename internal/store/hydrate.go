package store

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tartampluch/go-moodgrid/internal/config"
	"github.com/tartampluch/go-moodgrid/internal/gateway"
	"github.com/tartampluch/go-moodgrid/internal/mood"
)

// hydration collects the outcome of the three concurrent fetches. Fields are
// guarded by Store.mu.
type hydration struct {
	themeSeq   uint64
	authFailed bool
}

// Hydrate loads the moods of year, the theme and the wallpaper link.
//
// The three fetches run concurrently and each result is applied as soon as it
// arrives; a failed resource keeps its previous value. The first failure wins
// LastError. An authorization failure on any resource flags AuthRequired and
// resets all three resources, discarding results already applied.
func (s *Store) Hydrate(ctx context.Context, year int) {
	log := slog.With(
		config.LogKeyComponent, config.CompStore,
		config.LogKeyYear, year,
	)
	log.Info(config.MsgHydrateStart)

	var h hydration
	s.update(func(st *State) {
		st.IsHydrating = true
		st.LastError = ""
		h.themeSeq = s.themeSeq.last
	})

	token := s.accessToken(ctx)
	if token == "" {
		log.Info(config.MsgHydrateNoToken)
		s.update(func(st *State) {
			s.resetRemote(st)
			st.HasHydrated = true
			st.IsHydrating = false
		})
		return
	}

	// Failures are recorded in state, never returned, so one resource never
	// cancels the others.
	var g errgroup.Group
	g.Go(func() error {
		records, err := s.gateway.FetchYearMoods(ctx, year, token)
		s.update(func(st *State) {
			if s.failed(st, &h, log, config.ResourceMoods, err) {
				return
			}
			s.replaceYear(st, year, records)
		})
		return nil
	})
	g.Go(func() error {
		theme, err := s.gateway.FetchTheme(ctx, token)
		s.update(func(st *State) {
			if s.failed(st, &h, log, config.ResourceTheme, err) {
				return
			}
			// A theme update issued meanwhile is newer than this read.
			if s.themeSeq.last == h.themeSeq {
				s.adoptTheme(st, theme)
			}
		})
		return nil
	})
	g.Go(func() error {
		link, err := s.gateway.FetchWallpaperURL(ctx, token)
		s.update(func(st *State) {
			if s.failed(st, &h, log, config.ResourceWallpaper, err) {
				return
			}
			st.WallpaperURL = link
		})
		return nil
	})
	_ = g.Wait()

	s.update(func(st *State) {
		if h.authFailed {
			s.resetRemote(st)
			st.AuthRequired = true
		}
		st.HasHydrated = true
		st.IsHydrating = false
		log.Info(config.MsgHydrateDone,
			config.LogKeyCount, len(st.Entries),
		)
	})
}

// failed records err for resource and reports whether its result must not be
// applied. Once an authorization failure was seen no result is applied.
// Callers hold s.mu.
func (s *Store) failed(st *State, h *hydration, log *slog.Logger, resource string, err error) bool {
	if err != nil {
		log.Warn(config.MsgResourceFailed,
			config.LogKeyResource, resource,
			config.LogKeyError, err,
		)
		if st.LastError == "" {
			st.LastError = err.Error()
		}
		if gateway.IsAuthorization(err) {
			log.Warn(config.MsgAuthFailure, config.LogKeyResource, resource)
			h.authFailed = true
			s.resetRemote(st)
			st.AuthRequired = true
		}
		return true
	}
	return h.authFailed
}

// replaceYear swaps the entries of year for records while keeping the local
// value of every key that has a mood write in flight. Callers hold s.mu.
func (s *Store) replaceYear(st *State, year int, records []mood.Record) {
	inFlight := make(mood.Entries)
	for k, v := range st.Entries {
		if k.Year() == year && s.moodSeq.pending(k) {
			inFlight[k] = v
		}
	}
	st.Entries.ReplaceYear(year, records)
	for k := range st.Entries {
		if k.Year() == year && s.moodSeq.pending(k) {
			if _, ok := inFlight[k]; !ok {
				delete(st.Entries, k)
			}
		}
	}
	for k, v := range inFlight {
		st.Entries[k] = v
	}
	// The fetched rows are what the service holds for in-flight dates.
	fetched := make(mood.Entries)
	fetched.ReplaceYear(year, records)
	for k, f := range s.moodFlights {
		if k.Year() == year {
			entry, ok := fetched[k]
			f.base = baseEntry{entry: entry, existed: ok}
		}
	}
}
